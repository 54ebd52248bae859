package pid

import (
	"math"
	"testing"
	"time"

	"github.com/xablanket/Leader-Follower/pkg/clock"
)

func newController(kp, ki, kd float64) (*Controller, *clock.Manual) {
	clk := clock.NewManual()
	clk.Advance(5 * time.Second)
	c := New(DefaultConfig(), clk)
	c.Initialise(kp, ki, kd)
	return c, clk
}

func step(c *Controller, clk *clock.Manual, dt time.Duration, setpoint, measurement float64) float64 {
	clk.Advance(dt)
	return c.Update(setpoint, measurement)
}

func TestIncrementalLaw(t *testing.T) {
	c, clk := newController(2, 0.1, 3)

	expectOutput(t, step(c, clk, time.Millisecond, 5, 0), 25.5)
	expectOutput(t, step(c, clk, time.Millisecond, 3, 0), 0.8)
	expectOutput(t, step(c, clk, time.Millisecond, 3, 0), 7.1)

	terms := c.Terms()
	expectOutput(t, terms.P, 0)
	expectOutput(t, terms.I, 0.3)
	expectOutput(t, terms.D, 6)
}

func TestAbsoluteLaw(t *testing.T) {
	clk := clock.NewManual()
	cfg := DefaultConfig()
	cfg.Law = Absolute
	c := New(cfg, clk)
	c.Initialise(2, 0.5, 1)

	expectOutput(t, step(c, clk, 10*time.Millisecond, 4, 0), 28.4)
	expectOutput(t, step(c, clk, 10*time.Millisecond, 2, 0), 33.8)
}

func TestAbsoluteLawIsLimited(t *testing.T) {
	clk := clock.NewManual()
	cfg := DefaultConfig()
	cfg.Law = Absolute
	cfg.OutputMin, cfg.OutputMax = -40, 60
	c := New(cfg, clk)
	c.Initialise(100, 0, 0)

	expectOutput(t, step(c, clk, time.Millisecond, 1, 0), 60)
	expectOutput(t, step(c, clk, time.Millisecond, -1, 0), -40)
	expectOutput(t, step(c, clk, time.Millisecond, 0.25, 0), 25)
	if p := c.Terms().P; p != 25 {
		t.Errorf("Expected P term 25, got %f", p)
	}
}

func TestSameTickReturnsPreviousOutput(t *testing.T) {
	c, clk := newController(1, 0, 0)
	first := step(c, clk, time.Millisecond, 10, 0)
	clk.Advance(200 * time.Microsecond)
	if out := c.Update(100, 0); out != first {
		t.Fatalf("Expected unchanged output %f within one tick, got %f", first, out)
	}
}

func TestZeroErrorSteadyState(t *testing.T) {
	c, clk := newController(1.5, 0.2, 0.7)
	for i := 0; i < 100; i++ {
		if out := step(c, clk, 10*time.Millisecond, 42, 42); out != 0 {
			t.Fatalf("Step %d: expected 0 output for zero error, got %f", i, out)
		}
	}

	// After a disturbance, zero error must not drive the output away.
	step(c, clk, 10*time.Millisecond, 50, 42)
	step(c, clk, 10*time.Millisecond, 42, 42)
	settled := step(c, clk, 10*time.Millisecond, 42, 42)
	for i := 0; i < 100; i++ {
		out := step(c, clk, 10*time.Millisecond, 42, 42)
		if math.Abs(out) > math.Abs(settled)+1e-9 {
			t.Fatalf("Step %d: output grew from %f to %f", i, settled, out)
		}
	}
}

func TestSlewLimit(t *testing.T) {
	c, clk := newController(4, 0.05, 1)
	c.SetMaxDelta(7)

	last := 0.0
	for i := 0; i < 200; i++ {
		setpoint := 0.0
		if i >= 10 && i < 120 {
			setpoint = 100
		}
		out := step(c, clk, 5*time.Millisecond, setpoint, 0)
		if math.Abs(out-last) > 7+1e-9 {
			t.Fatalf("Step %d: output moved from %f to %f", i, last, out)
		}
		last = out
	}
}

func TestAntiStiction(t *testing.T) {
	expectStiction(t, 3, 0)
	expectStiction(t, -3, 0)
	expectStiction(t, 7, 10)
	expectStiction(t, -7, -10)
	expectStiction(t, 50, 50)
	expectStiction(t, -50, -50)
	expectStiction(t, 0, 0)

	c, clk := newController(1, 0, 0)
	c.SetMinEffectiveOutput(5, 10)
	c.SetOutputLimits(-40, 40)
	expectOutput(t, step(c, clk, time.Millisecond, 50, 0), 40)
}

func expectStiction(t *testing.T, feedback, expected float64) {
	t.Helper()
	c, clk := newController(1, 0, 0)
	c.SetMinEffectiveOutput(5, 10)
	out := step(c, clk, time.Millisecond, feedback, 0)
	if out != expected {
		t.Errorf("Feedback %v resolved to %v, expected %v", feedback, out, expected)
	}
}

func TestDeadzones(t *testing.T) {
	c, clk := newController(1, 0, 0)
	c.SetDeadzone(2, 0)
	expectOutput(t, step(c, clk, time.Millisecond, 1.5, 0), 0)
	expectOutput(t, step(c, clk, time.Millisecond, -1.9, 0), 0)
	expectOutput(t, step(c, clk, time.Millisecond, 2.5, 0), 2.5)

	c, clk = newController(1, 0, 0)
	c.SetDeadzone(0, 3)
	expectOutput(t, step(c, clk, time.Millisecond, 2, 0), 0)
	expectOutput(t, step(c, clk, time.Millisecond, 6, 0), 4)
}

func TestOutputLimits(t *testing.T) {
	c, clk := newController(10, 0, 0)
	c.SetOutputLimits(-20, 30)
	expectOutput(t, step(c, clk, time.Millisecond, 100, 0), 30)
	expectOutput(t, step(c, clk, time.Millisecond, -100, 0), -20)
}

func TestOutputFilter(t *testing.T) {
	c, _ := newController(1, 0, 0)
	c.SetOutputFilter(1.5)
	if f := c.Config().OutputFilter; f != 1 {
		t.Errorf("Expected filter clamped to 1, got %f", f)
	}
	c.SetOutputFilter(-0.2)
	if f := c.Config().OutputFilter; f != 0 {
		t.Errorf("Expected filter clamped to 0, got %f", f)
	}

	c, clk := newController(1, 0, 0)
	c.SetOutputFilter(0.5)
	expectOutput(t, step(c, clk, time.Millisecond, 10, 0), 5)
}

func TestResetKeepsConfiguration(t *testing.T) {
	c, clk := newController(3, 0.2, 0.1)
	c.SetDeadzone(1, 2)
	c.SetOutputLimits(-50, 60)
	c.SetMaxDelta(9)
	c.SetOutputFilter(0.7)
	c.SetMinEffectiveOutput(4, 8)
	step(c, clk, time.Millisecond, 30, 0)
	before := c.Config()

	c.Reset()

	if c.Config() != before {
		t.Fatalf("Reset changed config from %+v to %+v", before, c.Config())
	}
	if c.Output() != 0 || c.Terms() != (Terms{}) {
		t.Fatalf("Reset left state behind: %+v", c.Terms())
	}
}

func expectOutput(t *testing.T, actual, expected float64) {
	t.Helper()
	if math.Abs(actual-expected) > 1e-9 {
		t.Errorf("Got %.12f, expected %.12f", actual, expected)
	}
}
