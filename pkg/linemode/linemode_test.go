package linemode

import (
	"testing"
	"time"

	"github.com/xablanket/Leader-Follower/pkg/clock"
	"github.com/xablanket/Leader-Follower/pkg/config"
	"github.com/xablanket/Leader-Follower/pkg/linesensor"
)

type fakeTicks struct {
	left, right int64
}

func (f *fakeTicks) Snapshot() (int64, int64) {
	return f.left, f.right
}

func newTestController() (*controller, *fakeTicks, *clock.Manual) {
	cfg := config.Default()
	for i := range cfg.Line.Bounds {
		cfg.Line.Bounds[i] = linesensor.Bounds{Min: 100, Max: 900}
	}
	ticks := &fakeTicks{}
	clk := clock.NewManual()
	return newController(cfg, ticks, clk), ticks, clk
}

func TestCentredLineDrivesStraight(t *testing.T) {
	c, _, clk := newTestController()
	clk.Advance(10 * time.Millisecond)
	out := c.step([]float64{100, 100, 900, 100, 100})
	if !out.onLine {
		t.Fatal("Expected to be on the line")
	}
	if out.left != c.cfg.BasePWM || out.right != c.cfg.BasePWM {
		t.Errorf("Expected both wheels at base speed, got %v %v", out.left, out.right)
	}
}

func TestSteersTowardsLine(t *testing.T) {
	c, _, clk := newTestController()
	clk.Advance(10 * time.Millisecond)
	out := c.step([]float64{100, 100, 100, 900, 100})
	if out.row.LineError <= 0 {
		t.Fatalf("Expected a positive error for a line to the right, got %v", out.row.LineError)
	}
	if out.left <= out.right {
		t.Errorf("Expected a right turn, got left %v right %v", out.left, out.right)
	}

	clk.Advance(10 * time.Millisecond)
	out = c.step([]float64{900, 100, 100, 100, 100})
	if out.left >= out.right {
		t.Errorf("Expected a left turn, got left %v right %v", out.left, out.right)
	}
}

func TestSearchesAfterLosingLine(t *testing.T) {
	c, _, clk := newTestController()

	clk.Advance(10 * time.Millisecond)
	if out := c.step([]float64{100, 100, 100, 100, 100}); out.onLine || out.left != 0 || out.right != 0 {
		t.Errorf("Expected to wait when the line was never seen, got %+v", out)
	}

	clk.Advance(10 * time.Millisecond)
	c.step([]float64{100, 100, 100, 850, 900})
	clk.Advance(10 * time.Millisecond)
	out := c.step([]float64{100, 100, 100, 100, 100})
	if out.onLine {
		t.Fatal("Expected the line to be lost")
	}
	if out.left <= 0 || out.right >= 0 {
		t.Errorf("Expected to spin right towards the line, got %v %v", out.left, out.right)
	}
}

func TestTelemetryRow(t *testing.T) {
	c, ticks, clk := newTestController()
	ticks.left, ticks.right = 50, 50
	clk.Advance(500 * time.Millisecond)
	out := c.step([]float64{100, 100, 900, 100, 100})
	if out.row.Sample != 0 || out.row.X <= 0 || out.row.LeftSpeed != 100 {
		t.Errorf("Unexpected first row %+v", out.row)
	}
	clk.Advance(10 * time.Millisecond)
	if out := c.step([]float64{100, 100, 900, 100, 100}); out.row.Sample != 1 {
		t.Errorf("Expected sample 1, got %d", out.row.Sample)
	}
}
