package odometry

import (
	"math"
	"testing"
	"time"

	"github.com/xablanket/Leader-Follower/pkg/chassis"
	"github.com/xablanket/Leader-Follower/pkg/clock"
)

type fakeTicks struct {
	left, right int64
}

func (f *fakeTicks) Snapshot() (int64, int64) {
	return f.left, f.right
}

const tolerance = 1e-9

func TestStraightLine(t *testing.T) {
	for _, heading := range []float64{0, math.Pi / 4, -2} {
		ticks := &fakeTicks{left: 1000, right: -50}
		clk := clock.NewManual()
		geom := chassis.Default()
		odo := New(ticks, geom, clk)
		odo.Initialise(10, 20, heading)

		const steps, perStep = 50, 7
		for n := 0; n < steps; n++ {
			ticks.left += perStep
			ticks.right += perStep
			clk.Advance(10 * time.Millisecond)
			odo.Update()
		}

		dist := steps * perStep * geom.MMPerCount()
		p := odo.Pose()
		expectNear(t, "heading", p.Heading, heading)
		expectNear(t, "x", p.X, 10+dist*math.Cos(heading))
		expectNear(t, "y", p.Y, 20+dist*math.Sin(heading))
	}
}

func TestPureRotation(t *testing.T) {
	ticks := &fakeTicks{}
	geom := chassis.Default()
	odo := New(ticks, geom, clock.NewManual())
	odo.Initialise(0, 0, 0)

	ticks.left -= 100
	ticks.right += 100
	p := odo.Update()

	expectNear(t, "x", p.X, 0)
	expectNear(t, "y", p.Y, 0)
	expected := 200 * geom.MMPerCount() / (2 * geom.CentreToWheelMM)
	expectNear(t, "heading", p.Heading, expected)

	// Twice the separation halves the turn.
	wide := geom
	wide.CentreToWheelMM *= 2
	ticks2 := &fakeTicks{}
	odo2 := New(ticks2, wide, clock.NewManual())
	odo2.Initialise(0, 0, 0)
	ticks2.left, ticks2.right = -100, 100
	expectNear(t, "wide heading", odo2.Update().Heading, expected/2)
}

func TestHeadingIsNotWrapped(t *testing.T) {
	ticks := &fakeTicks{}
	odo := New(ticks, chassis.Default(), clock.NewManual())
	odo.Initialise(0, 0, 0)
	for i := 0; i < 100; i++ {
		ticks.left -= 50
		ticks.right += 50
		odo.Update()
	}
	if odo.Pose().Heading < 4*math.Pi {
		t.Fatalf("Expected heading to accumulate past 4Pi, got %f", odo.Pose().Heading)
	}
}

func TestHeadingUpdatedAfterPosition(t *testing.T) {
	ticks := &fakeTicks{}
	geom := chassis.Default()
	odo := New(ticks, geom, clock.NewManual())
	odo.Initialise(0, 0, 0)

	// A right-biased step both moves and turns; the move uses the old heading.
	ticks.left, ticks.right = 10, 30
	p := odo.Update()
	expectNear(t, "x", p.X, 20*geom.MMPerCount())
	expectNear(t, "y", p.Y, 0)
}

func TestSpeeds(t *testing.T) {
	ticks := &fakeTicks{}
	clk := clock.NewManual()
	odo := New(ticks, chassis.Default(), clk)
	odo.Initialise(0, 0, 0)

	ticks.left, ticks.right = 25, -50
	clk.Advance(250 * time.Millisecond)
	odo.Update()
	s := odo.Speeds()
	expectNear(t, "left speed", s.Left, 100)
	expectNear(t, "right speed", s.Right, -200)

	// No time passing keeps the last estimate.
	ticks.left += 1
	odo.Update()
	expectNear(t, "left speed", odo.Speeds().Left, 100)
}

func expectNear(t *testing.T, what string, actual, expected float64) {
	t.Helper()
	if math.Abs(actual-expected) > tolerance*math.Max(1, math.Abs(expected)) {
		t.Errorf("%s: got %.12f, expected %.12f", what, actual, expected)
	}
}
