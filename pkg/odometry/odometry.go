package odometry

import (
	"math"
	"time"

	"github.com/xablanket/Leader-Follower/pkg/chassis"
	"github.com/xablanket/Leader-Follower/pkg/clock"
)

// TickSource provides a consistent snapshot of both wheels' tick counters.
// encoder.Pair satisfies it.
type TickSource interface {
	Snapshot() (left, right int64)
}

type Pose struct {
	X, Y float64 // mm
	// Heading in radians.  It is not wrapped; use angle.Wrap when a bounded
	// value is needed.
	Heading float64
}

// Speeds are wheel speeds in encoder counts per second, measured over the
// most recent Update.
type Speeds struct {
	Left, Right float64
}

// Integrator dead-reckons the robot's pose from wheel ticks.  It is not safe
// for concurrent use; it belongs to the control loop.
type Integrator struct {
	ticks      TickSource
	clock      clock.Clock
	mmPerCount float64
	wheelSepMM float64

	pose                Pose
	speeds              Speeds
	lastLeft, lastRight int64
	lastUpdate          time.Duration
}

func New(ticks TickSource, geom chassis.Geometry, clk clock.Clock) *Integrator {
	return &Integrator{
		ticks:      ticks,
		clock:      clk,
		mmPerCount: geom.MMPerCount(),
		wheelSepMM: geom.CentreToWheelMM * 2,
	}
}

// Initialise sets the pose and takes the current tick counters as the
// baseline.  It must be called before the first Update.
func (i *Integrator) Initialise(x, y, heading float64) {
	i.lastLeft, i.lastRight = i.ticks.Snapshot()
	i.pose = Pose{X: x, Y: y, Heading: heading}
	i.speeds = Speeds{}
	i.lastUpdate = i.clock.Now()
}

// Update integrates the ticks seen since the previous call.  The motion is
// treated as a straight segment along the heading at the start of the step.
func (i *Integrator) Update() Pose {
	left, right := i.ticks.Snapshot()
	dLeft := left - i.lastLeft
	dRight := right - i.lastRight
	i.lastLeft, i.lastRight = left, right

	forward := float64(dLeft+dRight) / 2 * i.mmPerCount
	dHeading := float64(dRight-dLeft) * i.mmPerCount / i.wheelSepMM

	i.pose.X += forward * math.Cos(i.pose.Heading)
	i.pose.Y += forward * math.Sin(i.pose.Heading)
	i.pose.Heading += dHeading

	now := i.clock.Now()
	if dt := (now - i.lastUpdate).Seconds(); dt > 0 {
		i.speeds = Speeds{
			Left:  float64(dLeft) / dt,
			Right: float64(dRight) / dt,
		}
	}
	i.lastUpdate = now

	return i.pose
}

func (i *Integrator) Pose() Pose {
	return i.pose
}

func (i *Integrator) Speeds() Speeds {
	return i.speeds
}
