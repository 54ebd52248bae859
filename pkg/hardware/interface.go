package hardware

import (
	"context"

	"github.com/xablanket/Leader-Follower/pkg/bumpsensor"
	"github.com/xablanket/Leader-Follower/pkg/clock"
	"github.com/xablanket/Leader-Follower/pkg/linesensor"
	"github.com/xablanket/Leader-Follower/pkg/motors"
	"github.com/xablanket/Leader-Follower/pkg/odometry"
	"github.com/xablanket/Leader-Follower/pkg/screen"
	"github.com/xablanket/Leader-Follower/pkg/sound"
	"github.com/xablanket/Leader-Follower/pkg/telemetry"
)

// Interface is everything the modes need from the robot.
type Interface interface {
	Start(ctx context.Context)
	Shutdown()

	Clock() clock.Clock
	Ticks() odometry.TickSource
	Line() linesensor.Source
	// Bump returns the proximity channels, left then right.
	Bump() []bumpsensor.Channel
	Motors() motors.Interface

	Display() screen.Display
	Sound() sound.Player
	Telemetry() telemetry.Sender

	// ModePressed is signalled on each press of the mode button.
	ModePressed() <-chan struct{}
}
