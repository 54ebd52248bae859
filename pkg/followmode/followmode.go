package followmode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xablanket/Leader-Follower/pkg/bumpsensor"
	"github.com/xablanket/Leader-Follower/pkg/clock"
	"github.com/xablanket/Leader-Follower/pkg/config"
	"github.com/xablanket/Leader-Follower/pkg/hardware"
	"github.com/xablanket/Leader-Follower/pkg/odometry"
	"github.com/xablanket/Leader-Follower/pkg/pid"
	"github.com/xablanket/Leader-Follower/pkg/sound"
	"github.com/xablanket/Leader-Follower/pkg/telemetry"
)

// FollowMode keeps the follower behind the leader's IR emitter.  The
// left/right balance of the proximity sensors steers; the overall change
// from background sets the distance.
type FollowMode struct {
	hw  hardware.Interface
	cfg config.Config

	cancel context.CancelFunc
	stopWG sync.WaitGroup
}

func New(hw hardware.Interface, cfg config.Config) *FollowMode {
	return &FollowMode{
		hw:  hw,
		cfg: cfg,
	}
}

func (m *FollowMode) Name() string {
	return "FOLLOW MODE"
}

func (m *FollowMode) StartupSound() string {
	return sound.Start
}

func (m *FollowMode) Start(ctx context.Context) {
	m.stopWG.Add(1)
	var loopCtx context.Context
	loopCtx, m.cancel = context.WithCancel(ctx)
	go m.loop(loopCtx)
}

func (m *FollowMode) Stop() {
	m.cancel()
	m.stopWG.Wait()
}

func (m *FollowMode) loop(ctx context.Context) {
	defer m.stopWG.Done()
	mot := m.hw.Motors()
	defer func() {
		if err := mot.Stop(); err != nil {
			fmt.Println("FOLLOW: failed to stop motors:", err)
		}
	}()

	display := m.hw.Display()
	cues := m.hw.Sound()
	tel := m.hw.Telemetry()

	// The background must be taken with nothing in view and the motors off.
	_ = mot.Stop()
	display.ShowRows(m.Name(), "CALIBRATING")
	c := newController(m.cfg, m.hw.Bump(), m.hw.Ticks(), m.hw.Clock())
	if err := c.sensors.CalibrateBackground(ctx); err != nil {
		return
	}
	c.reset()
	display.ShowRows(m.Name(), "WAITING")

	ticker := time.NewTicker(m.cfg.LoopPeriod)
	defer ticker.Stop()

	hadLeader := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		out := c.step()
		if out.leader != hadLeader {
			if out.leader {
				fmt.Println("FOLLOW: leader found")
				cues.Play(sound.LeaderFound)
			} else {
				fmt.Println("FOLLOW: leader lost")
				cues.Play(sound.LeaderLost)
			}
			hadLeader = out.leader
		}
		if err := mot.SetPWM(out.left, out.right); err != nil {
			fmt.Println("FOLLOW: motor command failed:", err)
		}

		if m.cfg.TelemetryEvery > 0 && c.sample%m.cfg.TelemetryEvery == 0 {
			tel.Send(out.row)
			status := "NO LEADER"
			if out.leader {
				status = fmt.Sprintf("b=%+.0f d=%.0f", out.balance, out.change)
			}
			display.ShowRows(m.Name(), status)
		}
	}
}

type output struct {
	left, right     float64
	leader          bool
	balance, change float64
	row             telemetry.Row
}

type controller struct {
	cfg      config.Follow
	sensors  *bumpsensor.Sensors
	odo      *odometry.Integrator
	steer    *pid.Controller
	distance *pid.Controller
	sample   int
}

func newController(cfg config.Config, channels []bumpsensor.Channel, ticks odometry.TickSource, clk clock.Clock) *controller {
	c := &controller{
		cfg:      cfg.Follow,
		sensors:  bumpsensor.New(cfg.Follow.Sensors, clk, channels...),
		odo:      odometry.New(ticks, cfg.Geometry, clk),
		steer:    pid.New(cfg.Follow.Steering, clk),
		distance: pid.New(cfg.Follow.Distance, clk),
	}
	c.reset()
	return c
}

// reset restarts odometry and both control loops from the current time.
func (c *controller) reset() {
	c.odo.Initialise(0, 0, 0)
	s, d := c.cfg.Steering, c.cfg.Distance
	c.steer.Initialise(s.Kp, s.Ki, s.Kd)
	c.distance.Initialise(d.Kp, d.Ki, d.Kd)
}

func (c *controller) step() output {
	c.sensors.Update()
	pose := c.odo.Update()
	speeds := c.odo.Speeds()

	out := output{
		balance: c.sensors.Balance(),
		change:  c.sensors.SignalChange(),
		row: telemetry.Row{
			Sample:     c.sample,
			X:          pose.X,
			Y:          pose.Y,
			Heading:    pose.Heading,
			LeftSpeed:  speeds.Left,
			RightSpeed: speeds.Right,
		},
	}
	c.sample++

	if !c.sensors.HasSignal(c.cfg.Threshold) {
		c.steer.Reset()
		c.distance.Reset()
		return out
	}

	// A stronger left signal gives a negative balance, which turns left.
	turn := c.steer.Update(0, out.balance)
	forward := c.distance.Update(c.cfg.TargetChange, out.change)

	out.leader = true
	out.left = forward - turn
	out.right = forward + turn
	out.row.Turn = turn
	return out
}
