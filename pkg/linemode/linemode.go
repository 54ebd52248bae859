package linemode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xablanket/Leader-Follower/pkg/clock"
	"github.com/xablanket/Leader-Follower/pkg/config"
	"github.com/xablanket/Leader-Follower/pkg/hardware"
	"github.com/xablanket/Leader-Follower/pkg/linesensor"
	"github.com/xablanket/Leader-Follower/pkg/odometry"
	"github.com/xablanket/Leader-Follower/pkg/pid"
	"github.com/xablanket/Leader-Follower/pkg/sound"
	"github.com/xablanket/Leader-Follower/pkg/telemetry"
)

// LineMode drives the leader along a line: the line array's centroid error
// steers through a PID controller around a fixed base speed.
type LineMode struct {
	hw  hardware.Interface
	cfg config.Config

	cancel context.CancelFunc
	stopWG sync.WaitGroup
}

func New(hw hardware.Interface, cfg config.Config) *LineMode {
	return &LineMode{
		hw:  hw,
		cfg: cfg,
	}
}

func (m *LineMode) Name() string {
	return "LINE MODE"
}

func (m *LineMode) StartupSound() string {
	return sound.Start
}

func (m *LineMode) Start(ctx context.Context) {
	m.stopWG.Add(1)
	var loopCtx context.Context
	loopCtx, m.cancel = context.WithCancel(ctx)
	go m.loop(loopCtx)
}

func (m *LineMode) Stop() {
	m.cancel()
	m.stopWG.Wait()
}

func (m *LineMode) loop(ctx context.Context) {
	defer m.stopWG.Done()
	defer func() {
		if err := m.hw.Motors().Stop(); err != nil {
			fmt.Println("LINE: failed to stop motors:", err)
		}
	}()

	c := newController(m.cfg, m.hw.Ticks(), m.hw.Clock())
	mot := m.hw.Motors()
	display := m.hw.Display()
	cues := m.hw.Sound()
	tel := m.hw.Telemetry()

	ticker := time.NewTicker(m.cfg.LoopPeriod)
	defer ticker.Stop()

	var lastErr error
	wasOnLine := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		raw, err := m.hw.Line().ReadLine()
		if err != nil {
			if lastErr == nil {
				fmt.Println("LINE: read failed:", err)
			}
			lastErr = err
			_ = mot.Stop()
			continue
		}
		lastErr = nil

		out := c.step(raw)
		if out.onLine != wasOnLine {
			if out.onLine {
				cues.Play(sound.LineFound)
			} else {
				fmt.Println("LINE: lost the line")
				cues.Play(sound.LineLost)
			}
			wasOnLine = out.onLine
		}
		if err := mot.SetPWM(out.left, out.right); err != nil {
			fmt.Println("LINE: motor command failed:", err)
		}

		if m.cfg.TelemetryEvery > 0 && c.sample%m.cfg.TelemetryEvery == 0 {
			tel.Send(out.row)
			status := "LOST"
			if out.onLine {
				status = fmt.Sprintf("e=%+.2f", out.row.LineError)
			}
			display.ShowRows(m.Name(), fmt.Sprintf("%.0f,%.0f %s", out.row.X, out.row.Y, status))
		}
	}
}

type output struct {
	left, right float64
	onLine      bool
	row         telemetry.Row
}

// controller is one line-following step, separated from the loop's timing
// and I/O.
type controller struct {
	cfg    config.Line
	array  *linesensor.Array
	odo    *odometry.Integrator
	steer  *pid.Controller
	sample int

	// Sensor that last saw the line, for searching after losing it.
	lastDominant int
}

func newController(cfg config.Config, ticks odometry.TickSource, clk clock.Clock) *controller {
	c := &controller{
		cfg:   cfg.Line,
		array: linesensor.New(cfg.Line.Bounds, cfg.Line.Options),
		odo:   odometry.New(ticks, cfg.Geometry, clk),
		steer: pid.New(cfg.Line.Steering, clk),

		lastDominant: linesensor.None,
	}
	c.odo.Initialise(0, 0, 0)
	s := cfg.Line.Steering
	c.steer.Initialise(s.Kp, s.Ki, s.Kd)
	return c
}

func (c *controller) step(raw []float64) output {
	c.array.Normalize(raw)
	pose := c.odo.Update()
	speeds := c.odo.Speeds()

	out := output{
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

	lineErr, seen := c.array.LineError()
	if !seen || !c.array.OnLine(c.cfg.OnLineThreshold) {
		c.steer.Reset()
		out.left, out.right = c.search()
		return out
	}
	if d := c.array.DominantSensor(c.cfg.DominantThreshold); d != linesensor.None {
		c.lastDominant = d
	}

	// A positive error means the line is to the right; a positive turn
	// steers left.
	turn := c.steer.Update(0, lineErr)
	out.onLine = true
	out.left = c.cfg.BasePWM - turn
	out.right = c.cfg.BasePWM + turn
	out.row.LineError = lineErr
	out.row.Turn = turn
	return out
}

// search spins on the spot towards the side the line was last seen on, or
// stays put if it was never seen off-centre.
func (c *controller) search() (left, right float64) {
	centre := (c.array.NumSensors() - 1) / 2
	speed := c.cfg.BasePWM / 2
	switch {
	case c.lastDominant == linesensor.None:
		return 0, 0
	case c.lastDominant < centre:
		return -speed, speed
	case c.lastDominant > centre:
		return speed, -speed
	}
	return 0, 0
}
