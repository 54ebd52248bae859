package motors

import (
	"math"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"

	"github.com/xablanket/Leader-Follower/pkg/pca9685"
)

// Commands are in 8-bit duty units, as produced by the PID controllers.
const FullDuty = 255

// Direction pin levels.
const (
	Forward = gpio.Low
	Reverse = gpio.High
)

type Interface interface {
	// SetPWM drives both wheels.  The sign selects direction; the magnitude
	// is truncated, then clamped to the configured maximum.
	SetPWM(left, right float64) error
	Stop() error
}

// DirectionPin is the subset of gpio.PinOut the driver needs.
type DirectionPin interface {
	Out(l gpio.Level) error
}

type Wheel struct {
	PWMChannel int
	Dir        DirectionPin
	// Invert swaps the direction levels for a motor mounted the other way.
	Invert bool
}

type Motors struct {
	pwm         pca9685.Interface
	left, right Wheel
	maxPWM      float64
}

func New(pwm pca9685.Interface, left, right Wheel, maxPWM float64) *Motors {
	if maxPWM <= 0 || maxPWM > FullDuty {
		maxPWM = FullDuty
	}
	return &Motors{
		pwm:    pwm,
		left:   left,
		right:  right,
		maxPWM: maxPWM,
	}
}

func (m *Motors) MaxPWM() float64 {
	return m.maxPWM
}

func (m *Motors) SetPWM(left, right float64) error {
	if err := m.drive("left", m.left, left); err != nil {
		return err
	}
	return m.drive("right", m.right, right)
}

func (m *Motors) Stop() error {
	return m.SetPWM(0, 0)
}

// Magnitude is the duty a command resolves to.
func (m *Motors) Magnitude(command float64) float64 {
	mag := math.Trunc(math.Abs(command))
	if math.IsNaN(mag) {
		return 0
	}
	return math.Min(mag, m.maxPWM)
}

func (m *Motors) drive(name string, w Wheel, command float64) error {
	level := Forward
	if command < 0 {
		level = Reverse
	}
	if w.Invert {
		level = !level
	}
	if err := w.Dir.Out(level); err != nil {
		return errors.Wrapf(err, "failed to set %s motor direction", name)
	}
	if err := m.pwm.SetDuty(w.PWMChannel, m.Magnitude(command)/FullDuty); err != nil {
		return errors.Wrapf(err, "failed to set %s motor duty", name)
	}
	return nil
}
