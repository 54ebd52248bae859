package bumpsensor

import (
	"time"

	"periph.io/x/periph/conn/gpio"

	"github.com/xablanket/Leader-Follower/pkg/clock"
)

const (
	DefaultChargeTime       = 10 * time.Microsecond
	DefaultDischargeTimeout = 3000 * time.Microsecond
)

// DischargePin is the subset of gpio.PinIO the timer needs.
type DischargePin interface {
	Out(l gpio.Level) error
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
}

// DischargeTimer measures how long a charged sensor pin takes to decay below
// the input threshold, in microseconds.  A pin that never decays reads as
// the timeout, which downstream logic sees as no signal.
type DischargeTimer struct {
	Pin        DischargePin
	Clock      clock.Clock
	ChargeTime time.Duration
	Timeout    time.Duration
}

func NewDischargeTimer(pin DischargePin, clk clock.Clock) *DischargeTimer {
	return &DischargeTimer{
		Pin:        pin,
		Clock:      clk,
		ChargeTime: DefaultChargeTime,
		Timeout:    DefaultDischargeTimeout,
	}
}

func (d *DischargeTimer) Sample() float64 {
	return float64(d.Measure()) / float64(time.Microsecond)
}

// Measure charges the pin, releases it and busy-waits for it to go low.
func (d *DischargeTimer) Measure() time.Duration {
	if err := d.Pin.Out(gpio.High); err != nil {
		return d.Timeout
	}
	d.Clock.Sleep(d.ChargeTime)
	if err := d.Pin.In(gpio.Float, gpio.NoEdge); err != nil {
		return d.Timeout
	}

	start := d.Clock.Now()
	for {
		low := d.Pin.Read() == gpio.Low
		elapsed := d.Clock.Now() - start
		if elapsed >= d.Timeout {
			return d.Timeout
		}
		if low {
			return elapsed
		}
	}
}
