package pca9685

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x40

	RegMode1 = 0x00
	RegMode2 = 0x01

	// Each output has two 16-bit (low byte first) registers: on time, then
	// off time.
	RegLEDBase = 0x06

	RegPreScale = 0xfe

	NumChannels = 16

	OscillatorHz = 25e6

	// Motor drivers are happy well above the servo rate; stay below the
	// audible whine of the small gear motors.
	DefaultFrequencyHz = 1000

	PWMMax = 4095

	mode1Sleep     = 0x10
	mode1AutoInc   = 0x20
	mode1Restart   = 0x80
	mode2TotemPole = 0x04
	fullOffBit     = 0x10
)

// Interface drives duty cycles on the PWM outputs.
type Interface interface {
	Configure(frequencyHz float64) error
	// SetDuty sets channel's duty cycle; duty is clamped to [0, 1].
	SetDuty(channel int, duty float64) error
	Close() error
}

type register interface {
	WriteReg(reg byte, buf []byte) error
	Close() error
}

type PCA9685 struct {
	dev register
}

func New(deviceFile string) (Interface, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, DefaultAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open PWM controller on %s", deviceFile)
	}
	return &PCA9685{dev: dev}, nil
}

// PreScale is the prescaler register value for the given output frequency.
func PreScale(frequencyHz float64) byte {
	v := math.Round(OscillatorHz/(4096*frequencyHz)) - 1
	if v < 3 {
		v = 3
	}
	if v > 255 {
		v = 255
	}
	return byte(v)
}

func (p *PCA9685) Configure(frequencyHz float64) error {
	if frequencyHz <= 0 {
		frequencyHz = DefaultFrequencyHz
	}
	steps := []struct {
		reg byte
		val byte
	}{
		// The prescaler can only be written while asleep.
		{RegMode1, mode1Sleep | mode1AutoInc},
		{RegPreScale, PreScale(frequencyHz)},
		{RegMode1, mode1AutoInc},
		{RegMode2, mode2TotemPole},
	}
	for _, s := range steps {
		if err := p.dev.WriteReg(s.reg, []byte{s.val}); err != nil {
			return errors.Wrapf(err, "failed to write PWM register %#x", s.reg)
		}
	}
	// Oscillator start-up.
	time.Sleep(1 * time.Millisecond)
	if err := p.dev.WriteReg(RegMode1, []byte{mode1Restart | mode1AutoInc}); err != nil {
		return errors.Wrap(err, "failed to restart PWM controller")
	}
	fmt.Printf("PWM: configured at %.0fHz (prescale %d)\n", frequencyHz, PreScale(frequencyHz))
	return nil
}

func (p *PCA9685) SetDuty(channel int, duty float64) error {
	if channel < 0 || channel >= NumChannels {
		return errors.Errorf("PWM channel %d out of range", channel)
	}
	return p.dev.WriteReg(byte(RegLEDBase+channel*4), dutyRegisters(duty))
}

// dutyRegisters encodes the on/off registers for a duty cycle.  Zero uses the
// full-off bit so the output is hard low rather than a one-count glitch.
func dutyRegisters(duty float64) []byte {
	if duty <= 0 {
		return []byte{0, 0, 0, fullOffBit}
	}
	if duty > 1 {
		duty = 1
	}
	off := uint16(math.Round(PWMMax * duty))
	return []byte{0, 0, byte(off & 0xff), byte(off >> 8)}
}

func (p *PCA9685) Close() error {
	return p.dev.Close()
}

// DummyPWM records duty cycles instead of driving a chip.
type DummyPWM struct {
	lock sync.Mutex
	duty [NumChannels]float64
}

func Dummy() *DummyPWM {
	return &DummyPWM{}
}

func (*DummyPWM) Configure(float64) error {
	return nil
}

func (d *DummyPWM) SetDuty(channel int, duty float64) error {
	if channel < 0 || channel >= NumChannels {
		return errors.Errorf("PWM channel %d out of range", channel)
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	d.duty[channel] = math.Max(0, math.Min(duty, 1))
	return nil
}

// Duty is the last duty cycle set on channel.
func (d *DummyPWM) Duty(channel int) float64 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.duty[channel]
}

func (*DummyPWM) Close() error {
	return nil
}
