package mcp3008

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

const (
	NumChannels = 8
	FullScale   = 1023

	DefaultSpeed = physic.MegaHertz

	startBit    = 0x01
	singleEnded = 0x08
)

// Interface reads the 10-bit single-ended inputs of an MCP3008.
type Interface interface {
	Read(channel int) (int, error)
}

type txer interface {
	Tx(w, r []byte) error
}

type MCP3008 struct {
	c    txer
	w, r [3]byte
}

func New(deviceFile string) (*MCP3008, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialise periph")
	}

	p, err := spireg.Open(deviceFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open SPI port %s", deviceFile)
	}

	c, err := p.Connect(DefaultSpeed, spi.Mode0, 8)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to ADC on %s", deviceFile)
	}
	fmt.Println("ADC: MCP3008 on", deviceFile)

	return &MCP3008{c: c}, nil
}

func (m *MCP3008) Read(channel int) (int, error) {
	if channel < 0 || channel >= NumChannels {
		return 0, errors.Errorf("ADC channel %d out of range", channel)
	}
	// Start bit, then single-ended mode and the channel in the top nibble of
	// the second byte.  The result comes back in the low 10 bits of the
	// last two bytes.
	m.w = [3]byte{startBit, byte(singleEnded|channel) << 4, 0}
	if err := m.c.Tx(m.w[:], m.r[:]); err != nil {
		return 0, errors.Wrapf(err, "ADC read of channel %d failed", channel)
	}
	return int(m.r[1]&0x03)<<8 | int(m.r[2]), nil
}

// Channel is one ADC input.  When Settle is non-zero a throwaway conversion
// is taken first to charge the sample-and-hold after a channel switch.
type Channel struct {
	ADC     Interface
	Number  int
	Settle  time.Duration
	lastErr error
}

// Sample returns the reading, or 0 if the read fails.  A run of failures is
// logged once.
func (c *Channel) Sample() float64 {
	v, err := c.Read()
	if err != nil {
		if c.lastErr == nil {
			fmt.Println("ADC: channel", c.Number, "failed:", err)
		}
		c.lastErr = err
		return 0
	}
	c.lastErr = nil
	return float64(v)
}

func (c *Channel) Read() (int, error) {
	if c.Settle > 0 {
		if _, err := c.ADC.Read(c.Number); err != nil {
			return 0, err
		}
		time.Sleep(c.Settle)
	}
	return c.ADC.Read(c.Number)
}

// Frame reads a set of channels in order, for a sensor array wired across
// consecutive inputs.
type Frame struct {
	ADC      Interface
	Channels []int
}

func (f *Frame) ReadLine() ([]float64, error) {
	out := make([]float64, len(f.Channels))
	for i, ch := range f.Channels {
		v, err := f.ADC.Read(ch)
		if err != nil {
			return nil, err
		}
		out[i] = float64(v)
	}
	return out, nil
}

// Dummy returns an ADC whose channels read the given fixed values in order.
// Channels without a value read 0.
func Dummy(readings ...int) Interface {
	return dummyADC(append([]int(nil), readings...))
}

type dummyADC []int

func (d dummyADC) Read(channel int) (int, error) {
	if channel < 0 || channel >= NumChannels {
		return 0, errors.Errorf("ADC channel %d out of range", channel)
	}
	if channel >= len(d) {
		return 0, nil
	}
	return d[channel], nil
}
