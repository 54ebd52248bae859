package bumpsensor

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/xablanket/Leader-Follower/pkg/clock"
)

// Mode selects how a channel's reading relates to signal strength.
type Mode int

const (
	// Analog channels read a voltage that rises with received IR.
	Analog Mode = iota
	// Discharge channels read the time a charged pin takes to decay; more
	// received IR means a shorter time.
	Discharge
)

func (m Mode) String() string {
	switch m {
	case Analog:
		return "analog"
	case Discharge:
		return "discharge"
	}
	return "unknown"
}

// Channel produces one raw sample per call.
type Channel interface {
	Sample() float64
}

// ChannelFunc adapts a function to a Channel.
type ChannelFunc func() float64

func (f ChannelFunc) Sample() float64 { return f() }

type Config struct {
	Mode Mode `yaml:"mode"`
	// Window is the length of the per-channel moving average.
	Window int `yaml:"window"`
	// SettleDelay is waited before the background sweep starts.
	SettleDelay time.Duration `yaml:"settleDelay"`
	// SampleInterval separates the background samples.
	SampleInterval time.Duration `yaml:"sampleInterval"`
	// BackgroundSamples is the number of samples averaged into the background.
	BackgroundSamples int `yaml:"backgroundSamples"`
}

func DefaultAnalogConfig() Config {
	return Config{
		Mode:              Analog,
		Window:            5,
		SettleDelay:       2 * time.Second,
		SampleInterval:    50 * time.Millisecond,
		BackgroundSamples: 10,
	}
}

func DefaultDischargeConfig() Config {
	cfg := DefaultAnalogConfig()
	cfg.Mode = Discharge
	cfg.Window = 1
	return cfg
}

// Sensors conditions one or two proximity channels.  Channel 0 is the left
// sensor and channel 1 the right.  Not safe for concurrent use.
type Sensors struct {
	cfg      Config
	clock    clock.Clock
	channels []Channel

	filters    []*movingAverage
	raw        []float64
	background []float64
}

func New(cfg Config, clk clock.Clock, channels ...Channel) *Sensors {
	if cfg.Window < 1 {
		cfg.Window = 1
	}
	s := &Sensors{
		cfg:        cfg,
		clock:      clk,
		channels:   channels,
		raw:        make([]float64, len(channels)),
		background: make([]float64, len(channels)),
	}
	for range channels {
		s.filters = append(s.filters, newMovingAverage(cfg.Window))
	}
	return s
}

func (s *Sensors) Config() Config {
	return s.cfg
}

func (s *Sensors) NumChannels() int {
	return len(s.channels)
}

// Update takes one sample from every channel into its filter.
func (s *Sensors) Update() {
	for i, c := range s.channels {
		s.raw[i] = c.Sample()
		s.filters[i].add(s.raw[i])
	}
}

// CalibrateBackground waits for the sensors to settle, then averages a sweep
// of samples into the per-channel background.  It should run while no leader
// is in view.  The filters are primed with the background so the first
// readings afterwards start from it.
func (s *Sensors) CalibrateBackground(ctx context.Context) error {
	n := s.cfg.BackgroundSamples
	if n < 1 {
		n = 1
	}
	s.clock.Sleep(s.cfg.SettleDelay)

	samples := make([][]float64, len(s.channels))
	for k := 0; k < n; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, c := range s.channels {
			samples[i] = append(samples[i], c.Sample())
		}
		if k < n-1 {
			s.clock.Sleep(s.cfg.SampleInterval)
		}
	}

	for i := range s.channels {
		mean, std := stat.MeanStdDev(samples[i], nil)
		if n < 2 {
			std = 0
		}
		s.background[i] = mean
		s.filters[i].fill(mean)
		s.raw[i] = samples[i][n-1]
		fmt.Printf("BUMP: channel %d background %.1f sd %.1f (%s, %d samples)\n",
			i, mean, std, s.cfg.Mode, n)
	}
	return nil
}

// SetBackground replaces the background, e.g. from a stored calibration.
func (s *Sensors) SetBackground(bg ...float64) {
	copy(s.background, bg)
}

func (s *Sensors) Background() []float64 {
	return append([]float64(nil), s.background...)
}

// Reading is the filtered value of channel i.
func (s *Sensors) Reading(i int) float64 {
	if i >= len(s.filters) {
		return 0
	}
	return s.filters[i].mean()
}

// RawReading is the most recent unfiltered sample of channel 0.
func (s *Sensors) RawReading() float64 {
	if len(s.raw) == 0 {
		return 0
	}
	return s.raw[0]
}

// ChannelSignal is the filtered reading of channel i minus its background.
func (s *Sensors) ChannelSignal(i int) float64 {
	if i >= len(s.filters) {
		return 0
	}
	return s.Reading(i) - s.background[i]
}

// Signal is the background-subtracted reading of channel 0.
func (s *Sensors) Signal() float64 {
	return s.ChannelSignal(0)
}

// HasSignal reports whether a target is seen.  Analog sensors compare the
// signal magnitude; discharge sensors compare the drop in discharge time.
func (s *Sensors) HasSignal(threshold float64) bool {
	if s.cfg.Mode == Discharge {
		return s.SignalChange() > threshold
	}
	return math.Abs(s.Signal()) > threshold
}

// Balance is the left signal minus the right signal.  It is zero for a single
// channel.
func (s *Sensors) Balance() float64 {
	if len(s.channels) < 2 {
		return 0
	}
	return s.ChannelSignal(0) - s.ChannelSignal(1)
}

// AverageSignal is the mean filtered reading across channels.
func (s *Sensors) AverageSignal() float64 {
	if len(s.filters) == 0 {
		return 0
	}
	var sum float64
	for i := range s.filters {
		sum += s.Reading(i)
	}
	return sum / float64(len(s.filters))
}

// SignalChange is the mean background minus the mean current reading.  For
// discharge sensors it grows as the target gets closer.
func (s *Sensors) SignalChange() float64 {
	if len(s.background) == 0 {
		return 0
	}
	return stat.Mean(s.background, nil) - s.AverageSignal()
}

type movingAverage struct {
	buf  []float64
	next int
	n    int
	sum  float64
}

func newMovingAverage(window int) *movingAverage {
	return &movingAverage{buf: make([]float64, window)}
}

func (m *movingAverage) add(v float64) {
	if m.n == len(m.buf) {
		m.sum -= m.buf[m.next]
	} else {
		m.n++
	}
	m.buf[m.next] = v
	m.sum += v
	m.next = (m.next + 1) % len(m.buf)
}

func (m *movingAverage) fill(v float64) {
	for i := range m.buf {
		m.buf[i] = v
	}
	m.n = len(m.buf)
	m.next = 0
	m.sum = v * float64(len(m.buf))
}

func (m *movingAverage) mean() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}
