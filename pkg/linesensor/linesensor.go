package linesensor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// None is returned by DominantSensor when no sensor is over the threshold.
const None = -1

// ADC full scale of the 10-bit converter the array is read through.
const FullScale = 1023

// Source reads one raw frame from the array, left to right.
type Source interface {
	ReadLine() ([]float64, error)
}

// Bounds are the raw readings seen over the light surface (Min) and the line
// (Max) during calibration.
type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Scale returns 1/(Max-Min), with the range clamped to at least 1.
func (b Bounds) Scale() float64 {
	r := b.Max - b.Min
	if r < 1 {
		r = 1
	}
	return 1 / r
}

// Normalize maps a raw reading into [0, 1].
func (b Bounds) Normalize(raw float64) float64 {
	v := (raw - b.Min) * b.Scale()
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TieBreak decides which of several equally strong sensors DominantSensor
// reports.
type TieBreak int

const (
	// FirstSeen keeps the leftmost of equal readings.
	FirstSeen TieBreak = iota
	// LastSeen moves to the rightmost of equal readings.
	LastSeen
)

type Options struct {
	// WhiteIsOne flips polarity for the detection queries, for arrays whose
	// calibrated value is high over the light surface.
	WhiteIsOne bool     `yaml:"whiteIsOne"`
	TieBreak   TieBreak `yaml:"tieBreak"`
}

// Array holds the calibration and the most recent frame for a line sensor
// array.
type Array struct {
	Options

	bounds     []Bounds
	readings   []float64
	calibrated []float64
}

func New(bounds []Bounds, opts Options) *Array {
	a := &Array{Options: opts}
	a.SetBounds(bounds)
	return a
}

// SetBounds replaces the calibration, e.g. after a new sweep.  The number of
// sensors follows the new bounds and the current frame is cleared.
func (a *Array) SetBounds(bounds []Bounds) {
	a.bounds = append([]Bounds(nil), bounds...)
	a.readings = make([]float64, len(bounds))
	a.calibrated = make([]float64, len(bounds))
}

func (a *Array) Bounds() []Bounds {
	return append([]Bounds(nil), a.bounds...)
}

func (a *Array) NumSensors() int {
	return len(a.bounds)
}

// Read takes a frame from src and normalises it.
func (a *Array) Read(src Source) ([]float64, error) {
	raw, err := src.ReadLine()
	if err != nil {
		return nil, err
	}
	return a.Normalize(raw), nil
}

// Normalize calibrates a raw frame and stores it as the current frame.
// Extra readings beyond the number of calibrated sensors are ignored.
func (a *Array) Normalize(raw []float64) []float64 {
	for i := range a.bounds {
		var r float64
		if i < len(raw) {
			r = raw[i]
		}
		a.readings[i] = r
		a.calibrated[i] = a.bounds[i].Normalize(r)
	}
	return a.Calibrated()
}

func (a *Array) Calibrated() []float64 {
	return append([]float64(nil), a.calibrated...)
}

func (a *Array) Raw() []float64 {
	return append([]float64(nil), a.readings...)
}

func (a *Array) blackness(i int) float64 {
	if a.WhiteIsOne {
		return 1 - a.calibrated[i]
	}
	return a.calibrated[i]
}

// OnLine reports whether any sensor in the current frame reads at least
// threshold.
func (a *Array) OnLine(threshold float64) bool {
	for i := range a.calibrated {
		if a.blackness(i) >= threshold {
			return true
		}
	}
	return false
}

// DominantSensor returns the index of the strongest sensor strictly above
// threshold, scanning left to right, or None.
func (a *Array) DominantSensor(threshold float64) int {
	best, bestVal := None, threshold
	for i := range a.calibrated {
		v := a.blackness(i)
		if v > bestVal || (a.TieBreak == LastSeen && best != None && v == bestVal) {
			best, bestVal = i, v
		}
	}
	return best
}

// LineError is the weighted centroid of the current frame mapped to [-1, 1]:
// -1 under the leftmost sensor, 0 centred, +1 under the rightmost.  ok is
// false when the array sees nothing.
func (a *Array) LineError() (e float64, ok bool) {
	n := len(a.calibrated)
	if n == 0 {
		return 0, false
	}
	weights := make([]float64, n)
	positions := make([]float64, n)
	var sum float64
	for i := range weights {
		weights[i] = a.blackness(i)
		sum += weights[i]
		if n > 1 {
			positions[i] = 2*float64(i)/float64(n-1) - 1
		}
	}
	if sum == 0 {
		return 0, false
	}
	return stat.Mean(positions, weights), true
}

// Calibrator records the running extremes of each sensor during a sweep.
type Calibrator struct {
	min, max []float64
	samples  [][]float64
}

func NewCalibrator(numSensors int) *Calibrator {
	c := &Calibrator{
		min:     make([]float64, numSensors),
		max:     make([]float64, numSensors),
		samples: make([][]float64, numSensors),
	}
	for i := range c.min {
		c.min[i] = math.Inf(1)
		c.max[i] = math.Inf(-1)
	}
	return c
}

func (c *Calibrator) Sample(raw []float64) {
	for i := range c.min {
		if i >= len(raw) {
			break
		}
		c.min[i] = math.Min(c.min[i], raw[i])
		c.max[i] = math.Max(c.max[i], raw[i])
		c.samples[i] = append(c.samples[i], raw[i])
	}
}

// Bounds returns the calibration.  Sensors that were never sampled get the
// full ADC range.
func (c *Calibrator) Bounds() []Bounds {
	b := make([]Bounds, len(c.min))
	for i := range b {
		if math.IsInf(c.min[i], 1) {
			b[i] = Bounds{Min: 0, Max: FullScale}
			continue
		}
		b[i] = Bounds{Min: c.min[i], Max: c.max[i]}
	}
	return b
}

// PrintSummary logs each sensor's range and spread.
func (c *Calibrator) PrintSummary() {
	for i, b := range c.Bounds() {
		mean, std := stat.MeanStdDev(c.samples[i], nil)
		if len(c.samples[i]) < 2 {
			std = 0
		}
		fmt.Printf("LINE: sensor %d min=%.0f max=%.0f mean=%.1f sd=%.1f n=%d\n",
			i, b.Min, b.Max, mean, std, len(c.samples[i]))
	}
}
