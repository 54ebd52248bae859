package pid

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/xablanket/Leader-Follower/pkg/clock"
)

// Law selects the control-law formula.
type Law int

const (
	// Incremental computes a change to the running output each step:
	//   du = Kp*(e - e1) + Ki*e*dt + Kd*(e - 2*e1 + e2)/dt
	Incremental Law = iota
	// Absolute computes a fresh output each step from the error, a running
	// error sum and the first difference:
	//   u = Kp*e + Ki*sum(e*dt) + Kd*(e - e1)/dt
	// The output is clamped to [OutputMin, OutputMax]; the slew limit, filter,
	// output deadzone and anti-stiction apply to Incremental only.
	Absolute
)

func (l Law) String() string {
	switch l {
	case Incremental:
		return "incremental"
	case Absolute:
		return "absolute"
	}
	return "unknown"
}

func (l Law) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}

func (l *Law) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch s {
	case "incremental":
		*l = Incremental
	case "absolute":
		*l = Absolute
	default:
		return errors.Errorf("unknown PID law %q", s)
	}
	return nil
}

// Config is the operator-tunable part of a controller.  Reset never touches it.
type Config struct {
	Law Law `yaml:"law"`

	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`

	// Errors smaller than ErrorDeadzone are treated as zero; increments
	// smaller than OutputDeadzone are dropped.  Zero disables either.
	ErrorDeadzone  float64 `yaml:"errorDeadzone"`
	OutputDeadzone float64 `yaml:"outputDeadzone"`

	OutputMin float64 `yaml:"outputMin"`
	OutputMax float64 `yaml:"outputMax"`

	// MaxDelta bounds the per-step change in output.  +Inf disables it.
	MaxDelta float64 `yaml:"maxDelta"`

	// OutputFilter is the weight of the new output in a first-order low-pass
	// filter, in [0, 1].  1 disables filtering.
	OutputFilter float64 `yaml:"outputFilter"`

	// Anti-stiction: outputs below ZeroThreshold become 0, outputs between it
	// and MinEffectiveOutput are raised to MinEffectiveOutput.  Only active
	// when MinEffectiveOutput > 0.
	ZeroThreshold      float64 `yaml:"zeroThreshold"`
	MinEffectiveOutput float64 `yaml:"minEffectiveOutput"`

	// TimeUnit is the resolution of dt.  Two updates within the same unit
	// see dt == 0 and return the previous output.
	TimeUnit time.Duration `yaml:"timeUnit"`
}

// DefaultConfig suits driving motor PWM directly: ±255 output,
// millisecond timing and no shaping.
func DefaultConfig() Config {
	return Config{
		Law:          Incremental,
		OutputMin:    -255,
		OutputMax:    255,
		MaxDelta:     math.Inf(1),
		OutputFilter: 1,
		TimeUnit:     time.Millisecond,
	}
}

// Terms is the breakdown of the most recent update.
type Terms struct {
	Error    float64
	P, I, D  float64
	Integral float64
	Output   float64
}

// Controller is a single-axis PID controller.  Use one per controlled axis;
// it is not safe for concurrent use.
type Controller struct {
	cfg   Config
	clock clock.Clock

	lastError  float64
	priorError float64
	integral   float64
	feedback   float64
	p, i, d    float64
	lastTick   int64
}

func New(cfg Config, clk clock.Clock) *Controller {
	if cfg.TimeUnit <= 0 {
		cfg.TimeUnit = time.Millisecond
	}
	cfg.OutputFilter = clamp(cfg.OutputFilter, 0, 1)
	return &Controller{
		cfg:   cfg,
		clock: clk,
	}
}

// Initialise sets the gains, clears all state and starts timing from now.
// Output shaping set through the Set* methods is kept.  Update must not be
// called before Initialise; dt would be measured from an arbitrary origin.
func (c *Controller) Initialise(kp, ki, kd float64) {
	c.cfg.Kp, c.cfg.Ki, c.cfg.Kd = kp, ki, kd
	c.Reset()
}

// Reset clears the running state.  Gains, limits and other configuration are
// kept.
func (c *Controller) Reset() {
	c.lastError = 0
	c.priorError = 0
	c.integral = 0
	c.feedback = 0
	c.p, c.i, c.d = 0, 0, 0
	c.lastTick = c.tick()
}

func (c *Controller) SetDeadzone(errorDeadzone, outputDeadzone float64) {
	c.cfg.ErrorDeadzone = errorDeadzone
	c.cfg.OutputDeadzone = outputDeadzone
}

func (c *Controller) SetOutputLimits(min, max float64) {
	c.cfg.OutputMin = min
	c.cfg.OutputMax = max
}

func (c *Controller) SetMaxDelta(maxDelta float64) {
	c.cfg.MaxDelta = maxDelta
}

// SetOutputFilter sets the low-pass weight; values outside [0, 1] are clamped.
func (c *Controller) SetOutputFilter(alpha float64) {
	c.cfg.OutputFilter = clamp(alpha, 0, 1)
}

func (c *Controller) SetMinEffectiveOutput(zeroThreshold, minEffective float64) {
	c.cfg.ZeroThreshold = zeroThreshold
	c.cfg.MinEffectiveOutput = minEffective
}

func (c *Controller) Config() Config {
	return c.cfg
}

func (c *Controller) Output() float64 {
	return c.feedback
}

func (c *Controller) Terms() Terms {
	return Terms{
		Error:    c.lastError,
		P:        c.p,
		I:        c.i,
		D:        c.d,
		Integral: c.integral,
		Output:   c.feedback,
	}
}

// Update runs one step of the control law and returns the new output.
func (c *Controller) Update(setpoint, measurement float64) float64 {
	now := c.tick()
	dt := float64(now - c.lastTick)
	c.lastTick = now
	if dt == 0 {
		return c.feedback
	}

	e := setpoint - measurement
	if c.cfg.ErrorDeadzone > 0 && math.Abs(e) < c.cfg.ErrorDeadzone {
		e = 0
	}

	switch c.cfg.Law {
	case Absolute:
		c.updateAbsolute(e, dt)
	default:
		c.updateIncremental(e, dt)
	}

	c.priorError = c.lastError
	c.lastError = e
	return c.feedback
}

func (c *Controller) updateAbsolute(e, dt float64) {
	c.p = c.cfg.Kp * e
	c.integral += e * dt
	c.i = c.cfg.Ki * c.integral
	c.d = c.cfg.Kd * (e - c.lastError) / dt
	c.feedback = clamp(c.p+c.i+c.d, c.cfg.OutputMin, c.cfg.OutputMax)
}

func (c *Controller) updateIncremental(e, dt float64) {
	c.p = c.cfg.Kp * (e - c.lastError)
	c.i = c.cfg.Ki * e * dt
	c.d = c.cfg.Kd * (e - 2*c.lastError + c.priorError) / dt

	delta := c.p + c.i + c.d
	if c.cfg.OutputDeadzone > 0 && math.Abs(delta) < c.cfg.OutputDeadzone {
		delta = 0
	}
	if !math.IsInf(c.cfg.MaxDelta, 1) {
		delta = clamp(delta, -c.cfg.MaxDelta, c.cfg.MaxDelta)
	}

	previous := c.feedback
	out := clamp(previous+delta, c.cfg.OutputMin, c.cfg.OutputMax)

	if c.cfg.OutputFilter < 1 {
		out = c.cfg.OutputFilter*out + (1-c.cfg.OutputFilter)*previous
	}

	if c.cfg.MinEffectiveOutput > 0 {
		mag := math.Abs(out)
		if mag == 0 || mag < c.cfg.ZeroThreshold {
			out = 0
		} else if mag < c.cfg.MinEffectiveOutput {
			out = math.Copysign(c.cfg.MinEffectiveOutput, out)
		}
	}

	c.feedback = out
}

func (c *Controller) tick() int64 {
	return int64(c.clock.Now() / c.cfg.TimeUnit)
}

func clamp(v, min, max float64) float64 {
	if v > max {
		return max
	}
	if v < min {
		return min
	}
	return v
}
