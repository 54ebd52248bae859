package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/xablanket/Leader-Follower/pkg/bumpsensor"
	"github.com/xablanket/Leader-Follower/pkg/chassis"
	"github.com/xablanket/Leader-Follower/pkg/linesensor"
	"github.com/xablanket/Leader-Follower/pkg/pid"
)

const (
	DefaultPath = "/cfg/leaderfollower.yaml"

	RoleLeader   = "leader"
	RoleFollower = "follower"
)

type Pins struct {
	LeftEncoderA  string `yaml:"leftEncoderA"`
	LeftEncoderB  string `yaml:"leftEncoderB"`
	RightEncoderA string `yaml:"rightEncoderA"`
	RightEncoderB string `yaml:"rightEncoderB"`
	// EncoderXORWired is set when channel A of each encoder reaches the
	// board as A xor B.
	EncoderXORWired bool `yaml:"encoderXORWired"`

	LeftDir       string `yaml:"leftDir"`
	RightDir      string `yaml:"rightDir"`
	LeftPWM       int    `yaml:"leftPWM"`
	RightPWM      int    `yaml:"rightPWM"`
	InvertRight   bool   `yaml:"invertRight"`
	BumpLeft      string `yaml:"bumpLeft"`
	BumpRight     string `yaml:"bumpRight"`
	BumpEmitter   string `yaml:"bumpEmitter"`
	ModeButton    string `yaml:"modeButton"`
	BumpAnalogADC int    `yaml:"bumpAnalogADC"`
}

type Devices struct {
	ADC          string  `yaml:"adc"`
	PWM          string  `yaml:"pwm"`
	PWMFrequency float64 `yaml:"pwmFrequency"`
	Screen       string  `yaml:"screen"`
	Serial       string  `yaml:"serial"`
	BaudRate     int     `yaml:"baudRate"`
	SoundDir     string  `yaml:"soundDir"`
}

type Line struct {
	ADCChannels       []int               `yaml:"adcChannels"`
	Bounds            []linesensor.Bounds `yaml:"bounds"`
	Options           linesensor.Options  `yaml:"options"`
	OnLineThreshold   float64             `yaml:"onLineThreshold"`
	DominantThreshold float64             `yaml:"dominantThreshold"`
	BasePWM           float64             `yaml:"basePWM"`
	Steering          pid.Config          `yaml:"steering"`
}

type Follow struct {
	Sensors bumpsensor.Config `yaml:"sensors"`
	// Threshold is the signal change that counts as the leader in view.
	Threshold float64 `yaml:"threshold"`
	// TargetChange is the signal change held by the distance loop; larger
	// values follow closer.
	TargetChange float64    `yaml:"targetChange"`
	Steering     pid.Config `yaml:"steering"`
	Distance     pid.Config `yaml:"distance"`
}

type Config struct {
	Role       string           `yaml:"role"`
	Geometry   chassis.Geometry `yaml:"geometry"`
	Pins       Pins             `yaml:"pins"`
	Devices    Devices          `yaml:"devices"`
	MaxPWM     float64          `yaml:"maxPWM"`
	LoopPeriod time.Duration    `yaml:"loopPeriod"`
	// TelemetryEvery sends one telemetry row per this many loop iterations.
	TelemetryEvery int    `yaml:"telemetryEvery"`
	Line           Line   `yaml:"line"`
	Follow         Follow `yaml:"follow"`
}

func Default() Config {
	lineSteering := pid.DefaultConfig()
	lineSteering.Law = pid.Absolute
	lineSteering.Kp, lineSteering.Ki, lineSteering.Kd = 60, 0, 4
	lineSteering.OutputMin, lineSteering.OutputMax = -80, 80

	followSteering := pid.DefaultConfig()
	followSteering.Kp, followSteering.Ki, followSteering.Kd = 0.05, 0.0005, 0.5
	followSteering.OutputMin, followSteering.OutputMax = -60, 60
	followSteering.MaxDelta = 15

	distance := pid.DefaultConfig()
	distance.Kp, distance.Ki, distance.Kd = 0.04, 0.0002, 0.2
	distance.OutputMin, distance.OutputMax = -60, 100
	distance.MaxDelta = 10
	distance.OutputFilter = 0.6
	distance.ErrorDeadzone = 40

	bounds := make([]linesensor.Bounds, 5)
	for i := range bounds {
		bounds[i] = linesensor.Bounds{Min: 0, Max: linesensor.FullScale}
	}

	return Config{
		Role:     RoleLeader,
		Geometry: chassis.Default(),
		Pins: Pins{
			LeftEncoderA:  "GPIO17",
			LeftEncoderB:  "GPIO27",
			RightEncoderA: "GPIO22",
			RightEncoderB: "GPIO23",
			LeftDir:       "GPIO5",
			RightDir:      "GPIO6",
			LeftPWM:       0,
			RightPWM:      1,
			BumpLeft:      "GPIO24",
			BumpRight:     "GPIO25",
			BumpEmitter:   "GPIO26",
			ModeButton:    "GPIO16",
			BumpAnalogADC: 5,
		},
		Devices: Devices{
			ADC:          "/dev/spidev0.0",
			PWM:          "/dev/i2c-1",
			PWMFrequency: 1000,
			Screen:       "/dev/fb1",
			Serial:       "/dev/ttyACM0",
			BaudRate:     115200,
			SoundDir:     "/sounds",
		},
		MaxPWM:         chassis.DefaultMaxPWM,
		LoopPeriod:     10 * time.Millisecond,
		TelemetryEvery: 10,
		Line: Line{
			ADCChannels:       []int{0, 1, 2, 3, 4},
			Bounds:            bounds,
			OnLineThreshold:   0.6,
			DominantThreshold: 0.6,
			BasePWM:           45,
			Steering:          lineSteering,
		},
		Follow: Follow{
			Sensors:      bumpsensor.DefaultDischargeConfig(),
			Threshold:    100,
			TargetChange: 600,
			Steering:     followSteering,
			Distance:     distance,
		},
	}
}

// Parse overlays YAML onto the defaults.  Keys absent from data keep their
// default values.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Default(), errors.Wrap(err, "failed to parse config")
	}
	if err := c.Validate(); err != nil {
		return Default(), err
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch c.Role {
	case RoleLeader, RoleFollower:
	default:
		return errors.Errorf("unknown role %q", c.Role)
	}
	if len(c.Line.ADCChannels) != len(c.Line.Bounds) {
		return errors.Errorf("%d line sensor channels but %d calibration bounds",
			len(c.Line.ADCChannels), len(c.Line.Bounds))
	}
	if c.LoopPeriod <= 0 {
		return errors.Errorf("loop period must be positive, got %v", c.LoopPeriod)
	}
	return nil
}

// Load reads the config at path, falling back to the defaults if it is
// missing, and records what is in use next to it.
func Load(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Println("CFG: no config at", path, "using defaults")
		c = Default()
	} else if err != nil {
		return Default(), errors.Wrapf(err, "failed to read %s", path)
	} else if c, err = Parse(data); err != nil {
		return c, errors.Wrapf(err, "bad config in %s", path)
	}

	if err := c.WriteInUse(InUsePath(path)); err != nil {
		fmt.Println("CFG: failed to write in-use config:", err)
	}
	return c, nil
}

func InUsePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-in-use" + ext
}

func (c *Config) WriteInUse(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0666); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
