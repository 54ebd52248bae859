package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"

	"github.com/xablanket/Leader-Follower/pkg/bumpsensor"
	"github.com/xablanket/Leader-Follower/pkg/clock"
	"github.com/xablanket/Leader-Follower/pkg/config"
	"github.com/xablanket/Leader-Follower/pkg/encoder"
	"github.com/xablanket/Leader-Follower/pkg/linesensor"
	"github.com/xablanket/Leader-Follower/pkg/mcp3008"
	"github.com/xablanket/Leader-Follower/pkg/motors"
	"github.com/xablanket/Leader-Follower/pkg/odometry"
	"github.com/xablanket/Leader-Follower/pkg/pca9685"
	"github.com/xablanket/Leader-Follower/pkg/screen"
	"github.com/xablanket/Leader-Follower/pkg/sound"
	"github.com/xablanket/Leader-Follower/pkg/telemetry"
)

const (
	// Settling time after switching the ADC multiplexer to the analog bump
	// sensor.
	analogSettle = 100 * time.Microsecond

	buttonDebounce = 200 * time.Millisecond
)

type Hardware struct {
	cfg   config.Config
	clock clock.Clock

	encoderPins [4]gpio.PinIO
	encoders    *encoder.Pair

	line   linesensor.Source
	bump   []bumpsensor.Channel
	pwm    pca9685.Interface
	motors motors.Interface

	emitter gpio.PinIO
	button  gpio.PinIO
	pressed chan struct{}

	display   *screen.Framebuffer
	speaker   *sound.Speaker
	telemetry telemetry.Sender
	stream    *telemetry.Stream

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Interface = (*Hardware)(nil)

func New(cfg config.Config) (*Hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialise periph")
	}

	h := &Hardware{
		cfg:       cfg,
		clock:     clock.System(),
		pressed:   make(chan struct{}, 1),
		display:   screen.NewFramebuffer(cfg.Devices.Screen),
		speaker:   sound.NewSpeaker(cfg.Devices.SoundDir),
		telemetry: telemetry.Discard{},
	}

	var err error
	pins := cfg.Pins
	for i, name := range []string{pins.LeftEncoderA, pins.LeftEncoderB, pins.RightEncoderA, pins.RightEncoderB} {
		if h.encoderPins[i], err = pin(name); err != nil {
			return nil, err
		}
	}
	h.encoders = encoder.NewPair(
		encoder.NewDecoder(pins.EncoderXORWired),
		encoder.NewDecoder(pins.EncoderXORWired),
	)

	adc, err := mcp3008.New(cfg.Devices.ADC)
	if err != nil {
		return nil, err
	}
	h.line = &mcp3008.Frame{ADC: adc, Channels: cfg.Line.ADCChannels}

	if err := h.initBump(adc); err != nil {
		return nil, err
	}
	if err := h.initMotors(); err != nil {
		return nil, err
	}

	if pins.ModeButton != "" {
		if h.button, err = pin(pins.ModeButton); err != nil {
			return nil, err
		}
		if err := h.button.In(gpio.PullUp, gpio.FallingEdge); err != nil {
			return nil, errors.Wrap(err, "failed to configure mode button")
		}
	}

	if cfg.Devices.Serial != "" {
		s, err := telemetry.OpenSerial(cfg.Devices.Serial, cfg.Devices.BaudRate)
		if err != nil {
			fmt.Println("HW: telemetry disabled:", err)
		} else {
			h.stream = s
			h.telemetry = s
		}
	}
	return h, nil
}

func pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.Errorf("no such pin %q", name)
	}
	return p, nil
}

// initBump sets up the proximity sensing for the robot's role.  The follower
// times the discharge of a pair of IR sensors; the leader carries the
// emitter and an analog sensor for its own bump detection.
func (h *Hardware) initBump(adc mcp3008.Interface) error {
	pins := h.cfg.Pins
	if h.cfg.Role == config.RoleFollower {
		for _, name := range []string{pins.BumpLeft, pins.BumpRight} {
			p, err := pin(name)
			if err != nil {
				return err
			}
			h.bump = append(h.bump, bumpsensor.NewDischargeTimer(p, h.clock))
		}
		return nil
	}

	h.bump = []bumpsensor.Channel{&mcp3008.Channel{
		ADC:    adc,
		Number: pins.BumpAnalogADC,
		Settle: analogSettle,
	}}
	if pins.BumpEmitter != "" {
		p, err := pin(pins.BumpEmitter)
		if err != nil {
			return err
		}
		if err := p.Out(gpio.High); err != nil {
			return errors.Wrap(err, "failed to switch on IR emitter")
		}
		h.emitter = p
	}
	return nil
}

func (h *Hardware) initMotors() error {
	pwm, err := pca9685.New(h.cfg.Devices.PWM)
	if err != nil {
		return err
	}
	if err := pwm.Configure(h.cfg.Devices.PWMFrequency); err != nil {
		return err
	}
	h.pwm = pwm

	pins := h.cfg.Pins
	left, err := pin(pins.LeftDir)
	if err != nil {
		return err
	}
	right, err := pin(pins.RightDir)
	if err != nil {
		return err
	}
	h.motors = motors.New(pwm,
		motors.Wheel{PWMChannel: pins.LeftPWM, Dir: left},
		motors.Wheel{PWMChannel: pins.RightPWM, Dir: right, Invert: pins.InvertRight},
		h.cfg.MaxPWM,
	)
	return h.motors.Stop()
}

// Start launches the background loops: encoder edge handlers, the screen,
// telemetry and the mode button.
func (h *Hardware) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)

	watch := func(d *encoder.Decoder, a, b gpio.PinIn) {
		defer h.wg.Done()
		if err := d.Watch(ctx, a, b); err != nil && ctx.Err() == nil {
			fmt.Println("HW: encoder watcher failed:", err)
		}
	}
	h.wg.Add(2)
	go watch(h.encoders.Left, h.encoderPins[0], h.encoderPins[1])
	go watch(h.encoders.Right, h.encoderPins[2], h.encoderPins[3])

	h.wg.Add(1)
	go h.display.Loop(ctx, &h.wg)

	if h.stream != nil {
		h.wg.Add(1)
		go h.stream.Loop(ctx, &h.wg)
	}
	if h.button != nil {
		h.wg.Add(1)
		go h.loopWatchingButton(ctx)
	}
}

func (h *Hardware) loopWatchingButton(ctx context.Context) {
	defer h.wg.Done()
	var last time.Time
	for ctx.Err() == nil {
		if !h.button.WaitForEdge(100 * time.Millisecond) {
			continue
		}
		if time.Since(last) < buttonDebounce {
			continue
		}
		last = time.Now()
		select {
		case h.pressed <- struct{}{}:
		default:
		}
	}
}

func (h *Hardware) Shutdown() {
	fmt.Println("HW: Shutting down")
	if err := h.motors.Stop(); err != nil {
		fmt.Println("HW: failed to stop motors:", err)
	}
	if h.emitter != nil {
		_ = h.emitter.Out(gpio.Low)
	}
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
	h.speaker.Close()
	if err := h.pwm.Close(); err != nil {
		fmt.Println("HW: failed to close PWM:", err)
	}
}

func (h *Hardware) Clock() clock.Clock { return h.clock }
func (h *Hardware) Ticks() odometry.TickSource { return h.encoders }
func (h *Hardware) Line() linesensor.Source { return h.line }
func (h *Hardware) Bump() []bumpsensor.Channel { return h.bump }
func (h *Hardware) Motors() motors.Interface { return h.motors }
func (h *Hardware) Display() screen.Display { return h.display }
func (h *Hardware) Sound() sound.Player { return h.speaker }
func (h *Hardware) Telemetry() telemetry.Sender { return h.telemetry }
func (h *Hardware) ModePressed() <-chan struct{} { return h.pressed }
