package hardware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"periph.io/x/periph/conn/gpio"

	"github.com/xablanket/Leader-Follower/pkg/bumpsensor"
	"github.com/xablanket/Leader-Follower/pkg/clock"
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
	simPeriod = 5 * time.Millisecond
	// Free-running wheel speed per unit of duty, in counts per second.
	simCountsPerSecPerPWM = 12.0

	simLeftPWM  = 0
	simRightPWM = 1
)

// Dummy is a bench stand-in for the robot.  The real motor driver runs over a
// recording PWM chip, and the duty it sets turns simulated wheels whose
// quadrature edges are fed through real decoders.  The ADC reports a centred
// line and the bump sensors an empty field.
type Dummy struct {
	clock    clock.Clock
	encoders *encoder.Pair
	pwm      *pca9685.DummyPWM
	leftDir  *simDirPin
	rightDir *simDirPin
	motors   *motors.Motors
	line     linesensor.Source
	bump     []bumpsensor.Channel
	display  screen.Display

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Interface = (*Dummy)(nil)

func NewDummy() *Dummy {
	encoders := encoder.NewPair(encoder.NewDecoder(false), encoder.NewDecoder(false))
	encoders.Left.Init(false, false)
	encoders.Right.Init(false, false)
	d := &Dummy{
		clock:    clock.System(),
		encoders: encoders,
		pwm:      pca9685.Dummy(),
		leftDir:  &simDirPin{level: motors.Forward},
		rightDir: &simDirPin{level: motors.Forward},
		line: &mcp3008.Frame{
			ADC:      mcp3008.Dummy(100, 100, 900, 100, 100),
			Channels: []int{0, 1, 2, 3, 4},
		},
		bump: []bumpsensor.Channel{
			bumpsensor.ChannelFunc(func() float64 { return 2000 }),
			bumpsensor.ChannelFunc(func() float64 { return 2000 }),
		},
		display: &screen.Console{},
	}
	d.motors = motors.New(d.pwm,
		motors.Wheel{PWMChannel: simLeftPWM, Dir: d.leftDir},
		motors.Wheel{PWMChannel: simRightPWM, Dir: d.rightDir},
		motors.FullDuty)
	return d
}

func (d *Dummy) Start(ctx context.Context) {
	fmt.Println("DHW: Start")
	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go d.loopTurningWheels(ctx)
}

func (d *Dummy) loopTurningWheels(ctx context.Context) {
	defer d.wg.Done()
	left := newSimWheel(d.encoders.Left)
	right := newSimWheel(d.encoders.Right)
	ticker := time.NewTicker(simPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		l, r := d.commands()
		left.advance(l * simCountsPerSecPerPWM * simPeriod.Seconds())
		right.advance(r * simCountsPerSecPerPWM * simPeriod.Seconds())
	}
}

// commands recovers the signed duty, in motor command units, that the driver
// last set on each wheel.
func (d *Dummy) commands() (left, right float64) {
	return d.leftDir.sign() * d.pwm.Duty(simLeftPWM) * motors.FullDuty,
		d.rightDir.sign() * d.pwm.Duty(simRightPWM) * motors.FullDuty
}

func (d *Dummy) Shutdown() {
	fmt.Println("DHW: Shutdown")
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *Dummy) Clock() clock.Clock { return d.clock }
func (d *Dummy) Ticks() odometry.TickSource { return d.encoders }
func (d *Dummy) Line() linesensor.Source { return d.line }
func (d *Dummy) Bump() []bumpsensor.Channel { return d.bump }
func (d *Dummy) Motors() motors.Interface { return d.motors }
func (d *Dummy) Display() screen.Display { return d.display }
func (d *Dummy) Sound() sound.Player { return sound.Silent{} }
func (d *Dummy) Telemetry() telemetry.Sender { return telemetry.Discard{} }
func (d *Dummy) ModePressed() <-chan struct{} { return nil }

type simDirPin struct {
	lock  sync.Mutex
	level gpio.Level
}

func (p *simDirPin) Out(l gpio.Level) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.level = l
	return nil
}

func (p *simDirPin) sign() float64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.level == motors.Reverse {
		return -1
	}
	return 1
}

// Forward rotation visits the pin states in this order.
var quadrature = [4][2]bool{{true, false}, {true, true}, {false, true}, {false, false}}

type simWheel struct {
	decoder  *encoder.Decoder
	position float64
	phase    int
}

// newSimWheel starts the wheel at the all-low state the decoders were
// initialised with.
func newSimWheel(d *encoder.Decoder) *simWheel {
	return &simWheel{decoder: d, phase: 3}
}

func (w *simWheel) advance(counts float64) {
	before := math.Floor(w.position)
	w.position += counts
	steps := int(math.Floor(w.position) - before)
	for ; steps > 0; steps-- {
		w.phase = (w.phase + 1) % 4
		w.decoder.Edge(quadrature[w.phase][0], quadrature[w.phase][1])
	}
	for ; steps < 0; steps++ {
		w.phase = (w.phase + 3) % 4
		w.decoder.Edge(quadrature[w.phase][0], quadrature[w.phase][1])
	}
}
