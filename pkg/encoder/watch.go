package encoder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
)

// How long an edge handler blocks before re-checking for cancellation.
const edgePollTimeout = 100 * time.Millisecond

// Watch registers the decoder with the pins' edge detection and feeds it every
// edge until ctx is cancelled.  On an XOR-wired board only pin A generates
// edges; otherwise both pins are watched.  If the decoder belongs to a Pair,
// the Pair must be built before Watch is called.
func (d *Decoder) Watch(ctx context.Context, pinA, pinB gpio.PinIn) error {
	edgeB := gpio.BothEdges
	if d.XORWired {
		edgeB = gpio.NoEdge
	}
	if err := pinA.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return errors.Wrapf(err, "failed to configure encoder pin %s", pinA)
	}
	if err := pinB.In(gpio.PullUp, edgeB); err != nil {
		return errors.Wrapf(err, "failed to configure encoder pin %s", pinB)
	}

	d.Init(pinA.Read() == gpio.High, pinB.Read() == gpio.High)

	var wg sync.WaitGroup
	handle := func(p gpio.PinIn) {
		defer wg.Done()
		for ctx.Err() == nil {
			if !p.WaitForEdge(edgePollTimeout) {
				continue
			}
			d.Edge(pinA.Read() == gpio.High, pinB.Read() == gpio.High)
		}
	}
	wg.Add(1)
	go handle(pinA)
	if edgeB != gpio.NoEdge {
		wg.Add(1)
		go handle(pinB)
	}
	wg.Wait()

	_ = pinA.In(gpio.PullNoChange, gpio.NoEdge)
	_ = pinB.In(gpio.PullNoChange, gpio.NoEdge)
	fmt.Println("ENC: watcher on", pinA, "exited")
	return ctx.Err()
}
