package encoder

import (
	"sync"
	"sync/atomic"
)

// transitions maps a 4-bit code (new B, new A, old B, old A) to a tick delta.
// Codes not listed are either "no movement" or a skipped state caused by two
// edges arriving together; both count as zero.
var transitions = [16]int8{
	1:  -1,
	2:  +1,
	4:  +1,
	7:  -1,
	8:  -1,
	11: +1,
	13: +1,
	14: -1,
}

// Decoder turns quadrature pin transitions for one wheel into a signed tick
// count.  Edge is expected to be called from the wheel's edge handler; Count
// may be called from anywhere.
type Decoder struct {
	// XORWired is set when the board presents A^B on the A pin (as the 3pi+
	// does) so that a single pin sees every quadrature edge.
	XORWired bool

	lock  sync.Locker
	state uint8
	count atomic.Int64
}

func NewDecoder(xorWired bool) *Decoder {
	return &Decoder{
		XORWired: xorWired,
		lock:     &sync.Mutex{},
	}
}

// Init seeds the transition history from the current pin levels.  Without it
// the first edge may be misread as a one-tick move.
func (d *Decoder) Init(a, b bool) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.state = d.pair(a, b)
}

// Edge records one observed pin state after an edge on either channel.
func (d *Decoder) Edge(a, b bool) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.edgeLocked(a, b)
}

func (d *Decoder) edgeLocked(a, b bool) {
	code := d.pair(a, b)<<2 | d.state
	if delta := transitions[code]; delta != 0 {
		d.count.Add(int64(delta))
	}
	d.state = code >> 2
}

func (d *Decoder) pair(a, b bool) uint8 {
	if d.XORWired {
		a = a != b
	}
	var p uint8
	if b {
		p |= 2
	}
	if a {
		p |= 1
	}
	return p
}

// Count returns the accumulated ticks.  The read is atomic so it can never
// observe a half-written value.
func (d *Decoder) Count() int64 {
	return d.count.Load()
}

// Pair groups the left and right wheel decoders behind one critical section,
// so that Snapshot sees both counts as of the same instant.
type Pair struct {
	Left, Right *Decoder

	lock sync.Mutex
}

func NewPair(left, right *Decoder) *Pair {
	p := &Pair{Left: left, Right: right}
	left.lock = &p.lock
	right.lock = &p.lock
	return p
}

// Snapshot returns both tick counts.  No edge can be applied to either wheel
// between the two reads.
func (p *Pair) Snapshot() (left, right int64) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.Left.Count(), p.Right.Count()
}
