package clock

import (
	"sync"
	"time"
)

// Clock is a monotonic time source.  Now returns the time elapsed since some
// fixed, arbitrary origin.
type Clock interface {
	Now() time.Duration
	Sleep(d time.Duration)
}

type system struct {
	start time.Time
}

// System returns a Clock backed by the runtime's monotonic clock.
func System() Clock {
	return &system{start: time.Now()}
}

func (s *system) Now() time.Duration {
	return time.Since(s.start)
}

func (s *system) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Manual is a Clock that only moves when told to.  Sleep advances it.
type Manual struct {
	lock sync.Mutex
	now  time.Duration
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Now() time.Duration {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.now
}

func (m *Manual) Sleep(d time.Duration) {
	m.Advance(d)
}

func (m *Manual) Advance(d time.Duration) {
	m.lock.Lock()
	m.now += d
	m.lock.Unlock()
}

var _ Clock = (*Manual)(nil)
