package followmode

import (
	"context"
	"testing"
	"time"

	"github.com/xablanket/Leader-Follower/pkg/bumpsensor"
	"github.com/xablanket/Leader-Follower/pkg/clock"
	"github.com/xablanket/Leader-Follower/pkg/config"
)

type level struct {
	v float64
}

func (l *level) Sample() float64 {
	return l.v
}

type fakeTicks struct{}

func (fakeTicks) Snapshot() (int64, int64) {
	return 0, 0
}

func newTestController(t *testing.T) (*controller, *level, *level, *clock.Manual) {
	t.Helper()
	left, right := &level{v: 2000}, &level{v: 2000}
	clk := clock.NewManual()
	c := newController(config.Default(), []bumpsensor.Channel{left, right}, fakeTicks{}, clk)
	if err := c.sensors.CalibrateBackground(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.reset()
	return c, left, right, clk
}

func TestNoLeaderStops(t *testing.T) {
	c, _, _, clk := newTestController(t)
	clk.Advance(10 * time.Millisecond)
	out := c.step()
	if out.leader || out.left != 0 || out.right != 0 {
		t.Errorf("Expected to stay put with nothing in view, got %+v", out)
	}
}

func TestFollowsLeader(t *testing.T) {
	c, left, right, clk := newTestController(t)

	left.v, right.v = 1700, 1700
	clk.Advance(10 * time.Millisecond)
	out := c.step()
	if !out.leader {
		t.Fatal("Expected the leader to be seen")
	}
	if out.left <= 0 || out.left != out.right {
		t.Errorf("Expected to drive straight towards a distant leader, got %v %v", out.left, out.right)
	}

	left.v, right.v = 1200, 1800
	clk.Advance(10 * time.Millisecond)
	out = c.step()
	if out.balance >= 0 {
		t.Errorf("Expected a negative balance for a leader on the left, got %v", out.balance)
	}
	if out.right <= out.left {
		t.Errorf("Expected a left turn, got left %v right %v", out.left, out.right)
	}
}

func TestBacksOffWhenTooClose(t *testing.T) {
	c, left, right, clk := newTestController(t)
	left.v, right.v = 1000, 1000
	var out output
	for i := 0; i < 50; i++ {
		clk.Advance(10 * time.Millisecond)
		out = c.step()
	}
	if !out.leader {
		t.Fatal("Expected the leader to be seen")
	}
	if out.left >= 0 || out.right >= 0 {
		t.Errorf("Expected to reverse away from a close leader, got %v %v", out.left, out.right)
	}
}

func TestLosingLeaderResetsControl(t *testing.T) {
	c, left, right, clk := newTestController(t)
	left.v, right.v = 1700, 1700
	for i := 0; i < 5; i++ {
		clk.Advance(10 * time.Millisecond)
		c.step()
	}

	left.v, right.v = 2000, 2000
	clk.Advance(10 * time.Millisecond)
	if out := c.step(); out.leader || out.left != 0 {
		t.Errorf("Expected to stop when the leader disappears, got %+v", out)
	}
	if c.distance.Output() != 0 || c.steer.Output() != 0 {
		t.Error("Expected both controllers to be reset")
	}
}
