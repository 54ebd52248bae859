package telemetry

import (
	"bytes"
	"context"
	"math"
	"strings"
	"sync"
	"testing"
)

func TestWriterFormat(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	rows := []Row{
		{Sample: 0},
		{Sample: 1, X: 12.346, Y: -3.5, Heading: 2*math.Pi + 0.5, LeftSpeed: 101.26, RightSpeed: -99, LineError: -0.1234, Turn: 17.5},
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			t.Fatal(err)
		}
	}

	expected := strings.Join([]string{
		"Sample,X_mm,Y_mm,Theta_rad,SpdL_cps,SpdR_cps,LineErr,Turn",
		"0,0.00,0.00,0.0000,0.0,0.0,0.000,0.00",
		"1,12.35,-3.50,0.5000,101.3,-99.0,-0.123,17.50",
		"",
	}, "\n")
	if buf.String() != expected {
		t.Errorf("Unexpected CSV:\n%s\nexpected:\n%s", buf.String(), expected)
	}
}

type closingBuffer struct {
	bytes.Buffer
	closed bool
}

func (c *closingBuffer) Close() error {
	c.closed = true
	return nil
}

func TestStreamFlushesOnCancel(t *testing.T) {
	out := &closingBuffer{}
	s := NewStream(out)
	for i := 0; i < 3; i++ {
		s.Send(Row{Sample: i})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var wg sync.WaitGroup
	wg.Add(1)
	s.Loop(ctx, &wg)
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Errorf("Expected header and 3 rows, got %q", lines)
	}
	if !out.closed {
		t.Error("Expected the stream to close its writer")
	}
}

func TestStreamDropsWhenFull(t *testing.T) {
	s := NewStream(&bytes.Buffer{})
	for i := 0; i < cap(s.rows)+5; i++ {
		s.Send(Row{Sample: i})
	}
	if s.Dropped() != 5 {
		t.Errorf("Expected 5 dropped rows, got %d", s.Dropped())
	}
}
