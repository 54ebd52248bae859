package hardware

import (
	"math"
	"testing"

	"github.com/xablanket/Leader-Follower/pkg/encoder"
)

func TestSimWheelDrivesDecoder(t *testing.T) {
	d := encoder.NewDecoder(false)
	d.Init(false, false)
	w := newSimWheel(d)

	w.advance(10.5)
	if c := d.Count(); c != 10 {
		t.Errorf("Expected 10 ticks, got %d", c)
	}
	w.advance(0.6)
	if c := d.Count(); c != 11 {
		t.Errorf("Expected 11 ticks, got %d", c)
	}
	w.advance(-4)
	if c := d.Count(); c != 7 {
		t.Errorf("Expected 7 ticks after reversing, got %d", c)
	}
}

func TestDummyMotorsDriveSimulatedWheels(t *testing.T) {
	d := NewDummy()
	if err := d.Motors().SetPWM(-300, 42.9); err != nil {
		t.Fatal(err)
	}
	l, r := d.commands()
	if math.Abs(l+255) > 1e-9 || math.Abs(r-42) > 1e-9 {
		t.Errorf("Unexpected simulated commands %v %v", l, r)
	}

	if err := d.Motors().Stop(); err != nil {
		t.Fatal(err)
	}
	if l, r := d.commands(); l != 0 || r != 0 {
		t.Errorf("Expected stopped wheels, got %v %v", l, r)
	}
}

func TestDummyLine(t *testing.T) {
	d := NewDummy()
	frame, err := d.Line().ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	frame[0] = -1
	again, _ := d.Line().ReadLine()
	if again[0] == -1 {
		t.Error("Expected each frame to be a fresh copy")
	}
	if len(frame) != 5 || again[2] != 900 || again[0] != 100 {
		t.Errorf("Unexpected line frame %v", again)
	}
	if len(d.Bump()) != 2 {
		t.Errorf("Expected two bump channels, got %d", len(d.Bump()))
	}
}
