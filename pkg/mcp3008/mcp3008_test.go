package mcp3008

import (
	"errors"
	"testing"
)

type fakeConn struct {
	sent  [][]byte
	value int
	err   error
}

func (f *fakeConn) Tx(w, r []byte) error {
	f.sent = append(f.sent, append([]byte(nil), w...))
	if f.err != nil {
		return f.err
	}
	r[0] = 0xff
	r[1] = 0xfc | byte(f.value>>8)
	r[2] = byte(f.value)
	return nil
}

func TestRead(t *testing.T) {
	conn := &fakeConn{value: 0x2a5}
	adc := &MCP3008{c: conn}

	v, err := adc.Read(5)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x2a5 {
		t.Errorf("Expected %#x, got %#x", 0x2a5, v)
	}
	if w := conn.sent[0]; w[0] != 0x01 || w[1] != 0xd0 || w[2] != 0 {
		t.Errorf("Unexpected command % x", w)
	}

	if _, err := adc.Read(8); err == nil {
		t.Error("Expected out of range channel to fail")
	}
	conn.err = errors.New("bus error")
	if _, err := adc.Read(0); err == nil {
		t.Error("Expected bus error to propagate")
	}
}

type scripted struct {
	reads []int
	next  int
	err   error
}

func (s *scripted) Read(channel int) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	v := s.reads[s.next%len(s.reads)]
	s.next++
	return v, nil
}

func TestChannelSettleRead(t *testing.T) {
	adc := &scripted{reads: []int{999, 512}}
	ch := &Channel{ADC: adc, Number: 2, Settle: 1}
	if v := ch.Sample(); v != 512 {
		t.Errorf("Expected the settled conversion, got %v", v)
	}

	adc.err = errors.New("bus error")
	if v := ch.Sample(); v != 0 {
		t.Errorf("Expected 0 on failure, got %v", v)
	}
}

func TestFrame(t *testing.T) {
	adc := &scripted{reads: []int{10, 20, 30}}
	f := &Frame{ADC: adc, Channels: []int{0, 1, 2}}
	line, err := f.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	if len(line) != 3 || line[0] != 10 || line[2] != 30 {
		t.Errorf("Unexpected frame %v", line)
	}
}

func TestDummyReadsFixedValues(t *testing.T) {
	adc := Dummy(100, 900)
	f := &Frame{ADC: adc, Channels: []int{1, 0, 5}}
	got, err := f.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 900 || got[1] != 100 || got[2] != 0 {
		t.Errorf("Unexpected frame %v", got)
	}
	if _, err := adc.Read(NumChannels); err == nil {
		t.Error("Expected an error for an out of range channel")
	}
}
