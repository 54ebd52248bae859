package telemetry

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/xablanket/Leader-Follower/pkg/angle"
)

var Header = []string{"Sample", "X_mm", "Y_mm", "Theta_rad", "SpdL_cps", "SpdR_cps", "LineErr", "Turn"}

type Row struct {
	Sample     int
	X, Y       float64
	Heading    float64
	LeftSpeed  float64
	RightSpeed float64
	LineError  float64
	Turn       float64
}

func (r Row) record() []string {
	f := func(v float64, prec int) string {
		return strconv.FormatFloat(v, 'f', prec, 64)
	}
	return []string{
		strconv.Itoa(r.Sample),
		f(r.X, 2),
		f(r.Y, 2),
		f(angle.Wrap(r.Heading), 4),
		f(r.LeftSpeed, 1),
		f(r.RightSpeed, 1),
		f(r.LineError, 3),
		f(r.Turn, 2),
	}
}

// Writer formats rows as CSV, header first.
type Writer struct {
	csv         *csv.Writer
	wroteHeader bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

func (w *Writer) Write(r Row) error {
	if !w.wroteHeader {
		if err := w.csv.Write(Header); err != nil {
			return err
		}
		w.wroteHeader = true
	}
	if err := w.csv.Write(r.record()); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

// Stream decouples the control loop from the serial link.  Rows sent while
// the link is busy are dropped.
type Stream struct {
	w       *Writer
	closer  io.Closer
	rows    chan Row
	dropped int

	lock sync.Mutex
}

func NewStream(w io.Writer) *Stream {
	s := &Stream{
		w:    NewWriter(w),
		rows: make(chan Row, 64),
	}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenSerial streams to a serial port, e.g. a radio modem.
func OpenSerial(device string, baudRate int) (*Stream, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open telemetry port %s", device)
	}
	fmt.Println("TEL: streaming to", device)
	return NewStream(port), nil
}

func (s *Stream) Send(r Row) {
	select {
	case s.rows <- r:
	default:
		s.lock.Lock()
		s.dropped++
		s.lock.Unlock()
	}
}

func (s *Stream) Dropped() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.dropped
}

// Loop writes queued rows until ctx is done, then flushes what is queued and
// closes the underlying writer if it can be closed.
func (s *Stream) Loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if s.closer != nil {
			_ = s.closer.Close()
		}
	}()

	for {
		select {
		case r := <-s.rows:
			if err := s.w.Write(r); err != nil {
				fmt.Println("TEL: write failed, stopping:", err)
				return
			}
		case <-ctx.Done():
			for {
				select {
				case r := <-s.rows:
					if err := s.w.Write(r); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// Discard is a Sender that drops everything.
type Discard struct{}

func (Discard) Send(Row) {}

type Sender interface {
	Send(r Row)
}

var _ Sender = (*Stream)(nil)
