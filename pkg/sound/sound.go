package sound

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Cues played by the modes.
const (
	Start       = "start"
	Stop        = "stop"
	LineLost    = "line-lost"
	LineFound   = "line-found"
	LeaderFound = "leader-found"
	LeaderLost  = "leader-lost"
)

type Player interface {
	Play(cue string)
}

// Speaker plays <dir>/<cue>.wav through the default audio device.  Cues are
// dropped rather than queued if the player is busy.
type Speaker struct {
	dir   string
	cues  chan string
	close sync.Once
	done  chan struct{}
}

func NewSpeaker(dir string) *Speaker {
	s := &Speaker{
		dir:  dir,
		cues: make(chan string),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Path is the file a cue is played from.
func (s *Speaker) Path(cue string) string {
	return filepath.Join(s.dir, cue+".wav")
}

func (s *Speaker) Play(cue string) {
	select {
	case s.cues <- cue:
	case <-s.done:
	case <-time.After(10 * time.Millisecond):
		fmt.Println("Timed out trying to play sound: ", cue)
	}
}

func (s *Speaker) Close() {
	s.close.Do(func() { close(s.done) })
}

func (s *Speaker) loop() {
	sampleRate := beep.SampleRate(44100)
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/5)); err != nil {
		fmt.Println("Failed to open speaker", err)
		s.drain()
		return
	}

	var ctrl *beep.Ctrl
	var stream beep.StreamSeekCloser
	for {
		var cue string
		select {
		case <-s.done:
			return
		case cue = <-s.cues:
		}

		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if stream != nil {
			stream.Close()
			stream = nil
		}

		f, err := os.Open(s.Path(cue))
		if err != nil {
			fmt.Println("Failed to open sound", err)
			continue
		}
		stream, _, err = wav.Decode(f)
		if err != nil {
			fmt.Println("Failed to decode sound", err)
			f.Close()
			stream = nil
			continue
		}
		ctrl = &beep.Ctrl{Streamer: stream}
		speaker.Play(ctrl)
	}
}

func (s *Speaker) drain() {
	for {
		select {
		case <-s.done:
			return
		case cue := <-s.cues:
			fmt.Println("Unable to play", cue)
		}
	}
}

// Silent logs cues instead of playing them.
type Silent struct{}

func (Silent) Play(cue string) {
	fmt.Println("SND:", cue)
}
