package pausemode

import (
	"context"
	"fmt"

	"github.com/xablanket/Leader-Follower/pkg/hardware"
	"github.com/xablanket/Leader-Follower/pkg/sound"
)

type PauseMode struct {
	hw hardware.Interface
}

func New(hw hardware.Interface) *PauseMode {
	return &PauseMode{hw: hw}
}

func (m *PauseMode) Name() string {
	return "PAUSED"
}

func (m *PauseMode) StartupSound() string {
	return sound.Stop
}

func (m *PauseMode) Start(ctx context.Context) {
	if err := m.hw.Motors().Stop(); err != nil {
		fmt.Println("PAUSE: failed to stop motors:", err)
	}
	m.hw.Display().ShowRows(m.Name(), "")
}

func (m *PauseMode) Stop() {
}
