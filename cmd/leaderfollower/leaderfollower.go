package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/xablanket/Leader-Follower/pkg/config"
	"github.com/xablanket/Leader-Follower/pkg/followmode"
	"github.com/xablanket/Leader-Follower/pkg/hardware"
	"github.com/xablanket/Leader-Follower/pkg/linemode"
	"github.com/xablanket/Leader-Follower/pkg/pausemode"
)

type Mode interface {
	Name() string
	StartupSound() string
	Start(ctx context.Context)
	Stop()
}

func main() {
	fmt.Println("---- Leader/Follower ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfgFile := os.Getenv("CONFIG_FILE")
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Role:", cfg.Role)

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	// Initialise the hardware.
	var hw hardware.Interface
	if os.Getenv("DUMMY_HARDWARE") != "" {
		hw = hardware.NewDummy()
	} else if hw, err = hardware.New(cfg); err != nil {
		log.Fatal(err)
	}
	defer func() {
		fmt.Println("Zeroing motors for shut down")
		hw.Shutdown()
		time.Sleep(100 * time.Millisecond)
	}()
	hw.Start(ctx)

	var allModes []Mode
	if cfg.Role == config.RoleFollower {
		allModes = append(allModes, followmode.New(hw, cfg))
	} else {
		allModes = append(allModes, linemode.New(hw, cfg))
	}
	allModes = append(allModes, pausemode.New(hw))

	// Start paused so the robot doesn't move until asked to.
	activeModeIdx := len(allModes) - 1
	activeMode := allModes[activeModeIdx]
	fmt.Printf("----- %s -----\n", activeMode.Name())
	activeMode.Start(ctx)

	switchMode := func() {
		activeMode.Stop()
		fmt.Println("Mode switch: active mode stopped")
		if err := hw.Motors().Stop(); err != nil {
			fmt.Println("Mode switch: failed to stop motors:", err)
		}
		activeModeIdx = (activeModeIdx + 1) % len(allModes)
		activeMode = allModes[activeModeIdx]
		fmt.Printf("----- %s -----\n", activeMode.Name())

		hw.Sound().Play(activeMode.StartupSound())

		activeMode.Start(ctx)
		fmt.Println("Mode switch done.")
	}

	// SIGUSR1 stands in for the button on the bench.
	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)

	watchdog := time.NewTicker(5 * time.Second)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Context done, stopping active mode and shutting down")
			activeMode.Stop()
			return
		case <-hw.ModePressed():
			fmt.Println("Mode button pressed")
			switchMode()
		case <-usr1:
			fmt.Println("SIGUSR1: switching modes")
			switchMode()
		case <-watchdog.C:
			fmt.Println("Main loop still running")
		}
	}
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
