package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xablanket/Leader-Follower/pkg/angle"
	"github.com/xablanket/Leader-Follower/pkg/config"
	"github.com/xablanket/Leader-Follower/pkg/hardware"
	"github.com/xablanket/Leader-Follower/pkg/odometry"
)

// Prints the live tick counts and pose while the wheels are turned by hand.
func main() {
	fmt.Println("---- Encoder test ----")

	cfgFile := os.Getenv("CONFIG_FILE")
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hw, err := hardware.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer hw.Shutdown()
	hw.Start(ctx)

	odo := odometry.New(hw.Ticks(), cfg.Geometry, hw.Clock())
	odo.Initialise(0, 0, 0)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		l, r := hw.Ticks().Snapshot()
		p := odo.Update()
		s := odo.Speeds()
		fmt.Printf("L %6d R %6d | x %7.1fmm y %7.1fmm h %6.1f° | %6.0f %6.0f cps\n",
			l, r, p.X, p.Y, angle.FromFloat(p.Heading).Degrees(), s.Left, s.Right)
	}
}
