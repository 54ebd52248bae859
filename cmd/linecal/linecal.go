package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/xablanket/Leader-Follower/pkg/config"
	"github.com/xablanket/Leader-Follower/pkg/hardware"
	"github.com/xablanket/Leader-Follower/pkg/linesensor"
)

const sweepTime = 5 * time.Second

// Records the line array's range while the robot is swept across the line,
// then prints bounds to paste into the config.
func main() {
	fmt.Println("---- Line sensor calibration ----")

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

	cal := linesensor.NewCalibrator(len(cfg.Line.ADCChannels))
	fmt.Printf("Sweep the sensors across the line for %v...\n", sweepTime)
	hw.Display().ShowRows("CALIBRATE", "SWEEP NOW")

	deadline := time.After(sweepTime)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
sweep:
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			break sweep
		case <-ticker.C:
		}
		raw, err := hw.Line().ReadLine()
		if err != nil {
			fmt.Println("Read failed:", err)
			continue
		}
		cal.Sample(raw)
	}

	cal.PrintSummary()
	hw.Display().ShowRows("CALIBRATE", "DONE")

	out, err := yaml.Marshal(map[string]interface{}{
		"line": map[string]interface{}{"bounds": cal.Bounds()},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Add to %s:\n%s", cfgFile, out)
}
