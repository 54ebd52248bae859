package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/xablanket/Leader-Follower/pkg/config"
	"github.com/xablanket/Leader-Follower/pkg/linesensor"
	"github.com/xablanket/Leader-Follower/pkg/mcp3008"
)

// Prints every ADC channel alongside the calibrated line array.
func main() {
	fmt.Println("---- ADC test ----")

	cfgFile := os.Getenv("CONFIG_FILE")
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatal(err)
	}

	adc, err := mcp3008.New(cfg.Devices.ADC)
	if err != nil {
		log.Fatal(err)
	}
	frame := &mcp3008.Frame{ADC: adc, Channels: cfg.Line.ADCChannels}
	array := linesensor.New(cfg.Line.Bounds, cfg.Line.Options)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var sb strings.Builder
		for ch := 0; ch < mcp3008.NumChannels; ch++ {
			v, err := adc.Read(ch)
			if err != nil {
				fmt.Println("ADC read failed:", err)
				return
			}
			fmt.Fprintf(&sb, "%4d ", v)
		}
		if _, err := array.Read(frame); err != nil {
			fmt.Println("Line read failed:", err)
			return
		}
		sb.WriteString("|")
		for _, v := range array.Calibrated() {
			fmt.Fprintf(&sb, " %.2f", v)
		}
		if e, ok := array.LineError(); ok {
			fmt.Fprintf(&sb, " | err %+.2f", e)
		}
		fmt.Println(sb.String())
	}
}
