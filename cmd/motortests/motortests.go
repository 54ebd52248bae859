package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xablanket/Leader-Follower/pkg/config"
	"github.com/xablanket/Leader-Follower/pkg/hardware"
)

func main() {
	cfgFile := os.Getenv("CONFIG_FILE")
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatal(err)
	}

	var hw hardware.Interface
	if os.Getenv("DUMMY_HARDWARE") != "" {
		hw = hardware.NewDummy()
	} else {
		hw, err = hardware.New(cfg)
		if err != nil {
			log.Fatal(err)
		}
	}
	hw.Start(context.Background())
	defer hw.Shutdown()
	mot := hw.Motors()
	defer mot.Stop()

	fmt.Printf(
		`Commands:
    m <left> <right> [secs]  # Drive both wheels, stopping after secs if given
    s                        # Stop
    q                        # Stop and quit

<left> <right>    Signed PWM command; magnitude is limited to %v
`, cfg.MaxPWM)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "m":
			if len(parts) < 3 {
				fmt.Println("Not enough parameters")
				continue
			}
			left, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				fmt.Println("Expected float, not ", parts[1])
				continue
			}
			right, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				fmt.Println("Expected float, not ", parts[2])
				continue
			}
			fmt.Printf("Driving L=%v R=%v\n", left, right)
			if err := mot.SetPWM(left, right); err != nil {
				fmt.Println("Failed to drive motors: ", err)
				return
			}
			if len(parts) < 4 {
				continue
			}
			secs, err := strconv.ParseFloat(parts[3], 64)
			if err != nil {
				fmt.Println("Expected float, not ", parts[3])
				_ = mot.Stop()
				continue
			}
			before, _ := hw.Ticks().Snapshot()
			time.Sleep(time.Duration(secs * float64(time.Second)))
			if err := mot.Stop(); err != nil {
				fmt.Println("Failed to stop motors: ", err)
				return
			}
			after, _ := hw.Ticks().Snapshot()
			fmt.Printf("Stopped; left wheel moved %d counts\n", after-before)
		case "s":
			if err := mot.Stop(); err != nil {
				fmt.Println("Failed to stop motors: ", err)
				return
			}
		case "q":
			return
		default:
			fmt.Println("Unknown command ", parts[0])
		}
	}
}
