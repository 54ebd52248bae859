package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xablanket/Leader-Follower/pkg/config"
	"github.com/xablanket/Leader-Follower/pkg/screen"
)

// Shows each line typed on stdin as "top|bottom" on the status screen.
func main() {
	device := os.Getenv("SCREEN_DEVICE")
	if device == "" {
		device = config.Default().Devices.Screen
	}
	fb := screen.NewFramebuffer(device)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go fb.Loop(ctx, &wg)
	defer func() {
		cancel()
		wg.Wait()
	}()

	fb.ShowRows("SCREEN TEST", device)
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}
		top, bottom, _ := strings.Cut(strings.TrimSpace(line), "|")
		fb.ShowRows(top, bottom)
	}
}
