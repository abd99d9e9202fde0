package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/crosslocale/cmd"
)

// main is the entry point for the crosslocale CLI.
func main() {
	// Listen for interrupt signals so an in-flight browser probe shuts down
	// cleanly instead of leaving an orphaned browser process.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
