package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mini-maxit/harness/internal/cli"
	"github.com/mini-maxit/harness/internal/logger"
)

func main() {
	// Initialize the logger
	logger.InitializeLogger()
	defer logger.Sync()

	log := logger.NewNamedLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		log.Errorf("Command failed: %s", err)
		logger.Sync()
		stop()
		os.Exit(1)
	}
}
