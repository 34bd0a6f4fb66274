package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/remote-model/internal/app"
	"github.com/samvad-hq/remote-model/internal/config"
	"github.com/samvad-hq/remote-model/internal/logger"
)

func main() {
	resourceID := flag.String("resource", "", "id of the resource to save to")
	statePath := flag.String("state", "", "YAML or JSON file holding the state to save")
	flag.Parse()

	if err := run(*resourceID, *statePath); err != nil {
		fmt.Fprintf(os.Stderr, "pusher failed: %v\n", err)
		os.Exit(1)
	}
}

func run(resourceID, statePath string) error {
	if resourceID == "" || statePath == "" {
		return fmt.Errorf("both -resource and -state are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pusher, err := app.NewPusher(cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize pusher", "error", err)
		return err
	}
	defer pusher.Close()

	if _, err := pusher.Push(ctx, resourceID, statePath); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	return nil
}
