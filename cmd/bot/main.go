package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ledass/Auto-accepting-repo/internal/app"
	"github.com/ledass/Auto-accepting-repo/internal/config"
	"github.com/ledass/Auto-accepting-repo/internal/logger"
)

// Exit codes: 2 for bad configuration, 1 for a bot that could not start or
// stopped with an error.
const (
	exitFailure = 1
	exitConfig  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "auto-accept-bot: %v\n", err)
		return exitConfig
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "auto-accept-bot: LOG_LEVEL: %v\n", err)
		return exitConfig
	}
	defer func() { _ = log.Sync() }()

	bot, err := app.New(cfg, log)
	if err != nil {
		log.Error("bot authorization failed", zap.Error(err))
		return exitFailure
	}
	if err := bot.Run(context.Background()); err != nil {
		log.Error("bot stopped", zap.Error(err))
		return exitFailure
	}
	return 0
}
