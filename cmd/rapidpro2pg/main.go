package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/rapidpro2pg/internal/app"
	"github.com/dmitrijs2005/rapidpro2pg/internal/config"
	"github.com/dmitrijs2005/rapidpro2pg/internal/flagx"
	"github.com/dmitrijs2005/rapidpro2pg/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if flagx.UsageRequested(args) {
		config.PrintUsage(os.Stdout)
		return 0
	}

	cfg, err := config.LoadConfig(args)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("%v", err)
		return 1
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}

	ctx := context.Background()
	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "init error", "error", err)
		return 1
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		return 1
	}
	return 0
}
