package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bodega/internal/api"
	"bodega/internal/config"
	"bodega/internal/storage"
	"bodega/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)

	logger, err := util.NewLogger(cfg.LogLevel)
	must(err)
	defer func() { _ = logger.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(api.Run(ctx, cfg, db, logger))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
