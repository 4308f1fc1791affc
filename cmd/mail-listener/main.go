package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"woboard/internal/board"
	"woboard/internal/config"
	"woboard/internal/connectors"
	"woboard/internal/listener"
	"woboard/internal/logger"
	"woboard/internal/pipeline"
	"woboard/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireBoard(); err != nil {
		return err
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "woboard-listener"})

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := connectors.NewMailConnector(ctx, cfg, strings.ToLower(strings.TrimSpace(cfg.MailListenerProvider)))
	if err != nil {
		return err
	}

	fetcher := connectors.NewFetchService(db, cfg.RawMailDir, conn, log)
	processor := pipeline.NewProcessor(board.NewClient(cfg, log), db, cfg, log)
	return listener.NewService(fetcher, processor, db, cfg, log).Run(ctx)
}
