package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/web/server"
)

func main() {
	port := flag.Int("port", 8080, "Port to serve on")
	scenesDir := flag.String("scenes", "scenes", "Directory of scene documents")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	core.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := server.NewServer(*port, *scenesDir, logger).Start(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
