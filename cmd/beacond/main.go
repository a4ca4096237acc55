package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/staleguard/internal/collector"
)

func main() {
	// Parse flags
	port := flag.Int("port", 8090, "HTTP listen port")
	dbURL := flag.String("db", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	_ = godotenv.Load()
	if *dbURL == "" {
		*dbURL = os.Getenv("DATABASE_URL")
	}

	slogLevel := slog.LevelInfo
	if *isDebug {
		slogLevel = slog.LevelDebug
	}
	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})

	if *dbURL == "" {
		slog.Error("Database URL is required (-db flag or DATABASE_URL)")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := collector.NewDB(ctx, collector.DBConfig{URL: *dbURL})
	if err != nil {
		slog.Error("Failed to init db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		slog.Error("Failed to migrate db", "error", err)
		os.Exit(1)
	}

	server := collector.NewServer(collector.NewBeaconRepo(db), *port, slog.Default())

	go func() {
		if err := server.Start(); err != nil {
			slog.Error("Beacon server failed", "error", err)
		}
	}()
	slog.Info("Beacon collector started", "port", *port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Beacon collector stopped gracefully")
}
