// Command ingest batch-processes a directory of webhook payload dumps
// into the message store. Re-running over the same directory is safe:
// every write is idempotent by external message id.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/config"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/events"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/ingest"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/store"
)

func main() {
	dir := flag.String("dir", "payloads", "directory of payload JSON files")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	flag.Parse()

	cfg := config.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var msgStore store.MessageStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer pgStore.Close()
		msgStore = pgStore
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		defer sqliteStore.Close()
		msgStore = sqliteStore
	}

	merger := ingest.NewMerger(msgStore, events.NopSink{}, logger)

	summary, err := merger.ProcessDir(ctx, *dir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", *dir).Msg("payload run aborted")
	}

	logger.Info().
		Int("files", summary.Files).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("messages", summary.Messages).
		Int("statuses", summary.Statuses).
		Int("item_failures", len(summary.Failures)).
		Int("file_errors", len(summary.Errors)).
		Msg("payload run complete")

	for _, fe := range summary.Errors {
		logger.Warn().Str("file", fe.File).Str("error", fe.Err).Msg("file failed")
	}

	if len(summary.Errors) > 0 {
		os.Exit(1)
	}
}
