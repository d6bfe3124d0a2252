package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"taskd/internal/config"
	"taskd/internal/db"
	"taskd/internal/logging"
	"taskd/internal/server"
	"taskd/pkg/eventgraph"
	"taskd/pkg/task"
)

func main() {
	if err := run(); err != nil {
		slog.Error("taskd exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("TASKD_CONFIG"))
	if err != nil {
		return err
	}
	logger := logging.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
		cancel()
	}()

	var sinks []eventgraph.Sink

	if cfg.Database.URL != "" {
		pool, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		pg := eventgraph.NewPgSink(pool)
		if err := pg.EnsureTable(ctx); err != nil {
			return fmt.Errorf("ensure task_events table: %w", err)
		}
		sinks = append(sinks, pg)
		logger.Info("journaling events to postgres")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		k := eventgraph.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := k.Close(); err != nil {
				logger.Warn("close kafka writer", "error", err)
			}
		}()
		sinks = append(sinks, k)
		logger.Info("publishing events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	var store task.Store = task.NewMemStore()
	var journal *eventgraph.Journal
	if len(sinks) > 0 {
		bus := eventgraph.NewBus()
		journal = eventgraph.NewJournal(bus, logger, sinks...)
		store = eventgraph.NewRecorder(store, bus)
	}

	srv := server.New(store, server.Options{
		Addr:        cfg.Server.Addr,
		BufferSize:  cfg.Server.BufferSize,
		ReadTimeout: cfg.Server.ReadTimeout,
	}, logger)

	if err := serve(ctx, journal, srv.ListenAndServe); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

// serve runs serveFn until ctx is cancelled. When journal is set it runs
// alongside and is stopped only after serveFn has returned, so mutations
// made by connections still finishing during shutdown are journaled too.
func serve(ctx context.Context, journal *eventgraph.Journal, serveFn func(context.Context) error) error {
	if journal == nil {
		return serveFn(ctx)
	}

	journalCtx, stopJournal := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		journal.Run(journalCtx)
		close(done)
	}()

	err := serveFn(ctx)
	stopJournal()
	<-done
	return err
}
