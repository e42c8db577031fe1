package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"osc-console/contract"
	"osc-console/domain"
	"osc-console/errors"
	"osc-console/internal"
	"osc-console/moderation"
	"osc-console/notification"
	"osc-console/repositories"
	"osc-console/runtime"
	"osc-console/runtime/workers"
	"osc-console/sink"
	"osc-console/state"
)

// Exit codes to provide meaningful status to the operating system or service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Console terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run builds every component, connects to the control bus and blocks until
// a signal arrives. Deferred cleanups run before main exits.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.Load()
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	criteria, err := config.NameCriteriaRules()
	if err != nil {
		return exitConfig, err
	}
	tagger, err := domain.NewTagger(criteria)
	if err != nil {
		return exitConfig, err
	}
	settings, err := config.AutomationSettings()
	if err != nil {
		return exitConfig, err
	}
	watcher, err := moderation.NewKeywordWatcher(config.WatchKeywordList())
	if err != nil {
		return exitConfig, err
	}

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	index := repositories.NewChatIndex(blugeWriter, logger)
	defer func() {
		logger.Info("Closing Bluge...")
		_ = index.Close()
	}()

	participants := repositories.NewParticipantRepository(db, logger)
	chats := repositories.NewChatRepository(db, logger)
	if known, err := participants.ListByName(); err == nil {
		logger.Info("Participants known from previous sessions", "count", len(known))
	}

	// 3. Pipeline
	var reg prometheus.Registerer
	if config.MetricsAddr != "" {
		reg = prometheus.DefaultRegisterer
	}
	registry := runtime.NewRegistry(logger)
	store := state.NewStore(tagger, registry, logger,
		state.WithInspector(moderation.NewInspector(watcher, logger)),
		state.WithHistory(participants))
	orchestrator := runtime.NewOrchestrator(runtime.Settings{
		Host:              config.Host,
		ReceivePort:       config.ReceivePort,
		SendPort:          config.SendPort,
		BufferSize:        config.BufferSize,
		SettleDelay:       config.SettleDelay,
		HeartbeatInterval: config.HeartbeatInterval,
		BatchWindow:       config.BatchWindow,
		Automation:        settings,
	}, store, registry, workers.NewSupervisor(logger, config.RestartInterval), chats, index, reg, logger)

	var notifier contract.Notifier = notification.NewConsoleNotifier(os.Stdout, true)
	if config.Notifier == "log" {
		notifier = notification.NewLogNotifier(logger)
	}
	policy := notification.NewPolicy(notifier, config.PriorityTagList(), logger)
	policy.SetEnabled(config.Notifications)
	policy.SetSound(config.NotificationSound)
	orchestrator.Subscribe("notification", policy)
	orchestrator.Subscribe("disk", sink.NewDiskSink(participants, chats, index, logger))

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	if config.MetricsAddr != "" {
		server := metricsServer(config.MetricsAddr)
		go func() {
			logger.Info("Serving metrics", "address", config.MetricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
		defer shutdown(server, logger)
	}

	// 5. Start the workers, then connect
	done := make(chan struct{})
	go func() {
		orchestrator.Start(ctx)
		close(done)
	}()
	defer func() {
		orchestrator.Stop(context.Background())
		<-done
	}()

	if err = orchestrator.Connect(ctx); err != nil {
		return exitRuntime, fmt.Errorf("connect failed: %w", err)
	}

	console := newShell(orchestrator, policy, os.Stdout, logger)
	go func() {
		if err := console.run(ctx, os.Stdin); err != nil {
			logger.Warn("Operator input closed", "error", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down gracefully...")
	case err = <-errChan:
		return exitRuntime, err
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func metricsServer(address string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func shutdown(server *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("Metrics server shutdown failed", "error", err)
	}
}
