package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghazi-f/ai-kanban/config"
	"github.com/ghazi-f/ai-kanban/consumer"
	"github.com/ghazi-f/ai-kanban/content"
	"github.com/ghazi-f/ai-kanban/employee"
	"github.com/ghazi-f/ai-kanban/event"
	"github.com/ghazi-f/ai-kanban/llm"
	"github.com/ghazi-f/ai-kanban/memory"
	"github.com/ghazi-f/ai-kanban/tracker"
	"github.com/ghazi-f/ai-kanban/workflow"
)

// App wires together the worker's components.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// NATS
	embeddedServer *server.Server
	natsConn       *nats.Conn
	js             jetstream.JetStream

	// Domain
	registry *employee.Registry
	events   event.Store
	consumer *consumer.Consumer

	// Background loops
	watcherCancel context.CancelFunc
	watcherDone   chan struct{}
	metricsServer *http.Server
}

// NewApp creates the application from configuration.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger}, nil
}

// Start initializes and starts all components.
func (a *App) Start(ctx context.Context) error {
	if err := a.startNATS(ctx); err != nil {
		return fmt.Errorf("start NATS: %w", err)
	}

	if err := a.ensureStream(ctx); err != nil {
		return err
	}

	events, err := event.NewKVStore(ctx, a.js)
	if err != nil {
		return fmt.Errorf("initialize event store: %w", err)
	}
	a.events = events

	memories, err := memory.NewKVStore(ctx, a.js)
	if err != nil {
		return fmt.Errorf("initialize memory store: %w", err)
	}

	client, err := llm.NewClient(a.cfg.LLM.Endpoints, llm.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}

	enricher := content.NewEnricher(a.logger)
	workflows := workflow.NewFactory(client, memories, enricher, a.logger)

	registry, err := employee.NewFactory(workflows, a.logger).DefaultRegistry()
	if err != nil {
		return fmt.Errorf("create employee registry: %w", err)
	}
	a.registry = registry

	sink := tracker.NewLogSink(a.logger)
	status := tracker.NewStatusService(sink, a.logger)
	processed := tracker.NewProcessedSet(a.cfg.Tracker.ProcessedFile, a.logger)

	consumerConfig := consumer.Config{
		Stream:         a.cfg.Consumer.Stream,
		Subject:        a.cfg.Consumer.Subject,
		Durable:        a.cfg.Consumer.Durable,
		MaxConcurrent:  a.cfg.Consumer.MaxConcurrent,
		ProcessTimeout: a.cfg.LLM.Timeout,
	}
	cons, err := consumer.New(consumerConfig, a.js, consumer.Deps{
		Resolver:  employee.NewResolver(registry, a.logger),
		Status:    status,
		Sink:      sink,
		Processed: processed,
		Events:    events,
		Logger:    a.logger,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	if err := cons.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	a.consumer = cons

	if a.cfg.Roster.File != "" {
		if err := a.startRosterWatcher(ctx); err != nil {
			return fmt.Errorf("start roster watcher: %w", err)
		}
	}

	if a.cfg.Metrics.Addr != "" {
		a.startMetrics()
	}

	a.logger.Info("components initialized",
		"employees", len(registry.All()),
		"active", len(registry.Active()))
	return nil
}

func (a *App) startNATS(ctx context.Context) error {
	if a.cfg.NATS.URL != "" && !a.cfg.NATS.Embedded {
		a.logger.Info("connecting to NATS", "url", a.cfg.NATS.URL)
		conn, err := nats.Connect(a.cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		a.natsConn = conn
	} else {
		a.logger.Info("starting embedded NATS server")
		opts := &server.Options{
			Port:      -1, // Random available port
			JetStream: true,
			NoLog:     true,
			NoSigs:    true,
		}

		ns, err := server.NewServer(opts)
		if err != nil {
			return fmt.Errorf("create embedded NATS server: %w", err)
		}

		go ns.Start()

		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return fmt.Errorf("embedded NATS server failed to start")
		}

		a.embeddedServer = ns

		conn, err := nats.Connect(ns.ClientURL())
		if err != nil {
			ns.Shutdown()
			return fmt.Errorf("connect to embedded NATS: %w", err)
		}
		a.natsConn = conn
	}

	js, err := jetstream.New(a.natsConn)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	a.js = js
	return nil
}

func (a *App) ensureStream(ctx context.Context) error {
	_, err := a.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     a.cfg.Consumer.Stream,
		Subjects: []string{a.cfg.Consumer.Subject},
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", a.cfg.Consumer.Stream, err)
	}
	return nil
}

func (a *App) startRosterWatcher(ctx context.Context) error {
	watcher, err := employee.NewWatcher(a.cfg.Roster.File, a.registry, a.events, a.logger)
	if err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	a.watcherCancel = cancel
	a.watcherDone = make(chan struct{})

	go func() {
		defer close(a.watcherDone)
		if err := watcher.Run(watchCtx); err != nil && watchCtx.Err() == nil {
			a.logger.Error("roster watcher stopped", "error", err)
		}
	}()

	a.logger.Info("watching roster", "file", a.cfg.Roster.File)
	return nil
}

func (a *App) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metricsServer = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}

	go func() {
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()

	a.logger.Info("metrics listening", "addr", a.cfg.Metrics.Addr)
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown(timeout time.Duration) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Stop(); err != nil {
			a.logger.Warn("consumer stop failed", "error", err)
		}
	}

	if a.watcherCancel != nil {
		a.watcherCancel()
		select {
		case <-a.watcherDone:
		case <-shutdownCtx.Done():
		}
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics server shutdown failed", "error", err)
		}
	}

	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.logger.Warn("NATS drain failed", "error", err)
		}
		a.natsConn.Close()
	}

	if a.embeddedServer != nil {
		a.embeddedServer.Shutdown()
		a.embeddedServer.WaitForShutdown()
	}

	a.logger.Info("shutdown complete")
}
