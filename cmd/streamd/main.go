package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/kukjun/ai-agent-playground/internal/config"
	"github.com/kukjun/ai-agent-playground/internal/metrics"
	"github.com/kukjun/ai-agent-playground/internal/pipeline"
	"github.com/kukjun/ai-agent-playground/internal/provider/openai"
	"github.com/kukjun/ai-agent-playground/internal/server"
	"github.com/kukjun/ai-agent-playground/internal/session"
	"github.com/kukjun/ai-agent-playground/internal/storage"
	"github.com/kukjun/ai-agent-playground/internal/telemetry"
	"github.com/kukjun/ai-agent-playground/internal/tokens"
	"github.com/kukjun/ai-agent-playground/internal/translator"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Spans go to stderr so they do not interleave with the JSON log.
	shutdownTracer, err := telemetry.InitTracer(cfg.Telemetry, os.Stderr, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	gen := openai.New(cfg.LLM, openai.WithLogger(logger))
	exec, err := pipeline.NewExecutorFromConfig(cfg.Pipeline, gen, store, tokens.NewCounter(cfg.LLM.Model), logger, m)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewHub(cfg.Server.OutboundBuffer)
	registry := session.New(ctx, exec, hub,
		translator.New(exec.StageNames(),
			translator.WithSummaryLimit(cfg.Pipeline.SummaryLimit),
			translator.WithMetrics(m),
			translator.WithLogger(logger)),
		session.WithMetrics(m),
		session.WithLogger(logger))

	srv := server.New(cfg.Server, server.Deps{
		Hub:      hub,
		Sessions: registry,
		Store:    store,
		Gatherer: reg,
	}, logger)

	logger.Info("streamd configured",
		slog.String("model", cfg.LLM.Model),
		slog.String("llm_base_url", cfg.LLM.BaseURL),
		slog.String("storage", cfg.Storage.Type),
		slog.Any("stages", exec.StageNames()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		registry.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
