package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/lisa-bot/internal/assistant"
	"github.com/xaenox/lisa-bot/internal/bot"
	"github.com/xaenox/lisa-bot/internal/executor"
	"github.com/xaenox/lisa-bot/internal/feedback"
	"github.com/xaenox/lisa-bot/internal/finetune"
	"github.com/xaenox/lisa-bot/internal/generator"
	"github.com/xaenox/lisa-bot/internal/keywords"
	"github.com/xaenox/lisa-bot/internal/metrics"
	"github.com/xaenox/lisa-bot/internal/policy"
	"github.com/xaenox/lisa-bot/internal/ranker"
	"github.com/xaenox/lisa-bot/internal/session"
	"github.com/xaenox/lisa-bot/internal/storage"
	"github.com/xaenox/lisa-bot/internal/uploads"
	"github.com/xaenox/lisa-bot/pkg/config"
	"github.com/xaenox/lisa-bot/pkg/logging"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "lisa-bot",
		Short:        "Lisa - a Telegram coding assistant that learns from its conversations",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", configPath, err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Initialize storage
	store, err := storage.Open(cfg.Database.StorageConfig(), logger)
	if err != nil {
		logger.Error("Failed to initialize storage", zap.Error(err))
		return err
	}
	defer store.Close()

	gen, err := newGenerator(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize generator", zap.Error(err))
		return err
	}

	var exec executor.Executor = executor.Noop{}
	if cfg.Executor.Enabled {
		exec = executor.NewSandbox(cfg.Executor.Timeout, cfg.Executor.MaxOutput, logger)
	}

	intake, err := uploads.NewIntake(cfg.Uploads.Dir, logger)
	if err != nil {
		logger.Error("Failed to initialize uploads", zap.Error(err))
		return err
	}

	sessions, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize sessions", zap.Error(err))
		return err
	}
	if closer, ok := sessions.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	srv := serveMetrics(cfg.Metrics.Addr, registry, logger)
	if srv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	a := assistant.New(
		store,
		keywords.NewExtractor(nil),
		policy.New(ranker.New(store), exec, gen, logger),
		feedback.NewRecorder(store, store, logger),
		intake,
		sessions,
		m,
		logger,
	)

	// Initialize bot
	b, err := bot.New(bot.Config{
		Token:     cfg.Telegram.Token,
		Debug:     cfg.Telegram.Debug,
		RatingMin: cfg.Rating.Min,
		RatingMax: cfg.Rating.Max,
	}, a, logger)
	if err != nil {
		logger.Error("Failed to create bot", zap.Error(err))
		return err
	}

	// Start the bot
	if err := b.Start(ctx); err != nil {
		logger.Error("Bot error", zap.Error(err))
		return err
	}

	logger.Info("Bot stopped")
	return nil
}

// newGenerator picks the configured provider. The OpenAI model comes from
// the fine-tune artifact when one exists. With the ollama provider OpenAI
// is kept as a fallback when an API key is configured.
func newGenerator(cfg *config.Config, logger *zap.Logger) (generator.Generator, error) {
	model := cfg.OpenAI.Model
	artifact, err := finetune.LoadArtifact(cfg.Finetune.ArtifactPath)
	switch {
	case err == nil:
		logger.Info("Using fine-tuned model", zap.String("model", artifact.Model), zap.Time("trained_at", artifact.TrainedAt))
		model = artifact.Model
	case errors.Is(err, finetune.ErrNoArtifact):
		logger.Info("No fine-tuned model, using base model", zap.String("model", model))
	default:
		logger.Warn("Ignoring unreadable model artifact", zap.Error(err))
	}

	gpt := generator.NewGPTGenerator(generator.GPTConfig{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       model,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Temperature: cfg.OpenAI.Temperature,
		Timeout:     cfg.Generator.Timeout,
	}, logger)

	if cfg.Generator.Provider != "ollama" {
		return gpt, nil
	}

	ollama, err := generator.NewOllamaGenerator(cfg.Generator.OllamaHost, cfg.Generator.OllamaModel, cfg.Generator.Timeout, logger)
	if err != nil {
		return nil, err
	}
	if cfg.OpenAI.APIKey == "" {
		return ollama, nil
	}
	return generator.Fallback{ollama, gpt}, nil
}

func newSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Store, error) {
	if cfg.Session.Backend != "redis" {
		return session.NewMemory(cfg.Session.MaxEntries), nil
	}
	logger.Info("Using Redis sessions", zap.String("url", logging.SanitizeURL(cfg.Session.RedisURL)))
	store, err := session.NewRedis(ctx, cfg.Session.RedisURL, cfg.Session.TTL, cfg.Session.MaxEntries, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
