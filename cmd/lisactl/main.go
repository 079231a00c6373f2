package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/lisa-bot/internal/storage"
	"github.com/xaenox/lisa-bot/pkg/config"
	"github.com/xaenox/lisa-bot/pkg/logging"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lisactl",
		Short: "Lisa admin CLI - manage the example store and the trained model",
		Long: `lisactl runs maintenance jobs against the Lisa example store:
fine-tuning the generator, importing and exporting folders of files,
and counting folder contents.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")

	// Add subcommands
	rootCmd.AddCommand(newFinetuneCommand())
	rootCmd.AddCommand(newIngestCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newCountCommand())

	return rootCmd
}

// env holds what every store-backed command needs.
type env struct {
	cfg    *config.Config
	store  storage.Storage
	logger *zap.Logger
}

func openEnv() (*env, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Database.StorageConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if cfg.Database.Driver == "memory" {
		logger.Warn("In-memory storage is empty on every run; configure sqlite or postgres")
	}

	return &env{cfg: cfg, store: store, logger: logger}, nil
}

func (e *env) Close() {
	_ = e.store.Close()
	_ = e.logger.Sync()
}
