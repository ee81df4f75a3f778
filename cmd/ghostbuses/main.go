package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	ghostbuses "github.com/chihacknight/chn-ghost-buses"
	"github.com/chihacknight/chn-ghost-buses/config"
	"github.com/chihacknight/chn-ghost-buses/internal/logging"
	"github.com/chihacknight/chn-ghost-buses/storage"
)

var rootCmd = &cobra.Command{
	Use:          "ghostbuses",
	Short:        "CTA ghost buses reconciliation tool",
	Long:         "Reconciles scheduled vs observed CTA bus trips per route and day",
	SilenceUsage: true,
}

var (
	configPath string
	verbose    bool
	jsonLogs   bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&jsonLogs, "json", "", false, "Emit logs as JSON")
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(compareCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.LogError(newLogger(), "command failed", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if jsonLogs {
		return logging.NewStructuredLogger(os.Stderr, level)
	}
	return logging.NewTextLogger(os.Stderr, level)
}

func buildPipeline(ignoreCache bool) (*ghostbuses.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	s, err := storage.NewSQLiteStorage(storage.SQLiteConfig{
		OnDisk:    true,
		Directory: cfg.CacheDir,
	})
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	return ghostbuses.NewPipeline(cfg, s, ignoreCache, newLogger())
}
