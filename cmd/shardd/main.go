// Package main provides the entry point for shardd, the storage shard
// daemon. Each shardd instance keeps an append-only blob log in its own
// durable region file and serves it over HTTP to the blob pool.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stablekit/stablekit/internal/confloader"
	"github.com/stablekit/stablekit/internal/shardserver"
)

var version = "0.1.0"

func main() {
	var configFile string

	cmd := &cobra.Command{
		Use:     "shardd",
		Short:   "Run a storage shard daemon",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	var opts []confloader.Option
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	cfg, err := confloader.NewLoader(opts...).Load()
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	logger, err := newLogger(cfg.Log, level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// The log level follows config file rewrites; other settings need a
	// restart (the region file and listener cannot be swapped live).
	if configFile != "" {
		stop, err := watchLogConfig(configFile, logger, level)
		if err != nil {
			return err
		}
		defer stop()
	}

	logger.Info("starting shardd",
		"version", version,
		"data_dir", cfg.Shard.DataDir,
		"capacity", cfg.Shard.MaxBytes)

	shard, err := shardserver.New(shardserver.Config{
		DataDir:  cfg.Shard.DataDir,
		MaxBytes: cfg.Shard.MaxBytes,
	}, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.Shard.Listen,
		Handler: shard.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Shard.Listen, "shard", shard.ID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		shard.Close()
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := shard.Close(); err != nil {
		return fmt.Errorf("close shard: %w", err)
	}
	logger.Info("stopped")
	return nil
}

func newLogger(cfg confloader.LogConfig, level *slog.LevelVar) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", cfg.Level, err)
	}
	level.Set(l)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text", "":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("bad log format %q", cfg.Format)
	}
	return slog.New(handler), nil
}

// watchLogConfig reloads the config file on rewrite and applies its log
// level to the running daemon.
func watchLogConfig(path string, logger *slog.Logger, level *slog.LevelVar) (func() error, error) {
	return confloader.Watch(path, logger, func(cfg *confloader.Config) {
		var l slog.Level
		if err := l.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			logger.Warn("bad log level in reloaded config", "level", cfg.Log.Level, "error", err)
			return
		}
		if l != level.Level() {
			logger.Info("log level changed", "level", l.String())
			level.Set(l)
		}
	})
}
