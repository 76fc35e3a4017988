package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityCurve/internal/chain"
	"liquidityCurve/internal/config"
	"liquidityCurve/internal/indexer"
	"liquidityCurve/internal/storage"
	"liquidityCurve/internal/storage/postgres"
)

func runSync(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSync(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	pool, err := indexer.ParseAddress(cfg.Pool)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	runCfg := indexer.RunConfig{
		Pool:              pool,
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}

	progress := "file"
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		chainID, err := chainClient.ChainID(ctx)
		if err != nil {
			return fmt.Errorf("chain id: %w", err)
		}
		runCfg.Progress = &indexer.DBProgress{Store: store, Name: indexer.SyncStateName(chainID, pool.Hex())}
		progress = "postgres"
	}

	runner, err := indexer.NewRunner(runCfg, chainClient, storage.NewJSONLStorage(cfg.Out), logger)
	if err != nil {
		return err
	}

	logger.Info("sync start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("pool", pool.Hex()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.String("progress", progress),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	return runner.Run(ctx)
}
