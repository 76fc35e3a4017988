package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"liquidityCurve/internal/dex"
	"liquidityCurve/internal/model"
	"liquidityCurve/internal/storage"
)

// LogSource is the chain access the runner needs. *chain.Client implements it.
type LogSource interface {
	ChainID(ctx context.Context) (uint64, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, address common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// RunConfig holds runtime settings for a liquidity sync.
type RunConfig struct {
	Pool              common.Address
	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	// Progress replaces the file checkpoint when set.
	Progress Progress
}

// Runner pulls a pool's Mint and Burn logs in block batches and appends the
// decoded events to a sink.
type Runner struct {
	cfg      RunConfig
	source   LogSource
	sink     storage.EventSink
	decoder  *dex.LiquidityDecoder
	logger   *zap.Logger
	seen     map[string]struct{}
	progress Progress
}

func NewRunner(cfg RunConfig, source LogSource, sink storage.EventSink, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	decoder, err := dex.NewLiquidityDecoder()
	if err != nil {
		return nil, fmt.Errorf("liquidity decoder: %w", err)
	}
	progress := cfg.Progress
	if progress == nil {
		progress = NewCheckpointStore(cfg.CheckpointPath, cfg.Pool.Hex(), cfg.CheckpointEnabled)
	}
	return &Runner{
		cfg:      cfg,
		source:   source,
		sink:     sink,
		decoder:  decoder,
		logger:   logger,
		seen:     make(map[string]struct{}),
		progress: progress,
	}, nil
}

// Run syncs [FromBlock, ToBlock], resuming after the checkpoint when one
// exists. ToBlock zero means the latest block at start.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("log source is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("event sink is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.Pool == (common.Address{}) {
		return fmt.Errorf("pool address is required")
	}

	chainID, err := r.source.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.source.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	last, ok, err := r.progress.Load(ctx)
	if err != nil {
		return err
	}
	if ok && last >= from {
		from = last + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		events := make([]model.LiquidityEvent, 0, len(logs))
		for _, log := range logs {
			if log.Removed || r.isDuplicate(log) || !r.decoder.CanDecode(log) {
				continue
			}
			ev, err := r.decoder.Decode(chainID, log)
			if err != nil {
				return fmt.Errorf("decode log %s:%d: %w", log.TxHash.Hex(), log.Index, err)
			}
			events = append(events, ev)
		}

		if err := r.sink.PutEvents(events); err != nil {
			return fmt.Errorf("store events: %w", err)
		}
		if err := r.progress.Save(ctx, blockRange.To); err != nil {
			return err
		}

		r.logger.Info("batch complete", zap.Int("events", len(events)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}

	return nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.source.FilterLogs(ctx, fromBlock, toBlock, r.cfg.Pool, r.decoder.Topics())
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
