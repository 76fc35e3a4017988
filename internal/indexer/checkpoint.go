package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Progress persists the last fully synced block.
type Progress interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, block uint64) error
}

// Checkpoint tracks the last block synced for one pool.
type Checkpoint struct {
	Pool               string `json:"pool"`
	LastProcessedBlock uint64 `json:"last_processed_block"`
	UpdatedAt          string `json:"updated_at"`
}

// CheckpointStore persists a pool's checkpoint with write-then-rename.
type CheckpointStore struct {
	path    string
	pool    string
	enabled bool
}

func NewCheckpointStore(path, pool string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, pool: pool, enabled: enabled && path != ""}
}

// Load returns ok=false when no checkpoint exists yet.
func (c *CheckpointStore) Load(_ context.Context) (uint64, bool, error) {
	cp, ok, err := c.Read()
	return cp.LastProcessedBlock, ok, err
}

// Read returns the stored checkpoint. A checkpoint written for another pool
// is an error rather than a silent restart.
func (c *CheckpointStore) Read() (Checkpoint, bool, error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	if cp.Pool != "" && !strings.EqualFold(cp.Pool, c.pool) {
		return Checkpoint{}, false, fmt.Errorf("checkpoint %s belongs to pool %s", c.path, cp.Pool)
	}
	return cp, true, nil
}

func (c *CheckpointStore) Save(_ context.Context, lastProcessed uint64) error {
	if !c.enabled {
		return nil
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(Checkpoint{
		Pool:               c.pool,
		LastProcessedBlock: lastProcessed,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
