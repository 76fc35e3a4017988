package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"liquidityCurve/internal/model"
)

func writeJSON(path string, value interface{}) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readSnapshot(path string) (model.PoolSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap model.PoolSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snap, nil
}

// snapshotPath returns out unchanged for a single pool, otherwise out with
// the pool address appended to the file name.
func snapshotPath(out, pool string, total int) string {
	if total <= 1 {
		return out
	}
	ext := filepath.Ext(out)
	return out[:len(out)-len(ext)] + "-" + pool + ext
}
