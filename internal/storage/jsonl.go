package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"liquidityCurve/internal/model"
)

const maxLineBytes = 1 << 20

// JSONLStorage appends liquidity events to a JSON lines file.
type JSONLStorage struct {
	path string
	mu   sync.Mutex
}

func NewJSONLStorage(path string) *JSONLStorage {
	return &JSONLStorage{path: path}
}

// PutEvents appends events, one JSON object per line.
func (s *JSONLStorage) PutEvents(events []model.LiquidityEvent) error {
	if len(events) == 0 {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	enc := json.NewEncoder(writer)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("write event %s: %w", ev.Key(), err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// ReadEvents loads every event from a JSONL file written by PutEvents.
// Blank lines are skipped.
func ReadEvents(path string) ([]model.LiquidityEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var events []model.LiquidityEvent
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev model.LiquidityEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("events line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return events, nil
}
