// Package storage selects the record store backing the saver stage.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kukjun/ai-agent-playground/internal/config"
	"github.com/kukjun/ai-agent-playground/internal/core/ports"
	"github.com/kukjun/ai-agent-playground/internal/storage/memory"
	"github.com/kukjun/ai-agent-playground/internal/storage/sqlite"
)

// New creates the store configured by cfg.
func New(cfg config.StorageConfig) (ports.RecordStore, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.New(memory.WithLatency(cfg.Latency)), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		return sqlite.New(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
