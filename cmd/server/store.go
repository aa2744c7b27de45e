package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"starreign.ai/internal/persistence/store"
)

// openStore picks the backend: "memory" for throwaway games, otherwise
// sqlite at path (or <data>/starreign.sqlite).
func openStore(path, dataDir string, logger *slog.Logger) (store.Store, error) {
	path = strings.TrimSpace(path)
	switch strings.ToLower(path) {
	case "memory", "mem", "none":
		logger.Info("store backend", "backend", "memory")
		return store.NewMemory(), nil
	case "":
		path = filepath.Join(dataDir, "starreign.sqlite")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s, err := store.OpenSQLite(path, logger.With("component", "store"))
	if err != nil {
		return nil, err
	}
	logger.Info("store backend", "backend", "sqlite", "path", path)
	return s, nil
}
