// Package store persists the serialized profile document. Every Save is a
// full, atomic replacement of the previous document.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/penwyp/go-ontrack/internal/core/config"
)

var (
	// ErrNotFound is returned by Load when nothing has been saved yet
	ErrNotFound = errors.New("profile not found")
	// ErrLocked is returned when another process holds the store
	ErrLocked = errors.New("profile store is locked by another process")
)

type Store interface {
	Load() ([]byte, error)
	Save(data []byte) error
	// Quarantine moves the current document aside so that it survives the
	// next Save, returning where it went.
	Quarantine() (string, error)
	// Lock claims the store for a single writer until Close
	Lock() error
	Location() string
	Close() error
}

// New opens the backend selected by cfg.
func New(cfg config.StorageConfig) (Store, error) {
	path := ExpandTilde(cfg.Path)
	switch cfg.Backend {
	case config.BackendSQLite:
		return NewSQLiteStore(path)
	case config.BackendJSON, "":
		return NewFileStore(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func ExpandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
