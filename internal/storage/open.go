package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/dytgt/internal/storage/postgres"
	"github.com/julianstephens/dytgt/internal/storage/sqlite"
)

// HasEmbeddedCredentials reports whether a PostgreSQL connection string carries a password
func HasEmbeddedCredentials(connStr string) bool {
	_, err := postgres.ValidateConnString(connStr)
	return errors.Is(err, postgres.ErrEmbeddedCredentials)
}

// ExpandPath resolves a leading ~ to the user's home directory
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Open selects a backend for target: a PostgreSQL URL, a .json file, or an SQLite database path.
// The returned provider still needs Init or Load.
func Open(target string) (Provider, error) {
	if postgres.IsConnString(target) {
		if _, err := postgres.ValidateConnString(target); err != nil {
			return nil, err
		}
		return postgres.New(target), nil
	}

	path, err := ExpandPath(target)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return NewJSONStore(path), nil
	}
	return sqlite.NewStore(path), nil
}
