package system

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/julianstephens/dytgt/internal/cli"
	"github.com/julianstephens/dytgt/internal/config"
	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/keyring"
	"github.com/julianstephens/dytgt/internal/storage/sqlite"
	"github.com/julianstephens/dytgt/internal/streak"
)

func noKeyringKey(constants.Platform) (string, error) {
	return "", keyring.ErrNotFound
}

// setupTestDB returns a context over an initialized SQLite store in a temp dir
func setupTestDB(t *testing.T) (*cli.Context, *bytes.Buffer, func()) {
	t.Helper()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	out := &bytes.Buffer{}
	ctx := &cli.Context{
		Store:     store,
		Streak:    streak.New(store),
		Config:    config.Default().WithKeyLookup(noKeyringKey),
		ConfigDir: tempDir,
		Out:       out,
	}

	cleanup := func() {
		store.Close()
	}
	return ctx, out, cleanup
}
