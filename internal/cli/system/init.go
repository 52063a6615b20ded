package system

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/dytgt/internal/backup"
	"github.com/julianstephens/dytgt/internal/cli"
	"github.com/julianstephens/dytgt/internal/storage"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to copy data from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		dbPath := ctx.Store.GetConfigPath()
		if !backup.Supported(dbPath) && filepath.Ext(dbPath) != ".json" {
			return fmt.Errorf("--force is only supported for file-based stores")
		}
		// Don't delete if it's the source (user error protection)
		if c.Source != "" {
			absDbPath, err := filepath.Abs(dbPath)
			if err == nil {
				dbPath = absDbPath
			}
			absSource, err := filepath.Abs(c.Source)
			if err == nil && absSource == dbPath {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			ctx.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized dytgt storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		ctx.Printf("Copying data from: %s\n", c.Source)
		count, err := c.copyItems(context.Background(), ctx.Store)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		ctx.Printf("Copied %d item(s).\n", count)
	}
	return nil
}

// copyItems copies every key from the source store in one atomic write
func (c *InitCmd) copyItems(ctx context.Context, dest storage.KV) (int, error) {
	source, err := storage.Open(c.Source)
	if err != nil {
		return 0, err
	}
	if err := source.Load(); err != nil {
		return 0, fmt.Errorf("failed to load source database: %w", err)
	}
	defer source.Close()

	keys, err := source.Keys(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to list source items: %w", err)
	}

	items := make(map[string]string, len(keys))
	for _, key := range keys {
		value, ok, err := source.GetItem(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if ok {
			items[key] = value
		}
	}
	if len(items) == 0 {
		return 0, nil
	}
	if err := dest.SetItems(ctx, items); err != nil {
		return 0, fmt.Errorf("failed to write items: %w", err)
	}
	return len(items), nil
}
