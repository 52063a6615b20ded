package backups

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/dytgt/internal/backup"
	"github.com/julianstephens/dytgt/internal/cli"
	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/storage"
	"github.com/julianstephens/dytgt/internal/storage/sqlite"
)

func setupTestBackupDB(t *testing.T) (*cli.Context, *bytes.Buffer, func()) {
	t.Helper()
	dir := t.TempDir()
	store := sqlite.NewStore(filepath.Join(dir, "dytgt.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	out := &bytes.Buffer{}
	ctx := &cli.Context{Store: store, ConfigDir: dir, Out: out}
	return ctx, out, func() { store.Close() }
}

func TestBackupCreateAndList(t *testing.T) {
	ctx, out, cleanup := setupTestBackupDB(t)
	defer cleanup()

	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No backups found.") {
		t.Errorf("expected empty listing, got %q", out.String())
	}

	out.Reset()
	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(out.String(), "Backup created: dytgt-") {
		t.Errorf("unexpected create output %q", out.String())
	}

	out.Reset()
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "Available backups (1 total") {
		t.Errorf("expected one backup, got %q", out.String())
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	ctx, out, cleanup := setupTestBackupDB(t)
	defer cleanup()
	bg := context.Background()

	if err := ctx.Store.SetItem(bg, constants.KeyStreak, "5"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	snapshot, err := mgr.Create()
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if err := ctx.Store.SetItem(bg, constants.KeyStreak, "9"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}

	cmd := &BackupRestoreCmd{BackupFile: filepath.Base(snapshot), Yes: true}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("restore failed: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "restored successfully") {
		t.Errorf("unexpected output %q", out.String())
	}

	if err := ctx.Store.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, _, err := ctx.Store.GetItem(bg, constants.KeyStreak)
	if err != nil || got != "5" {
		t.Errorf("streak after restore = %q, %v; want 5", got, err)
	}
}

func TestBackupRestoreDeclined(t *testing.T) {
	ctx, out, cleanup := setupTestBackupDB(t)
	defer cleanup()

	snapshot, err := backup.NewManager(ctx.Store.GetConfigPath()).Create()
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}

	ctx.Prompt = func(string, string) (bool, error) { return false, nil }
	if err := (&BackupRestoreCmd{BackupFile: snapshot}).Run(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !strings.Contains(out.String(), "Restore cancelled.") {
		t.Errorf("expected cancellation, got %q", out.String())
	}
}

func TestBackupRestoreMissingFile(t *testing.T) {
	ctx, _, cleanup := setupTestBackupDB(t)
	defer cleanup()

	cmd := &BackupRestoreCmd{BackupFile: "dytgt-20250101-0000.db", Yes: true}
	if err := cmd.Run(ctx); err == nil {
		t.Error("restoring a missing backup should fail")
	}
}

func TestBackupUnsupportedStore(t *testing.T) {
	store := storage.NewJSONStore(filepath.Join(t.TempDir(), "data.json"))
	ctx := &cli.Context{Store: store, Out: &bytes.Buffer{}}

	err := (&BackupCreateCmd{}).Run(ctx)
	if !errors.Is(err, backup.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}
