package system

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/dytgt/internal/backup"
	"github.com/julianstephens/dytgt/internal/billing"
	"github.com/julianstephens/dytgt/internal/cli"
	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/lock"
	"github.com/julianstephens/dytgt/internal/metrics"
	"github.com/julianstephens/dytgt/internal/migration"
	"github.com/julianstephens/dytgt/internal/storage"
	"github.com/julianstephens/dytgt/internal/storage/sqlite"
	"github.com/julianstephens/dytgt/internal/streak"
	"github.com/julianstephens/dytgt/migrations"
)

type DoctorCmd struct {
	Metrics bool `help:"Print the counters collected during this run."`
}

type check struct {
	name     string
	needsDB  bool
	warnOnly bool
	run      func(ctx *cli.Context) error
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	checks := []check{
		{name: "Schema version", needsDB: true, run: checkSchemaVersion},
		{name: "Migrations complete", needsDB: true, run: checkMigrationsComplete},
		{name: "Stored values", needsDB: true, run: checkStoredValues},
		{name: "Backups present", warnOnly: true, run: checkBackupsPresent},
		{name: "Clock/timezone", run: checkClockTimezone},
		{name: "Billing configuration", warnOnly: true, run: checkBillingConfig},
		{name: "Process lock", warnOnly: true, run: checkLock},
		{name: "Streak synced", warnOnly: true, run: checkStreakSynced},
	}

	hasError := false
	dbReachable := true
	if err := checkDBReachable(ctx); err != nil {
		ctx.Printf("❌ Storage reachable: FAIL\n")
		ctx.Printf("   Error: %v\n", err)
		hasError = true
		dbReachable = false
	} else {
		ctx.Printf("✓ Storage reachable: OK\n")
	}

	for _, c := range checks {
		if c.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (storage not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	if cmd.Metrics {
		if err := printMetrics(ctx); err != nil {
			return err
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	ctx.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load storage: %w", err)
	}

	if sqliteStore, ok := ctx.Store.(*sqlite.Store); ok {
		db := sqliteStore.GetDB()
		if db == nil {
			return fmt.Errorf("database connection is nil")
		}
		var result int
		if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}

	if _, err := ctx.Store.Keys(context.Background(), constants.StreakKeyNamespace); err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	sqliteStore, ok := ctx.Store.(*sqlite.Store)
	if !ok {
		// Other backends validate their schema on Load
		return nil
	}

	db := sqliteStore.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(db, subFS, migration.DialectSQLite).ValidateVersion()
}

func checkMigrationsComplete(ctx *cli.Context) error {
	migrator, ok := ctx.Store.(storage.Migrator)
	if !ok {
		// The JSON store has no migrations
		return nil
	}

	pending, err := migrator.PendingMigrations()
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	if pending > 0 {
		return fmt.Errorf("migrations incomplete: %d pending, run '%s migrate'", pending, constants.AppName)
	}
	return nil
}

// checkStoredValues verifies every known key holds a value its reader accepts
func checkStoredValues(ctx *cli.Context) error {
	bg := context.Background()
	loc := time.Local
	if ctx.Config != nil {
		if l, err := ctx.Config.Location(); err == nil {
			loc = l
		}
	}

	validators := map[string]func(string) error{
		constants.KeyStreak: func(v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("not an integer: %q", v)
			}
			if n < 0 {
				return fmt.Errorf("negative value: %d", n)
			}
			return nil
		},
		constants.KeyLastThankedDate: func(v string) error {
			_, err := streak.ParseTimestamp(v, loc)
			return err
		},
		constants.KeyOnboarded: func(v string) error {
			if v != constants.OnboardedTrueValue {
				return fmt.Errorf("expected %q, got %q", constants.OnboardedTrueValue, v)
			}
			return nil
		},
		constants.KeyAppUserID: func(v string) error {
			_, err := uuid.Parse(v)
			return err
		},
	}

	keys := []string{constants.KeyStreak, constants.KeyLastThankedDate, constants.KeyOnboarded, constants.KeyAppUserID}
	for _, key := range keys {
		value, ok, err := ctx.Store.GetItem(bg, key)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}
		if !ok {
			continue
		}
		if err := validators[key](value); err != nil {
			return fmt.Errorf("%s is invalid: %w", key, err)
		}
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	path := ctx.Store.GetConfigPath()
	if !backup.Supported(path) {
		return backup.ErrUnsupported
	}

	mgr := backup.NewManager(path)
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with '%s backup create'", constants.AppName)
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}

	if ctx.Config != nil {
		if _, err := ctx.Config.Location(); err != nil {
			return err
		}
	}
	return nil
}

func checkBillingConfig(ctx *cli.Context) error {
	if ctx.Config == nil {
		return fmt.Errorf("no configuration loaded")
	}
	if ctx.BillingMode == constants.BillingModeSandbox {
		return nil
	}
	if billing.IsPlaceholderKey(ctx.Config.APIKey()) {
		return fmt.Errorf("billing API key for %s is not set; subscriptions are disabled. Use '%s keyring set billing <key>'",
			ctx.Config.PlatformKind(), constants.AppName)
	}
	return nil
}

func checkLock(ctx *cli.Context) error {
	if ctx.ConfigDir == "" {
		return nil
	}
	pid, alive, err := lock.Holder(ctx.ConfigDir, constants.LockfileName)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unreadable lockfile %s: %w", filepath.Join(ctx.ConfigDir, constants.LockfileName), err)
	}
	if alive && pid != os.Getpid() {
		return fmt.Errorf("another %s process (pid %d) holds the lock", constants.AppName, pid)
	}
	if !alive {
		return fmt.Errorf("stale lockfile from pid %d will be removed on the next write", pid)
	}
	return nil
}

func checkStreakSynced(ctx *cli.Context) error {
	if ctx.Streak != nil && ctx.Streak.Dirty() {
		return fmt.Errorf("streak changes have not been saved; they will be retried before exit")
	}
	return nil
}

func printMetrics(ctx *cli.Context) error {
	samples, err := metrics.Counters()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	ctx.Println()
	ctx.Println(cli.TitleStyle.Render("Metrics"))
	if len(samples) == 0 {
		ctx.Println("  (no counters recorded)")
		return nil
	}
	for _, s := range samples {
		name := s.Name
		if s.Labels != "" {
			name += "{" + s.Labels + "}"
		}
		ctx.Printf("  %s %g\n", name, s.Value)
	}
	return nil
}
