package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/dytgt/internal/backup"
	"github.com/julianstephens/dytgt/internal/billing"
	"github.com/julianstephens/dytgt/internal/config"
	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/entitlement"
	"github.com/julianstephens/dytgt/internal/lock"
	"github.com/julianstephens/dytgt/internal/logger"
	"github.com/julianstephens/dytgt/internal/storage"
	"github.com/julianstephens/dytgt/internal/streak"
)

// PromptFunc asks a yes/no question
type PromptFunc func(title, description string) (bool, error)

// Context carries the services every command runs against. It is built once
// in main.
type Context struct {
	Store        storage.Provider
	Streak       *streak.Engine
	Entitlements *entitlement.Cache
	Billing      billing.Client
	BillingMode  string
	Config       *config.Config
	ConfigDir    string

	// Out receives command output; nil means stdout
	Out io.Writer
	// Prompt answers confirmations; nil uses an interactive huh form
	Prompt PromptFunc
	// AssumeYes skips confirmations, including the purchase confirmation
	AssumeYes bool
}

func (c *Context) Stdout() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Stdout(), format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.Stdout(), args...)
}

// Confirm asks the user to approve an action. AssumeYes approves without asking.
func (c *Context) Confirm(title, description string) (bool, error) {
	if c.AssumeYes {
		return true, nil
	}
	prompt := c.Prompt
	if prompt == nil {
		prompt = HuhPrompt
	}
	return prompt(title, description)
}

// ConfirmPurchase is the purchase sheet handed to billing clients
func (c *Context) ConfirmPurchase(ctx context.Context, pkg billing.Package) (bool, error) {
	title := fmt.Sprintf("Subscribe to %s?", pkg.ProductIdentifier)
	description := fmt.Sprintf("You will be charged %s per %s.", pkg.PriceString, periodNoun(pkg.Period))
	return c.Confirm(title, description)
}

// HuhPrompt renders a confirm field. Aborting the form counts as "no".
func HuhPrompt(title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(huh.ThemeDracula()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// WithLock runs fn while holding the process lockfile
func (c *Context) WithLock(fn func() error) error {
	l, err := lock.Acquire(c.ConfigDir, constants.LockfileName)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			logger.Warn("Failed to release lock", "error", err)
		}
	}()
	return fn()
}

// PerformAutomaticBackup creates a backup before destructive changes and
// only logs failures. Stores without backup support are skipped.
func (c *Context) PerformAutomaticBackup() {
	path := c.Store.GetConfigPath()
	if !backup.Supported(path) {
		logger.Debug("Skipping automatic backup", "store", path)
		return
	}
	mgr := backup.NewManager(path)
	if _, err := mgr.Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// SyncStreak retries a streak write that failed earlier in this run
func (c *Context) SyncStreak(ctx context.Context) error {
	if c.Streak == nil || !c.Streak.Dirty() {
		return nil
	}
	return c.Streak.Sync(ctx)
}

func periodNoun(period string) string {
	switch period {
	case billing.PeriodAnnual:
		return "year"
	case billing.PeriodMonthly:
		return "month"
	default:
		return "period"
	}
}
