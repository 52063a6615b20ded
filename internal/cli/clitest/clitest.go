// Package clitest builds a fully wired cli.Context over in-memory storage
// and the sandbox billing client for command tests.
package clitest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/julianstephens/dytgt/internal/billing"
	"github.com/julianstephens/dytgt/internal/billing/sandbox"
	"github.com/julianstephens/dytgt/internal/cli"
	"github.com/julianstephens/dytgt/internal/config"
	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/entitlement"
	"github.com/julianstephens/dytgt/internal/identity"
	"github.com/julianstephens/dytgt/internal/keyring"
	"github.com/julianstephens/dytgt/internal/storage/memory"
	"github.com/julianstephens/dytgt/internal/streak"
)

const APIKey = "sandbox_test_key"

type Env struct {
	Ctx     *cli.Context
	Store   *memory.Store
	Out     *bytes.Buffer
	Billing *sandbox.Client
	// Now is the clock shared by the streak engine and the sandbox
	Now time.Time
}

// New wires a context whose prompts approve by default. Times use UTC.
func New(t testing.TB, now time.Time, items map[string]string) *Env {
	t.Helper()
	store := memory.NewWithItems(items)
	env := &Env{Store: store, Out: &bytes.Buffer{}, Now: now}
	clock := func() time.Time { return env.Now }

	cfg := config.Default().WithKeyLookup(func(constants.Platform) (string, error) {
		return "", keyring.ErrNotFound
	})
	cfg.Timezone = "UTC"

	ctx := &cli.Context{
		Store:       store,
		Config:      cfg,
		ConfigDir:   t.TempDir(),
		BillingMode: constants.BillingModeSandbox,
		Out:         env.Out,
		Prompt:      func(string, string) (bool, error) { return true, nil },
	}

	env.Billing = sandbox.New(store, sandbox.Options{
		EntitlementID:    cfg.EntitlementID,
		MonthlyProductID: cfg.MonthlyProductID,
		YearlyProductID:  cfg.YearlyProductID,
		TrialDays:        cfg.TrialDays,
		Confirm:          ctx.ConfirmPurchase,
		AppUserID: func(c context.Context) (string, error) {
			return identity.AppUserID(c, store)
		},
		Now: clock,
	})

	ctx.Billing = env.Billing
	ctx.Streak = streak.New(store, streak.WithClock(clock), streak.WithLocation(time.UTC))
	ctx.Entitlements = entitlement.New(store, env.Billing, entitlement.Settings{
		APIKey:           APIKey,
		EntitlementID:    cfg.EntitlementID,
		MonthlyProductID: cfg.MonthlyProductID,
		YearlyProductID:  cfg.YearlyProductID,
	})

	env.Ctx = ctx
	return env
}

// Grant records a sandbox subscription so the next bootstrap is entitled
func (e *Env) Grant(t testing.TB) {
	t.Helper()
	bg := context.Background()
	if err := e.Billing.Configure(bg, APIKey); err != nil {
		t.Fatalf("configure sandbox: %v", err)
	}
	pkg := billing.Package{
		Identifier:        billing.PeriodMonthly,
		ProductIdentifier: e.Ctx.Config.MonthlyProductID,
		Period:            billing.PeriodMonthly,
	}
	outcome, err := e.Billing.PurchasePackage(bg, pkg)
	if err != nil || outcome.Status != billing.OutcomeCompleted {
		t.Fatalf("grant sandbox subscription: %v, %v", outcome.Status, err)
	}
}

// Onboarded returns seed items for a user past onboarding
func Onboarded() map[string]string {
	return map[string]string{constants.KeyOnboarded: constants.OnboardedTrueValue}
}
