package gratitude

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/dytgt/internal/cli"
	"github.com/julianstephens/dytgt/internal/cli/clitest"
	"github.com/julianstephens/dytgt/internal/constants"
)

var today = time.Date(2025, 1, 28, 12, 0, 0, 0, time.UTC)

// checkOutput fails the test for every want missing from out
func checkOutput(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func run(t *testing.T, cmd interface{ Run(*cli.Context) error }, env *clitest.Env) {
	t.Helper()
	if err := cmd.Run(env.Ctx); err != nil {
		t.Fatalf("%T.Run failed: %v", cmd, err)
	}
}

func streakOf(env *clitest.Env) string {
	return env.Store.Snapshot()[constants.KeyStreak]
}

func TestStatusFreshUser(t *testing.T) {
	env := clitest.New(t, today, nil)

	run(t, &StatusCmd{}, env)
	out := env.Out.String()
	checkOutput(t, out, constants.AppTitle, "onboarding", "0 days", "never")
	if strings.Contains(out, "not saved") {
		t.Errorf("fresh status warns about unsaved changes:\n%s", out)
	}
}

func TestStatusEntitledUser(t *testing.T) {
	env := clitest.New(t, today, clitest.Onboarded())
	env.Grant(t)

	run(t, &StatusCmd{}, env)
	checkOutput(t, env.Out.String(), "home", "active (pro)")
}

func TestThankRequiresOnboarding(t *testing.T) {
	env := clitest.New(t, today, nil)

	err := (&ThankCmd{}).Run(env.Ctx)
	if err == nil || !strings.Contains(err.Error(), "onboard") {
		t.Fatalf("error = %v, want an onboarding hint", err)
	}
	if _, ok := env.Store.Snapshot()[constants.KeyStreak]; ok {
		t.Error("streak stored before onboarding")
	}
}

func TestThankRequiresSubscription(t *testing.T) {
	env := clitest.New(t, today, clitest.Onboarded())

	err := (&ThankCmd{}).Run(env.Ctx)
	if err == nil || !strings.Contains(err.Error(), "subscribe") {
		t.Fatalf("error = %v, want a subscribe hint", err)
	}
}

func TestThankStartsAndHoldsStreak(t *testing.T) {
	env := clitest.New(t, today, clitest.Onboarded())
	env.Grant(t)

	run(t, &ThankCmd{}, env)
	checkOutput(t, env.Out.String(), "1 day", "4 more to reach 5 days")
	if got := streakOf(env); got != "1" {
		t.Errorf("stored streak = %q, want 1", got)
	}

	env.Out.Reset()
	env.Now = today.Add(3 * time.Hour)
	run(t, &ThankCmd{}, env)
	checkOutput(t, env.Out.String(), "You thanked God today.")
	if got := streakOf(env); got != "1" {
		t.Errorf("stored streak after second thank = %q, want 1", got)
	}
}

func TestThankContinuesToMilestone(t *testing.T) {
	items := clitest.Onboarded()
	items[constants.KeyStreak] = "4"
	items[constants.KeyLastThankedDate] = "2025-01-27T20:00:00.000Z"
	env := clitest.New(t, today, items)
	env.Grant(t)

	run(t, &ThankCmd{}, env)
	checkOutput(t, env.Out.String(), "5 days of gratitude")
	if got := streakOf(env); got != "5" {
		t.Errorf("stored streak = %q, want 5", got)
	}
	if got := env.Store.Snapshot()[constants.KeyLastThankedDate]; got != "2025-01-28T12:00:00.000Z" {
		t.Errorf("stored last thanked = %q", got)
	}
}

func TestThankWarnsWhenWriteFails(t *testing.T) {
	env := clitest.New(t, today, clitest.Onboarded())
	env.Grant(t)
	// Bootstrap before failing writes so the app user id is already stored
	env.Ctx.Entitlements.Bootstrap(context.Background())
	env.Store.SetFailures(nil, errors.New("disk full"), nil)

	run(t, &ThankCmd{}, env)
	checkOutput(t, env.Out.String(), "could not be saved", "retried before exit")
	if !env.Ctx.Streak.Dirty() {
		t.Error("streak not marked dirty after failed write")
	}
	if got := env.Ctx.Streak.State().CurrentStreak; got != 1 {
		t.Errorf("CurrentStreak = %d, want 1", got)
	}

	env.Store.SetFailures(nil, nil, nil)
	if err := env.Ctx.SyncStreak(context.Background()); err != nil {
		t.Fatalf("SyncStreak failed: %v", err)
	}
	if env.Ctx.Streak.Dirty() {
		t.Error("streak still dirty after sync")
	}
	if got := streakOf(env); got != "1" {
		t.Errorf("stored streak = %q, want 1", got)
	}
}

func TestStreakShow(t *testing.T) {
	items := map[string]string{
		constants.KeyStreak:          "3",
		constants.KeyLastThankedDate: "2025-01-28T08:30:00.000Z",
	}
	env := clitest.New(t, today, items)

	run(t, &StreakShowCmd{}, env)
	checkOutput(t, env.Out.String(), "3 days", "You thanked God today.", "Next milestone: 5 days (2 to go)")
}

func TestStreakShowOpenDay(t *testing.T) {
	env := clitest.New(t, today, nil)

	run(t, &StreakShowCmd{}, env)
	checkOutput(t, env.Out.String(), "Today is still open.")
}

func TestStreakReset(t *testing.T) {
	items := map[string]string{
		constants.KeyStreak:          "3",
		constants.KeyLastThankedDate: "2025-01-28T08:30:00.000Z",
	}

	t.Run("declined", func(t *testing.T) {
		env := clitest.New(t, today, items)
		env.Ctx.Prompt = func(string, string) (bool, error) { return false, nil }

		run(t, &StreakResetCmd{}, env)
		checkOutput(t, env.Out.String(), "Reset cancelled.")
		if got := streakOf(env); got != "3" {
			t.Errorf("stored streak = %q, want 3", got)
		}
	})

	t.Run("confirmed with --yes", func(t *testing.T) {
		env := clitest.New(t, today, items)
		env.Ctx.Prompt = func(string, string) (bool, error) {
			t.Fatal("prompt should be skipped")
			return false, nil
		}

		run(t, &StreakResetCmd{Yes: true}, env)
		snap := env.Store.Snapshot()
		for _, key := range []string{constants.KeyStreak, constants.KeyLastThankedDate} {
			if _, ok := snap[key]; ok {
				t.Errorf("%s still stored after reset", key)
			}
		}
		if got := env.Ctx.Streak.State().CurrentStreak; got != 0 {
			t.Errorf("CurrentStreak = %d, want 0", got)
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		env := clitest.New(t, today, items)
		env.Store.SetFailures(nil, nil, errors.New("locked"))

		if err := (&StreakResetCmd{Yes: true}).Run(env.Ctx); err == nil {
			t.Fatal("expected reset to fail")
		}
		if !env.Ctx.Streak.Dirty() {
			t.Error("streak not marked dirty after failed reset")
		}
	})
}

func TestVerse(t *testing.T) {
	env := clitest.New(t, today, nil)

	run(t, &VerseCmd{Date: "2025-01-28"}, env)
	checkOutput(t, env.Out.String(), "PSALM 118:24")

	env.Out.Reset()
	run(t, &VerseCmd{Date: "2025-01-27"}, env)
	checkOutput(t, env.Out.String(), "1 THESSALONIANS 5:18")

	if err := (&VerseCmd{Date: "28/01/2025"}).Run(env.Ctx); err == nil {
		t.Error("VerseCmd accepted a malformed date")
	}
}
