package account

import (
	"context"
	"fmt"

	"github.com/julianstephens/dytgt/internal/cli"
)

// DeleteCmd clears local progress: the streak and the onboarding flag.
// Subscriptions are managed by the store and are left untouched.
type DeleteCmd struct {
	Yes bool `short:"y" help:"Delete without asking for confirmation."`
}

func (c *DeleteCmd) Run(ctx *cli.Context) error {
	ctx.AssumeYes = ctx.AssumeYes || c.Yes
	ok, err := ctx.Confirm("Delete your account data?",
		"Your streak and onboarding will be cleared. A backup is made first. Subscriptions are not cancelled.")
	if err != nil {
		return err
	}
	if !ok {
		ctx.Println("Account deletion cancelled.")
		return nil
	}

	return ctx.WithLock(func() error {
		bg := context.Background()
		ctx.PerformAutomaticBackup()

		if err := ctx.Streak.Reset(bg); err != nil {
			return fmt.Errorf("failed to reset streak: %w", err)
		}
		if err := ctx.Entitlements.ClearOnboarding(bg); err != nil {
			return err
		}

		ctx.Println(cli.SuccessStyle.Render("✓ Account data deleted."))
		return nil
	})
}
