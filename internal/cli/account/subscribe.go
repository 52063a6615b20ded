package account

import (
	"context"
	"fmt"

	"github.com/julianstephens/dytgt/internal/cli"
	"github.com/julianstephens/dytgt/internal/models"
)

// SubscribeCmd purchases a plan and refreshes the cached entitlement
type SubscribeCmd struct {
	Plan string `arg:"" enum:"monthly,yearly" help:"Plan to purchase: monthly or yearly."`
	Yes  bool   `short:"y" help:"Purchase without asking for confirmation."`
}

func (c *SubscribeCmd) Run(ctx *cli.Context) error {
	return ctx.WithLock(func() error {
		bg := context.Background()
		ctx.Entitlements.Bootstrap(bg)

		if ctx.Entitlements.State().IsEntitled {
			ctx.Println("You already have an active subscription.")
			return nil
		}

		ctx.AssumeYes = ctx.AssumeYes || c.Yes
		var (
			result models.PurchaseResult
			err    error
		)
		switch models.Plan(c.Plan) {
		case models.PlanYearly:
			result, err = ctx.Entitlements.PurchaseYearly(bg)
		case models.PlanMonthly:
			result, err = ctx.Entitlements.PurchaseMonthly(bg)
		default:
			return fmt.Errorf("unknown plan %q", c.Plan)
		}
		// the cache only changes through a refresh, whatever the attempt returned
		entitled := ctx.Entitlements.RefreshEntitlement(bg)
		if err != nil {
			return err
		}

		if result.WasCancelledByUser {
			ctx.Println("Purchase cancelled.")
			return nil
		}
		if result.Succeeded && entitled {
			ctx.Println(cli.SuccessStyle.Render("✓ Subscription active. Thank you!"))
			printNextStep(ctx)
			return nil
		}
		ctx.Println(cli.WarningStyle.Render("Purchase completed, but the subscription is not active yet."))
		ctx.Println("Try 'dytgt restore' in a moment.")
		return nil
	})
}
