package account

import (
	"context"

	"github.com/julianstephens/dytgt/internal/cli"
)

type RestoreCmd struct{}

func (c *RestoreCmd) Run(ctx *cli.Context) error {
	return ctx.WithLock(func() error {
		bg := context.Background()
		ctx.Entitlements.Bootstrap(bg)

		result, err := ctx.Entitlements.RestorePurchases(bg)
		entitled := ctx.Entitlements.RefreshEntitlement(bg)
		if err != nil {
			return err
		}

		if result.Succeeded && entitled {
			ctx.Println(cli.SuccessStyle.Render("✓ Purchases restored. Your subscription is active."))
			printNextStep(ctx)
			return nil
		}
		ctx.Println("No active subscription was found to restore.")
		return nil
	})
}

type RefreshCmd struct{}

func (c *RefreshCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	ctx.Entitlements.Bootstrap(bg)

	state := ctx.Entitlements.State()
	if state.IsEntitled {
		ctx.Println(cli.Row("Subscription", "active ("+ctx.Entitlements.Settings().EntitlementID+")"))
	} else {
		ctx.Println(cli.Row("Subscription", "inactive"))
	}
	if last := ctx.Entitlements.LastRefreshed(); !last.IsZero() {
		ctx.Println(cli.Row("Checked", last.Format("15:04:05")))
	}
	ctx.Println(cli.Row("Route", string(ctx.Entitlements.Route())))
	return nil
}
