package gratitude

import (
	"context"

	"github.com/julianstephens/dytgt/internal/cli"
	"github.com/julianstephens/dytgt/internal/constants"
)

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	ctx.Entitlements.Bootstrap(bg)
	st := ctx.Streak.Load(bg)
	ent := ctx.Entitlements.State()

	ctx.Println(cli.TitleStyle.Render(constants.AppTitle))
	ctx.Println(cli.Row("Route", string(ctx.Entitlements.Route())))
	ctx.Println(cli.Row("Onboarded", yesNo(ent.IsOnboarded)))
	ctx.Println(cli.Row("Subscription", entitlementLabel(ent.IsEntitled, ctx.Entitlements.Settings().EntitlementID)))
	ctx.Println(cli.Row("Billing", ctx.BillingMode))
	ctx.Println(cli.Row("Streak", streakLabel(st.CurrentStreak)))
	ctx.Println(cli.Row("Thanked today", yesNo(st.HasCompletedToday)))
	ctx.Println(cli.Row("Last thanked", lastThanked(ctx)))

	if ctx.Streak.Dirty() {
		ctx.Println(cli.WarningStyle.Render("⚠ Streak changes are not saved yet; they will be retried before exit."))
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func entitlementLabel(entitled bool, id string) string {
	if entitled {
		return "active (" + id + ")"
	}
	return "inactive"
}

func lastThanked(ctx *cli.Context) string {
	st := ctx.Streak.State()
	if st.LastCompletion == nil {
		return "never"
	}
	return st.LastCompletion.In(ctx.Streak.Location()).Format(constants.DisplayTimeFormat)
}
