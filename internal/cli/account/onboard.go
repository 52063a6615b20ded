package account

import (
	"context"

	"github.com/julianstephens/dytgt/internal/cli"
	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/models"
)

type OnboardCmd struct{}

func (c *OnboardCmd) Run(ctx *cli.Context) error {
	return ctx.WithLock(func() error {
		bg := context.Background()
		ctx.Entitlements.Bootstrap(bg)

		if ctx.Entitlements.State().IsOnboarded {
			ctx.Println("You are already onboarded.")
		} else {
			if err := ctx.Entitlements.MarkOnboarded(bg); err != nil {
				return err
			}
			ctx.Println(cli.TitleStyle.Render(constants.AppTitle))
			ctx.Println("One daily verse, reflection, and thank-you moment to God.")
		}

		printNextStep(ctx)
		return nil
	})
}

// printNextStep tells the user where the gate sends them
func printNextStep(ctx *cli.Context) {
	switch ctx.Entitlements.Route() {
	case models.RoutePaywall:
		ctx.Println("Stay anchored in gratitude: start a free trial with 'dytgt subscribe monthly' or 'dytgt subscribe yearly'.")
	case models.RouteHome:
		ctx.Println("You're all set. Run 'dytgt thank' once you've thanked God today.")
	}
}
