package gratitude

import (
	"fmt"

	"github.com/julianstephens/dytgt/internal/cli"
	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/models"
)

// requireHome fails unless the user has reached the home screen
func requireHome(ctx *cli.Context) error {
	switch route := ctx.Entitlements.Route(); route {
	case models.RouteHome:
		return nil
	case models.RouteOnboarding:
		return fmt.Errorf("welcome! run '%s onboard' to begin", constants.AppName)
	case models.RoutePaywall:
		return fmt.Errorf("a subscription is required: run '%s subscribe monthly', '%s subscribe yearly' or '%s restore'",
			constants.AppName, constants.AppName, constants.AppName)
	default:
		return fmt.Errorf("still loading (route %s)", route)
	}
}

func streakLabel(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
