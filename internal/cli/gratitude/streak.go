package gratitude

import (
	"context"
	"fmt"

	"github.com/julianstephens/dytgt/internal/cli"
	"github.com/julianstephens/dytgt/internal/streak"
)

type StreakShowCmd struct{}

func (c *StreakShowCmd) Run(ctx *cli.Context) error {
	st := ctx.Streak.Load(context.Background())

	ctx.Println(cli.TitleStyle.Render("Current streak"))
	ctx.Println(cli.Row("Streak", streakLabel(st.CurrentStreak)))
	ctx.Println(cli.Row("Last thanked", lastThanked(ctx)))
	if st.HasCompletedToday {
		ctx.Println("You thanked God today.")
	} else {
		ctx.Println("Today is still open.")
	}
	ctx.Printf("Next milestone: %s (%d to go)\n",
		streakLabel(streak.NextMilestone(st.CurrentStreak)), streak.DaysToNextMilestone(st.CurrentStreak))
	return nil
}

// StreakResetCmd clears the streak after a confirmation and a backup
type StreakResetCmd struct {
	Yes bool `short:"y" help:"Reset without asking for confirmation."`
}

func (c *StreakResetCmd) Run(ctx *cli.Context) error {
	ctx.AssumeYes = ctx.AssumeYes || c.Yes
	ok, err := ctx.Confirm("Reset your streak?", "Your streak count and last thank-you will be cleared.")
	if err != nil {
		return err
	}
	if !ok {
		ctx.Println("Reset cancelled.")
		return nil
	}

	return ctx.WithLock(func() error {
		ctx.PerformAutomaticBackup()
		if err := ctx.Streak.Reset(context.Background()); err != nil {
			return fmt.Errorf("failed to reset streak: %w", err)
		}
		ctx.Println(cli.SuccessStyle.Render("✓ Streak reset."))
		return nil
	})
}
