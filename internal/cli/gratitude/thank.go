package gratitude

import (
	"context"
	"fmt"

	"github.com/julianstephens/dytgt/internal/cli"
	"github.com/julianstephens/dytgt/internal/streak"
)

// ThankCmd records today's thank-you
type ThankCmd struct{}

func (c *ThankCmd) Run(ctx *cli.Context) error {
	return ctx.WithLock(func() error {
		bg := context.Background()
		ctx.Entitlements.Bootstrap(bg)
		if err := requireHome(ctx); err != nil {
			return err
		}

		before := ctx.Streak.Load(bg)
		if before.HasCompletedToday {
			ctx.Println("You thanked God today.")
			ctx.Println(cli.Row("Streak", streakLabel(before.CurrentStreak)))
			ctx.Println("One thank-you a day is enough. When you're ready, come back tomorrow.")
			return nil
		}

		after := ctx.Streak.RecordCompletionForToday(bg)
		ctx.Println(cli.SuccessStyle.Render("🙏 Thank you. You thanked God today."))
		ctx.Println(cli.Row("Streak", streakLabel(after.CurrentStreak)))

		if streak.IsMilestone(after.CurrentStreak) {
			ctx.Println(cli.SuccessStyle.Render(fmt.Sprintf("✨ %s of gratitude!", streakLabel(after.CurrentStreak))))
		}
		next := streak.NextMilestone(after.CurrentStreak)
		ctx.Printf("%d more to reach %s.\n", streak.DaysToNextMilestone(after.CurrentStreak), streakLabel(next))

		if ctx.Streak.Dirty() {
			ctx.Println(cli.WarningStyle.Render("⚠ Your progress could not be saved. It will be retried before exit."))
		}
		return nil
	})
}
