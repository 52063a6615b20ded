package gratitude

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/dytgt/internal/cli"
	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/models"
	"github.com/julianstephens/dytgt/internal/verses"
)

type VerseCmd struct {
	Date string `help:"Show the verse for a date (YYYY-MM-DD) instead of today."`
}

func (c *VerseCmd) Run(ctx *cli.Context) error {
	loc := ctx.Streak.Location()
	day := time.Now().In(loc)
	if c.Date != "" {
		d, err := time.ParseInLocation(constants.DateFormat, c.Date, loc)
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", c.Date)
		}
		day = d
	}

	verse, err := verses.ForDate(day)
	if err != nil {
		return err
	}
	printVerse(ctx, verse)
	return nil
}

func printVerse(ctx *cli.Context, v models.Verse) {
	ctx.Println(cli.ReferenceStyle.Render(strings.ToUpper(v.Reference)))
	ctx.Println(cli.VerseStyle.Render(v.Text))
	if v.Reflection != "" {
		ctx.Println(v.Reflection)
	}
}
