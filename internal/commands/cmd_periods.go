package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/okr/internal/core/styles"
	"github.com/colonyops/okr/internal/core/tracker"
	"github.com/colonyops/okr/internal/render"
	"github.com/colonyops/okr/internal/service"
	"github.com/colonyops/okr/pkg/iojson"
)

type PeriodsCmd struct {
	flags *Flags
	app   *service.App

	page       int
	now        string
	jsonOutput bool
}

// NewPeriodsCmd creates the periods command.
func NewPeriodsCmd(flags *Flags, app *service.App) *PeriodsCmd {
	return &PeriodsCmd{flags: flags, app: app}
}

// Register adds the periods command to the application.
func (cmd *PeriodsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "periods",
		Aliases:   []string{"grid"},
		Usage:     "Show the reporting periods of a key result",
		UsageText: "okr periods <kr-id> [--page <n>] [--now <day>] [--json]",
		Description: `Shows one page of the key result's period grid: 28 days per page for daily
reporting, 12 weeks per page for weekly reporting.

Without --page the page holding today is shown. Pages are numbered from 0.

  ▲ exceeded  ● met  ▼ below  ○ no report  - no target  · future`,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Value: -1, Usage: "page index, -1 for the current page", Destination: &cmd.page},
			nowFlag(&cmd.now),
			&cli.BoolFlag{Name: "json", Usage: "output as JSON", Destination: &cmd.jsonOutput},
		},
		ShellComplete: KeyResultIDCompleter(cmd.app),
		Action:        cmd.run,
	})

	return app
}

func (cmd *PeriodsCmd) run(ctx context.Context, c *cli.Command) error {
	id, err := firstArg(c, "kr-id")
	if err != nil {
		return err
	}
	now, err := resolveNow(cmd.now)
	if err != nil {
		return err
	}

	index := cmd.page
	if index < 0 {
		if index, err = cmd.currentPage(id, now); err != nil {
			return err
		}
	}

	page, err := cmd.app.Progress.Periods(id, now, index)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, os.Stderr, page)
	}

	kr, err := cmd.app.Objectives.KeyResult(id)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, styles.TitleStyle.Render(kr.Title))
	_, _ = fmt.Fprint(out, render.PeriodGrid(page))
	return nil
}

// currentPage returns the page holding the last period that has started.
func (cmd *PeriodsCmd) currentPage(id string, now time.Time) (int, error) {
	kr, err := cmd.app.Objectives.KeyResult(id)
	if err != nil {
		return 0, err
	}
	periods, err := cmd.app.Progress.AllPeriods(id, now)
	if err != nil {
		return 0, err
	}

	started := 0
	for _, p := range periods {
		if p.Start.After(now) {
			break
		}
		started++
	}
	if started == 0 {
		return 0, nil
	}
	return (started - 1) / tracker.PageSize(kr.ReportFrequency), nil
}
