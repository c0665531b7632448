package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/okr/internal/core/eventbus"
	"github.com/colonyops/okr/internal/core/logging"
	"github.com/colonyops/okr/internal/core/styles"
	"github.com/colonyops/okr/internal/reminders"
	"github.com/colonyops/okr/internal/render"
	"github.com/colonyops/okr/internal/service"
	"github.com/colonyops/okr/pkg/iojson"
)

type RemindCmd struct {
	flags *Flags
	app   *service.App

	now        string
	dryRun     bool
	jsonOutput bool
}

// NewRemindCmd creates the remind command.
func NewRemindCmd(flags *Flags, app *service.App) *RemindCmd {
	return &RemindCmd{flags: flags, app: app}
}

// Register adds the remind command to the application.
func (cmd *RemindCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "remind",
		Usage:     "Check yesterday's periods for missed reports",
		UsageText: "okr remind [--now <day>] [--dry-run]",
		Description: `Runs the reminder check once. Every period that closed yesterday with no
report or below target produces a warning notification.

A day is only checked once; 'okr serve' runs the same check on a schedule.
--dry-run lists the missed periods without recording anything.`,
		Flags: []cli.Flag{
			nowFlag(&cmd.now),
			&cli.BoolFlag{Name: "dry-run", Usage: "list without notifying", Destination: &cmd.dryRun},
			&cli.BoolFlag{Name: "json", Usage: "output as JSON lines", Destination: &cmd.jsonOutput},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RemindCmd) run(ctx context.Context, c *cli.Command) error {
	now, err := resolveNow(cmd.now)
	if err != nil {
		return err
	}

	job := reminders.NewJob(cmd.app.Objectives, cmd.app.Progress, cmd.app.Bus, cmd.app.KV, logging.Component("remind"))

	run := job.Run
	if cmd.dryRun {
		run = func(_ context.Context, now time.Time) ([]eventbus.PeriodMissedPayload, error) {
			return job.Check(now)
		}
	}
	missed, err := run(ctx, now)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLines(out, missed)
	}
	if len(missed) == 0 {
		_, _ = fmt.Fprintln(out, styles.SuccessStyle.Render("No missed periods"))
		return nil
	}
	for _, m := range missed {
		_, _ = fmt.Fprintf(out, "%s %s %s\n",
			render.Glyph(m.Period.Classification),
			m.KeyResultTitle,
			styles.MutedStyle.Render(fmt.Sprintf("%s %s", m.KeyResultID, m.Period.Start.Format("2006-01-02"))),
		)
	}
	return nil
}
