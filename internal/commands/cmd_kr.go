package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/okr/internal/core/logging"
	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/core/styles"
	"github.com/colonyops/okr/internal/render"
	"github.com/colonyops/okr/internal/service"
	"github.com/colonyops/okr/pkg/iojson"
)

type KeyResultCmd struct {
	flags *Flags
	app   *service.App

	title         string
	category      string
	metricType    string
	unit          string
	direction     string
	frequency     string
	owner         string
	status        string
	startDate     string
	endDate       string
	startValue    float64
	targetValue   float64
	dailyTarget   float64
	weeklyTargets []string
	stretch       []string
	labelOff      string
	labelOn       string

	jsonOutput bool
	restore    bool
	yes        bool
	addWeek    bool
}

// NewKeyResultCmd creates the key result command group.
func NewKeyResultCmd(flags *Flags, app *service.App) *KeyResultCmd {
	return &KeyResultCmd{flags: flags, app: app}
}

// Register adds the key result commands to the application.
func (cmd *KeyResultCmd) Register(app *cli.Command) *cli.Command {
	jsonFlag := func() cli.Flag {
		return &cli.BoolFlag{Name: "json", Usage: "output as JSON", Destination: &cmd.jsonOutput}
	}

	// Shared between add and update; update only applies the ones set.
	fields := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "key result title", Destination: &cmd.title},
			&cli.StringFlag{Name: "type", Usage: "metric type: NUMBER, PERCENTAGE or CURRENCY", Destination: &cmd.metricType},
			&cli.StringFlag{Name: "unit", Usage: "display unit", Destination: &cmd.unit},
			&cli.StringFlag{Name: "direction", Usage: "INCREASING or DECREASING", Destination: &cmd.direction},
			&cli.FloatFlag{Name: "start", Usage: "start value", Destination: &cmd.startValue},
			&cli.FloatFlag{Name: "target", Usage: "target value", Destination: &cmd.targetValue},
			&cli.StringFlag{Name: "frequency", Usage: "report frequency: DAILY or WEEKLY", Destination: &cmd.frequency},
			&cli.StringFlag{Name: "start-date", Usage: "first tracked day (YYYY-MM-DD)", Destination: &cmd.startDate},
			&cli.StringFlag{Name: "end-date", Usage: "last tracked day (YYYY-MM-DD)", Destination: &cmd.endDate},
			&cli.FloatFlag{Name: "daily-target", Usage: "per-day target for daily reporting", Destination: &cmd.dailyTarget},
			&cli.StringSliceFlag{Name: "weekly-targets", Usage: "per-week targets, comma separated or repeated", Destination: &cmd.weeklyTargets},
			&cli.StringSliceFlag{Name: "stretch", Usage: "stretch level as label=value, repeatable", Destination: &cmd.stretch},
			&cli.StringFlag{Name: "label-incomplete", Usage: "binary label for the incomplete state", Destination: &cmd.labelOff},
			&cli.StringFlag{Name: "label-complete", Usage: "binary label for the complete state", Destination: &cmd.labelOn},
			&cli.StringFlag{Name: "owner", Usage: "owner user ID", Destination: &cmd.owner},
			&cli.StringFlag{Name: "status", Usage: "ON_TRACK, NEEDS_ATTENTION, OFF_TRACK or CHALLENGE", Destination: &cmd.status},
			jsonFlag(),
		}
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:    "kr",
		Aliases: []string{"key-result"},
		Usage:   "Add and manage key results",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a key result to an objective",
				UsageText: "okr kr add <objective-id> --title <title> [options]",
				Description: `Adds a key result. --category selects how progress is measured:

  STANDARD    start → target, increasing or decreasing
  STRETCH     like STANDARD with --stretch milestones
  BINARY      done or not done
  ASSIGNMENT  progress of linked tasks, forms and documents

Daily key results with --daily-target and weekly ones with --weekly-targets
get a period grid, see 'okr periods'.`,
				Flags: append(fields(),
					&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Value: string(okr.CategoryStandard), Usage: "STANDARD, STRETCH, BINARY or ASSIGNMENT", Destination: &cmd.category},
				),
				ShellComplete: ObjectiveIDCompleter(cmd.app),
				Action:        cmd.runAdd,
			},
			{
				Name:          "update",
				Usage:         "Update fields of a key result",
				UsageText:     "okr kr update <kr-id> [options]",
				Description:   "Only flags given on the command line are changed. The category cannot be changed.",
				Flags: append(fields(),
					&cli.BoolFlag{Name: "add-week", Usage: "append a weekly target equal to the last one", Destination: &cmd.addWeek},
				),
				ShellComplete: KeyResultIDCompleter(cmd.app),
				Action:        cmd.runUpdate,
			},
			{
				Name:      "archive",
				Usage:     "Archive a key result, or restore it with --restore",
				UsageText: "okr kr archive <kr-id> [--restore]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "restore", Usage: "unarchive instead", Destination: &cmd.restore},
				},
				ShellComplete: KeyResultIDCompleter(cmd.app),
				Action:        cmd.runArchive,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a key result and its check-ins",
				UsageText: "okr kr delete <kr-id> --yes",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "confirm deletion", Destination: &cmd.yes},
				},
				ShellComplete: KeyResultIDCompleter(cmd.app),
				Action:        cmd.runDelete,
			},
		},
	})

	return app
}

func (cmd *KeyResultCmd) runAdd(ctx context.Context, c *cli.Command) error {
	objectiveID, err := firstArg(c, "objective-id")
	if err != nil {
		return err
	}

	kr := okr.KeyResult{
		Title:           cmd.title,
		Category:        okr.Category(strings.ToUpper(cmd.category)),
		Type:            okr.MetricType(strings.ToUpper(cmd.metricType)),
		Unit:            cmd.unit,
		TargetDirection: okr.Direction(strings.ToUpper(cmd.direction)),
		StartValue:      cmd.startValue,
		ReportFrequency: okr.Frequency(strings.ToUpper(cmd.frequency)),
		OwnerID:         cmd.owner,
		Status:          okr.Status(strings.ToUpper(cmd.status)),
	}
	if c.IsSet("target") {
		v := cmd.targetValue
		kr.TargetValue = &v
	}
	if kr.StartDate, err = parseDate(cmd.startDate); err != nil {
		return err
	}
	if kr.EndDate, err = parseDate(cmd.endDate); err != nil {
		return err
	}
	if c.IsSet("daily-target") {
		kr.DailyTarget = &okr.DailyTarget{Type: kr.Type, Target: cmd.dailyTarget, Unit: kr.Unit}
	}
	if kr.WeeklyTargets, err = parseNumbers(cmd.weeklyTargets); err != nil {
		return err
	}
	if kr.StretchLevels, err = parseStretch(cmd.stretch); err != nil {
		return err
	}
	if cmd.labelOff != "" || cmd.labelOn != "" {
		kr.BinaryLabels = &okr.BinaryLabels{Incomplete: cmd.labelOff, Complete: cmd.labelOn}
	}

	created, err := cmd.app.Objectives.CreateKeyResult(logging.WithObjectiveID(ctx, objectiveID), objectiveID, kr)
	if err != nil {
		return fmt.Errorf("add key result: %w", err)
	}
	return cmd.print(c, "Added", created)
}

func (cmd *KeyResultCmd) runUpdate(ctx context.Context, c *cli.Command) error {
	id, err := firstArg(c, "kr-id")
	if err != nil {
		return err
	}

	patch, err := cmd.patch(c)
	if err != nil {
		return err
	}
	if cmd.addWeek {
		targets := patch.WeeklyTargets
		if targets == nil {
			current, err := cmd.app.Objectives.KeyResult(id)
			if err != nil {
				return err
			}
			targets = current.WeeklyTargets
		}
		patch.WeeklyTargets = okr.AddWeek(targets)
	}

	kr, err := cmd.app.Objectives.UpdateKeyResult(logging.WithKeyResultID(ctx, id), id, patch)
	if err != nil {
		return err
	}
	return cmd.print(c, "Updated", kr)
}

// patch builds a KeyResultPatch from the flags set on the command line.
func (cmd *KeyResultCmd) patch(c *cli.Command) (okr.KeyResultPatch, error) {
	var p okr.KeyResultPatch
	var err error

	if c.IsSet("title") {
		p.Title = &cmd.title
	}
	if c.IsSet("owner") {
		p.OwnerID = &cmd.owner
	}
	if c.IsSet("type") {
		t := okr.MetricType(strings.ToUpper(cmd.metricType))
		p.Type = &t
	}
	if c.IsSet("unit") {
		p.Unit = &cmd.unit
	}
	if c.IsSet("direction") {
		d := okr.Direction(strings.ToUpper(cmd.direction))
		p.TargetDirection = &d
	}
	if c.IsSet("start") {
		p.StartValue = &cmd.startValue
	}
	if c.IsSet("target") {
		p.TargetValue = &cmd.targetValue
	}
	if c.IsSet("frequency") {
		f := okr.Frequency(strings.ToUpper(cmd.frequency))
		p.ReportFrequency = &f
	}
	if c.IsSet("status") {
		s := okr.Status(strings.ToUpper(cmd.status))
		p.Status = &s
	}
	if c.IsSet("start-date") {
		if p.StartDate, err = parseDate(cmd.startDate); err != nil {
			return p, err
		}
	}
	if c.IsSet("end-date") {
		if p.EndDate, err = parseDate(cmd.endDate); err != nil {
			return p, err
		}
	}
	if c.IsSet("daily-target") {
		p.DailyTarget = &okr.DailyTarget{Target: cmd.dailyTarget}
	}
	if c.IsSet("weekly-targets") {
		if p.WeeklyTargets, err = parseNumbers(cmd.weeklyTargets); err != nil {
			return p, err
		}
	}
	if c.IsSet("stretch") {
		if p.StretchLevels, err = parseStretch(cmd.stretch); err != nil {
			return p, err
		}
	}
	if c.IsSet("label-incomplete") || c.IsSet("label-complete") {
		p.BinaryLabels = &okr.BinaryLabels{Incomplete: cmd.labelOff, Complete: cmd.labelOn}
	}
	return p, nil
}

func (cmd *KeyResultCmd) runArchive(ctx context.Context, c *cli.Command) error {
	id, err := firstArg(c, "kr-id")
	if err != nil {
		return err
	}
	kr, err := cmd.app.Objectives.SetKeyResultArchived(logging.WithKeyResultID(ctx, id), id, !cmd.restore)
	if err != nil {
		return err
	}
	if cmd.restore {
		return cmd.print(c, "Restored", kr)
	}
	return cmd.print(c, "Archived", kr)
}

func (cmd *KeyResultCmd) runDelete(ctx context.Context, c *cli.Command) error {
	id, err := firstArg(c, "kr-id")
	if err != nil {
		return err
	}
	if !cmd.yes {
		return fmt.Errorf("refusing to delete %s without --yes", id)
	}
	if err := cmd.app.Objectives.DeleteKeyResult(logging.WithKeyResultID(ctx, id), id); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "Deleted key result %s\n", id)
	return nil
}

func (cmd *KeyResultCmd) print(c *cli.Command, verb string, kr okr.KeyResult) error {
	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, os.Stderr, kr)
	}

	progress, err := cmd.app.Progress.KeyResultProgress(kr.ID)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "%s key result %s %s\n", verb, kr.ID, styles.MutedStyle.Render(kr.Title))
	_, _ = fmt.Fprintf(out, "  %s  %s\n", render.ProgressBar(progress, render.DefaultBarWidth), render.Value(kr))
	return nil
}

// parseStretch parses label=value pairs.
func parseStretch(values []string) ([]okr.StretchLevel, error) {
	var levels []okr.StretchLevel
	for _, v := range values {
		label, raw, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("%w: stretch level %q must be label=value", okr.ErrInvalid, v)
		}
		n, err := parseNumbers([]string{raw})
		if err != nil || len(n) != 1 {
			return nil, fmt.Errorf("%w: stretch level %q must be label=value", okr.ErrInvalid, v)
		}
		levels = append(levels, okr.StretchLevel{Label: strings.TrimSpace(label), Value: n[0]})
	}
	return levels, nil
}
