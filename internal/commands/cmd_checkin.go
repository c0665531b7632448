package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/okr/internal/core/logging"
	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/core/styles"
	"github.com/colonyops/okr/internal/core/validate"
	"github.com/colonyops/okr/internal/render"
	"github.com/colonyops/okr/internal/service"
	"github.com/colonyops/okr/pkg/iojson"
)

type CheckInCmd struct {
	flags *Flags
	app   *service.App

	value      float64
	date       string
	rating     int
	report     string
	tasksDone  string
	tasksNext  string
	challenges string
	status     string
	author     string
	difficulty int
	tags       []string
	jsonOutput bool
}

// NewCheckInCmd creates the check-in command.
func NewCheckInCmd(flags *Flags, app *service.App) *CheckInCmd {
	return &CheckInCmd{flags: flags, app: app}
}

// Register adds the checkin command to the application.
func (cmd *CheckInCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "checkin",
		Aliases:   []string{"ci"},
		Usage:     "Record a check-in on a key result",
		UsageText: "okr checkin <kr-id> --value <n> [options]",
		Description: `Records the cumulative value of a key result on a day.

Check-ins are never overwritten. Whether a check-in dated before an existing
one moves the current value depends on checkin.conflict_policy in the config.

When --value is omitted and the terminal is interactive, a form prompts for
the value and the report.`,
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "value", Aliases: []string{"v"}, Usage: "cumulative value", Destination: &cmd.value},
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "check-in day (YYYY-MM-DD), defaults to today", Destination: &cmd.date},
			&cli.IntFlag{Name: "rating", Usage: "confidence rating 1-5", Destination: &cmd.rating},
			&cli.StringFlag{Name: "report", Aliases: []string{"m"}, Usage: "free-form report", Destination: &cmd.report},
			&cli.StringFlag{Name: "tasks-done", Usage: "what was done", Destination: &cmd.tasksDone},
			&cli.StringFlag{Name: "tasks-next", Usage: "what comes next", Destination: &cmd.tasksNext},
			&cli.StringFlag{Name: "challenges", Usage: "blockers and challenges", Destination: &cmd.challenges},
			&cli.StringFlag{Name: "status", Usage: "ON_TRACK, NEEDS_ATTENTION, OFF_TRACK or CHALLENGE", Destination: &cmd.status},
			&cli.StringFlag{Name: "author", Usage: "author user ID", Sources: cli.EnvVars("OKR_USER"), Destination: &cmd.author},
			&cli.IntFlag{Name: "difficulty", Usage: "challenge difficulty", Destination: &cmd.difficulty},
			&cli.StringSliceFlag{Name: "tag", Usage: "challenge tag ID, repeatable", Destination: &cmd.tags},
			&cli.BoolFlag{Name: "json", Usage: "output as JSON", Destination: &cmd.jsonOutput},
		},
		ShellComplete: KeyResultIDCompleter(cmd.app),
		Action:        cmd.run,
	})

	return app
}

func (cmd *CheckInCmd) run(ctx context.Context, c *cli.Command) error {
	id, err := firstArg(c, "kr-id")
	if err != nil {
		return err
	}

	if !c.IsSet("value") {
		if !isInteractive() {
			return fmt.Errorf("%w: --value is required", okr.ErrInvalid)
		}
		kr, err := cmd.app.Objectives.KeyResult(id)
		if err != nil {
			return err
		}
		if err := cmd.form(kr); err != nil {
			return err
		}
	}

	checkIn, err := cmd.checkIn()
	if err != nil {
		return err
	}

	kr, adopted, err := cmd.app.Objectives.CheckIn(logging.WithKeyResultID(ctx, id), id, checkIn)
	if err != nil {
		return err
	}
	progress, err := cmd.app.Progress.KeyResultProgress(id)
	if err != nil {
		return err
	}
	objectiveProgress, err := cmd.app.Progress.ObjectiveProgress(kr.ObjectiveID)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, os.Stderr, CheckInResult{
			KeyResult:         kr,
			Adopted:           adopted,
			Progress:          progress,
			ObjectiveProgress: objectiveProgress,
		})
	}

	_, _ = fmt.Fprintf(out, "Recorded check-in on %s %s\n", kr.ID, styles.MutedStyle.Render(kr.Title))
	if !adopted {
		_, _ = fmt.Fprintln(out, styles.WarningStyle.Render("  a later check-in exists; current value unchanged"))
	}
	_, _ = fmt.Fprintf(out, "  %s  %s\n", render.ProgressBar(progress, render.DefaultBarWidth), render.Value(kr))
	_, _ = fmt.Fprintln(out, styles.MutedStyle.Render("  objective at "+render.Percent(objectiveProgress)))
	return nil
}

func (cmd *CheckInCmd) checkIn() (okr.CheckIn, error) {
	ci := okr.CheckIn{
		Value:               cmd.value,
		Rating:              cmd.rating,
		Status:              okr.Status(strings.ToUpper(cmd.status)),
		AuthorID:            cmd.author,
		ChallengeDifficulty: cmd.difficulty,
		ChallengeTagIDs:     cmd.tags,
		Report: okr.Report{
			Text:       cmd.report,
			TasksDone:  cmd.tasksDone,
			TasksNext:  cmd.tasksNext,
			Challenges: cmd.challenges,
		},
	}
	day, err := parseDate(cmd.date)
	if err != nil {
		return ci, err
	}
	if day != nil {
		ci.Date = *day
	}
	return ci, nil
}

func (cmd *CheckInCmd) form(kr okr.KeyResult) error {
	value := strconv.FormatFloat(kr.CurrentValue, 'f', -1, 64)
	description := fmt.Sprintf("Currently %s", render.Value(kr))

	fields := []huh.Field{
		huh.NewInput().
			Title("Value").
			Description(description).
			Validate(validate.Number).
			Value(&value),
	}
	binary := kr.Category == okr.CategoryBinary
	done := kr.CurrentValue == 1
	if binary {
		fields = []huh.Field{
			huh.NewConfirm().Title(kr.Title).Description("Done?").Value(&done),
		}
	}
	fields = append(fields,
		huh.NewText().Title("Done").Value(&cmd.tasksDone),
		huh.NewText().Title("Next").Value(&cmd.tasksNext),
		huh.NewText().Title("Challenges").Value(&cmd.challenges),
	)

	if err := huh.NewForm(huh.NewGroup(fields...)).WithTheme(styles.FormTheme()).Run(); err != nil {
		return err
	}
	if binary {
		cmd.value = 0
		if done {
			cmd.value = 1
		}
		return nil
	}

	v, err := validate.ParseNumber(value)
	if err != nil {
		return err
	}
	cmd.value = v
	return nil
}

// CheckInResult is the JSON output of checkin.
type CheckInResult struct {
	KeyResult         okr.KeyResult `json:"keyResult"`
	Adopted           bool          `json:"adopted"`
	Progress          float64       `json:"progress"`
	ObjectiveProgress float64       `json:"objectiveProgress"`
}
