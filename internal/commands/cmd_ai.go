package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/okr/internal/assist"
	"github.com/colonyops/okr/internal/core/logging"
	"github.com/colonyops/okr/internal/core/styles"
	"github.com/colonyops/okr/internal/render"
	"github.com/colonyops/okr/internal/service"
	"github.com/colonyops/okr/pkg/iojson"
)

type AICmd struct {
	flags *Flags
	app   *service.App

	// generator builds the model backend on first use.
	generator func(ctx context.Context) (assist.Generator, error)

	add        bool
	goal       string
	motivation string
	expertise  string
	language   string
	quarter    string
	now        string
	jsonOutput bool
}

// NewAICmd creates the ai command group backed by the configured model.
func NewAICmd(flags *Flags, app *service.App) *AICmd {
	cmd := &AICmd{flags: flags, app: app}
	cmd.generator = func(ctx context.Context) (assist.Generator, error) {
		cfg := cmd.app.Config
		gen, err := assist.NewGenAIGenerator(ctx, cfg.APIKey(), cfg.AI.Model, cfg.AI.Timeout)
		if errors.Is(err, assist.ErrNoAPIKey) {
			return nil, fmt.Errorf("%w: set %s", err, cfg.AI.APIKeyEnv)
		}
		return gen, err
	}
	return cmd
}

// WithGenerator replaces the model backend.
func (cmd *AICmd) WithGenerator(gen assist.Generator) *AICmd {
	cmd.generator = func(context.Context) (assist.Generator, error) { return gen, nil }
	return cmd
}

// Register adds the ai commands to the application.
func (cmd *AICmd) Register(app *cli.Command) *cli.Command {
	jsonFlag := func() cli.Flag {
		return &cli.BoolFlag{Name: "json", Usage: "output as JSON", Destination: &cmd.jsonOutput}
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "ai",
		Usage: "Draft key results, objectives and analyses with an AI model",
		Description: `Requires an API key in the environment variable named by ai.api_key_env
(OKR_AI_API_KEY by default). Responses are cached for 24 hours.`,
		Commands: []*cli.Command{
			{
				Name:          "suggest",
				Usage:         "Suggest key results for an objective",
				UsageText:     "okr ai suggest <objective-id> [--add]",
				Flags:         []cli.Flag{&cli.BoolFlag{Name: "add", Usage: "add the suggestions to the objective", Destination: &cmd.add}, jsonFlag()},
				ShellComplete: ObjectiveIDCompleter(cmd.app),
				Action:        cmd.runSuggest,
			},
			{
				Name:      "objectives",
				Usage:     "Draft SMART objectives for a goal from several perspectives",
				UsageText: `okr ai objectives --goal "Enter the EU market" [--motivation ...] [--expertise ...]`,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "goal", Aliases: []string{"g"}, Usage: "goal description", Required: true, Destination: &cmd.goal},
					&cli.StringFlag{Name: "motivation", Usage: "why the goal matters", Destination: &cmd.motivation},
					&cli.StringFlag{Name: "expertise", Usage: "what the team is good at", Destination: &cmd.expertise},
					jsonFlag(),
				},
				Action: cmd.runObjectives,
			},
			{
				Name:      "analyze",
				Usage:     "Write an analysis of the current objectives",
				UsageText: "okr ai analyze [--quarter <glob>] [--language <name>]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "language", Aliases: []string{"l"}, Value: "English", Usage: "language of the analysis", Destination: &cmd.language},
					&cli.StringFlag{Name: "quarter", Aliases: []string{"q"}, Usage: "quarter glob", Destination: &cmd.quarter},
					nowFlag(&cmd.now),
					&cli.BoolFlag{Name: "raw", Usage: "print markdown without rendering"},
				},
				Action: cmd.runAnalyze,
			},
		},
	})

	return app
}

func (cmd *AICmd) assistant(ctx context.Context) (*assist.Assistant, error) {
	gen, err := cmd.generator(ctx)
	if err != nil {
		return nil, err
	}
	return assist.New(gen, cmd.app.KV, logging.Component("assist")), nil
}

func (cmd *AICmd) runSuggest(ctx context.Context, c *cli.Command) error {
	id, err := firstArg(c, "objective-id")
	if err != nil {
		return err
	}
	o, err := cmd.app.Objectives.Objective(id)
	if err != nil {
		return err
	}
	a, err := cmd.assistant(ctx)
	if err != nil {
		return err
	}

	suggestions, err := a.SuggestKeyResults(ctx, o)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.add {
		ctx = logging.WithObjectiveID(ctx, id)
		for _, s := range suggestions {
			if _, err := cmd.app.Objectives.CreateKeyResult(ctx, id, s.KeyResult()); err != nil {
				return fmt.Errorf("add %q: %w", s.Title, err)
			}
		}
	}

	if cmd.jsonOutput {
		return iojson.WriteWith(out, os.Stderr, suggestions)
	}
	for _, s := range suggestions {
		_, _ = fmt.Fprintf(out, "- %s %s\n", s.Title,
			styles.MutedStyle.Render(fmt.Sprintf("(%s, %s → %s)", s.Type, number(s.StartValue), number(s.TargetValue))))
	}
	if cmd.add {
		_, _ = fmt.Fprintf(out, "Added %d key results to %s\n", len(suggestions), id)
	}
	return nil
}

func (cmd *AICmd) runObjectives(ctx context.Context, c *cli.Command) error {
	a, err := cmd.assistant(ctx)
	if err != nil {
		return err
	}

	perspectives, err := a.GenerateSmartObjectives(ctx, assist.GoalInput{
		GoalDescription: cmd.goal,
		Motivation:      cmd.motivation,
		TeamExpertise:   cmd.expertise,
	})
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, os.Stderr, perspectives)
	}

	var b strings.Builder
	for _, p := range perspectives {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", p.Title, p.Description)
		for _, o := range p.Objectives {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", o.Title, o.Description)
			for _, kr := range o.KeyResults {
				fmt.Fprintf(&b, "- %s (%s → %s)\n", kr.Title, number(kr.StartValue), number(kr.TargetValue))
			}
			b.WriteString("\n")
		}
	}
	return cmd.printMarkdown(c, b.String(), false)
}

func (cmd *AICmd) runAnalyze(ctx context.Context, c *cli.Command) error {
	now, err := resolveNow(cmd.now)
	if err != nil {
		return err
	}
	views, err := cmd.app.Progress.Overview(service.ObjectiveFilter{Quarter: cmd.quarter}, now)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		return fmt.Errorf("no objectives to analyze")
	}

	a, err := cmd.assistant(ctx)
	if err != nil {
		return err
	}
	md, err := a.AnalyzeOKRData(ctx, views, cmd.app.Objectives.ListUsers(), cmd.language)
	if err != nil {
		return err
	}
	return cmd.printMarkdown(c, md, c.Bool("raw"))
}

func (cmd *AICmd) printMarkdown(c *cli.Command, md string, raw bool) error {
	out := c.Root().Writer
	if raw || !isInteractive() {
		_, err := fmt.Fprint(out, md)
		return err
	}
	rendered, err := render.Markdown(md, min(termWidth(), 100))
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}

func number(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}
