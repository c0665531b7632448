package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/okr/internal/core/logging"
	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/core/styles"
	"github.com/colonyops/okr/internal/core/validate"
	"github.com/colonyops/okr/internal/render"
	"github.com/colonyops/okr/internal/service"
	"github.com/colonyops/okr/pkg/iojson"
)

type ObjectiveCmd struct {
	flags *Flags
	app   *service.App
	fr    *iojson.FileReader[ImportInput]

	// create
	title       string
	description string
	owner       string
	quarter     string
	parent      string
	category    string
	color       string

	// ls
	quarterGlob string
	titleGlob   string
	archived    bool

	// shared
	jsonOutput bool
	now        string
	restore    bool
	yes        bool
}

// NewObjectiveCmd creates the objective command group.
func NewObjectiveCmd(flags *Flags, app *service.App) *ObjectiveCmd {
	return &ObjectiveCmd{
		flags: flags,
		app:   app,
		fr:    &iojson.FileReader[ImportInput]{},
	}
}

// Register adds the objective commands to the application.
func (cmd *ObjectiveCmd) Register(app *cli.Command) *cli.Command {
	jsonFlag := func() cli.Flag {
		return &cli.BoolFlag{
		Name:        "json",
		Usage:       "output as JSON",
		Destination: &cmd.jsonOutput,
	}
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:    "objective",
		Aliases: []string{"obj", "o"},
		Usage:   "Create, list and manage objectives",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create an objective",
				UsageText: "okr objective create --title <title> [options]",
				Description: `Creates a new objective. Key results are added afterwards with 'okr kr add'.

When --title is omitted and the terminal is interactive, a form prompts for
the fields.`,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "objective title", Destination: &cmd.title},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "longer description", Destination: &cmd.description},
					&cli.StringFlag{Name: "owner", Usage: "owner user ID", Destination: &cmd.owner},
					&cli.StringFlag{Name: "quarter", Aliases: []string{"q"}, Usage: "quarter label, e.g. 1404-Q1", Destination: &cmd.quarter},
					&cli.StringFlag{Name: "parent", Usage: "parent objective ID", Destination: &cmd.parent},
					&cli.StringFlag{Name: "category", Usage: "objective category, e.g. SALES", Destination: &cmd.category},
					&cli.StringFlag{Name: "color", Usage: "display color", Destination: &cmd.color},
					jsonFlag(),
				},
				Action: cmd.runCreate,
			},
			{
				Name:      "ls",
				Aliases:   []string{"list"},
				Usage:     "List objectives with their progress",
				UsageText: "okr objective ls [--quarter <glob>] [--title <glob>] [--json]",
				Description: `Lists objectives with progress. --quarter and --title accept glob patterns
("1404-*", "*revenue*"); title matching ignores case.

Use --json for JSON lines, one objective per line with computed progress.`,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "quarter", Aliases: []string{"q"}, Usage: "quarter glob", Destination: &cmd.quarterGlob},
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "title glob", Destination: &cmd.titleGlob},
					&cli.StringFlag{Name: "owner", Usage: "owner user ID", Destination: &cmd.owner},
					&cli.BoolFlag{Name: "archived", Aliases: []string{"a"}, Usage: "include archived objectives", Destination: &cmd.archived},
					nowFlag(&cmd.now),
					jsonFlag(),
				},
				Action: cmd.runList,
			},
			{
				Name:          "show",
				Usage:         "Show an objective and its key results",
				UsageText:     "okr objective show <objective-id> [--json]",
				Flags:         []cli.Flag{nowFlag(&cmd.now), jsonFlag()},
				ShellComplete: ObjectiveIDCompleter(cmd.app),
				Action:        cmd.runShow,
			},
			{
				Name:      "archive",
				Usage:     "Archive an objective, or restore it with --restore",
				UsageText: "okr objective archive <objective-id> [--restore]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "restore", Usage: "unarchive instead", Destination: &cmd.restore},
				},
				ShellComplete: ObjectiveIDCompleter(cmd.app),
				Action:        cmd.runArchive,
			},
			{
				Name:        "delete",
				Aliases:     []string{"rm"},
				Usage:       "Delete an objective and all of its key results",
				UsageText:   "okr objective delete <objective-id> [--yes]",
				Description: "Child objectives are kept and become top-level objectives.",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip confirmation", Destination: &cmd.yes},
				},
				ShellComplete: ObjectiveIDCompleter(cmd.app),
				Action:        cmd.runDelete,
			},
			{
				Name:  "import",
				Usage: "Import objectives and users from JSON",
				UsageText: `okr objective import [options]

Read from stdin:
  cat okrs.json | okr objective import

Read from file:
  okr objective import -f okrs.json`,
				Description: `Imports complete objective graphs, keeping IDs and check-in history.
Objectives that already exist are replaced; stored check-ins are kept.

Processing stops after 3 failures. Objectives not attempted are marked as skipped.

Input JSON schema:
  {
    "users": [{"id": "u1", "name": "Sara", "username": "sara"}],
    "objectives": [
      {
        "id": "optional-id",
        "title": "Grow revenue",
        "quarter": "1404-Q1",
        "keyResults": [{"title": "Close deals", "category": "STANDARD", "targetValue": 10}]
      }
    ]
  }

Output is JSON with the result for each objective.`,
				Flags:  []cli.Flag{cmd.fr.Flag()},
				Action: cmd.runImport,
			},
		},
	})

	return app
}

func (cmd *ObjectiveCmd) runCreate(ctx context.Context, c *cli.Command) error {
	if cmd.title == "" && isInteractive() {
		if err := cmd.createForm(); err != nil {
			return err
		}
	}

	o := okr.Objective{
		Title:       cmd.title,
		Description: cmd.description,
		OwnerID:     cmd.owner,
		Quarter:     cmd.quarter,
		ParentID:    cmd.parent,
		Category:    okr.ObjectiveCategory(strings.ToUpper(cmd.category)),
		Color:       cmd.color,
	}
	if err := validate.Quarter(o.Quarter); err != nil {
		return err
	}

	created, err := cmd.app.Objectives.CreateObjective(ctx, o)
	if err != nil {
		return fmt.Errorf("create objective: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, os.Stderr, created)
	}
	_, _ = fmt.Fprintf(out, "Created objective %s %s\n", created.ID, styles.MutedStyle.Render(created.Title))
	return nil
}

func (cmd *ObjectiveCmd) createForm() error {
	categories := []huh.Option[string]{huh.NewOption("none", "")}
	for _, cat := range okr.ObjectiveCategories {
		categories = append(categories, huh.NewOption(string(cat), string(cat)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Objective").
				Description("What do you want to achieve?").
				Validate(validate.Title).
				Value(&cmd.title),
			huh.NewText().
				Title("Description").
				Value(&cmd.description),
			huh.NewInput().
				Title("Quarter").
				Description("For example 1404-Q1").
				Validate(validate.Quarter).
				Value(&cmd.quarter),
			huh.NewSelect[string]().
				Title("Category").
				Options(categories...).
				Value(&cmd.category),
		),
	).WithTheme(styles.FormTheme()).Run()
}

func (cmd *ObjectiveCmd) runList(ctx context.Context, c *cli.Command) error {
	now, err := resolveNow(cmd.now)
	if err != nil {
		return err
	}

	views, err := cmd.app.Progress.Overview(service.ObjectiveFilter{
		Quarter:         cmd.quarterGlob,
		Title:           cmd.titleGlob,
		OwnerID:         cmd.owner,
		IncludeArchived: cmd.archived,
	}, now)
	if err != nil {
		return fmt.Errorf("list objectives: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLines(out, views)
	}

	if len(views) == 0 {
		fmt.Fprintf(os.Stderr, "No objectives found\n")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tQUARTER\tKRS\tPROGRESS")
	for _, v := range views {
		title := v.Title
		if v.IsArchived {
			title += " (archived)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", v.ID, title, v.Quarter, len(v.KeyResults), render.Percent(v.Progress))
	}
	return w.Flush()
}

func (cmd *ObjectiveCmd) runShow(ctx context.Context, c *cli.Command) error {
	id, err := firstArg(c, "objective-id")
	if err != nil {
		return err
	}
	now, err := resolveNow(cmd.now)
	if err != nil {
		return err
	}

	view, err := cmd.app.Progress.ObjectiveView(id, now)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, os.Stderr, view)
	}
	_, err = fmt.Fprint(out, render.ObjectiveDetail(view, usersByID(cmd.app)))
	return err
}

func (cmd *ObjectiveCmd) runArchive(ctx context.Context, c *cli.Command) error {
	id, err := firstArg(c, "objective-id")
	if err != nil {
		return err
	}

	o, err := cmd.app.Objectives.SetObjectiveArchived(logging.WithObjectiveID(ctx, id), id, !cmd.restore)
	if err != nil {
		return err
	}

	verb := "Archived"
	if cmd.restore {
		verb = "Restored"
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "%s objective %s %s\n", verb, o.ID, styles.MutedStyle.Render(o.Title))
	return nil
}

func (cmd *ObjectiveCmd) runDelete(ctx context.Context, c *cli.Command) error {
	id, err := firstArg(c, "objective-id")
	if err != nil {
		return err
	}
	o, err := cmd.app.Objectives.Objective(id)
	if err != nil {
		return err
	}

	if !cmd.yes {
		if !isInteractive() {
			return fmt.Errorf("refusing to delete %s without --yes", id)
		}
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete %q and its %d key results?", o.Title, len(o.KeyResults))).
			Value(&confirmed).
			WithTheme(styles.FormTheme()).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			return nil
		}
	}

	if err := cmd.app.Objectives.DeleteObjective(logging.WithObjectiveID(ctx, id), id); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "Deleted objective %s %s\n", id, styles.MutedStyle.Render(o.Title))
	return nil
}

func (cmd *ObjectiveCmd) runImport(ctx context.Context, c *cli.Command) error {
	input, err := cmd.fr.Read()
	if err != nil {
		return iojson.WriteError(fmt.Sprintf("read input: %s", err), nil)
	}
	if err := input.Validate(); err != nil {
		return iojson.WriteError(fmt.Sprintf("invalid input: %s", err), nil)
	}

	output, err := Import(ctx, cmd.app.Objectives, input)
	if err != nil {
		return iojson.WriteError(err.Error(), nil)
	}
	return iojson.WriteWith(c.Root().Writer, os.Stderr, output)
}

// Import upserts the users, then imports objectives one by one, stopping
// after maxFailures failed objectives.
func Import(ctx context.Context, objectives *service.ObjectiveService, input ImportInput) (ImportOutput, error) {
	for _, u := range input.Users {
		if _, err := objectives.UpsertUser(ctx, u); err != nil {
			return ImportOutput{}, fmt.Errorf("import user %s: %w", u.ID, err)
		}
	}

	output := ImportOutput{
		Users:   len(input.Users),
		Results: make([]ImportResult, 0, len(input.Objectives)),
	}

	failures := 0
	for i, o := range input.Objectives {
		if failures >= maxFailures {
			for _, rest := range input.Objectives[i:] {
				output.Results = append(output.Results, ImportResult{Title: rest.Title, ID: rest.ID, Status: StatusSkipped})
			}
			break
		}

		stored, err := objectives.ImportObjective(ctx, o)
		if err != nil {
			failures++
			output.Results = append(output.Results, ImportResult{Title: o.Title, ID: o.ID, Status: StatusFailed, Error: err.Error()})
			continue
		}
		output.Results = append(output.Results, ImportResult{
			Title:      stored.Title,
			ID:         stored.ID,
			Status:     StatusImported,
			KeyResults: len(stored.KeyResults),
		})
	}
	return output, nil
}

const (
	StatusImported = "imported" // StatusImported indicates the objective was stored.
	StatusFailed   = "failed"   // StatusFailed indicates the objective could not be stored.
	StatusSkipped  = "skipped"  // StatusSkipped indicates the objective was not attempted due to failure threshold.
	maxFailures    = 3          // maxFailures is the number of failures before stopping the import.
)

// ImportInput is the JSON input schema for objective import.
type ImportInput struct {
	Users      []okr.User      `json:"users"`
	Objectives []okr.Objective `json:"objectives"`
}

// Validate checks the import input for errors using criterio.
func (in ImportInput) Validate() error {
	if len(in.Objectives) == 0 && len(in.Users) == 0 {
		return criterio.NewFieldErrors("objectives", fmt.Errorf("nothing to import"))
	}

	var errs criterio.FieldErrorsBuilder
	seenIDs := make(map[string]bool)

	for i, o := range in.Objectives {
		field := fmt.Sprintf("objectives[%d]", i)

		if err := validate.Title(o.Title); err != nil {
			errs = errs.Append(field+".title", err)
			continue
		}
		if err := validate.Quarter(o.Quarter); err != nil {
			errs = errs.Append(field+".quarter", err)
		}
		if o.ID != "" {
			if seenIDs[o.ID] {
				errs = errs.Append(field+".id", fmt.Errorf("duplicate id %q", o.ID))
			}
			seenIDs[o.ID] = true
		}
		for j, kr := range o.KeyResults {
			if err := validate.Title(kr.Title); err != nil {
				errs = errs.Append(fmt.Sprintf("%s.keyResults[%d].title", field, j), err)
			}
		}
	}

	for i, u := range in.Users {
		if strings.TrimSpace(u.ID) == "" {
			errs = errs.Append(fmt.Sprintf("users[%d].id", i), fmt.Errorf("id is required"))
		}
	}

	return errs.ToError()
}

// ImportOutput is the JSON output of objective import.
type ImportOutput struct {
	Users   int            `json:"users"`
	Results []ImportResult `json:"results"`
}

// ImportResult is the outcome for one objective.
type ImportResult struct {
	ID         string `json:"id,omitempty"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	KeyResults int    `json:"keyResults,omitempty"`
	Error      string `json:"error,omitempty"`
}
