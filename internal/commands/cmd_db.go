package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/okr/internal/core/styles"
	"github.com/colonyops/okr/internal/data/db"
	"github.com/colonyops/okr/internal/service"
	"github.com/colonyops/okr/pkg/iojson"
)

type DBCmd struct {
	flags *Flags
	app   *service.App

	steps      int
	yes        bool
	jsonOutput bool
}

// NewDBCmd creates the db command.
func NewDBCmd(flags *Flags, app *service.App) *DBCmd {
	return &DBCmd{flags: flags, app: app}
}

// Register adds the db command to the application.
func (cmd *DBCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "db",
		Usage: "Inspect and roll back the database schema",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show the schema version",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "output as JSON", Destination: &cmd.jsonOutput},
				},
				Action: cmd.runStatus,
			},
			{
				Name:      "rollback",
				Usage:     "Revert the most recent migrations",
				UsageText: "okr db rollback [--steps n] --yes",
				Description: `Reverts the last --steps migrations, dropping the tables they created.

Any okr command run afterwards reapplies them, so this is only useful to
rebuild a table from scratch.`,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Aliases: []string{"n"}, Usage: "number of migrations to revert", Value: 1, Destination: &cmd.steps},
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "confirm data loss", Destination: &cmd.yes},
				},
				Action: cmd.runRollback,
			},
		},
	})

	return app
}

// DBStatus is the JSON output of db status.
type DBStatus struct {
	Path string `json:"path"`
	db.SchemaStatus
}

func (cmd *DBCmd) runStatus(ctx context.Context, c *cli.Command) error {
	st, err := db.Status(ctx, cmd.app.DB.Conn())
	if err != nil {
		return err
	}
	status := DBStatus{
		Path:         filepath.Join(cmd.flags.Config.DatabaseDir(), db.FileName),
		SchemaStatus: st,
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, os.Stderr, status)
	}

	_, _ = fmt.Fprintf(out, "%s %s\n", styles.TitleStyle.Render("Database"), styles.MutedStyle.Render(status.Path))
	_, _ = fmt.Fprintf(out, "  schema version %d of %d\n", st.Current, st.Latest)
	for _, m := range st.Pending {
		_, _ = fmt.Fprintf(out, "  %s %04d %s\n", styles.WarningStyle.Render("pending"), m.Version, m.Name)
	}
	return nil
}

func (cmd *DBCmd) runRollback(ctx context.Context, c *cli.Command) error {
	if !cmd.yes {
		return fmt.Errorf("refusing to revert %d migrations without --yes", cmd.steps)
	}
	if err := db.MigrateDown(ctx, cmd.app.DB.Conn(), cmd.steps); err != nil {
		return err
	}

	version, err := db.LatestVersion(ctx, cmd.app.DB.Conn())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "Reverted %d migrations, schema now at %d\n", cmd.steps, version)
	return nil
}
