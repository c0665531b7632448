package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/okr/internal/core/styles"
	"github.com/colonyops/okr/internal/export"
	"github.com/colonyops/okr/internal/service"
)

type ExportCmd struct {
	flags *Flags
	app   *service.App

	format   string
	output   string
	quarter  string
	archived bool
	now      string
}

// NewExportCmd creates the export command.
func NewExportCmd(flags *Flags, app *service.App) *ExportCmd {
	return &ExportCmd{flags: flags, app: app}
}

// Register adds the export command to the application.
func (cmd *ExportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "export",
		Usage:     "Export objectives and key results as a spreadsheet",
		UsageText: "okr export [--format xlsx|csv] [--output <path>|-]",
		Description: `Writes objectives, key results and check-ins with computed progress.

XLSX exports have one sheet each for objectives, key results and check-ins.
CSV exports have one row per key result.

Without --output the file is written to <data-dir>/exports. Use "-" for stdout.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: string(export.FormatXLSX), Usage: "xlsx or csv", Destination: &cmd.format},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file, - for stdout", Destination: &cmd.output},
			&cli.StringFlag{Name: "quarter", Aliases: []string{"q"}, Usage: "quarter glob", Destination: &cmd.quarter},
			&cli.BoolFlag{Name: "archived", Aliases: []string{"a"}, Usage: "include archived objectives", Destination: &cmd.archived},
			nowFlag(&cmd.now),
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ExportCmd) run(ctx context.Context, c *cli.Command) error {
	format, err := export.ParseFormat(cmd.format)
	if err != nil {
		return err
	}
	now, err := resolveNow(cmd.now)
	if err != nil {
		return err
	}

	views, err := cmd.app.Progress.Overview(service.ObjectiveFilter{
		Quarter:         cmd.quarter,
		IncludeArchived: cmd.archived,
	}, now)
	if err != nil {
		return err
	}

	if cmd.output == "-" {
		return export.Write(c.Root().Writer, format, views)
	}

	path := cmd.output
	if path == "" {
		path = filepath.Join(cmd.app.Config.ExportDir(), export.FileName(format, now))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := export.Write(f, format, views); err != nil {
		_ = f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "Exported %d objectives to %s\n", len(views), styles.MutedStyle.Render(path))
	return nil
}
