package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/okr/internal/render"
	"github.com/colonyops/okr/internal/service"
)

type TreeCmd struct {
	flags *Flags
	app   *service.App

	quarter    string
	keyResults bool
	archived   bool
	now        string
}

// NewTreeCmd creates the tree command.
func NewTreeCmd(flags *Flags, app *service.App) *TreeCmd {
	return &TreeCmd{flags: flags, app: app}
}

// Register adds the tree command to the application.
func (cmd *TreeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "tree",
		Usage:     "Show objectives nested under their parents",
		UsageText: "okr tree [--quarter <glob>] [--krs]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "quarter", Aliases: []string{"q"}, Usage: "quarter glob", Destination: &cmd.quarter},
			&cli.BoolFlag{Name: "krs", Aliases: []string{"k"}, Usage: "list key results under each objective", Destination: &cmd.keyResults},
			&cli.BoolFlag{Name: "archived", Aliases: []string{"a"}, Usage: "include archived objectives", Destination: &cmd.archived},
			nowFlag(&cmd.now),
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *TreeCmd) run(ctx context.Context, c *cli.Command) error {
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

	// Title column takes what is left after bar, percent and quarter.
	titleWidth := max(termWidth()-render.DefaultBarWidth-24, 20)
	_, err = fmt.Fprint(c.Root().Writer, render.Tree(views, render.TreeOptions{
		KeyResults: cmd.keyResults,
		TitleWidth: min(titleWidth, 60),
	}))
	return err
}
