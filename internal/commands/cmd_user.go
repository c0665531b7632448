package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/service"
	"github.com/colonyops/okr/pkg/iojson"
)

type UserCmd struct {
	flags *Flags
	app   *service.App

	name       string
	username   string
	role       string
	team       string
	avatar     string
	jsonOutput bool
}

// NewUserCmd creates the user command group.
func NewUserCmd(flags *Flags, app *service.App) *UserCmd {
	return &UserCmd{flags: flags, app: app}
}

// Register adds the user commands to the application.
func (cmd *UserCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "user",
		Usage: "Manage the users that own objectives and key results",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Create or update a user",
				UsageText: "okr user set <user-id> [--name <name>] [--username <handle>] [--role admin|lead|member]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "display name", Destination: &cmd.name},
					&cli.StringFlag{Name: "username", Usage: "handle", Destination: &cmd.username},
					&cli.StringFlag{Name: "role", Usage: "admin, lead or member", Destination: &cmd.role},
					&cli.StringFlag{Name: "team", Usage: "team ID", Destination: &cmd.team},
					&cli.StringFlag{Name: "avatar", Usage: "avatar URL", Destination: &cmd.avatar},
				},
				Action: cmd.runSet,
			},
			{
				Name:    "ls",
				Aliases: []string{"list"},
				Usage:   "List users",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "output as JSON lines", Destination: &cmd.jsonOutput},
				},
				Action: cmd.runList,
			},
		},
	})

	return app
}

func (cmd *UserCmd) runSet(ctx context.Context, c *cli.Command) error {
	id, err := firstArg(c, "user-id")
	if err != nil {
		return err
	}

	u, err := cmd.app.Objectives.User(id)
	switch {
	case errors.Is(err, okr.ErrNotFound):
		u = okr.User{ID: id, Role: okr.RoleMember}
	case err != nil:
		return err
	}

	if c.IsSet("name") {
		u.Name = cmd.name
	}
	if c.IsSet("username") {
		u.Username = cmd.username
	}
	if c.IsSet("role") {
		u.Role = okr.Role(strings.ToLower(cmd.role))
	}
	if c.IsSet("team") {
		u.TeamID = cmd.team
	}
	if c.IsSet("avatar") {
		u.AvatarURL = cmd.avatar
	}

	saved, err := cmd.app.Objectives.UpsertUser(ctx, u)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "Saved user %s\n", saved.ID)
	return nil
}

func (cmd *UserCmd) runList(ctx context.Context, c *cli.Command) error {
	users := cmd.app.Objectives.ListUsers()

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLines(out, users)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tUSERNAME\tROLE")
	for _, u := range users {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Username, u.Role)
	}
	return w.Flush()
}
