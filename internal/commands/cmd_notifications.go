package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/okr/internal/core/notify"
	"github.com/colonyops/okr/internal/core/styles"
	"github.com/colonyops/okr/internal/service"
	"github.com/colonyops/okr/pkg/iojson"
)

type NotificationsCmd struct {
	flags *Flags
	app   *service.App

	limit      int
	jsonOutput bool
}

// NewNotificationsCmd creates the notifications command group.
func NewNotificationsCmd(flags *Flags, app *service.App) *NotificationsCmd {
	return &NotificationsCmd{flags: flags, app: app}
}

// Register adds the notifications commands to the application.
func (cmd *NotificationsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:    "notifications",
		Aliases: []string{"notes"},
		Usage:   "Show or clear the notification feed",
		Commands: []*cli.Command{
			{
				Name:    "ls",
				Aliases: []string{"list"},
				Usage:   "List notifications, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "maximum to show, 0 for all", Destination: &cmd.limit},
					&cli.BoolFlag{Name: "json", Usage: "output as JSON lines", Destination: &cmd.jsonOutput},
				},
				Action: cmd.runList,
			},
			{
				Name:   "clear",
				Usage:  "Delete all notifications",
				Action: cmd.runClear,
			},
		},
	})

	return app
}

func (cmd *NotificationsCmd) runList(ctx context.Context, c *cli.Command) error {
	list, err := cmd.app.Notifications.List(ctx, cmd.limit)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLines(out, list)
	}
	if len(list) == 0 {
		_, _ = fmt.Fprintln(out, styles.MutedStyle.Render("No notifications"))
		return nil
	}

	for _, n := range list {
		_, _ = fmt.Fprintf(out, "%s %s %s\n",
			styles.MutedStyle.Render(n.CreatedAt.Local().Format("2006-01-02 15:04")),
			levelStyle(n.Level).Render(fmt.Sprintf("%-7s", n.Level)),
			n.Message,
		)
	}
	return nil
}

func (cmd *NotificationsCmd) runClear(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Notifications.Clear(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.Root().Writer, "Cleared notifications")
	return nil
}

func levelStyle(l notify.Level) lipgloss.Style {
	switch l {
	case notify.LevelError:
		return styles.ErrorStyle
	case notify.LevelWarning:
		return styles.WarningStyle
	default:
		return styles.MutedStyle
	}
}
