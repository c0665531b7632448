package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/okr/internal/service"
)

// ObjectiveIDCompleter returns a ShellCompleteFunc that suggests active
// objective IDs, with their titles, as positional completions.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func ObjectiveIDCompleter(app *service.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if typingFlag(cmd) {
			cli.DefaultCompleteWithFlags(ctx, cmd)
			return
		}

		objectives, err := app.Objectives.ListObjectives(service.ObjectiveFilter{})
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, o := range objectives {
			_, _ = fmt.Fprintf(w, "%s:%s\n", o.ID, o.Title)
		}
	}
}

// KeyResultIDCompleter suggests the IDs of active key results.
func KeyResultIDCompleter(app *service.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if typingFlag(cmd) {
			cli.DefaultCompleteWithFlags(ctx, cmd)
			return
		}

		objectives, err := app.Objectives.ListObjectives(service.ObjectiveFilter{})
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, o := range objectives {
			for _, kr := range o.KeyResults {
				if kr.IsArchived {
					continue
				}
				_, _ = fmt.Fprintf(w, "%s:%s\n", kr.ID, kr.Title)
			}
		}
	}
}

func typingFlag(cmd *cli.Command) bool {
	args := cmd.Args()
	if !args.Present() {
		return false
	}
	last := args.Slice()[args.Len()-1]
	return len(last) > 0 && last[0] == '-'
}
