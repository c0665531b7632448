package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/core/tracker"
	"github.com/colonyops/okr/internal/core/validate"
	"github.com/colonyops/okr/internal/service"
)

// nowFlag overrides the current day for commands that classify periods.
func nowFlag(dest *string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "now",
		Usage:       "evaluate as of this day (YYYY-MM-DD or RFC 3339)",
		Sources:     cli.EnvVars("OKR_NOW"),
		Destination: dest,
	}
}

// resolveNow returns the parsed --now value, or the wall clock when unset.
func resolveNow(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return tracker.ParseDay(raw)
}

// parseDate parses an optional day flag.
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := tracker.ParseDay(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseNumbers parses a list of numbers given as repeated flags or as
// comma-separated values.
func parseNumbers(values []string) ([]float64, error) {
	var out []float64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			f, err := validate.ParseNumber(part)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", okr.ErrInvalid, err)
			}
			out = append(out, f)
		}
	}
	return out, nil
}

// firstArg returns the first positional argument or an error naming it.
func firstArg(c *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(c.Args().First())
	if v == "" {
		return "", fmt.Errorf("missing %s argument; see '%s --help'", name, c.FullName())
	}
	return v, nil
}

func usersByID(app *service.App) map[string]okr.User {
	users := app.Objectives.ListUsers()
	m := make(map[string]okr.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return m
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
