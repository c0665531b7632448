package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/okr/internal/core/config"
	"github.com/colonyops/okr/internal/core/styles"
	"github.com/colonyops/okr/pkg/iojson"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "okr config validate [options]",
				Description: "Validates the configuration file, checking cron schedules, origin patterns, the NATS URL, and file paths.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

// ValidationIssue is one failed check.
type ValidationIssue struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationReport is the JSON output of config validate.
type ValidationReport struct {
	Valid    bool                       `json:"valid"`
	Errors   []ValidationIssue          `json:"errors,omitempty"`
	Warnings []config.ValidationWarning `json:"warnings,omitempty"`
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	report := ValidationReport{
		Errors:   issues(cfg.ValidateDeep(cmd.flags.ConfigPath)),
		Warnings: cfg.Warnings(),
	}
	report.Valid = len(report.Errors) == 0

	out := c.Root().Writer
	if cmd.format == "json" {
		if err := iojson.WriteLine(out, report); err != nil {
			return err
		}
		if !report.Valid {
			return cli.Exit("", 1)
		}
		return nil
	}

	for _, w := range report.Warnings {
		item := ""
		if w.Item != "" {
			item = " (" + w.Item + ")"
		}
		_, _ = fmt.Fprintln(out, styles.WarningStyle.Render(fmt.Sprintf("%s%s: %s", w.Category, item, w.Message)))
	}
	for _, e := range report.Errors {
		msg := e.Message
		if e.Field != "" {
			msg = e.Field + ": " + msg
		}
		_, _ = fmt.Fprintln(out, styles.ErrorStyle.Render(msg))
	}

	if report.Valid {
		_, _ = fmt.Fprintln(out, styles.SuccessStyle.Render("Configuration is valid"))
		return nil
	}
	_, _ = fmt.Fprintln(out, styles.ErrorStyle.Render(fmt.Sprintf("%d error(s) found", len(report.Errors))))
	return cli.Exit("", 1)
}

// issues flattens a validation error into per-field issues.
func issues(err error) []ValidationIssue {
	if err == nil {
		return nil
	}
	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationIssue{{Message: err.Error()}}
	}
	out := make([]ValidationIssue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationIssue{Field: fe.Field, Message: fe.Err.Error()})
	}
	return out
}
