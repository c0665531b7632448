package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/okr/internal/commands"
	"github.com/colonyops/okr/internal/core/config"
	"github.com/colonyops/okr/internal/core/eventbus"
	"github.com/colonyops/okr/internal/core/logging"
	"github.com/colonyops/okr/internal/core/styles"
	"github.com/colonyops/okr/internal/data/db"
	"github.com/colonyops/okr/internal/data/stores"
	"github.com/colonyops/okr/internal/service"
	"github.com/colonyops/okr/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

// busSize is the event buffer. Short-lived commands drain it on exit.
const busSize = 1024

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func openDatabase(cfg *config.Config, recoverCorrupt bool) (*db.DB, error) {
	opts := db.OpenOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	}

	database, err := db.Open(cfg.DatabaseDir(), opts)
	if err == nil {
		return database, nil
	}
	if !stores.IsCorruptionError(err) {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if !recoverCorrupt {
		return nil, fmt.Errorf("open database: %w (rerun with --recover-db to move it aside)", err)
	}

	backup, recErr := stores.RecoverFromCorruption(cfg.DatabaseDir(), time.Now())
	if recErr != nil {
		return nil, fmt.Errorf("recover database: %w", recErr)
	}
	log.Warn().Str("backup", backup).Msg("corrupted database moved aside")

	database, err = db.Open(cfg.DatabaseDir(), opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return database, nil
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		okrApp    = &service.App{}
		database  *db.DB
		bus       *eventbus.EventBus
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "okr",
		Usage:     "Track objectives, key results and check-ins",
		UsageText: "okr [global options] command [command options]",
		Description: `okr tracks objectives and their key results, computes progress from
check-ins and classifies every reporting period against its target.

Run 'okr objective create' to add an objective, 'okr kr add' to give it key
results and 'okr checkin' to report progress. 'okr serve' exposes the same
data over HTTP and a realtime websocket.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("OKR_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/okr.log)",
				Sources:     cli.EnvVars("OKR_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("OKR_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.BoolFlag{
				Name:        "recover-db",
				Usage:       "move a corrupted database aside and start with an empty one",
				Sources:     cli.EnvVars("OKR_RECOVER_DB"),
				Destination: &flags.RecoverDB,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("OKR_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; use explicit path or default to <datadir>/okr.log
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "okr.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			logging.Install(logger)
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			// Apply configured theme (validation ensures name is valid)
			palette, _ := styles.GetPalette(cfg.Display.Theme)
			styles.SetTheme(palette)

			database, err = openDatabase(cfg, flags.RecoverDB)
			if err != nil {
				return ctx, err
			}

			bus = eventbus.New(busSize)
			eventbus.RegisterDebugLogger(bus, logging.Component("bus"))

			built, err := service.NewApp(ctx, cfg, database, bus, logging.Component("service"))
			if err != nil {
				return ctx, fmt.Errorf("load objectives: %w", err)
			}

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*okrApp = *built
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			// Deliver what short-lived commands published so notifications persist.
			if bus != nil {
				bus.Drain()
			}

			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewObjectiveCmd(flags, okrApp).Register(app)
	app = commands.NewKeyResultCmd(flags, okrApp).Register(app)
	app = commands.NewCheckInCmd(flags, okrApp).Register(app)
	app = commands.NewPeriodsCmd(flags, okrApp).Register(app)
	app = commands.NewTreeCmd(flags, okrApp).Register(app)
	app = commands.NewExportCmd(flags, okrApp).Register(app)
	app = commands.NewAICmd(flags, okrApp).Register(app)
	app = commands.NewRemindCmd(flags, okrApp).Register(app)
	app = commands.NewUserCmd(flags, okrApp).Register(app)
	app = commands.NewNotificationsCmd(flags, okrApp).Register(app)
	app = commands.NewServeCmd(flags, okrApp).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)
	app = commands.NewDBCmd(flags, okrApp).Register(app)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
