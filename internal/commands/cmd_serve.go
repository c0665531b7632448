package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/colonyops/okr/internal/core/config"
	"github.com/colonyops/okr/internal/core/eventbus"
	"github.com/colonyops/okr/internal/core/logging"
	"github.com/colonyops/okr/internal/data/stores"
	"github.com/colonyops/okr/internal/metrics"
	"github.com/colonyops/okr/internal/realtime"
	"github.com/colonyops/okr/internal/reminders"
	"github.com/colonyops/okr/internal/service"
	"github.com/colonyops/okr/pkg/profiler"
)

type ServeCmd struct {
	flags *Flags
	app   *service.App

	addr      string
	pprofPort int
	noMetrics bool
}

// NewServeCmd creates the serve command.
func NewServeCmd(flags *Flags, app *service.App) *ServeCmd {
	return &ServeCmd{flags: flags, app: app}
}

// Register adds the serve command to the application.
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Serve the HTTP API and realtime websocket",
		UsageText: "okr serve [--addr host:port] [--pprof-port <port>]",
		Description: `Serves the JSON API under /api, the realtime websocket at /ws and Prometheus
metrics at /metrics.

Every change made through the API, the websocket or another okr process is
pushed to all connected clients. When sync.nats_url is set, events are also
published on NATS under <sync.subject_prefix>.<event>.

The reminder job runs on reminders.schedule when reminders.enabled is true.
With server.watch_config the config file is reloaded when it changes.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address, overrides server.addr", Destination: &cmd.addr},
			&cli.IntFlag{Name: "pprof-port", Usage: "serve pprof on 127.0.0.1:<port>, 0 to disable", Sources: cli.EnvVars("OKR_PPROF_PORT"), Destination: &cmd.pprofPort},
			&cli.BoolFlag{Name: "no-metrics", Usage: "disable the /metrics endpoint", Destination: &cmd.noMetrics},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := cmd.app.Config
	log := logging.Component("serve")

	addr := cfg.Server.Addr
	if cmd.addr != "" {
		addr = cmd.addr
	}

	opts := realtime.ServerOptions{
		Addr:            addr,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	if !cmd.noMetrics {
		m := metrics.Default()
		m.RegisterBus(cmd.app.Bus)
		cmd.app.Progress.WithObserver(m)
		cmd.trackInventory(m)
		opts.Metrics = m
		opts.Gatherer = prometheus.DefaultGatherer
	}

	if cfg.Sync.NATSURL != "" {
		nc, err := realtime.ConnectNATS(cfg.Sync.NATSURL, log)
		if err != nil {
			return err
		}
		defer nc.Close()
		realtime.NewBridge(nc, cfg.Sync.SubjectPrefix, log).Register(cmd.app.Bus)
	}

	if cmd.pprofPort > 0 {
		prof := profiler.New(cmd.pprofPort, log)
		if err := prof.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = prof.Shutdown(shutdownCtx)
		}()
	}

	server := realtime.NewServer(cmd.app, opts, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cmd.app.Bus.Start(ctx)
		return nil
	})
	g.Go(func() error {
		return server.Run(ctx)
	})

	if store, ok := cmd.app.KV.(*stores.KVStore); ok {
		g.Go(func() error {
			store.RunSweeper(ctx, 5*time.Minute, log)
			return nil
		})
	}

	if cfg.Reminders.Enabled {
		job := reminders.NewJob(cmd.app.Objectives, cmd.app.Progress, cmd.app.Bus, cmd.app.KV, log)
		sched, err := reminders.NewScheduler(cfg.Reminders.Schedule, job, time.Now, log)
		if err != nil {
			return err
		}
		g.Go(func() error { return sched.Run(ctx) })
	}

	if cfg.Server.WatchConfig && cmd.flags.ConfigPath != "" {
		watcher, err := config.NewWatcher(cmd.flags.ConfigPath, cmd.flags.DataDir, func(next *config.Config, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("config reload failed, keeping previous config")
				return
			}
			cmd.app.Bus.PublishConfigReloaded(eventbus.ConfigReloadedPayload{Config: next})
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return watcher.Run(ctx) })
	}

	g.Go(func() error {
		a, err := server.Addr(ctx)
		if err != nil {
			return nil
		}
		_, _ = fmt.Fprintf(c.Root().Writer, "Serving on http://%s\n", a)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// trackInventory keeps the objective and key result gauges current.
func (cmd *ServeCmd) trackInventory(m *metrics.Metrics) {
	update := func() {
		objectives, err := cmd.app.Objectives.ListObjectives(service.ObjectiveFilter{IncludeArchived: true})
		if err != nil {
			return
		}
		krs := 0
		for _, o := range objectives {
			krs += len(o.KeyResults)
		}
		m.SetInventory(len(objectives), krs)
	}
	update()

	cmd.app.Bus.SubscribeObjectiveCreated(func(eventbus.ObjectiveCreatedPayload) { update() })
	cmd.app.Bus.SubscribeObjectiveDeleted(func(eventbus.ObjectiveDeletedPayload) { update() })
	cmd.app.Bus.SubscribeKeyResultCreated(func(eventbus.KeyResultCreatedPayload) { update() })
	cmd.app.Bus.SubscribeKeyResultDeleted(func(eventbus.KeyResultDeletedPayload) { update() })
}
