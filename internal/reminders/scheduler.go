package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/colonyops/okr/internal/core/config"
)

// Scheduler runs a Job on a cron schedule in UTC.
type Scheduler struct {
	cron  *cron.Cron
	entry cron.EntryID
	log   zerolog.Logger
}

// NewScheduler schedules job with a six-field cron expression.
func NewScheduler(schedule string, job *Job, now func() time.Time, log zerolog.Logger) (*Scheduler, error) {
	log = log.With().Str("component", "reminders").Logger()
	cl := cronLogger{log: log}

	c := cron.New(
		cron.WithParser(config.ScheduleParser),
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	entry, err := c.AddFunc(schedule, func() {
		if _, err := job.Run(context.Background(), now()); err != nil {
			log.Error().Err(err).Msg("reminder check failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reminders %q: %w", schedule, err)
	}

	return &Scheduler{cron: c, entry: entry, log: log}, nil
}

// Next returns the next scheduled run, or the zero time before Run starts.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Run starts the scheduler and blocks until ctx is cancelled and any
// running check has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.log.Info().Time("next", s.Next()).Msg("reminder scheduler started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("reminder scheduler stopped")
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
