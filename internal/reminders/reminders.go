// Package reminders flags reporting periods that closed without a report
// or below target.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/okr/internal/core/eventbus"
	"github.com/colonyops/okr/internal/core/kv"
	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/core/tracker"
	"github.com/colonyops/okr/internal/service"
)

const lastRunKey = "last-run"

// Job checks the periods that closed on the previous UTC day and publishes
// a period.missed event for each one with no report or below target.
type Job struct {
	objectives *service.ObjectiveService
	progress   *service.ProgressService
	bus        *eventbus.EventBus
	state      *kv.Bucket[string]
	log        zerolog.Logger
}

// NewJob creates a Job. store may be nil, in which case a day can be
// checked more than once.
func NewJob(objectives *service.ObjectiveService, progress *service.ProgressService, bus *eventbus.EventBus, store kv.KV, log zerolog.Logger) *Job {
	j := &Job{
		objectives: objectives,
		progress:   progress,
		bus:        bus,
		log:        log.With().Str("component", "reminders").Logger(),
	}
	if store != nil {
		j.state = kv.Open[string](store, kv.BucketReminders)
	}
	return j
}

// Run checks the day before now and returns the missed periods it
// published. A day that was already checked is skipped.
func (j *Job) Run(ctx context.Context, now time.Time) ([]eventbus.PeriodMissedPayload, error) {
	now = now.UTC()
	day := now.AddDate(0, 0, -1).Format(time.DateOnly)

	if j.state != nil {
		last, ok, err := j.state.Lookup(ctx, lastRunKey)
		if err != nil {
			return nil, fmt.Errorf("read last run: %w", err)
		}
		if ok && last == day {
			j.log.Debug().Str("day", day).Msg("already checked")
			return nil, nil
		}
	}

	missed, err := j.Check(now)
	if err != nil {
		return nil, err
	}
	for _, m := range missed {
		j.bus.PublishPeriodMissed(m)
	}

	if j.state != nil {
		if err := j.state.Put(ctx, lastRunKey, day, 0); err != nil {
			return missed, fmt.Errorf("record last run: %w", err)
		}
	}

	j.log.Info().Str("day", day).Int("missed", len(missed)).Msg("reminder check finished")
	return missed, nil
}

// Check returns the missed periods that closed on the day before now
// without publishing anything. Archived objectives and key results, and
// assignment key results, are skipped.
func (j *Job) Check(now time.Time) ([]eventbus.PeriodMissedPayload, error) {
	now = now.UTC()
	yesterday := now.AddDate(0, 0, -1)

	objectives, err := j.objectives.ListObjectives(service.ObjectiveFilter{})
	if err != nil {
		return nil, err
	}

	var missed []eventbus.PeriodMissedPayload
	for _, o := range objectives {
		for _, kr := range o.KeyResults {
			if kr.IsArchived || kr.Category == okr.CategoryAssignment {
				continue
			}

			periods, err := j.progress.AllPeriods(kr.ID, now)
			if err != nil {
				return nil, err
			}

			p, ok := closedOn(kr, periods, yesterday, now)
			if !ok {
				continue
			}
			if p.Classification != tracker.NoReport && p.Classification != tracker.Below {
				continue
			}

			owner := kr.OwnerID
			if owner == "" {
				owner = o.OwnerID
			}
			missed = append(missed, eventbus.PeriodMissedPayload{
				ObjectiveID:    o.ID,
				KeyResultID:    kr.ID,
				KeyResultTitle: kr.Title,
				OwnerID:        owner,
				Period:         p,
			})
		}
	}
	return missed, nil
}

// closedOn finds the period whose last day is day. A weekly period cut
// short by the window end closes on the window end.
func closedOn(kr okr.KeyResult, periods []tracker.PeriodStatus, day, now time.Time) (tracker.PeriodStatus, bool) {
	_, end := tracker.Window(kr, now)

	span := 0
	if kr.ReportFrequency.IsWeekly() {
		span = 6
	}

	for _, p := range periods {
		last := p.Start.AddDate(0, 0, span)
		if tracker.DayDiff(last, end) > 0 {
			last = end
		}
		if tracker.DayDiff(last, day) == 0 {
			return p, true
		}
	}
	return tracker.PeriodStatus{}, false
}
