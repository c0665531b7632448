package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/okr/internal/core/config"
	"github.com/colonyops/okr/internal/core/eventbus"
	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/core/tracker"
	"github.com/colonyops/okr/internal/data/db"
	"github.com/colonyops/okr/internal/service"
)

var day0 = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func at(days int) time.Time { return day0.AddDate(0, 0, days).Add(10 * time.Hour) }

func newTestApp(t *testing.T) *service.App {
	t.Helper()
	dir := t.TempDir()
	database, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	app, err := service.NewApp(context.Background(), &cfg, database, eventbus.New(128), zerolog.Nop())
	require.NoError(t, err)
	return app
}

func newJob(app *service.App, withState bool) *Job {
	var store = app.KV
	if !withState {
		store = nil
	}
	return NewJob(app.Objectives, app.Progress, app.Bus, store, zerolog.Nop())
}

func seed(t *testing.T, app *service.App, krs ...okr.KeyResult) okr.Objective {
	t.Helper()
	o, err := app.Objectives.CreateObjective(context.Background(), okr.Objective{
		Title:      "Grow revenue",
		OwnerID:    "u-owner",
		KeyResults: krs,
	})
	require.NoError(t, err)
	return o
}

func daily(title string) okr.KeyResult {
	return okr.KeyResult{
		Title:           title,
		Category:        okr.CategoryStandard,
		TargetValue:     ptr(100.0),
		ReportFrequency: okr.FrequencyDaily,
		StartDate:       ptr(day0),
		DailyTarget:     &okr.DailyTarget{Target: 1},
	}
}

func checkIn(t *testing.T, app *service.App, krID string, day int, value float64) {
	t.Helper()
	_, _, err := app.Objectives.CheckIn(context.Background(), krID, okr.CheckIn{Date: at(day), Value: value})
	require.NoError(t, err)
}

func TestJob_Check_Daily(t *testing.T) {
	app := newTestApp(t)
	o := seed(t, app, daily("Close deals"))
	kr := o.KeyResults[0]
	job := newJob(app, false)

	checkIn(t, app, kr.ID, 0, 1)   // met
	checkIn(t, app, kr.ID, 2, 1.5) // below: +0.5 against a target of 1

	tests := []struct {
		name string
		now  time.Time
		want tracker.Classification
	}{
		{name: "met day is not reported", now: at(1)},
		{name: "no report", now: at(2), want: tracker.NoReport},
		{name: "below target", now: at(3), want: tracker.Below},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missed, err := job.Check(tt.now)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Empty(t, missed)
				return
			}
			require.Len(t, missed, 1)
			assert.Equal(t, tt.want, missed[0].Period.Classification)
			assert.Equal(t, kr.ID, missed[0].KeyResultID)
			assert.Equal(t, o.ID, missed[0].ObjectiveID)
			assert.Equal(t, "u-owner", missed[0].OwnerID, "falls back to the objective owner")
			assert.Equal(t, 0, tracker.DayDiff(missed[0].Period.Start, tt.now.AddDate(0, 0, -1)))
		})
	}
}

func TestJob_Check_WeeklyClosesOnLastDay(t *testing.T) {
	app := newTestApp(t)
	seed(t, app, okr.KeyResult{
		Title:           "Publish posts",
		Category:        okr.CategoryStandard,
		TargetValue:     ptr(20.0),
		ReportFrequency: okr.FrequencyWeekly,
		StartDate:       ptr(day0),
		WeeklyTargets:   []float64{5, 5},
	})
	job := newJob(app, false)

	missed, err := job.Check(at(3))
	require.NoError(t, err)
	assert.Empty(t, missed, "the first week is still open")

	missed, err = job.Check(at(7))
	require.NoError(t, err)
	require.Len(t, missed, 1)
	assert.Equal(t, tracker.NoReport, missed[0].Period.Classification)
	assert.Equal(t, 0, missed[0].Period.Index)
}

func TestJob_Check_Skips(t *testing.T) {
	app := newTestApp(t)
	archived := daily("Old metric")
	archived.IsArchived = true
	seed(t, app,
		archived,
		okr.KeyResult{Title: "Tasks", Category: okr.CategoryAssignment, StartDate: ptr(day0)},
	)

	gone := seed(t, app, daily("Archived objective"))
	_, err := app.Objectives.SetObjectiveArchived(context.Background(), gone.ID, true)
	require.NoError(t, err)

	missed, err := newJob(app, false).Check(at(2))
	require.NoError(t, err)
	assert.Empty(t, missed)
}

func TestJob_Run_PublishesOncePerDay(t *testing.T) {
	app := newTestApp(t)
	seed(t, app, daily("Close deals"))
	job := newJob(app, true)
	ctx := context.Background()

	var published []eventbus.PeriodMissedPayload
	app.Bus.SubscribePeriodMissed(func(p eventbus.PeriodMissedPayload) {
		published = append(published, p)
	})

	missed, err := job.Run(ctx, at(2))
	require.NoError(t, err)
	require.Len(t, missed, 1)

	again, err := job.Run(ctx, at(2).Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, again, "same day is not checked twice")

	app.Bus.Drain()
	require.Len(t, published, 1)

	// The router turns the event into a stored warning.
	list, err := app.Notifications.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Message, "no report")

	next, err := job.Run(ctx, at(3))
	require.NoError(t, err)
	assert.Len(t, next, 1)
}

func TestNewScheduler(t *testing.T) {
	app := newTestApp(t)
	job := newJob(app, false)

	_, err := NewScheduler("not a schedule", job, time.Now, zerolog.Nop())
	require.Error(t, err)

	s, err := NewScheduler("0 5 0 * * *", job, time.Now, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return !s.Next().IsZero() }, time.Second, 10*time.Millisecond)
	next := s.Next()
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 5, next.Minute())

	cancel()
	require.NoError(t, <-done)
}
