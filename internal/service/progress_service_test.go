package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/core/tracker"
)

type cacheCounter struct {
	mu           sync.Mutex
	hits, misses int
}

func (c *cacheCounter) ObserveProgressCache(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

func newProgressFixture(t *testing.T) (*fixture, *ProgressService, *cacheCounter) {
	t.Helper()
	f := newFixture(t)
	counter := &cacheCounter{}
	p, err := NewProgressService(f.svc.Arena(), 0)
	require.NoError(t, err)
	return f, p.WithObserver(counter), counter
}

func TestProgressService_CachesByVersion(t *testing.T) {
	f, p, counter := newProgressFixture(t)
	ctx := context.Background()
	_, kr := f.seed(t)

	got, err := p.KeyResultProgress(kr.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-9)

	_, err = p.KeyResultProgress(kr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counter.misses)
	assert.Equal(t, 1, counter.hits)

	// A check-in bumps the version, so the next read recomputes.
	_, _, err = f.svc.CheckIn(ctx, kr.ID, okr.CheckIn{Value: 4})
	require.NoError(t, err)

	got, err = p.KeyResultProgress(kr.ID)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, got, 1e-9)
	assert.Equal(t, 2, counter.misses)

	_, err = p.KeyResultProgress("missing")
	assert.ErrorIs(t, err, okr.ErrNotFound)
}

func TestProgressService_ObjectiveProgressSkipsArchived(t *testing.T) {
	f, p, _ := newProgressFixture(t)
	ctx := context.Background()
	o, kr := f.seed(t)

	_, _, err := f.svc.CheckIn(ctx, kr.ID, okr.CheckIn{Value: 10})
	require.NoError(t, err)

	binary, err := f.svc.CreateKeyResult(ctx, o.ID, okr.KeyResult{Title: "Launch", Category: okr.CategoryBinary})
	require.NoError(t, err)

	got, err := p.ObjectiveProgress(o.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, got, 1e-9)

	_, err = f.svc.SetKeyResultArchived(ctx, binary.ID, true)
	require.NoError(t, err)

	got, err = p.ObjectiveProgress(o.ID)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, got, 1e-9)

	_, err = p.ObjectiveProgress("missing")
	assert.ErrorIs(t, err, okr.ErrNotFound)
}

func TestProgressService_ObjectiveProgressUsesCache(t *testing.T) {
	f, p, counter := newProgressFixture(t)
	o, kr := f.seed(t)

	_, err := p.KeyResultProgress(kr.ID)
	require.NoError(t, err)
	require.Equal(t, 1, counter.misses)

	_, err = p.ObjectiveProgress(o.ID)
	require.NoError(t, err)
	_, err = p.ObjectiveProgress(o.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, counter.misses)
	assert.Equal(t, 2, counter.hits)
}

func TestProgressService_Overview(t *testing.T) {
	f, p, _ := newProgressFixture(t)
	ctx := context.Background()
	o, _ := f.seed(t)

	stretch, err := f.svc.CreateKeyResult(ctx, o.ID, okr.KeyResult{
		Title:           "Referrals",
		Category:        okr.CategoryStretch,
		TargetValue:     ptr(10.0),
		ReportFrequency: okr.FrequencyDaily,
		StartDate:       ptr(t0),
		StretchLevels:   []okr.StretchLevel{{Label: "half", Value: 5}, {Label: "full", Value: 10}},
	})
	require.NoError(t, err)
	_, _, err = f.svc.CheckIn(ctx, stretch.ID, okr.CheckIn{Date: t0, Value: 6})
	require.NoError(t, err)

	now := t0.AddDate(0, 0, 1)
	views, err := p.Overview(ObjectiveFilter{}, now)
	require.NoError(t, err)
	require.Len(t, views, 1)

	view := views[0]
	assert.Equal(t, o.ID, view.ID)
	assert.Nil(t, view.Objective.KeyResults)
	require.Len(t, view.KeyResults, 2)
	assert.InDelta(t, 30.0, view.Progress, 1e-9)

	krView := view.KeyResults[1]
	assert.InDelta(t, 60.0, krView.Progress, 1e-9)
	require.NotNil(t, krView.StretchLevel)
	assert.Equal(t, "half", krView.StretchLevel.Label)
	assert.Nil(t, view.KeyResults[0].StretchLevel)

	// The current period is the last elapsed day, which has no report yet.
	require.NotNil(t, krView.Current)
	assert.Equal(t, 1, krView.Current.Index)
	assert.Equal(t, tracker.NoReport, krView.Current.Classification)

	single, err := p.ObjectiveView(o.ID, now)
	require.NoError(t, err)
	assert.InDelta(t, view.Progress, single.Progress, 1e-9)

	_, err = p.Overview(ObjectiveFilter{Title: "[bad"}, now)
	assert.ErrorIs(t, err, okr.ErrInvalid)
}

func TestProgressService_Periods(t *testing.T) {
	f, p, _ := newProgressFixture(t)
	ctx := context.Background()
	_, kr := f.seed(t)

	// Day 0 meets the daily target of 1, day 1 exceeds it, day 2 has nothing.
	for _, c := range []okr.CheckIn{
		{Date: t0, Value: 1},
		{Date: t0.AddDate(0, 0, 1), Value: 3},
	} {
		_, _, err := f.svc.CheckIn(ctx, kr.ID, c)
		require.NoError(t, err)
	}

	now := t0.AddDate(0, 0, 2)
	page, err := p.Periods(kr.ID, now, 0)
	require.NoError(t, err)

	assert.Equal(t, okr.FrequencyDaily, page.Frequency)
	assert.Equal(t, tracker.DailyPageSize, page.PageSize)
	assert.Equal(t, 4, page.TotalPages, "90 days in pages of 28")
	assert.Equal(t, t0, page.WindowStart)
	assert.Equal(t, t0.AddDate(0, 0, 89), page.WindowEnd)
	require.Len(t, page.Periods, tracker.DailyPageSize)

	assert.Equal(t, tracker.Met, page.Periods[0].Classification)
	assert.Equal(t, tracker.Exceeded, page.Periods[1].Classification)
	assert.Equal(t, tracker.NoReport, page.Periods[2].Classification)
	assert.Equal(t, tracker.Future, page.Periods[3].Classification)

	assert.Equal(t, 90, page.Summary.Total)
	assert.Equal(t, 3, page.Summary.Elapsed())

	last, err := p.Periods(kr.ID, now, 99)
	require.NoError(t, err)
	assert.Equal(t, 3, last.Page)
	assert.Len(t, last.Periods, 90-3*tracker.DailyPageSize)

	all, err := p.AllPeriods(kr.ID, now)
	require.NoError(t, err)
	assert.Len(t, all, 90)

	_, err = p.Periods("missing", now, 0)
	assert.ErrorIs(t, err, okr.ErrNotFound)
}
