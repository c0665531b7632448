package tracker

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/okr/internal/core/okr"
)

func ptr[T any](v T) *T { return &v }

func date(m time.Month, d, h, min int) time.Time {
	return time.Date(2025, m, d, h, min, 0, 0, time.UTC)
}

func dailyKR(start, end time.Time, target float64, checkIns ...okr.CheckIn) okr.KeyResult {
	return okr.KeyResult{
		ID:              "kr",
		Category:        okr.CategoryStandard,
		ReportFrequency: okr.FrequencyDaily,
		StartDate:       ptr(start),
		EndDate:         ptr(end),
		DailyTarget:     &okr.DailyTarget{Target: target},
		CheckIns:        checkIns,
	}
}

func classes(periods []PeriodStatus) []Classification {
	out := make([]Classification, len(periods))
	for i, p := range periods {
		out[i] = p.Classification
	}
	return out
}

func TestDayDiff(t *testing.T) {
	assert.Equal(t, 1, DayDiff(date(3, 2, 0, 30), date(3, 1, 23, 59)))
	assert.Equal(t, 0, DayDiff(date(3, 1, 23, 59), date(3, 1, 0, 0)))
	assert.Equal(t, -2, DayDiff(date(3, 1, 0, 0), date(3, 3, 12, 0)))

	tehran := time.FixedZone("IRST", 3*3600+1800)
	// 01:00 local on March 2 is still March 1 in UTC.
	assert.Equal(t, 0, DayDiff(time.Date(2025, 3, 2, 1, 0, 0, 0, tehran), date(3, 1, 0, 0)))
}

func TestWindow_Defaults(t *testing.T) {
	now := date(3, 1, 10, 0)

	t.Run("daily", func(t *testing.T) {
		start, end := Window(okr.KeyResult{}, now)
		assert.True(t, start.Equal(now))
		assert.Equal(t, 89, DayDiff(end, start))
		assert.Len(t, BuildPeriods(okr.KeyResult{}, now), 90)
	})

	t.Run("weekly", func(t *testing.T) {
		kr := okr.KeyResult{ReportFrequency: okr.FrequencyWeekly}
		start, end := Window(kr, now)
		assert.Equal(t, 83, DayDiff(end, start))
		assert.Len(t, BuildPeriods(kr, now), 12)
	})

	t.Run("explicit end keeps default start", func(t *testing.T) {
		kr := okr.KeyResult{EndDate: ptr(date(3, 5, 0, 0))}
		periods := BuildPeriods(kr, now)
		require.Len(t, periods, 5)
		assert.Equal(t, NoReport, periods[0].Classification)
		assert.Equal(t, Future, periods[1].Classification)
	})
}

func TestPeriodCount(t *testing.T) {
	start := date(3, 1, 0, 0)
	assert.Equal(t, 10, PeriodCount(start, date(3, 10, 0, 0), false))
	assert.Equal(t, 2, PeriodCount(start, date(3, 10, 0, 0), true))
	assert.Equal(t, 1, PeriodCount(start, date(3, 7, 23, 0), true))
	assert.Equal(t, 1, PeriodCount(start, start, false))
	assert.Equal(t, 0, PeriodCount(start, date(2, 27, 0, 0), false))
	assert.Equal(t, 0, PeriodCount(start, date(2, 20, 0, 0), true))
}

func TestBuildPeriods_EmptyWindow(t *testing.T) {
	kr := dailyKR(date(3, 10, 0, 0), date(3, 1, 0, 0), 5)
	periods := BuildPeriods(kr, date(3, 20, 0, 0))
	assert.NotNil(t, periods)
	assert.Empty(t, periods)
}

func TestBuildPeriods_FutureIgnoresCheckIns(t *testing.T) {
	kr := dailyKR(date(3, 10, 0, 0), date(3, 12, 0, 0), 5,
		okr.CheckIn{ID: "c1", Date: date(3, 10, 8, 0), Value: 100},
	)
	periods := BuildPeriods(kr, date(3, 5, 0, 0))
	assert.Equal(t, []Classification{Future, Future, Future}, classes(periods))
	for _, p := range periods {
		assert.Nil(t, p.Actual)
		assert.Nil(t, p.Target)
	}
}

func TestBuildPeriods_NoReportBeforeNoTarget(t *testing.T) {
	now := date(3, 10, 0, 0)

	t.Run("no check-ins with zero target", func(t *testing.T) {
		kr := dailyKR(date(3, 1, 0, 0), date(3, 1, 0, 0), 0)
		assert.Equal(t, []Classification{NoReport}, classes(BuildPeriods(kr, now)))
	})

	t.Run("check-ins with zero target", func(t *testing.T) {
		kr := dailyKR(date(3, 1, 0, 0), date(3, 1, 0, 0), 0,
			okr.CheckIn{ID: "c1", Date: date(3, 1, 12, 0), Value: 3},
		)
		assert.Equal(t, []Classification{NoTarget}, classes(BuildPeriods(kr, now)))
	})

	t.Run("missing daily target counts as zero", func(t *testing.T) {
		kr := dailyKR(date(3, 1, 0, 0), date(3, 1, 0, 0), 0,
			okr.CheckIn{ID: "c1", Date: date(3, 1, 12, 0), Value: 3},
		)
		kr.DailyTarget = nil
		assert.Equal(t, []Classification{NoTarget}, classes(BuildPeriods(kr, now)))
	})
}

func TestBuildPeriods_Thresholds(t *testing.T) {
	tests := []struct {
		actual float64
		want   Classification
	}{
		{10, Met},
		{10.05, Met},
		{9.95, Met},
		{10.2, Exceeded},
		{11, Exceeded},
		{5, Below},
		{9.8, Below},
	}

	for _, tt := range tests {
		kr := dailyKR(date(3, 1, 0, 0), date(3, 1, 0, 0), 10,
			okr.CheckIn{ID: "c1", Date: date(3, 1, 12, 0), Value: tt.actual},
		)
		periods := BuildPeriods(kr, date(3, 2, 0, 0))
		require.Len(t, periods, 1)
		assert.Equal(t, tt.want, periods[0].Classification, "actual=%v", tt.actual)
		assert.Equal(t, tt.want, Classify(tt.actual, 10), "actual=%v", tt.actual)
	}
}

func TestClassify_NonPositiveTarget(t *testing.T) {
	assert.Equal(t, Below, Classify(5, -1))
	assert.Equal(t, Below, Classify(0, 0))
}

func TestBuildPeriods_DailyDeltas(t *testing.T) {
	kr := dailyKR(date(3, 1, 0, 0), date(3, 4, 0, 0), 10,
		okr.CheckIn{ID: "c4", Date: date(3, 4, 9, 0), Value: 30},
		okr.CheckIn{ID: "c1", Date: date(3, 1, 9, 0), Value: 10},
		okr.CheckIn{ID: "c2", Date: date(3, 2, 9, 0), Value: 25},
	)

	got := BuildPeriods(kr, date(3, 5, 0, 0))

	want := []PeriodStatus{
		{Index: 0, Start: date(3, 1, 0, 0), Classification: Met, Actual: ptr(10.0), Target: ptr(10.0)},
		{Index: 1, Start: date(3, 2, 0, 0), Classification: Exceeded, Actual: ptr(15.0), Target: ptr(10.0)},
		{Index: 2, Start: date(3, 3, 0, 0), Classification: NoReport},
		{Index: 3, Start: date(3, 4, 0, 0), Classification: Below, Actual: ptr(5.0), Target: ptr(10.0)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildPeriods() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPeriods_UsesLastCheckInOfPeriod(t *testing.T) {
	kr := dailyKR(date(3, 1, 0, 0), date(3, 1, 0, 0), 10,
		okr.CheckIn{ID: "late", Date: date(3, 1, 18, 0), Value: 4},
		okr.CheckIn{ID: "early", Date: date(3, 1, 8, 0), Value: 12},
	)
	kr.StartValue = 2

	periods := BuildPeriods(kr, date(3, 2, 0, 0))
	require.Len(t, periods, 1)
	require.NotNil(t, periods[0].Actual)
	assert.InDelta(t, 2.0, *periods[0].Actual, 1e-9)
	assert.Equal(t, Below, periods[0].Classification)
}

func TestBuildPeriods_DecreasingUsesAbsoluteDelta(t *testing.T) {
	kr := dailyKR(date(3, 1, 0, 0), date(3, 1, 0, 0), 10,
		okr.CheckIn{ID: "c1", Date: date(3, 1, 12, 0), Value: 90},
	)
	kr.StartValue = 100
	kr.TargetDirection = okr.DirectionDecreasing

	periods := BuildPeriods(kr, date(3, 2, 0, 0))
	require.Len(t, periods, 1)
	assert.Equal(t, Met, periods[0].Classification)
	assert.InDelta(t, 10.0, *periods[0].Actual, 1e-9)
}

func TestBuildPeriods_DailyStartWithTimeOfDay(t *testing.T) {
	// The window starts mid-afternoon; a morning check-in on the same UTC
	// day still belongs to the first period and is measured from StartValue.
	kr := dailyKR(date(3, 1, 15, 0), date(3, 2, 15, 0), 5,
		okr.CheckIn{ID: "c1", Date: date(3, 1, 9, 0), Value: 5},
	)

	t.Run("period not started yet", func(t *testing.T) {
		periods := BuildPeriods(kr, date(3, 1, 12, 0))
		assert.Equal(t, []Classification{Future, Future}, classes(periods))
	})

	t.Run("period started", func(t *testing.T) {
		periods := BuildPeriods(kr, date(3, 1, 16, 0))
		assert.Equal(t, []Classification{Met, Future}, classes(periods))
	})
}

func TestBuildPeriods_Weekly(t *testing.T) {
	kr := okr.KeyResult{
		ID:              "kr",
		Category:        okr.CategoryStandard,
		ReportFrequency: okr.FrequencyWeekly,
		StartDate:       ptr(date(3, 1, 0, 0)),
		EndDate:         ptr(date(3, 21, 0, 0)),
		WeeklyTargets:   []float64{5, 6},
		DailyTarget:     &okr.DailyTarget{Target: 1000},
		CheckIns: []okr.CheckIn{
			{ID: "a", Date: date(3, 3, 10, 0), Value: 3},
			{ID: "b", Date: time.Date(2025, 3, 7, 23, 59, 59, 999_000_000, time.UTC), Value: 6},
			{ID: "c", Date: date(3, 8, 0, 0), Value: 12},
			{ID: "d", Date: date(3, 16, 10, 0), Value: 15},
		},
	}

	got := BuildPeriods(kr, date(3, 30, 0, 0))

	want := []PeriodStatus{
		{Index: 0, Start: date(3, 1, 0, 0), Classification: Exceeded, Actual: ptr(6.0), Target: ptr(5.0)},
		{Index: 1, Start: date(3, 8, 0, 0), Classification: Met, Actual: ptr(6.0), Target: ptr(6.0)},
		{Index: 2, Start: date(3, 15, 0, 0), Classification: NoTarget, Target: ptr(0.0)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildPeriods() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPeriods_CheckInOrderIndependence(t *testing.T) {
	base := []okr.CheckIn{
		{ID: "a", Date: date(3, 1, 9, 0), Value: 3},
		{ID: "b", Date: date(3, 1, 9, 0), Value: 8},
		{ID: "c", Date: date(3, 2, 9, 0), Value: 8},
		{ID: "d", Date: date(3, 3, 9, 0), Value: 20},
		{ID: "e", Date: date(3, 3, 20, 0), Value: 14},
		{ID: "f", Date: date(3, 6, 9, 0), Value: 30},
		{ID: "g", Date: date(3, 9, 9, 0), Value: 31},
	}
	kr := dailyKR(date(3, 1, 0, 0), date(3, 10, 0, 0), 5, base...)
	now := date(3, 8, 12, 0)
	want := BuildPeriods(kr, now)

	weekly := kr
	weekly.ReportFrequency = okr.FrequencyWeekly
	weekly.WeeklyTargets = []float64{10, 10}
	wantWeekly := BuildPeriods(weekly, now)

	r := rand.New(rand.NewPCG(7, 11))
	for range 50 {
		shuffled := slices.Clone(base)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		kr.CheckIns = shuffled
		if diff := cmp.Diff(want, BuildPeriods(kr, now)); diff != "" {
			t.Fatalf("daily periods depend on check-in order (-want +got):\n%s", diff)
		}

		weekly.CheckIns = shuffled
		if diff := cmp.Diff(wantWeekly, BuildPeriods(weekly, now)); diff != "" {
			t.Fatalf("weekly periods depend on check-in order (-want +got):\n%s", diff)
		}
	}
}

func TestBuildPeriods_DoesNotMutateInput(t *testing.T) {
	checkIns := []okr.CheckIn{
		{ID: "b", Date: date(3, 2, 9, 0), Value: 2},
		{ID: "a", Date: date(3, 1, 9, 0), Value: 1},
	}
	kr := dailyKR(date(3, 1, 0, 0), date(3, 2, 0, 0), 1, checkIns...)
	BuildPeriods(kr, date(3, 5, 0, 0))
	assert.Equal(t, "b", kr.CheckIns[0].ID)
}

func TestParseDay(t *testing.T) {
	got, err := ParseDay("2025-03-07")
	require.NoError(t, err)
	assert.Equal(t, date(time.March, 7, 0, 0), got)

	got, err = ParseDay("2025-03-07T10:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, date(time.March, 7, 8, 30), got)

	_, err = ParseDay("07/03/2025")
	assert.ErrorIs(t, err, okr.ErrInvalid)
}

func TestBuildPeriods_NonFiniteValues(t *testing.T) {
	inf := math.Inf(1)
	kr := dailyKR(date(3, 1, 0, 0), date(3, 3, 0, 0), 10,
		okr.CheckIn{ID: "c1", Date: date(3, 1, 9, 0), Value: inf},
		okr.CheckIn{ID: "c2", Date: date(3, 2, 9, 0), Value: inf},
	)

	periods := BuildPeriods(kr, date(3, 3, 12, 0))
	require.Len(t, periods, 3)
	assert.Equal(t, []Classification{Below, Below, NoReport}, classes(periods))
	for _, p := range periods[:2] {
		require.NotNil(t, p.Actual)
		assert.Zero(t, *p.Actual)
	}

	_, err := json.Marshal(periods)
	require.NoError(t, err)

	kr.DailyTarget.Target = math.NaN()
	periods = BuildPeriods(kr, date(3, 3, 12, 0))
	assert.Equal(t, NoTarget, periods[0].Classification)
	_, err = json.Marshal(periods)
	require.NoError(t, err)
}
