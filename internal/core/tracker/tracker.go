// Package tracker classifies each reporting period of a key result against
// its check-in history and per-period targets.
//
// Day arithmetic is done on UTC calendar dates. The current time is always
// passed in by the caller.
package tracker

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/colonyops/okr/internal/core/okr"
)

// Classification is the outcome of one reporting period.
type Classification string

const (
	Future   Classification = "FUTURE"
	NoReport Classification = "NO_REPORT"
	NoTarget Classification = "NO_TARGET"
	Below    Classification = "BELOW"
	Met      Classification = "MET"
	Exceeded Classification = "EXCEEDED"
)

const (
	// Epsilon is the absolute tolerance applied to the actual/target ratio.
	// It is not scaled by the target's magnitude. With it, 10.2 against a
	// target of 10 (ratio 1.02) is EXCEEDED, not MET.
	Epsilon = 0.01

	// DailyPageSize is four rows of seven days.
	DailyPageSize = 28
	// WeeklyPageSize is three rows of four weeks.
	WeeklyPageSize = 12

	defaultDailySpanDays  = 89 // 90 days inclusive
	defaultWeeklySpanDays = 83 // 12 weeks inclusive

	day = 24 * time.Hour
)

// PeriodStatus is the classification of one period. Target is set once a
// period has check-ins; Actual is set when a ratio was computed.
type PeriodStatus struct {
	Index          int            `json:"index"`
	Start          time.Time      `json:"periodStartDate"`
	Classification Classification `json:"classification"`
	Actual         *float64       `json:"actualProgress,omitempty"`
	Target         *float64       `json:"target,omitempty"`
}

// Window resolves the tracked window of kr. A missing start date defaults
// to now; a missing end date defaults to 90 days (daily) or 12 weeks
// (weekly) after the start, inclusive.
func Window(kr okr.KeyResult, now time.Time) (start, end time.Time) {
	start = now.UTC()
	if kr.StartDate != nil {
		start = kr.StartDate.UTC()
	}

	if kr.EndDate != nil {
		return start, kr.EndDate.UTC()
	}

	span := defaultDailySpanDays
	if kr.ReportFrequency.IsWeekly() {
		span = defaultWeeklySpanDays
	}
	return start, start.AddDate(0, 0, span)
}

// DayDiff returns the number of whole days from b to a, comparing UTC
// calendar dates and ignoring the time of day.
func DayDiff(a, b time.Time) int {
	return int(midnight(a).Sub(midnight(b)) / day)
}

// ParseDay parses a calendar date (2006-01-02) or an RFC 3339 timestamp
// into UTC.
func ParseDay(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD or RFC 3339", okr.ErrInvalid, s)
	}
	return t.UTC(), nil
}

// PeriodCount returns how many periods fit in [start, end]. A partial
// trailing week counts as a full period. Reversed windows have none.
func PeriodCount(start, end time.Time, weekly bool) int {
	days := DayDiff(end, start) + 1
	if days <= 0 {
		return 0
	}
	if weekly {
		return (days + 6) / 7
	}
	return days
}

// BuildPeriods classifies every period in the key result's window.
func BuildPeriods(kr okr.KeyResult, now time.Time) []PeriodStatus {
	now = now.UTC()
	weekly := kr.ReportFrequency.IsWeekly()
	start, end := Window(kr, now)

	total := PeriodCount(start, end, weekly)
	if total == 0 {
		return []PeriodStatus{}
	}

	checkIns := okr.SortCheckIns(kr.CheckIns)

	step := 1
	if weekly {
		step = 7
	}

	periods := make([]PeriodStatus, 0, total)
	for i := range total {
		periodStart := start.AddDate(0, 0, i*step)
		periods = append(periods, classifyPeriod(kr, checkIns, i, periodStart, weekly, now))
	}
	return periods
}

func classifyPeriod(kr okr.KeyResult, checkIns []okr.CheckIn, index int, periodStart time.Time, weekly bool, now time.Time) PeriodStatus {
	p := PeriodStatus{Index: index, Start: periodStart}

	if periodStart.After(now) {
		p.Classification = Future
		return p
	}

	lo, hi := bucket(periodStart, weekly)
	first := sort.Search(len(checkIns), func(i int) bool { return !checkIns[i].Date.Before(lo) })
	last := sort.Search(len(checkIns), func(i int) bool { return !checkIns[i].Date.Before(hi) })

	if first == last {
		p.Classification = NoReport
		return p
	}

	target := periodTarget(kr, index, weekly)
	p.Target = &target
	if target == 0 {
		p.Classification = NoTarget
		return p
	}

	atStart := kr.StartValue
	if first > 0 {
		atStart = checkIns[first-1].Value
	}
	atEnd := checkIns[last-1].Value

	actual := math.Abs(atEnd - atStart)
	if math.IsNaN(actual) || math.IsInf(actual, 0) {
		actual = 0
	}
	p.Actual = &actual
	p.Classification = Classify(actual, target)
	return p
}

// Classify compares an actual per-period delta against its target.
func Classify(actual, target float64) Classification {
	ratio := 0.0
	if target > 0 {
		ratio = actual / target
	}

	switch {
	case ratio > 1+Epsilon:
		return Exceeded
	case ratio >= 1-Epsilon:
		return Met
	default:
		return Below
	}
}

// bucket returns the half-open interval of check-in dates belonging to the
// period. Daily periods cover the UTC day of periodStart; weekly periods run
// from periodStart to the end of the UTC day six days later.
func bucket(periodStart time.Time, weekly bool) (lo, hi time.Time) {
	if weekly {
		return periodStart, midnight(periodStart).AddDate(0, 0, 7)
	}
	lo = midnight(periodStart)
	return lo, lo.Add(day)
}

// periodTarget resolves the target of a period. Non-finite targets count
// as unset.
func periodTarget(kr okr.KeyResult, index int, weekly bool) float64 {
	var t float64
	switch {
	case weekly && index < len(kr.WeeklyTargets):
		t = kr.WeeklyTargets[index]
	case !weekly && kr.DailyTarget != nil:
		t = kr.DailyTarget.Target
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0
	}
	return t
}

func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
