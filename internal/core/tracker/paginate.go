package tracker

import "github.com/colonyops/okr/internal/core/okr"

// PageSize returns the grid page size for a reporting frequency.
func PageSize(f okr.Frequency) int {
	if f.IsWeekly() {
		return WeeklyPageSize
	}
	return DailyPageSize
}

// Paginate returns periods[pageIndex*pageSize : min(len, (pageIndex+1)*pageSize)].
// Out-of-range pages yield an empty slice; clamping the index is up to the
// caller (see ClampPage).
func Paginate(periods []PeriodStatus, pageSize, pageIndex int) []PeriodStatus {
	if pageSize <= 0 || pageIndex < 0 {
		return []PeriodStatus{}
	}

	lo := pageIndex * pageSize
	if lo >= len(periods) {
		return []PeriodStatus{}
	}
	hi := min(len(periods), lo+pageSize)
	return periods[lo:hi:hi]
}

// TotalPages returns ceil(total / pageSize).
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// ClampPage limits page to [0, totalPages-1].
func ClampPage(page, totalPages int) int {
	if totalPages <= 0 || page < 0 {
		return 0
	}
	if page >= totalPages {
		return totalPages - 1
	}
	return page
}

// Summary counts periods per classification.
type Summary struct {
	Total  int                    `json:"total"`
	Counts map[Classification]int `json:"counts"`
}

// Summarize tallies a period sequence.
func Summarize(periods []PeriodStatus) Summary {
	s := Summary{Total: len(periods), Counts: make(map[Classification]int, 6)}
	for _, p := range periods {
		s.Counts[p.Classification]++
	}
	return s
}

// Elapsed is the number of periods that are not in the future.
func (s Summary) Elapsed() int {
	return s.Total - s.Counts[Future]
}

// HitRate is the share of elapsed, targeted periods that met or exceeded
// their target. Periods without a target are left out.
func (s Summary) HitRate() float64 {
	hit := s.Counts[Met] + s.Counts[Exceeded]
	scored := hit + s.Counts[Below] + s.Counts[NoReport]
	if scored == 0 {
		return 0
	}
	return float64(hit) / float64(scored)
}
