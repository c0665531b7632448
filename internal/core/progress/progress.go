// Package progress turns key results and objectives into completion
// percentages in [0, 100].
//
// All functions are pure: they read the value they are given and never
// return NaN or an infinity.
package progress

import (
	"math"

	"github.com/colonyops/okr/internal/core/okr"
)

const (
	// Complete is the percentage of a finished key result.
	Complete = 100.0
	// None is the percentage of a key result with no progress.
	None = 0.0
)

// KeyResult returns the completion percentage of kr. Archived key results
// always report 0.
func KeyResult(kr okr.KeyResult) float64 {
	if kr.IsArchived {
		return None
	}

	switch m := kr.Measure().(type) {
	case okr.RangeMeasure:
		return rangeProgress(m)
	case okr.BinaryMeasure:
		if m.Done() {
			return Complete
		}
		return None
	default:
		// Assignment and unknown categories carry no numeric progress.
		return None
	}
}

// Objective returns the unweighted mean of KeyResult over the objective's
// non-archived key results, or 0 when there are none.
func Objective(o okr.Objective) float64 {
	ps := make([]float64, 0, len(o.KeyResults))
	for _, kr := range o.KeyResults {
		if kr.IsArchived {
			continue
		}
		ps = append(ps, KeyResult(kr))
	}
	return Mean(ps)
}

// Mean averages key result percentages, returning 0 for an empty slice.
func Mean(ps []float64) float64 {
	if len(ps) == 0 {
		return None
	}

	var sum float64
	for _, p := range ps {
		sum += p
	}
	return sanitize(sum / float64(len(ps)))
}

func rangeProgress(m okr.RangeMeasure) float64 {
	start, target, current := m.Start, m.Target, m.Current

	if target == start {
		return reached(current >= target)
	}

	var done, total float64
	if m.Direction == okr.DirectionDecreasing {
		total = start - target
		if total <= 0 {
			return reached(current <= target)
		}
		done = start - current
	} else {
		total = target - start
		if total <= 0 {
			return reached(current >= target)
		}
		done = current - start
	}

	return sanitize(done / total * 100)
}

func reached(ok bool) float64 {
	if ok {
		return Complete
	}
	return None
}

// sanitize clamps p into [0, 100] and maps NaN to 0.
func sanitize(p float64) float64 {
	if math.IsNaN(p) {
		return None
	}
	return math.Max(None, math.Min(Complete, p))
}

// ReachedStretchLevel returns the furthest stretch level the key result's
// current value has reached in its target direction. ok is false for
// non-stretch key results or when no level has been reached.
func ReachedStretchLevel(kr okr.KeyResult) (level okr.StretchLevel, ok bool) {
	m, isRange := kr.Measure().(okr.RangeMeasure)
	if !isRange || !m.Stretch {
		return okr.StretchLevel{}, false
	}

	decreasing := m.Direction == okr.DirectionDecreasing
	for _, l := range m.Levels {
		hit := m.Current >= l.Value
		if decreasing {
			hit = m.Current <= l.Value
		}
		if !hit {
			continue
		}

		further := l.Value > level.Value
		if decreasing {
			further = l.Value < level.Value
		}
		if !ok || further {
			level, ok = l, true
		}
	}
	return level, ok
}
