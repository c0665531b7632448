package okr

import (
	"cmp"
	"fmt"
	"slices"
)

// ConflictPolicy decides which check-in sets a key result's current value
// when check-ins arrive out of date order.
type ConflictPolicy string

const (
	// PolicyLastApplied lets the most recently applied check-in win,
	// whatever its date.
	PolicyLastApplied ConflictPolicy = "last_applied"
	// PolicyLatestDate only moves the current value when the incoming
	// check-in is dated at or after every check-in already recorded.
	PolicyLatestDate ConflictPolicy = "latest_date"
)

// IsValid reports whether p is a known policy.
func (p ConflictPolicy) IsValid() bool {
	switch p {
	case PolicyLastApplied, PolicyLatestDate:
		return true
	default:
		return false
	}
}

// ApplyCheckIn appends c to the history of kr and, if p allows it, copies
// the check-in's value and status onto the key result. The history is
// append-only under every policy. Reports whether the current value was
// taken from c.
func ApplyCheckIn(kr *KeyResult, c CheckIn, p ConflictPolicy) bool {
	adopt := true
	if p == PolicyLatestDate {
		for _, existing := range kr.CheckIns {
			if existing.Date.After(c.Date) {
				adopt = false
				break
			}
		}
	}

	kr.CheckIns = append(kr.CheckIns, c)
	if !adopt {
		return false
	}

	kr.CurrentValue = c.Value
	if c.Status != "" {
		kr.Status = c.Status
	}
	return true
}

// SortCheckIns returns a copy of checkIns in ascending date order. Ties are
// broken by ID and then value so the result does not depend on input order.
func SortCheckIns(checkIns []CheckIn) []CheckIn {
	out := slices.Clone(checkIns)
	slices.SortStableFunc(out, func(a, b CheckIn) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ID, b.ID); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return out
}

// Validate checks the fields a check-in must carry.
func (c CheckIn) Validate() error {
	if c.Date.IsZero() {
		return fmt.Errorf("%w: check-in date is required", ErrInvalid)
	}
	if !finite(c.Value) {
		return fmt.Errorf("%w: check-in value must be a finite number", ErrInvalid)
	}
	if c.Rating < 0 || c.Rating > 5 {
		return fmt.Errorf("%w: rating must be 0 (unset) or 1-5", ErrInvalid)
	}
	if c.ChallengeDifficulty < 0 || c.ChallengeDifficulty > 5 {
		return fmt.Errorf("%w: challenge difficulty must be 0 (unset) or 1-5", ErrInvalid)
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, c.Status)
	}
	return nil
}
