package okr

// Measure is the category-specific view of a key result. KeyResult.Measure
// returns exactly one of RangeMeasure, BinaryMeasure, AssignmentMeasure or
// UnknownMeasure, each carrying only what its progress rule reads.
type Measure interface {
	measure()
}

// RangeMeasure covers standard and stretch key results: a metric moving from
// Start toward Target.
type RangeMeasure struct {
	Start     float64
	Target    float64
	Current   float64
	Direction Direction
	Stretch   bool
	Levels    []StretchLevel
}

// BinaryMeasure is a done/not-done flag. Only a value of exactly 1 is done.
type BinaryMeasure struct {
	Value float64
}

// Done reports whether the flag is set.
func (m BinaryMeasure) Done() bool { return m.Value == 1 }

// AssignmentMeasure links a key result to external work items. It has no
// numeric progress of its own.
type AssignmentMeasure struct {
	TaskIDs     []string
	FormIDs     []string
	BoardID     string
	DocumentIDs []string
}

// UnknownMeasure is returned for categories this package does not know.
type UnknownMeasure struct {
	Category Category
}

func (RangeMeasure) measure()      {}
func (BinaryMeasure) measure()     {}
func (AssignmentMeasure) measure() {}
func (UnknownMeasure) measure()    {}

// Measure resolves the key result into its category-specific variant,
// applying the defaults for unset fields.
func (kr KeyResult) Measure() Measure {
	switch kr.Category {
	case CategoryStandard, CategoryStretch:
		return RangeMeasure{
			Start:     kr.StartValue,
			Target:    kr.Target(),
			Current:   kr.CurrentValue,
			Direction: kr.Direction(),
			Stretch:   kr.Category == CategoryStretch,
			Levels:    kr.StretchLevels,
		}
	case CategoryBinary:
		return BinaryMeasure{Value: kr.CurrentValue}
	case CategoryAssignment:
		return AssignmentMeasure{
			TaskIDs:     kr.AssignedTaskIDs,
			FormIDs:     kr.AssignedFormIDs,
			BoardID:     kr.LinkedBoardID,
			DocumentIDs: kr.LinkedDocumentIDs,
		}
	default:
		return UnknownMeasure{Category: kr.Category}
	}
}
