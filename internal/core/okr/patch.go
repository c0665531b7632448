package okr

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// ObjectivePatch carries a partial objective update. Nil fields are left
// unchanged.
type ObjectivePatch struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	OwnerID     *string            `json:"ownerId,omitempty"`
	Category    *ObjectiveCategory `json:"category,omitempty"`
	ParentID    *string            `json:"parentId,omitempty"`
	IsArchived  *bool              `json:"isArchived,omitempty"`
	Color       *string            `json:"color,omitempty"`
	EndDate     *time.Time         `json:"endDate,omitempty"`
	IsDefault   *bool              `json:"isDefault,omitempty"`
	Quarter     *string            `json:"quarter,omitempty"`
	StrategyID  *string            `json:"strategyId,omitempty"`
}

// Apply copies the set fields onto o.
func (p ObjectivePatch) Apply(o *Objective) {
	setIf(&o.Title, p.Title)
	setIf(&o.Description, p.Description)
	setIf(&o.OwnerID, p.OwnerID)
	setIf(&o.Category, p.Category)
	setIf(&o.ParentID, p.ParentID)
	setIf(&o.IsArchived, p.IsArchived)
	setIf(&o.Color, p.Color)
	setIf(&o.IsDefault, p.IsDefault)
	setIf(&o.Quarter, p.Quarter)
	setIf(&o.StrategyID, p.StrategyID)
	if p.EndDate != nil {
		t := *p.EndDate
		o.EndDate = &t
	}
}

// KeyResultPatch carries a partial key result update. Category is not
// patchable; it is fixed when the key result is created.
type KeyResultPatch struct {
	Title           *string        `json:"title,omitempty"`
	OwnerID         *string        `json:"ownerId,omitempty"`
	Type            *MetricType    `json:"type,omitempty"`
	Unit            *string        `json:"unit,omitempty"`
	TargetDirection *Direction     `json:"targetDirection,omitempty"`
	StartValue      *float64       `json:"startValue,omitempty"`
	TargetValue     *float64       `json:"targetValue,omitempty"`
	ReportFrequency *Frequency     `json:"reportFrequency,omitempty"`
	StartDate       *time.Time     `json:"startDate,omitempty"`
	EndDate         *time.Time     `json:"endDate,omitempty"`
	DailyTarget     *DailyTarget   `json:"dailyTarget,omitempty"`
	WeeklyTargets   []float64      `json:"weeklyTargets,omitempty"`
	Status          *Status        `json:"status,omitempty"`
	IsArchived      *bool          `json:"isArchived,omitempty"`
	StretchLevels   []StretchLevel `json:"stretchLevels,omitempty"`
	BinaryLabels    *BinaryLabels  `json:"binaryLabels,omitempty"`
}

// Apply copies the set fields onto kr. When the report frequency changes,
// the target branch of the previous frequency is cleared so only one of
// DailyTarget and WeeklyTargets is ever active.
func (p KeyResultPatch) Apply(kr *KeyResult) {
	setIf(&kr.Title, p.Title)
	setIf(&kr.OwnerID, p.OwnerID)
	setIf(&kr.Type, p.Type)
	setIf(&kr.Unit, p.Unit)
	setIf(&kr.TargetDirection, p.TargetDirection)
	setIf(&kr.StartValue, p.StartValue)
	setIf(&kr.Status, p.Status)
	setIf(&kr.IsArchived, p.IsArchived)

	if p.TargetValue != nil {
		v := *p.TargetValue
		kr.TargetValue = &v
	}
	if p.StartDate != nil {
		t := *p.StartDate
		kr.StartDate = &t
	}
	if p.EndDate != nil {
		t := *p.EndDate
		kr.EndDate = &t
	}
	if p.DailyTarget != nil {
		dt := *p.DailyTarget
		kr.DailyTarget = &dt
	}
	if p.WeeklyTargets != nil {
		kr.WeeklyTargets = slices.Clone(p.WeeklyTargets)
	}
	if p.StretchLevels != nil {
		kr.StretchLevels = slices.Clone(p.StretchLevels)
	}
	if p.BinaryLabels != nil {
		bl := *p.BinaryLabels
		kr.BinaryLabels = &bl
	}

	if p.ReportFrequency != nil && *p.ReportFrequency != kr.ReportFrequency {
		SwitchFrequency(kr, *p.ReportFrequency)
	}
}

// SwitchFrequency sets the report frequency and clears the targets that
// belong to the other cadence.
func SwitchFrequency(kr *KeyResult, f Frequency) {
	kr.ReportFrequency = f
	if f.IsWeekly() {
		kr.DailyTarget = nil
		return
	}
	kr.WeeklyTargets = nil
}

// AddWeek appends one more weekly target, copying the last one.
func AddWeek(targets []float64) []float64 {
	next := 0.0
	if len(targets) > 0 {
		next = targets[len(targets)-1]
	}
	return append(slices.Clone(targets), next)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Validate checks the fields a key result must carry.
func (kr KeyResult) Validate() error {
	if strings.TrimSpace(kr.Title) == "" {
		return fmt.Errorf("%w: key result title is required", ErrInvalid)
	}
	if !kr.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalid, kr.Category)
	}
	switch kr.TargetDirection {
	case "", DirectionIncreasing, DirectionDecreasing:
	default:
		return fmt.Errorf("%w: unknown target direction %q", ErrInvalid, kr.TargetDirection)
	}
	switch kr.ReportFrequency {
	case "", FrequencyDaily, FrequencyWeekly:
	default:
		return fmt.Errorf("%w: unknown report frequency %q", ErrInvalid, kr.ReportFrequency)
	}
	if !kr.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, kr.Status)
	}
	if kr.StartDate != nil && kr.EndDate != nil && kr.EndDate.Before(*kr.StartDate) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalid)
	}
	if err := kr.validateNumbers(); err != nil {
		return err
	}
	for i, t := range kr.WeeklyTargets {
		if t < 0 {
			return fmt.Errorf("%w: weekly target %d is negative", ErrInvalid, i+1)
		}
	}
	return nil
}

func (kr KeyResult) validateNumbers() error {
	fields := map[string]float64{
		"start value":   kr.StartValue,
		"current value": kr.CurrentValue,
	}
	if kr.TargetValue != nil {
		fields["target value"] = *kr.TargetValue
	}
	if kr.DailyTarget != nil {
		fields["daily target"] = kr.DailyTarget.Target
		fields["daily current"] = kr.DailyTarget.Current
	}
	for i, t := range kr.WeeklyTargets {
		fields[fmt.Sprintf("weekly target %d", i+1)] = t
	}
	for _, l := range kr.StretchLevels {
		fields["stretch level "+l.Label] = l.Value
	}
	for name, v := range fields {
		if !finite(v) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalid, name)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks the fields an objective must carry.
func (o Objective) Validate() error {
	if strings.TrimSpace(o.Title) == "" {
		return fmt.Errorf("%w: objective title is required", ErrInvalid)
	}
	if !o.Category.IsValid() {
		return fmt.Errorf("%w: unknown objective category %q", ErrInvalid, o.Category)
	}
	if o.ParentID != "" && o.ParentID == o.ID {
		return fmt.Errorf("%w: objective cannot be its own parent", ErrInvalid)
	}
	return nil
}

// Clone returns a deep copy of kr.
func (kr KeyResult) Clone() KeyResult {
	out := kr
	if kr.TargetValue != nil {
		v := *kr.TargetValue
		out.TargetValue = &v
	}
	if kr.StartDate != nil {
		t := *kr.StartDate
		out.StartDate = &t
	}
	if kr.EndDate != nil {
		t := *kr.EndDate
		out.EndDate = &t
	}
	if kr.DailyTarget != nil {
		dt := *kr.DailyTarget
		out.DailyTarget = &dt
	}
	if kr.BinaryLabels != nil {
		bl := *kr.BinaryLabels
		out.BinaryLabels = &bl
	}
	if kr.CheckIns != nil {
		out.CheckIns = make([]CheckIn, len(kr.CheckIns))
		for i, c := range kr.CheckIns {
			c.ChallengeTagIDs = slices.Clone(c.ChallengeTagIDs)
			out.CheckIns[i] = c
		}
	}
	out.Comments = slices.Clone(kr.Comments)
	out.WeeklyTargets = slices.Clone(kr.WeeklyTargets)
	out.StretchLevels = slices.Clone(kr.StretchLevels)
	out.AssignedTaskIDs = slices.Clone(kr.AssignedTaskIDs)
	out.AssignedFormIDs = slices.Clone(kr.AssignedFormIDs)
	out.LinkedDocumentIDs = slices.Clone(kr.LinkedDocumentIDs)
	return out
}

// Clone returns a deep copy of o including its key results.
func (o Objective) Clone() Objective {
	out := o
	if o.EndDate != nil {
		t := *o.EndDate
		out.EndDate = &t
	}
	if o.KeyResults != nil {
		out.KeyResults = make([]KeyResult, len(o.KeyResults))
		for i, kr := range o.KeyResults {
			out.KeyResults[i] = kr.Clone()
		}
	}
	return out
}
