// Package okr defines the objective and key result domain model.
package okr

import (
	"time"
)

// Category selects the progress rule a key result is measured with.
type Category string

const (
	CategoryStandard   Category = "STANDARD"
	CategoryStretch    Category = "STRETCH"
	CategoryBinary     Category = "BINARY"
	CategoryAssignment Category = "ASSIGNMENT"
)

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryStandard, CategoryStretch, CategoryBinary, CategoryAssignment:
		return true
	default:
		return false
	}
}

// MetricType is the unit family of a key result. It does not affect progress.
type MetricType string

const (
	MetricNumber     MetricType = "NUMBER"
	MetricPercentage MetricType = "PERCENTAGE"
	MetricCurrency   MetricType = "CURRENCY"
)

// Direction is the way the tracked metric must move to reach its target.
type Direction string

const (
	DirectionIncreasing Direction = "INCREASING"
	DirectionDecreasing Direction = "DECREASING"
)

// Frequency is the reporting cadence of a key result.
type Frequency string

const (
	FrequencyDaily  Frequency = "DAILY"
	FrequencyWeekly Frequency = "WEEKLY"
)

// IsWeekly reports whether the cadence is weekly. Anything else, including
// an unset frequency, is treated as daily.
func (f Frequency) IsWeekly() bool {
	return f == FrequencyWeekly
}

// Status is the self-reported health of a key result.
type Status string

const (
	StatusOnTrack        Status = "ON_TRACK"
	StatusNeedsAttention Status = "NEEDS_ATTENTION"
	StatusOffTrack       Status = "OFF_TRACK"
	StatusChallenge      Status = "CHALLENGE"
)

// IsValid reports whether s is a known status. The empty status is valid.
func (s Status) IsValid() bool {
	switch s {
	case "", StatusOnTrack, StatusNeedsAttention, StatusOffTrack, StatusChallenge:
		return true
	default:
		return false
	}
}

// ObjectiveCategory groups objectives by business area.
type ObjectiveCategory string

const (
	ObjectiveBusinessGrowth        ObjectiveCategory = "BUSINESS_GROWTH"
	ObjectiveCustomerMarket        ObjectiveCategory = "CUSTOMER_MARKET"
	ObjectiveProductInnovation     ObjectiveCategory = "PRODUCT_INNOVATION"
	ObjectiveProcessEfficiency     ObjectiveCategory = "PROCESS_EFFICIENCY"
	ObjectiveHRCulture             ObjectiveCategory = "HR_CULTURE"
	ObjectiveFinanceProfitability  ObjectiveCategory = "FINANCE_PROFITABILITY"
	ObjectiveSales                 ObjectiveCategory = "SALES"
	ObjectiveLegalCompliance       ObjectiveCategory = "LEGAL_COMPLIANCE"
	ObjectiveSustainability        ObjectiveCategory = "SUSTAINABILITY"
	ObjectiveQualityStandards      ObjectiveCategory = "QUALITY_STANDARDS"
	ObjectiveTechDigitalization    ObjectiveCategory = "TECH_DIGITALIZATION"
	ObjectiveCommunicationBranding ObjectiveCategory = "COMMUNICATION_BRANDING"
)

// ObjectiveCategories lists every objective category in display order.
var ObjectiveCategories = []ObjectiveCategory{
	ObjectiveBusinessGrowth,
	ObjectiveCustomerMarket,
	ObjectiveProductInnovation,
	ObjectiveProcessEfficiency,
	ObjectiveHRCulture,
	ObjectiveFinanceProfitability,
	ObjectiveSales,
	ObjectiveLegalCompliance,
	ObjectiveSustainability,
	ObjectiveQualityStandards,
	ObjectiveTechDigitalization,
	ObjectiveCommunicationBranding,
}

// IsValid reports whether c is a known category. The empty category is valid.
func (c ObjectiveCategory) IsValid() bool {
	if c == "" {
		return true
	}
	for _, known := range ObjectiveCategories {
		if c == known {
			return true
		}
	}
	return false
}

// DailyTarget is the per-day target used when a key result reports daily.
type DailyTarget struct {
	Type    MetricType `json:"type,omitempty"`
	Target  float64    `json:"target"`
	Current float64    `json:"current"`
	Unit    string     `json:"unit,omitempty"`
}

// StretchLevel is a named milestone beyond or along the way to the target.
type StretchLevel struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// BinaryLabels names the two states of a binary key result.
type BinaryLabels struct {
	Incomplete string `json:"incomplete"`
	Complete   string `json:"complete"`
}

// CheckIn is one timestamped report of a key result's cumulative value.
type CheckIn struct {
	ID                  string    `json:"id"`
	Date                time.Time `json:"date"`
	Value               float64   `json:"value"`
	Rating              int       `json:"rating,omitempty"`
	Report              Report    `json:"report"`
	ChallengeDifficulty int       `json:"challengeDifficulty,omitempty"`
	ChallengeTagIDs     []string  `json:"challengeTagIds,omitempty"`
	Status              Status    `json:"status,omitempty"`
	AuthorID            string    `json:"authorId,omitempty"`
}

// Comment is a free-form note attached to a key result.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// KeyResult is the unit of tracking. Which fields are meaningful depends on
// Category; use Measure to get the category-specific view. An unset
// TargetValue is treated as 1.
type KeyResult struct {
	ID              string       `json:"id"`
	ObjectiveID     string       `json:"objectiveId,omitempty"`
	Title           string       `json:"title"`
	OwnerID         string       `json:"ownerId,omitempty"`
	Category        Category     `json:"category"`
	Type            MetricType   `json:"type,omitempty"`
	Unit            string       `json:"unit,omitempty"`
	TargetDirection Direction    `json:"targetDirection,omitempty"`
	StartValue      float64      `json:"startValue"`
	TargetValue     *float64     `json:"targetValue,omitempty"`
	CurrentValue    float64      `json:"currentValue"`
	CheckIns        []CheckIn    `json:"checkIns"`
	Comments        []Comment    `json:"comments,omitempty"`
	ReportFrequency Frequency    `json:"reportFrequency,omitempty"`
	StartDate       *time.Time   `json:"startDate,omitempty"`
	EndDate         *time.Time   `json:"endDate,omitempty"`
	DailyTarget     *DailyTarget `json:"dailyTarget,omitempty"`
	WeeklyTargets   []float64    `json:"weeklyTargets,omitempty"`
	Status          Status       `json:"status,omitempty"`
	IsArchived      bool         `json:"isArchived,omitempty"`

	StretchLevels []StretchLevel `json:"stretchLevels,omitempty"`
	BinaryLabels  *BinaryLabels  `json:"binaryLabels,omitempty"`

	AssignedTaskIDs   []string `json:"assignedTaskIds,omitempty"`
	AssignedFormIDs   []string `json:"assignedFormIds,omitempty"`
	LinkedBoardID     string   `json:"linkedBoardId,omitempty"`
	LinkedDocumentIDs []string `json:"linkedDocumentIds,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Target returns the configured target value, defaulting to 1.
func (kr KeyResult) Target() float64 {
	if kr.TargetValue == nil {
		return 1
	}
	return *kr.TargetValue
}

// Direction returns the target direction, defaulting to increasing.
func (kr KeyResult) Direction() Direction {
	if kr.TargetDirection == DirectionDecreasing {
		return DirectionDecreasing
	}
	return DirectionIncreasing
}

// Objective is a goal measured by its key results.
type Objective struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	OwnerID     string            `json:"ownerId"`
	KeyResults  []KeyResult       `json:"keyResults"`
	Category    ObjectiveCategory `json:"category,omitempty"`
	ParentID    string            `json:"parentId,omitempty"`
	IsArchived  bool              `json:"isArchived,omitempty"`
	Color       string            `json:"color,omitempty"`
	EndDate     *time.Time        `json:"endDate,omitempty"`
	IsDefault   bool              `json:"isDefault,omitempty"`
	Quarter     string            `json:"quarter,omitempty"`
	StrategyID  string            `json:"strategyId,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// KeyResult returns the key result with the given id.
func (o Objective) KeyResult(id string) (KeyResult, bool) {
	for _, kr := range o.KeyResults {
		if kr.ID == id {
			return kr, true
		}
	}
	return KeyResult{}, false
}

// Role is a user's permission tier. Roles are informational only.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleLead   Role = "lead"
	RoleMember Role = "member"
)

// User owns objectives and key results and submits check-ins.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	TeamID    string `json:"teamId,omitempty"`
}
