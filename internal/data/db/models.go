package db

import "database/sql"

type Objective struct {
	ID          string
	Title       string
	Description string
	OwnerID     string
	Category    string
	ParentID    sql.NullString
	IsArchived  bool
	Color       string
	EndDate     sql.NullInt64
	IsDefault   bool
	Quarter     string
	StrategyID  sql.NullString
	Position    int64
	CreatedAt   int64
	UpdatedAt   int64
}

// KeyResult mirrors the key_results table. DailyTarget, WeeklyTargets,
// StretchLevels, BinaryLabels and Links hold JSON documents.
type KeyResult struct {
	ID              string
	ObjectiveID     string
	Position        int64
	Title           string
	OwnerID         string
	Category        string
	MetricType      string
	Unit            string
	TargetDirection string
	StartValue      float64
	TargetValue     sql.NullFloat64
	CurrentValue    float64
	ReportFrequency string
	StartDate       sql.NullInt64
	EndDate         sql.NullInt64
	DailyTarget     sql.NullString
	WeeklyTargets   sql.NullString
	Status          string
	IsArchived      bool
	StretchLevels   sql.NullString
	BinaryLabels    sql.NullString
	Links           sql.NullString
	CreatedAt       int64
	UpdatedAt       int64
}

type CheckIn struct {
	Seq                 int64
	ID                  string
	KeyResultID         string
	Date                int64
	Value               float64
	Rating              int64
	Report              sql.NullString
	ChallengeDifficulty int64
	ChallengeTagIds     sql.NullString
	Status              string
	AuthorID            string
}

type Comment struct {
	Seq         int64
	ID          string
	KeyResultID string
	AuthorID    string
	Text        string
	CreatedAt   int64
	UpdatedAt   int64
}

type User struct {
	ID        string
	Name      string
	Username  string
	Role      string
	AvatarUrl sql.NullString
	TeamID    sql.NullString
}

type Notification struct {
	ID          int64
	Level       string
	Message     string
	ObjectiveID string
	KeyResultID string
	CreatedAt   int64
}

type KvStore struct {
	Key       string
	Value     []byte
	ExpiresAt sql.NullInt64
	CreatedAt int64
	UpdatedAt int64
}
