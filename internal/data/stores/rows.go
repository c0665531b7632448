package stores

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/data/db"
)

// keyResultLinks is the JSON document stored in key_results.links.
type keyResultLinks struct {
	TaskIDs     []string `json:"taskIds,omitempty"`
	FormIDs     []string `json:"formIds,omitempty"`
	BoardID     string   `json:"boardId,omitempty"`
	DocumentIDs []string `json:"documentIds,omitempty"`
}

func (l keyResultLinks) empty() bool {
	return len(l.TaskIDs) == 0 && len(l.FormIDs) == 0 && l.BoardID == "" && len(l.DocumentIDs) == 0
}

func objectiveToRow(o okr.Objective) db.Objective {
	return db.Objective{
		ID:          o.ID,
		Title:       o.Title,
		Description: o.Description,
		OwnerID:     o.OwnerID,
		Category:    string(o.Category),
		ParentID:    nullString(o.ParentID),
		IsArchived:  o.IsArchived,
		Color:       o.Color,
		EndDate:     nullTime(o.EndDate),
		IsDefault:   o.IsDefault,
		Quarter:     o.Quarter,
		StrategyID:  nullString(o.StrategyID),
		CreatedAt:   o.CreatedAt.UnixNano(),
		UpdatedAt:   o.UpdatedAt.UnixNano(),
	}
}

func rowToObjective(row db.Objective) okr.Objective {
	return okr.Objective{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		OwnerID:     row.OwnerID,
		Category:    okr.ObjectiveCategory(row.Category),
		ParentID:    row.ParentID.String,
		IsArchived:  row.IsArchived,
		Color:       row.Color,
		EndDate:     timePtr(row.EndDate),
		IsDefault:   row.IsDefault,
		Quarter:     row.Quarter,
		StrategyID:  row.StrategyID.String,
		CreatedAt:   fromNanos(row.CreatedAt),
		UpdatedAt:   fromNanos(row.UpdatedAt),
	}
}

func keyResultToRow(kr okr.KeyResult) (db.KeyResult, error) {
	row := db.KeyResult{
		ID:              kr.ID,
		ObjectiveID:     kr.ObjectiveID,
		Title:           kr.Title,
		OwnerID:         kr.OwnerID,
		Category:        string(kr.Category),
		MetricType:      string(kr.Type),
		Unit:            kr.Unit,
		TargetDirection: string(kr.TargetDirection),
		StartValue:      kr.StartValue,
		CurrentValue:    kr.CurrentValue,
		ReportFrequency: string(kr.ReportFrequency),
		StartDate:       nullTime(kr.StartDate),
		EndDate:         nullTime(kr.EndDate),
		Status:          string(kr.Status),
		IsArchived:      kr.IsArchived,
		CreatedAt:       kr.CreatedAt.UnixNano(),
		UpdatedAt:       kr.UpdatedAt.UnixNano(),
	}
	if kr.TargetValue != nil {
		row.TargetValue = sql.NullFloat64{Float64: *kr.TargetValue, Valid: true}
	}

	links := keyResultLinks{
		TaskIDs:     kr.AssignedTaskIDs,
		FormIDs:     kr.AssignedFormIDs,
		BoardID:     kr.LinkedBoardID,
		DocumentIDs: kr.LinkedDocumentIDs,
	}

	var err error
	if row.DailyTarget, err = jsonColumn(kr.DailyTarget, kr.DailyTarget == nil); err != nil {
		return db.KeyResult{}, fmt.Errorf("encode daily target: %w", err)
	}
	if row.WeeklyTargets, err = jsonColumn(kr.WeeklyTargets, kr.WeeklyTargets == nil); err != nil {
		return db.KeyResult{}, fmt.Errorf("encode weekly targets: %w", err)
	}
	if row.StretchLevels, err = jsonColumn(kr.StretchLevels, len(kr.StretchLevels) == 0); err != nil {
		return db.KeyResult{}, fmt.Errorf("encode stretch levels: %w", err)
	}
	if row.BinaryLabels, err = jsonColumn(kr.BinaryLabels, kr.BinaryLabels == nil); err != nil {
		return db.KeyResult{}, fmt.Errorf("encode binary labels: %w", err)
	}
	if row.Links, err = jsonColumn(links, links.empty()); err != nil {
		return db.KeyResult{}, fmt.Errorf("encode links: %w", err)
	}

	return row, nil
}

func rowToKeyResult(row db.KeyResult) (okr.KeyResult, error) {
	kr := okr.KeyResult{
		ID:              row.ID,
		ObjectiveID:     row.ObjectiveID,
		Title:           row.Title,
		OwnerID:         row.OwnerID,
		Category:        okr.Category(row.Category),
		Type:            okr.MetricType(row.MetricType),
		Unit:            row.Unit,
		TargetDirection: okr.Direction(row.TargetDirection),
		StartValue:      row.StartValue,
		CurrentValue:    row.CurrentValue,
		ReportFrequency: okr.Frequency(row.ReportFrequency),
		StartDate:       timePtr(row.StartDate),
		EndDate:         timePtr(row.EndDate),
		Status:          okr.Status(row.Status),
		IsArchived:      row.IsArchived,
		CheckIns:        []okr.CheckIn{},
		CreatedAt:       fromNanos(row.CreatedAt),
		UpdatedAt:       fromNanos(row.UpdatedAt),
	}
	if row.TargetValue.Valid {
		v := row.TargetValue.Float64
		kr.TargetValue = &v
	}

	var links keyResultLinks
	for _, col := range []struct {
		name string
		src  sql.NullString
		dst  any
	}{
		{"daily_target", row.DailyTarget, &kr.DailyTarget},
		{"weekly_targets", row.WeeklyTargets, &kr.WeeklyTargets},
		{"stretch_levels", row.StretchLevels, &kr.StretchLevels},
		{"binary_labels", row.BinaryLabels, &kr.BinaryLabels},
		{"links", row.Links, &links},
	} {
		if err := fromJSON(col.src, col.dst); err != nil {
			return okr.KeyResult{}, fmt.Errorf("decode %s: %w", col.name, err)
		}
	}

	kr.AssignedTaskIDs = links.TaskIDs
	kr.AssignedFormIDs = links.FormIDs
	kr.LinkedBoardID = links.BoardID
	kr.LinkedDocumentIDs = links.DocumentIDs

	return kr, nil
}

func checkInParams(keyResultID string, c okr.CheckIn) (db.InsertCheckInParams, error) {
	report, err := jsonColumn(c.Report, c.Report == (okr.Report{}))
	if err != nil {
		return db.InsertCheckInParams{}, fmt.Errorf("encode report: %w", err)
	}
	tags, err := jsonColumn(c.ChallengeTagIDs, len(c.ChallengeTagIDs) == 0)
	if err != nil {
		return db.InsertCheckInParams{}, fmt.Errorf("encode challenge tags: %w", err)
	}

	return db.InsertCheckInParams{
		ID:                  c.ID,
		KeyResultID:         keyResultID,
		Date:                c.Date.UnixNano(),
		Value:               c.Value,
		Rating:              int64(c.Rating),
		Report:              report,
		ChallengeDifficulty: int64(c.ChallengeDifficulty),
		ChallengeTagIds:     tags,
		Status:              string(c.Status),
		AuthorID:            c.AuthorID,
	}, nil
}

func rowToCheckIn(row db.CheckIn) (okr.CheckIn, error) {
	c := okr.CheckIn{
		ID:                  row.ID,
		Date:                fromNanos(row.Date),
		Value:               row.Value,
		Rating:              int(row.Rating),
		ChallengeDifficulty: int(row.ChallengeDifficulty),
		Status:              okr.Status(row.Status),
		AuthorID:            row.AuthorID,
	}
	if err := fromJSON(row.Report, &c.Report); err != nil {
		return okr.CheckIn{}, fmt.Errorf("decode report: %w", err)
	}
	if err := fromJSON(row.ChallengeTagIds, &c.ChallengeTagIDs); err != nil {
		return okr.CheckIn{}, fmt.Errorf("decode challenge tags: %w", err)
	}
	return c, nil
}

func commentParams(keyResultID string, c okr.Comment) db.InsertCommentParams {
	return db.InsertCommentParams{
		ID:          c.ID,
		KeyResultID: keyResultID,
		AuthorID:    c.AuthorID,
		Text:        c.Text,
		CreatedAt:   c.CreatedAt.UnixNano(),
		UpdatedAt:   c.UpdatedAt.UnixNano(),
	}
}

func rowToComment(row db.Comment) okr.Comment {
	return okr.Comment{
		ID:        row.ID,
		AuthorID:  row.AuthorID,
		Text:      row.Text,
		CreatedAt: fromNanos(row.CreatedAt),
		UpdatedAt: fromNanos(row.UpdatedAt),
	}
}

func userToRow(u okr.User) db.User {
	return db.User{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		Role:      string(u.Role),
		AvatarUrl: nullString(u.AvatarURL),
		TeamID:    nullString(u.TeamID),
	}
}

func rowToUser(row db.User) okr.User {
	return okr.User{
		ID:        row.ID,
		Name:      row.Name,
		Username:  row.Username,
		Role:      okr.Role(row.Role),
		AvatarURL: row.AvatarUrl.String,
		TeamID:    row.TeamID.String,
	}
}

func jsonColumn(v any, empty bool) (sql.NullString, error) {
	if empty {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func fromJSON(col sql.NullString, dst any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dst)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
