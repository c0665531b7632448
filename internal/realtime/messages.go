// Package realtime serves the HTTP API and the websocket sync channel, and
// fans bus events out to connected clients and NATS.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/colonyops/okr/internal/core/notify"
	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/service"
)

// Websocket frame types.
const (
	TypeObjectiveCreate     = "objective:create"
	TypeObjectiveUpdate     = "objective:update"
	TypeObjectiveDelete     = "objective:delete"
	TypeKeyResultCreate     = "key_result:create"
	TypeKeyResultUpdate     = "key_result:update"
	TypeKeyResultDelete     = "key_result:delete"
	TypeKeyResultCheckIn    = "key_result:check_in"
	TypeKeyResultAddComment = "key_result:add_comment"
	TypeUserUpdate          = "user:update"
	TypeGetInitialData      = "get_initial_data"
	TypeInitialData         = "initial_data"
	TypeObjectivesUpdated   = "objectives_updated"
	TypeUsersUpdated        = "users_updated"
	TypeNotification        = "notification"
	TypeError               = "error"
)

// Envelope is the frame exchanged over the websocket.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes data into an envelope of the given type.
func NewEnvelope(typ string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", typ, err)
	}
	return Envelope{Type: typ, Data: raw}, nil
}

// Decode unmarshals the envelope payload into dst.
func (e Envelope) Decode(dst any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%w: %s has no data", okr.ErrInvalid, e.Type)
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", okr.ErrInvalid, e.Type, err)
	}
	return nil
}

type objectiveCreateMsg struct {
	ObjectiveData  okr.Objective   `json:"objectiveData"`
	KeyResultsData []okr.KeyResult `json:"keyResultsData"`
}

type objectiveUpdateMsg struct {
	ObjectiveID string             `json:"objectiveId"`
	Updates     okr.ObjectivePatch `json:"updates"`
}

type objectiveDeleteMsg struct {
	ObjectiveID string `json:"objectiveId"`
}

type keyResultCreateMsg struct {
	ObjectiveID string        `json:"objectiveId"`
	KRData      okr.KeyResult `json:"krData"`
}

type keyResultUpdateMsg struct {
	ObjectiveID string             `json:"objectiveId"`
	KRID        string             `json:"krId"`
	Updates     okr.KeyResultPatch `json:"updates"`
}

type keyResultDeleteMsg struct {
	ObjectiveID string `json:"objectiveId"`
	KRID        string `json:"krId"`
}

// CheckInRequest is the body of a check-in, over the websocket or REST.
type CheckInRequest struct {
	ObjectiveID         string     `json:"objectiveId,omitempty"`
	KRID                string     `json:"krId,omitempty"`
	ID                  string     `json:"id,omitempty"`
	Date                *time.Time `json:"date,omitempty"`
	Value               float64    `json:"value"`
	Rating              int        `json:"rating,omitempty"`
	Report              okr.Report `json:"report"`
	ChallengeDifficulty int        `json:"challengeDifficulty,omitempty"`
	ChallengeTagIDs     []string   `json:"challengeTagIds,omitempty"`
	Status              okr.Status `json:"status,omitempty"`
	AuthorID            string     `json:"authorId,omitempty"`
}

// CheckIn converts the request into a check-in.
func (r CheckInRequest) CheckIn() okr.CheckIn {
	c := okr.CheckIn{
		ID:                  r.ID,
		Value:               r.Value,
		Rating:              r.Rating,
		Report:              r.Report,
		ChallengeDifficulty: r.ChallengeDifficulty,
		ChallengeTagIDs:     r.ChallengeTagIDs,
		Status:              r.Status,
		AuthorID:            r.AuthorID,
	}
	if r.Date != nil {
		c.Date = *r.Date
	}
	return c
}

type addCommentMsg struct {
	ObjectiveID string `json:"objectiveId"`
	KRID        string `json:"krId"`
	AuthorID    string `json:"authorId"`
	Text        string `json:"text"`
}

type userPatch struct {
	Name      *string   `json:"name,omitempty"`
	Username  *string   `json:"username,omitempty"`
	Role      *okr.Role `json:"role,omitempty"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
	TeamID    *string   `json:"teamId,omitempty"`
}

func (p userPatch) apply(u *okr.User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.TeamID != nil {
		u.TeamID = *p.TeamID
	}
}

type userUpdateMsg struct {
	UserID  string    `json:"userId"`
	Updates userPatch `json:"updates"`
}

// InitialData is the snapshot sent on request and on connect.
type InitialData struct {
	Users      []okr.User              `json:"users"`
	Objectives []service.ObjectiveView `json:"objectives"`
}

// ErrorData is the payload of an error frame.
type ErrorData struct {
	Request string `json:"request,omitempty"`
	Message string `json:"message"`
}

// NotificationData is the payload of a notification frame.
type NotificationData struct {
	Level       notify.Level `json:"level"`
	Message     string       `json:"message"`
	ObjectiveID string       `json:"objectiveId,omitempty"`
	KeyResultID string       `json:"keyResultId,omitempty"`
}
