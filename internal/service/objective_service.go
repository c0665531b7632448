package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/okr/internal/core/eventbus"
	"github.com/colonyops/okr/internal/core/logging"
	"github.com/colonyops/okr/internal/core/okr"
)

// ObjectiveFilter narrows ListObjectives. Quarter and Title are glob
// patterns; empty fields match everything.
type ObjectiveFilter struct {
	Quarter         string
	Title           string
	OwnerID         string
	IncludeArchived bool
}

func (f ObjectiveFilter) validate() error {
	for _, p := range []string{f.Quarter, f.Title} {
		if p != "" && !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: bad pattern %q", okr.ErrInvalid, p)
		}
	}
	return nil
}

func (f ObjectiveFilter) match(o okr.Objective) bool {
	if o.IsArchived && !f.IncludeArchived {
		return false
	}
	if f.OwnerID != "" && o.OwnerID != f.OwnerID {
		return false
	}
	if f.Quarter != "" {
		if ok, _ := doublestar.Match(f.Quarter, o.Quarter); !ok {
			return false
		}
	}
	if f.Title != "" {
		if ok, _ := doublestar.Match(strings.ToLower(f.Title), strings.ToLower(o.Title)); !ok {
			return false
		}
	}
	return true
}

// ObjectiveService owns every write to objectives, key results and users.
// Each mutation is persisted first, then applied to the arena, then
// published on the bus.
type ObjectiveService struct {
	store  okr.Store
	users  okr.UserStore
	arena  *Arena
	bus    *eventbus.EventBus
	log    zerolog.Logger
	policy okr.ConflictPolicy
	now    func() time.Time
	newID  func() string

	// mu serializes read-modify-persist sequences.
	mu sync.Mutex
}

// NewObjectiveService creates a new ObjectiveService backed by an empty
// arena. Call Load to hydrate it from the store.
func NewObjectiveService(store okr.Store, users okr.UserStore, bus *eventbus.EventBus, log zerolog.Logger) *ObjectiveService {
	return &ObjectiveService{
		store:  store,
		users:  users,
		arena:  NewArena(),
		bus:    bus,
		log:    log.With().Str("component", "objective-service").Logger(),
		policy: okr.PolicyLastApplied,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// WithPolicy sets the check-in conflict policy.
func (s *ObjectiveService) WithPolicy(p okr.ConflictPolicy) *ObjectiveService {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.IsValid() {
		s.policy = p
	}
	return s
}

// WithClock replaces the clock used for timestamps.
func (s *ObjectiveService) WithClock(now func() time.Time) *ObjectiveService {
	s.now = now
	return s
}

// WithIDs replaces the ID generator.
func (s *ObjectiveService) WithIDs(fn func() string) *ObjectiveService {
	s.newID = fn
	return s
}

// Arena exposes the in-memory tables for read-only consumers.
func (s *ObjectiveService) Arena() *Arena {
	return s.arena
}

// Policy returns the active conflict policy.
func (s *ObjectiveService) Policy() okr.ConflictPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// Load hydrates the arena from the stores.
func (s *ObjectiveService) Load(ctx context.Context) error {
	objectives, err := s.store.ListObjectives(ctx)
	if err != nil {
		return fmt.Errorf("load objectives: %w", err)
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	s.arena.Load(objectives, users)
	s.log.Debug().Int("objectives", len(objectives)).Int("users", len(users)).Msg("arena loaded")
	return nil
}

// ListObjectives returns the objectives matching f, in creation order.
func (s *ObjectiveService) ListObjectives(f ObjectiveFilter) ([]okr.Objective, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	all := s.arena.Objectives()
	out := all[:0]
	for _, o := range all {
		if f.match(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

// Objective returns one objective with its key results.
func (s *ObjectiveService) Objective(id string) (okr.Objective, error) {
	o, ok := s.arena.Objective(id)
	if !ok {
		return okr.Objective{}, fmt.Errorf("objective %s: %w", id, okr.ErrNotFound)
	}
	return o, nil
}

// KeyResult returns one key result.
func (s *ObjectiveService) KeyResult(id string) (okr.KeyResult, error) {
	kr, _, ok := s.arena.KeyResult(id)
	if !ok {
		return okr.KeyResult{}, fmt.Errorf("key result %s: %w", id, okr.ErrNotFound)
	}
	return kr, nil
}

// CreateObjective creates an objective together with any key results it
// carries. Missing IDs are generated; timestamps are set to now.
func (s *ObjectiveService) CreateObjective(ctx context.Context, o okr.Objective) (okr.Objective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	o = o.Clone()
	if o.ID == "" {
		o.ID = s.newID()
	}
	if _, exists := s.arena.Objective(o.ID); exists {
		return okr.Objective{}, fmt.Errorf("%w: objective %s already exists", okr.ErrInvalid, o.ID)
	}
	o.CreatedAt, o.UpdatedAt = now, now

	if err := o.Validate(); err != nil {
		return okr.Objective{}, err
	}
	if err := s.checkParent(o.ID, o.ParentID); err != nil {
		return okr.Objective{}, err
	}

	for i := range o.KeyResults {
		kr := &o.KeyResults[i]
		s.prepareKeyResult(kr, o.ID, now)
		if err := kr.Validate(); err != nil {
			return okr.Objective{}, fmt.Errorf("key result %d: %w", i+1, err)
		}
	}

	ctx = logging.WithObjectiveID(ctx, o.ID)
	if err := s.store.ImportObjective(ctx, o); err != nil {
		return okr.Objective{}, fmt.Errorf("create objective: %w", err)
	}

	s.arena.PutObjective(o)
	for _, kr := range o.KeyResults {
		s.arena.PutKeyResult(kr)
	}

	s.log.Info().Ctx(ctx).Str("title", o.Title).Int("key_results", len(o.KeyResults)).Msg("objective created")
	s.bus.PublishObjectiveCreated(eventbus.ObjectiveCreatedPayload{Objective: o})
	return o, nil
}

// ImportObjective stores a complete objective graph as-is, keeping its IDs,
// timestamps and check-in history. Existing objectives are overwritten;
// history already stored is kept.
func (s *ObjectiveService) ImportObjective(ctx context.Context, o okr.Objective) (okr.Objective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	o = o.Clone()
	if o.ID == "" {
		o.ID = s.newID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	if err := o.Validate(); err != nil {
		return okr.Objective{}, err
	}

	for i := range o.KeyResults {
		kr := &o.KeyResults[i]
		if kr.ID == "" {
			kr.ID = s.newID()
		}
		kr.ObjectiveID = o.ID
		if kr.CreatedAt.IsZero() {
			kr.CreatedAt = o.CreatedAt
		}
		if kr.UpdatedAt.IsZero() {
			kr.UpdatedAt = kr.CreatedAt
		}
		if kr.CheckIns == nil {
			kr.CheckIns = []okr.CheckIn{}
		}
		for j := range kr.CheckIns {
			if kr.CheckIns[j].ID == "" {
				kr.CheckIns[j].ID = s.newID()
			}
		}
		if err := kr.Validate(); err != nil {
			return okr.Objective{}, fmt.Errorf("key result %d: %w", i+1, err)
		}
	}

	ctx = logging.WithObjectiveID(ctx, o.ID)
	if err := s.store.ImportObjective(ctx, o); err != nil {
		return okr.Objective{}, fmt.Errorf("import objective: %w", err)
	}

	// Re-read so the arena holds the merged history.
	stored, err := s.store.GetObjective(ctx, o.ID)
	if err != nil {
		return okr.Objective{}, fmt.Errorf("reload imported objective: %w", err)
	}

	_, existed := s.arena.Objective(o.ID)
	s.arena.PutObjective(stored)
	for _, kr := range stored.KeyResults {
		s.arena.PutKeyResult(kr)
	}

	s.log.Info().Ctx(ctx).Bool("replaced", existed).Msg("objective imported")
	if existed {
		s.bus.PublishObjectiveUpdated(eventbus.ObjectiveUpdatedPayload{Objective: stored})
	} else {
		s.bus.PublishObjectiveCreated(eventbus.ObjectiveCreatedPayload{Objective: stored})
	}
	return stored, nil
}

// UpdateObjective applies a partial update.
func (s *ObjectiveService) UpdateObjective(ctx context.Context, id string, patch okr.ObjectivePatch) (okr.Objective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.arena.Objective(id)
	if !ok {
		return okr.Objective{}, fmt.Errorf("objective %s: %w", id, okr.ErrNotFound)
	}

	patch.Apply(&o)
	o.UpdatedAt = s.now().UTC()
	if err := o.Validate(); err != nil {
		return okr.Objective{}, err
	}
	if err := s.checkParent(o.ID, o.ParentID); err != nil {
		return okr.Objective{}, err
	}

	ctx = logging.WithObjectiveID(ctx, id)
	if err := s.store.SaveObjective(ctx, o); err != nil {
		return okr.Objective{}, fmt.Errorf("update objective: %w", err)
	}
	s.arena.PutObjective(o)

	s.log.Info().Ctx(ctx).Msg("objective updated")
	s.bus.PublishObjectiveUpdated(eventbus.ObjectiveUpdatedPayload{Objective: o})
	return o, nil
}

// SetObjectiveArchived archives or restores an objective.
func (s *ObjectiveService) SetObjectiveArchived(ctx context.Context, id string, archived bool) (okr.Objective, error) {
	return s.UpdateObjective(ctx, id, okr.ObjectivePatch{IsArchived: &archived})
}

// DeleteObjective removes an objective with its key results. Child
// objectives become roots.
func (s *ObjectiveService) DeleteObjective(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.arena.Objective(id)
	if !ok {
		return fmt.Errorf("objective %s: %w", id, okr.ErrNotFound)
	}

	ctx = logging.WithObjectiveID(ctx, id)
	if err := s.store.DeleteObjective(ctx, id); err != nil {
		return fmt.Errorf("delete objective: %w", err)
	}
	removed := s.arena.RemoveObjective(id)

	s.log.Info().Ctx(ctx).Int("key_results", len(removed)).Msg("objective deleted")
	s.bus.PublishObjectiveDeleted(eventbus.ObjectiveDeletedPayload{ObjectiveID: id, Title: o.Title})
	return nil
}

// CreateKeyResult adds a key result to an objective.
func (s *ObjectiveService) CreateKeyResult(ctx context.Context, objectiveID string, kr okr.KeyResult) (okr.KeyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.arena.Objective(objectiveID); !ok {
		return okr.KeyResult{}, fmt.Errorf("objective %s: %w", objectiveID, okr.ErrNotFound)
	}

	kr = kr.Clone()
	s.prepareKeyResult(&kr, objectiveID, s.now().UTC())
	if _, _, exists := s.arena.KeyResult(kr.ID); exists {
		return okr.KeyResult{}, fmt.Errorf("%w: key result %s already exists", okr.ErrInvalid, kr.ID)
	}
	if err := kr.Validate(); err != nil {
		return okr.KeyResult{}, err
	}

	ctx = logging.WithKeyResultID(logging.WithObjectiveID(ctx, objectiveID), kr.ID)
	if err := s.store.SaveKeyResult(ctx, kr); err != nil {
		return okr.KeyResult{}, fmt.Errorf("create key result: %w", err)
	}
	s.arena.PutKeyResult(kr)

	s.log.Info().Ctx(ctx).Str("category", string(kr.Category)).Msg("key result created")
	s.bus.PublishKeyResultCreated(eventbus.KeyResultCreatedPayload{KeyResult: kr})
	return kr, nil
}

// UpdateKeyResult applies a partial update. Switching the report frequency
// clears the targets of the previous cadence.
func (s *ObjectiveService) UpdateKeyResult(ctx context.Context, id string, patch okr.KeyResultPatch) (okr.KeyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kr, _, ok := s.arena.KeyResult(id)
	if !ok {
		return okr.KeyResult{}, fmt.Errorf("key result %s: %w", id, okr.ErrNotFound)
	}

	patch.Apply(&kr)
	kr.UpdatedAt = s.now().UTC()
	if err := kr.Validate(); err != nil {
		return okr.KeyResult{}, err
	}

	ctx = logging.WithKeyResultID(logging.WithObjectiveID(ctx, kr.ObjectiveID), id)
	if err := s.store.SaveKeyResult(ctx, kr); err != nil {
		return okr.KeyResult{}, fmt.Errorf("update key result: %w", err)
	}
	s.arena.PutKeyResult(kr)

	s.log.Info().Ctx(ctx).Msg("key result updated")
	s.bus.PublishKeyResultUpdated(eventbus.KeyResultUpdatedPayload{KeyResult: kr})
	return kr, nil
}

// SetKeyResultArchived archives or restores a key result. Archived key
// results report zero progress and are left out of their objective's mean.
func (s *ObjectiveService) SetKeyResultArchived(ctx context.Context, id string, archived bool) (okr.KeyResult, error) {
	return s.UpdateKeyResult(ctx, id, okr.KeyResultPatch{IsArchived: &archived})
}

// DeleteKeyResult removes a key result with its history.
func (s *ObjectiveService) DeleteKeyResult(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kr, _, ok := s.arena.KeyResult(id)
	if !ok {
		return fmt.Errorf("key result %s: %w", id, okr.ErrNotFound)
	}

	ctx = logging.WithKeyResultID(logging.WithObjectiveID(ctx, kr.ObjectiveID), id)
	if err := s.store.DeleteKeyResult(ctx, id); err != nil {
		return fmt.Errorf("delete key result: %w", err)
	}
	s.arena.RemoveKeyResult(id)

	s.log.Info().Ctx(ctx).Msg("key result deleted")
	s.bus.PublishKeyResultDeleted(eventbus.KeyResultDeletedPayload{
		ObjectiveID: kr.ObjectiveID,
		KeyResultID: id,
		Title:       kr.Title,
	})
	return nil
}

// CheckIn appends c to the key result's history and, as the conflict
// policy allows, moves its current value. Returns the updated key result
// and whether c set the current value.
func (s *ObjectiveService) CheckIn(ctx context.Context, keyResultID string, c okr.CheckIn) (okr.KeyResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kr, _, ok := s.arena.KeyResult(keyResultID)
	if !ok {
		return okr.KeyResult{}, false, fmt.Errorf("key result %s: %w", keyResultID, okr.ErrNotFound)
	}
	if kr.IsArchived {
		return okr.KeyResult{}, false, fmt.Errorf("check-in on %s: %w", keyResultID, okr.ErrArchived)
	}

	now := s.now().UTC()
	if c.ID == "" {
		c.ID = s.newID()
	}
	if c.Date.IsZero() {
		c.Date = now
	}
	c.Date = c.Date.UTC()
	if err := c.Validate(); err != nil {
		return okr.KeyResult{}, false, err
	}
	for _, existing := range kr.CheckIns {
		if existing.ID == c.ID {
			return okr.KeyResult{}, false, fmt.Errorf("%w: check-in %s already recorded", okr.ErrInvalid, c.ID)
		}
	}

	adopted := okr.ApplyCheckIn(&kr, c, s.policy)
	kr.UpdatedAt = now

	ctx = logging.WithKeyResultID(logging.WithObjectiveID(ctx, kr.ObjectiveID), keyResultID)
	if err := s.store.AppendCheckIn(ctx, kr, c); err != nil {
		return okr.KeyResult{}, false, fmt.Errorf("record check-in: %w", err)
	}
	s.arena.PutKeyResult(kr)

	s.log.Info().Ctx(ctx).
		Float64("value", c.Value).
		Time("date", c.Date).
		Bool("adopted", adopted).
		Msg("check-in recorded")
	s.bus.PublishKeyResultCheckedIn(eventbus.KeyResultCheckedInPayload{
		KeyResult: kr,
		CheckIn:   c,
		Adopted:   adopted,
	})
	return kr, adopted, nil
}

// AddComment attaches a comment to a key result.
func (s *ObjectiveService) AddComment(ctx context.Context, keyResultID string, c okr.Comment) (okr.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kr, _, ok := s.arena.KeyResult(keyResultID)
	if !ok {
		return okr.Comment{}, fmt.Errorf("key result %s: %w", keyResultID, okr.ErrNotFound)
	}
	if strings.TrimSpace(c.Text) == "" {
		return okr.Comment{}, fmt.Errorf("%w: comment text is required", okr.ErrInvalid)
	}

	now := s.now().UTC()
	if c.ID == "" {
		c.ID = s.newID()
	}
	c.CreatedAt, c.UpdatedAt = now, now

	ctx = logging.WithKeyResultID(logging.WithObjectiveID(ctx, kr.ObjectiveID), keyResultID)
	if err := s.store.AddComment(ctx, keyResultID, c); err != nil {
		return okr.Comment{}, fmt.Errorf("add comment: %w", err)
	}

	kr.Comments = append(kr.Comments, c)
	s.arena.PutKeyResult(kr)

	s.log.Debug().Ctx(ctx).Str("author", c.AuthorID).Msg("comment added")
	s.bus.PublishCommentAdded(eventbus.CommentAddedPayload{
		ObjectiveID:    kr.ObjectiveID,
		KeyResultID:    keyResultID,
		KeyResultTitle: kr.Title,
		Comment:        c,
	})
	return c, nil
}

// ListUsers returns all users ordered by name.
func (s *ObjectiveService) ListUsers() []okr.User {
	return s.arena.Users()
}

// User returns a user by ID.
func (s *ObjectiveService) User(id string) (okr.User, error) {
	u, ok := s.arena.User(id)
	if !ok {
		return okr.User{}, fmt.Errorf("user %s: %w", id, okr.ErrNotFound)
	}
	return u, nil
}

// UpsertUser creates or updates a user. The role defaults to member.
func (s *ObjectiveService) UpsertUser(ctx context.Context, u okr.User) (okr.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Name = strings.TrimSpace(u.Name)
	u.Username = strings.TrimSpace(u.Username)
	if u.ID == "" {
		u.ID = s.newID()
	}
	if u.Name == "" || u.Username == "" {
		return okr.User{}, fmt.Errorf("%w: user name and username are required", okr.ErrInvalid)
	}
	switch u.Role {
	case "":
		u.Role = okr.RoleMember
	case okr.RoleAdmin, okr.RoleLead, okr.RoleMember:
	default:
		return okr.User{}, fmt.Errorf("%w: unknown role %q", okr.ErrInvalid, u.Role)
	}

	if err := s.users.SaveUser(ctx, u); err != nil {
		return okr.User{}, fmt.Errorf("save user: %w", err)
	}
	s.arena.PutUser(u)

	s.log.Debug().Str("user_id", u.ID).Msg("user saved")
	s.bus.PublishUserUpdated(eventbus.UserUpdatedPayload{User: u})
	return u, nil
}

// prepareKeyResult fills IDs, timestamps and the empty history of a new
// key result.
func (s *ObjectiveService) prepareKeyResult(kr *okr.KeyResult, objectiveID string, now time.Time) {
	if kr.ID == "" {
		kr.ID = s.newID()
	}
	kr.ObjectiveID = objectiveID
	kr.CreatedAt, kr.UpdatedAt = now, now
	kr.CheckIns = []okr.CheckIn{}
	kr.Comments = nil
	if kr.ReportFrequency != "" {
		okr.SwitchFrequency(kr, kr.ReportFrequency)
	}
}

// checkParent rejects unknown parents and parent chains that loop back.
func (s *ObjectiveService) checkParent(id, parentID string) error {
	if parentID == "" {
		return nil
	}
	if _, ok := s.arena.Objective(parentID); !ok {
		return fmt.Errorf("parent objective %s: %w", parentID, okr.ErrNotFound)
	}

	seen := map[string]bool{}
	for cur := parentID; cur != ""; {
		if cur == id || seen[cur] {
			return fmt.Errorf("%w: parent %s would create a cycle", okr.ErrInvalid, parentID)
		}
		seen[cur] = true
		p, ok := s.arena.Objective(cur)
		if !ok {
			break
		}
		cur = p.ParentID
	}
	return nil
}
