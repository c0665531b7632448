package service

import (
	"cmp"
	"slices"
	"sync"

	"github.com/colonyops/okr/internal/core/okr"
)

// Arena holds objectives, key results and users in flat ID-indexed tables.
// Objectives are stored without their key results; the graph is assembled
// on read. Every value handed out is a deep copy.
//
// Each key result carries a version that increases on every write, so
// derived values can be cached by (id, version).
type Arena struct {
	mu sync.RWMutex

	objectives map[string]okr.Objective
	objOrder   []string

	keyResults map[string]okr.KeyResult
	krOrder    map[string][]string // objective id -> key result ids
	versions   map[string]uint64
	clock      uint64

	users map[string]okr.User
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{
		objectives: map[string]okr.Objective{},
		keyResults: map[string]okr.KeyResult{},
		krOrder:    map[string][]string{},
		versions:   map[string]uint64{},
		users:      map[string]okr.User{},
	}
}

// Load replaces the arena's contents.
func (a *Arena) Load(objectives []okr.Objective, users []okr.User) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.objectives = make(map[string]okr.Objective, len(objectives))
	a.objOrder = a.objOrder[:0]
	a.keyResults = map[string]okr.KeyResult{}
	a.krOrder = map[string][]string{}
	a.versions = map[string]uint64{}
	a.users = make(map[string]okr.User, len(users))

	for _, o := range objectives {
		a.putObjective(o)
		for _, kr := range o.KeyResults {
			kr.ObjectiveID = o.ID
			a.putKeyResult(kr)
		}
	}
	for _, u := range users {
		a.users[u.ID] = u
	}
}

// Objectives returns every objective with its key results, in insertion
// order.
func (a *Arena) Objectives() []okr.Objective {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]okr.Objective, 0, len(a.objOrder))
	for _, id := range a.objOrder {
		out = append(out, a.assemble(id))
	}
	return out
}

// Snapshot returns every objective together with the versions of their
// key results, read under one lock.
func (a *Arena) Snapshot() ([]okr.Objective, map[string]uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]okr.Objective, 0, len(a.objOrder))
	versions := make(map[string]uint64, len(a.versions))
	for _, id := range a.objOrder {
		o := a.assemble(id)
		for _, kr := range o.KeyResults {
			versions[kr.ID] = a.versions[kr.ID]
		}
		out = append(out, o)
	}
	return out, versions
}

// Objective returns one objective with its key results.
func (a *Arena) Objective(id string) (okr.Objective, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if _, ok := a.objectives[id]; !ok {
		return okr.Objective{}, false
	}
	return a.assemble(id), true
}

// objectiveVersions is Objective plus the versions of its key results,
// read under one lock.
func (a *Arena) objectiveVersions(id string) (okr.Objective, map[string]uint64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if _, ok := a.objectives[id]; !ok {
		return okr.Objective{}, nil, false
	}
	o := a.assemble(id)
	versions := make(map[string]uint64, len(o.KeyResults))
	for _, kr := range o.KeyResults {
		versions[kr.ID] = a.versions[kr.ID]
	}
	return o, versions, true
}

// KeyResult returns a copy of the key result and its current version.
func (a *Arena) KeyResult(id string) (okr.KeyResult, uint64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	kr, ok := a.keyResults[id]
	if !ok {
		return okr.KeyResult{}, 0, false
	}
	return kr.Clone(), a.versions[id], true
}

// Version returns the current version of a key result, or 0 if unknown.
func (a *Arena) Version(id string) uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.versions[id]
}

// PutObjective inserts or replaces an objective row. Its KeyResults field
// is ignored; use PutKeyResult.
func (a *Arena) PutObjective(o okr.Objective) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.putObjective(o)
}

// RemoveObjective deletes an objective with its key results and detaches
// its children. The removed key result IDs are returned.
func (a *Arena) RemoveObjective(id string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.objectives[id]; !ok {
		return nil
	}

	removed := a.krOrder[id]
	for _, krID := range removed {
		delete(a.keyResults, krID)
		delete(a.versions, krID)
	}
	delete(a.krOrder, id)
	delete(a.objectives, id)
	a.objOrder = slices.DeleteFunc(a.objOrder, func(s string) bool { return s == id })

	for childID, child := range a.objectives {
		if child.ParentID == id {
			child.ParentID = ""
			a.objectives[childID] = child
		}
	}

	return removed
}

// PutKeyResult inserts or replaces a key result and bumps its version. New
// key results are appended to their objective.
func (a *Arena) PutKeyResult(kr okr.KeyResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.putKeyResult(kr)
}

// RemoveKeyResult deletes a key result.
func (a *Arena) RemoveKeyResult(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	kr, ok := a.keyResults[id]
	if !ok {
		return
	}
	delete(a.keyResults, id)
	delete(a.versions, id)
	a.krOrder[kr.ObjectiveID] = slices.DeleteFunc(a.krOrder[kr.ObjectiveID], func(s string) bool { return s == id })
}

// Users returns all users ordered by name.
func (a *Arena) Users() []okr.User {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]okr.User, 0, len(a.users))
	for _, u := range a.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(x, y okr.User) int {
		if c := cmp.Compare(x.Name, y.Name); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	return out
}

// User returns a user by ID.
func (a *Arena) User(id string) (okr.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	u, ok := a.users[id]
	return u, ok
}

// PutUser inserts or replaces a user.
func (a *Arena) PutUser(u okr.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[u.ID] = u
}

func (a *Arena) putObjective(o okr.Objective) {
	o = o.Clone()
	o.KeyResults = nil
	if _, ok := a.objectives[o.ID]; !ok {
		a.objOrder = append(a.objOrder, o.ID)
	}
	a.objectives[o.ID] = o
}

func (a *Arena) putKeyResult(kr okr.KeyResult) {
	kr = kr.Clone()
	if prev, ok := a.keyResults[kr.ID]; !ok {
		a.krOrder[kr.ObjectiveID] = append(a.krOrder[kr.ObjectiveID], kr.ID)
	} else if prev.ObjectiveID != kr.ObjectiveID {
		kr.ObjectiveID = prev.ObjectiveID
	}
	a.keyResults[kr.ID] = kr
	a.clock++
	a.versions[kr.ID] = a.clock
}

// assemble must be called with the lock held.
func (a *Arena) assemble(id string) okr.Objective {
	o := a.objectives[id].Clone()
	ids := a.krOrder[id]
	o.KeyResults = make([]okr.KeyResult, 0, len(ids))
	for _, krID := range ids {
		o.KeyResults = append(o.KeyResults, a.keyResults[krID].Clone())
	}
	return o
}
