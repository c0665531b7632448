package service

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/core/progress"
	"github.com/colonyops/okr/internal/core/tracker"
)

// DefaultCacheSize is the number of key result percentages kept in memory.
const DefaultCacheSize = 1024

// CacheObserver is told about every progress cache lookup.
type CacheObserver interface {
	ObserveProgressCache(hit bool)
}

type progressKey struct {
	id      string
	version uint64
}

// KeyResultView is a key result with its computed progress.
type KeyResultView struct {
	okr.KeyResult
	Progress     float64               `json:"progress"`
	StretchLevel *okr.StretchLevel     `json:"reachedStretchLevel,omitempty"`
	Current      *tracker.PeriodStatus `json:"currentPeriod,omitempty"`
}

// ObjectiveView is an objective with its computed progress. KeyResults
// shadows the embedded objective's field.
type ObjectiveView struct {
	okr.Objective
	KeyResults []KeyResultView `json:"keyResults"`
	Progress   float64         `json:"progress"`
}

// PeriodPage is one page of a key result's period grid.
type PeriodPage struct {
	KeyResultID string                 `json:"keyResultId"`
	Frequency   okr.Frequency          `json:"reportFrequency"`
	WindowStart time.Time              `json:"windowStart"`
	WindowEnd   time.Time              `json:"windowEnd"`
	Page        int                    `json:"page"`
	PageSize    int                    `json:"pageSize"`
	TotalPages  int                    `json:"totalPages"`
	Periods     []tracker.PeriodStatus `json:"periods"`
	Summary     tracker.Summary        `json:"summary"`
}

// ProgressService computes progress and period grids from arena
// snapshots. Key result percentages are memoized by (id, version).
type ProgressService struct {
	arena    *Arena
	cache    *lru.Cache[progressKey, float64]
	observer CacheObserver
}

// NewProgressService creates a ProgressService over the arena.
func NewProgressService(arena *Arena, cacheSize int) (*ProgressService, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[progressKey, float64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create progress cache: %w", err)
	}
	return &ProgressService{arena: arena, cache: cache}, nil
}

// WithObserver reports cache hits and misses to o.
func (p *ProgressService) WithObserver(o CacheObserver) *ProgressService {
	p.observer = o
	return p
}

// KeyResultProgress returns the completion percentage of one key result.
func (p *ProgressService) KeyResultProgress(id string) (float64, error) {
	kr, version, ok := p.arena.KeyResult(id)
	if !ok {
		return 0, fmt.Errorf("key result %s: %w", id, okr.ErrNotFound)
	}
	return p.keyResult(kr, version), nil
}

// ObjectiveProgress returns the mean progress of an objective's
// non-archived key results.
func (p *ProgressService) ObjectiveProgress(id string) (float64, error) {
	o, versions, ok := p.arena.objectiveVersions(id)
	if !ok {
		return 0, fmt.Errorf("objective %s: %w", id, okr.ErrNotFound)
	}

	ps := make([]float64, 0, len(o.KeyResults))
	for _, kr := range o.KeyResults {
		if !kr.IsArchived {
			ps = append(ps, p.keyResult(kr, versions[kr.ID]))
		}
	}
	return progress.Mean(ps), nil
}

// Periods classifies the key result's periods as of now and returns the
// requested page. The page index is clamped into range.
func (p *ProgressService) Periods(id string, now time.Time, page int) (PeriodPage, error) {
	kr, _, ok := p.arena.KeyResult(id)
	if !ok {
		return PeriodPage{}, fmt.Errorf("key result %s: %w", id, okr.ErrNotFound)
	}

	periods := tracker.BuildPeriods(kr, now)
	size := tracker.PageSize(kr.ReportFrequency)
	total := tracker.TotalPages(len(periods), size)
	page = tracker.ClampPage(page, total)
	start, end := tracker.Window(kr, now)

	freq := okr.FrequencyDaily
	if kr.ReportFrequency.IsWeekly() {
		freq = okr.FrequencyWeekly
	}

	return PeriodPage{
		KeyResultID: id,
		Frequency:   freq,
		WindowStart: start,
		WindowEnd:   end,
		Page:        page,
		PageSize:    size,
		TotalPages:  total,
		Periods:     tracker.Paginate(periods, size, page),
		Summary:     tracker.Summarize(periods),
	}, nil
}

// AllPeriods returns every classified period of a key result.
func (p *ProgressService) AllPeriods(id string, now time.Time) ([]tracker.PeriodStatus, error) {
	kr, _, ok := p.arena.KeyResult(id)
	if !ok {
		return nil, fmt.Errorf("key result %s: %w", id, okr.ErrNotFound)
	}
	return tracker.BuildPeriods(kr, now), nil
}

// Overview computes progress for every objective matching f.
func (p *ProgressService) Overview(f ObjectiveFilter, now time.Time) ([]ObjectiveView, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	objectives, versions := p.arena.Snapshot()
	out := make([]ObjectiveView, 0, len(objectives))
	for _, o := range objectives {
		if f.match(o) {
			out = append(out, p.view(o, versions, now))
		}
	}
	return out, nil
}

// ObjectiveView computes progress for one objective.
func (p *ProgressService) ObjectiveView(id string, now time.Time) (ObjectiveView, error) {
	objectives, versions := p.arena.Snapshot()
	for _, o := range objectives {
		if o.ID == id {
			return p.view(o, versions, now), nil
		}
	}
	return ObjectiveView{}, fmt.Errorf("objective %s: %w", id, okr.ErrNotFound)
}

func (p *ProgressService) view(o okr.Objective, versions map[string]uint64, now time.Time) ObjectiveView {
	view := ObjectiveView{
		Objective:  o,
		KeyResults: make([]KeyResultView, 0, len(o.KeyResults)),
	}
	view.Objective.KeyResults = nil

	ps := make([]float64, 0, len(o.KeyResults))
	for _, kr := range o.KeyResults {
		kv := KeyResultView{
			KeyResult: kr,
			Progress:  p.keyResult(kr, versions[kr.ID]),
			Current:   currentPeriod(kr, now),
		}
		if level, ok := progress.ReachedStretchLevel(kr); ok {
			kv.StretchLevel = &level
		}
		view.KeyResults = append(view.KeyResults, kv)
		if !kr.IsArchived {
			ps = append(ps, kv.Progress)
		}
	}
	view.Progress = progress.Mean(ps)
	return view
}

// keyResult memoizes progress.KeyResult. Version 0 means the key result is
// not in the arena and is never cached.
func (p *ProgressService) keyResult(kr okr.KeyResult, version uint64) float64 {
	if version == 0 {
		return progress.KeyResult(kr)
	}

	key := progressKey{id: kr.ID, version: version}
	if v, ok := p.cache.Get(key); ok {
		p.observe(true)
		return v
	}

	v := progress.KeyResult(kr)
	p.cache.Add(key, v)
	p.observe(false)
	return v
}

func (p *ProgressService) observe(hit bool) {
	if p.observer != nil {
		p.observer.ObserveProgressCache(hit)
	}
}

// currentPeriod returns the last elapsed period, or nil when the window has
// not started.
func currentPeriod(kr okr.KeyResult, now time.Time) *tracker.PeriodStatus {
	if kr.Category == okr.CategoryAssignment {
		return nil
	}
	periods := tracker.BuildPeriods(kr, now)
	for i := len(periods) - 1; i >= 0; i-- {
		if periods[i].Classification != tracker.Future {
			p := periods[i]
			return &p
		}
	}
	return nil
}
