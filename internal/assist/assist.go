// Package assist drafts key results, objectives and progress analyses with
// a generative model.
package assist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/colonyops/okr/internal/core/kv"
	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/service"
	"github.com/colonyops/okr/pkg/tmpl"
)

// CacheTTL is how long a generated response is reused for the same prompt.
const CacheTTL = 24 * time.Hour

// Generator produces model output for a prompt. A non-nil schema asks for
// JSON matching it.
type Generator interface {
	Generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// SuggestedKR is a proposed key result.
type SuggestedKR struct {
	Title       string         `json:"title"`
	Type        okr.MetricType `json:"type"`
	StartValue  float64        `json:"startValue"`
	TargetValue float64        `json:"targetValue"`
}

// KeyResult converts the suggestion into a STANDARD key result.
func (s SuggestedKR) KeyResult() okr.KeyResult {
	target := s.TargetValue
	return okr.KeyResult{
		Title:       s.Title,
		Category:    okr.CategoryStandard,
		Type:        s.Type,
		StartValue:  s.StartValue,
		TargetValue: &target,
	}
}

// SuggestedObjective is a proposed objective with its key results.
type SuggestedObjective struct {
	Title       string        `json:"objectiveTitle"`
	Description string        `json:"objectiveDescription"`
	KeyResults  []SuggestedKR `json:"keyResults"`
}

// Objective converts the suggestion into an objective ready to create.
func (s SuggestedObjective) Objective() okr.Objective {
	o := okr.Objective{Title: s.Title, Description: s.Description}
	for _, kr := range s.KeyResults {
		o.KeyResults = append(o.KeyResults, kr.KeyResult())
	}
	return o
}

// Perspective is one strategic angle on a goal.
type Perspective struct {
	Title       string               `json:"perspectiveTitle"`
	Description string               `json:"perspectiveDescription"`
	Objectives  []SuggestedObjective `json:"objectives"`
}

// GoalInput describes the goal SMART objectives are drafted for.
type GoalInput struct {
	GoalDescription string
	Motivation      string
	TeamExpertise   string
}

// Assistant renders prompts, calls the generator and decodes its output.
// Responses are cached by prompt when a cache is configured.
type Assistant struct {
	gen     Generator
	prompts Prompts
	cache   *kv.Bucket[string]
	log     zerolog.Logger
}

// New creates an assistant. store may be nil to disable caching.
func New(gen Generator, store kv.KV, log zerolog.Logger) *Assistant {
	a := &Assistant{
		gen:     gen,
		prompts: DefaultPrompts(),
		log:     log.With().Str("component", "assist").Logger(),
	}
	if store != nil {
		a.cache = kv.Open[string](store, kv.BucketAssist)
	}
	return a
}

// WithPrompts replaces the templates. Blank fields keep the defaults.
func (a *Assistant) WithPrompts(p Prompts) *Assistant {
	if strings.TrimSpace(p.SuggestKeyResults) != "" {
		a.prompts.SuggestKeyResults = p.SuggestKeyResults
	}
	if strings.TrimSpace(p.SmartObjectives) != "" {
		a.prompts.SmartObjectives = p.SmartObjectives
	}
	if strings.TrimSpace(p.AnalyzeOKRData) != "" {
		a.prompts.AnalyzeOKRData = p.AnalyzeOKRData
	}
	return a
}

// SuggestKeyResults proposes key results for an objective.
func (a *Assistant) SuggestKeyResults(ctx context.Context, o okr.Objective) ([]SuggestedKR, error) {
	if strings.TrimSpace(o.Title) == "" {
		return nil, fmt.Errorf("%w: objective title is required", okr.ErrInvalid)
	}

	prompt, err := tmpl.Render(a.prompts.SuggestKeyResults, map[string]string{
		"Title":       o.Title,
		"Description": o.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	var out struct {
		Suggestions []SuggestedKR `json:"suggestions"`
	}
	if err := a.generateJSON(ctx, prompt, suggestionsSchema(), &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

// GenerateSmartObjectives drafts strategic perspectives for a goal.
func (a *Assistant) GenerateSmartObjectives(ctx context.Context, in GoalInput) ([]Perspective, error) {
	if strings.TrimSpace(in.GoalDescription) == "" {
		return nil, fmt.Errorf("%w: goal description is required", okr.ErrInvalid)
	}

	prompt, err := tmpl.Render(a.prompts.SmartObjectives, in)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	var out struct {
		Perspectives []Perspective `json:"perspectives"`
	}
	if err := a.generateJSON(ctx, prompt, perspectivesSchema(), &out); err != nil {
		return nil, err
	}
	return out.Perspectives, nil
}

type analysisData struct {
	Objectives []service.ObjectiveView `json:"objectives"`
	Users      []okr.User              `json:"users"`
}

// AnalyzeOKRData returns a Markdown analysis of the given objectives in
// language. An empty language defaults to Persian.
func (a *Assistant) AnalyzeOKRData(ctx context.Context, objectives []service.ObjectiveView, users []okr.User, language string) (string, error) {
	if len(objectives) == 0 {
		return "", fmt.Errorf("%w: no objectives to analyze", okr.ErrInvalid)
	}
	if language == "" {
		language = "Persian"
	}

	var sum float64
	for _, o := range objectives {
		sum += o.Progress
	}

	prompt, err := tmpl.Render(a.prompts.AnalyzeOKRData, map[string]any{
		"Data":            analysisData{Objectives: objectives, Users: users},
		"Language":        language,
		"AverageProgress": sum / float64(len(objectives)),
		"ObjectiveCount":  len(objectives),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	return a.generate(ctx, prompt, nil)
}

func (a *Assistant) generateJSON(ctx context.Context, prompt string, schema *genai.Schema, dst any) error {
	text, err := a.generate(ctx, prompt, schema)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		a.forget(ctx, prompt)
		return fmt.Errorf("decode model response: %w", err)
	}
	return nil
}

func (a *Assistant) generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	key := cacheKey(prompt)

	if a.cache != nil {
		cached, ok, err := a.cache.Lookup(ctx, key)
		switch {
		case err != nil:
			a.log.Warn().Err(err).Msg("read assistant cache")
		case ok:
			a.log.Debug().Str("key", key).Msg("cache hit")
			return cached, nil
		}
	}

	start := time.Now()
	text, err := a.gen.Generate(ctx, prompt, schema)
	if err != nil {
		return "", err
	}
	a.log.Info().Dur("elapsed", time.Since(start)).Int("chars", len(text)).Msg("model response")

	if a.cache != nil {
		if err := a.cache.Put(ctx, key, text, CacheTTL); err != nil {
			a.log.Warn().Err(err).Msg("write assistant cache")
		}
	}
	return text, nil
}

func (a *Assistant) forget(ctx context.Context, prompt string) {
	if a.cache == nil {
		return
	}
	_ = a.cache.Forget(ctx, cacheKey(prompt))
}

func cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:12])
}
