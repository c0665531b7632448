package assist

import "google.golang.org/genai"

// Prompts holds the templates rendered for each assistant call. Templates
// use text/template syntax with the helpers from pkg/tmpl.
type Prompts struct {
	SuggestKeyResults string `yaml:"suggest_key_results"`
	SmartObjectives   string `yaml:"smart_objectives"`
	AnalyzeOKRData    string `yaml:"analyze_okr_data"`
}

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() Prompts {
	return Prompts{
		SuggestKeyResults: `Based on the following objective, suggest 3-4 specific, measurable, achievable, relevant, and time-bound (SMART) Key Results.
Objective Title: {{ quote .Title }}
Objective Description: {{ quote (default "none" .Description) }}

For each Key Result, provide a title, a type ('NUMBER', 'PERCENTAGE', or 'CURRENCY'), a startValue, and a targetValue. The startValue for new goals is typically 0.`,

		SmartObjectives: `As an expert OKR and business strategy coach, generate strategic perspectives and corresponding SMART objectives based on the user's input.

User's input:
- Goal idea and description: {{ quote .GoalDescription }}
- Motivations for this goal: {{ quote (default "not given" .Motivation) }}
- Team and expertise: {{ quote (default "not given" .TeamExpertise) }}

Generate 2-3 distinct strategic perspectives. For each perspective provide a perspectiveTitle, a one-sentence perspectiveDescription and 1-2 objectives.
Each objective has an objectiveTitle, an objectiveDescription of what success looks like, and 2-3 keyResults with a title, a type ('NUMBER', 'PERCENTAGE', 'CURRENCY'), a startValue and a targetValue.`,

		AnalyzeOKRData: `Analyze the following OKR data for a company.

Data:
{{ json .Data }}

Provide a concise but insightful analysis in {{ .Language }}, covering:
1. Overall performance summary, including the average completion percentage ({{ pct .AverageProgress }} across {{ .ObjectiveCount }} objectives).
2. Key strengths: which objectives or teams are performing well and why.
3. Areas for improvement: objectives that are lagging or at risk, and likely bottlenecks.
4. Two or three actionable recommendations for leadership.

Format the response as Markdown with headings in {{ .Language }}.`,
	}
}

func keyResultSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {Type: genai.TypeString, Description: "The title of the Key Result."},
			"type": {
				Type:        genai.TypeString,
				Description: "The type of the metric.",
				Enum:        []string{"NUMBER", "PERCENTAGE", "CURRENCY"},
			},
			"startValue":  {Type: genai.TypeNumber, Description: "The starting value of the metric."},
			"targetValue": {Type: genai.TypeNumber, Description: "The target value to be achieved."},
		},
		Required: []string{"title", "type", "startValue", "targetValue"},
	}
}

func suggestionsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"suggestions": {Type: genai.TypeArray, Items: keyResultSchema()},
		},
		Required: []string{"suggestions"},
	}
}

func perspectivesSchema() *genai.Schema {
	objective := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"objectiveTitle":       {Type: genai.TypeString},
			"objectiveDescription": {Type: genai.TypeString},
			"keyResults":           {Type: genai.TypeArray, Items: keyResultSchema()},
		},
		Required: []string{"objectiveTitle", "objectiveDescription", "keyResults"},
	}
	perspective := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"perspectiveTitle":       {Type: genai.TypeString},
			"perspectiveDescription": {Type: genai.TypeString},
			"objectives":             {Type: genai.TypeArray, Items: objective},
		},
		Required: []string{"perspectiveTitle", "perspectiveDescription", "objectives"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"perspectives": {Type: genai.TypeArray, Items: perspective},
		},
		Required: []string{"perspectives"},
	}
}
