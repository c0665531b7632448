package okr

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Report is the qualitative part of a check-in. Older clients send a plain
// string, which is kept in Text; structured reports fill the other fields.
type Report struct {
	Text       string `json:"-"`
	TasksDone  string `json:"tasksDone,omitempty"`
	TasksNext  string `json:"tasksNext,omitempty"`
	Challenges string `json:"challenges,omitempty"`
}

// IsStructured reports whether any of the structured fields are set.
func (r Report) IsStructured() bool {
	return r.TasksDone != "" || r.TasksNext != "" || r.Challenges != ""
}

// String flattens the report into a single block of text.
func (r Report) String() string {
	if !r.IsStructured() {
		return r.Text
	}

	var parts []string
	if r.Text != "" {
		parts = append(parts, r.Text)
	}
	if r.TasksDone != "" {
		parts = append(parts, "Done: "+r.TasksDone)
	}
	if r.TasksNext != "" {
		parts = append(parts, "Next: "+r.TasksNext)
	}
	if r.Challenges != "" {
		parts = append(parts, "Challenges: "+r.Challenges)
	}
	return strings.Join(parts, "\n")
}

type reportFields struct {
	TasksDone  string `json:"tasksDone,omitempty"`
	TasksNext  string `json:"tasksNext,omitempty"`
	Challenges string `json:"challenges,omitempty"`
}

// MarshalJSON writes a plain string for text-only reports and an object
// otherwise.
func (r Report) MarshalJSON() ([]byte, error) {
	if !r.IsStructured() {
		return json.Marshal(r.Text)
	}
	return json.Marshal(reportFields{
		TasksDone:  r.TasksDone,
		TasksNext:  r.TasksNext,
		Challenges: r.Challenges,
	})
}

// UnmarshalJSON accepts either a string or an object.
func (r *Report) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Report{}
		return nil
	}

	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*r = Report{Text: text}
		return nil
	}

	var f reportFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Report{TasksDone: f.TasksDone, TasksNext: f.TasksNext, Challenges: f.Challenges}
	return nil
}
