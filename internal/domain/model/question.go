package model

import (
	"encoding/json"
	"time"

	"quizarena/internal/common"
)

type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionBoolean  QuestionType = "boolean"
)

type Question struct {
	ID           string       `json:"id"`
	ContestID    string       `json:"contest_id"`
	Position     int          `json:"position"`
	Prompt       string       `json:"prompt"`
	PromptHash   string       `json:"-"`
	QuestionType QuestionType `json:"question_type"`
	Options      []string     `json:"options"`
	Correct      Selection    `json:"-"` // never serialized to clients
	Score        int          `json:"score"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Selection is the tagged variant for a submitted or correct answer:
// a single option index for single/boolean questions, an index set for
// multiple-choice ones. On the wire it is either a JSON number or a JSON
// array of numbers. Which variant applies is decided by the question's
// type at evaluation time, never inferred from the payload shape alone.
type Selection struct {
	Single  int
	Multi   []int
	IsMulti bool
}

func SingleSelection(index int) Selection {
	return Selection{Single: index}
}

func MultiSelection(indices ...int) Selection {
	return Selection{Multi: indices, IsMulti: true}
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	var single int
	if err := json.Unmarshal(data, &single); err == nil {
		*s = Selection{Single: single}
		return nil
	}
	var multi []int
	if err := json.Unmarshal(data, &multi); err == nil {
		*s = Selection{Multi: multi, IsMulti: true}
		return nil
	}
	return common.Errorf("selection must be an option index or an array of indices: %w", common.ErrValidation)
}

func (s Selection) MarshalJSON() ([]byte, error) {
	if s.IsMulti {
		if s.Multi == nil {
			return json.Marshal([]int{})
		}
		return json.Marshal(s.Multi)
	}
	return json.Marshal(s.Single)
}
