package model

import (
	"time"
)

type SubmissionState string

const (
	SubmissionPending   SubmissionState = "pending"
	SubmissionSubmitted SubmissionState = "submitted"
)

// Participation tracks one user's attempt at one contest. There is at most
// one per (contest, user) pair, and it becomes immutable once submitted.
// UpdatedAt doubles as the per-question clock anchor: the time limit for the
// current question is measured from the last state-changing operation.
type Participation struct {
	ID                   string          `json:"id"`
	ContestID            string          `json:"contest_id"`
	UserID               string          `json:"user_id"`
	SubmissionState      SubmissionState `json:"submission_state"`
	CurrentQuestionIndex int             `json:"current_question_index"`
	Score                int             `json:"score"`
	StartTime            time.Time       `json:"start_time"`
	SubmissionTime       *time.Time      `json:"submission_time,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`

	ContestName string `json:"contest_name,omitempty"` // For display
}

// Answer records one submitted selection. Append-only.
type Answer struct {
	ID              string    `json:"id"`
	ParticipationID string    `json:"participation_id"`
	QuestionID      string    `json:"question_id"`
	Position        int       `json:"position"`
	Selected        Selection `json:"selected"`
	CreatedAt       time.Time `json:"created_at"`
}
