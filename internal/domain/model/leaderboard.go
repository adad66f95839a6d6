package model

import "time"

// LeaderboardEntry is the immutable record of a finished participation,
// created exactly once when the participation transitions to submitted.
type LeaderboardEntry struct {
	ID              string    `json:"id"`
	ContestID       string    `json:"contest_id"`
	UserID          string    `json:"user_id"`
	ParticipationID string    `json:"participation_id"`
	Score           int       `json:"score"`
	SubmissionTime  time.Time `json:"submission_time"`
	CreatedAt       time.Time `json:"created_at"`

	UserName string `json:"user_name,omitempty"` // For display
}

// RankedEntry is a leaderboard entry with its computed position.
type RankedEntry struct {
	Rank           int       `json:"rank"`
	UserID         string    `json:"user_id"`
	UserName       string    `json:"user_name"`
	Score          int       `json:"score"`
	SubmissionTime time.Time `json:"submission_time"`
}
