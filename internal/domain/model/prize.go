package model

import "time"

type Prize struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ContestID string    `json:"contest_id"`
	Prize     string    `json:"prize"`
	WonAt     time.Time `json:"won_at"`
	CreatedAt time.Time `json:"created_at"`

	ContestName string `json:"contest_name,omitempty"` // For display
	UserName    string `json:"user_name,omitempty"`    // For display
}
