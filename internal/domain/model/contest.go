package model

import (
	"time"
)

type ContestStatus string

const (
	ContestPending   ContestStatus = "pending"
	ContestLive      ContestStatus = "live"
	ContestComplete  ContestStatus = "complete"
	ContestCancelled ContestStatus = "cancelled"
)

type Contest struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Slug              string        `json:"slug"`
	Description       string        `json:"description"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           time.Time     `json:"end_time"`
	Prize             string        `json:"prize"`
	Status            ContestStatus `json:"status"`
	IsVipOnly         bool          `json:"is_vip_only"`
	ParticipantsCount int           `json:"participants_count"`
	MaxParticipants   int           `json:"max_participants"`
	MinParticipants   int           `json:"min_participants"`
	CreatedByID       string        `json:"created_by_id,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// IsJoinable reports whether new participants may still register.
// Registration closes once a contest goes live.
func (c *Contest) IsJoinable() bool {
	return c.Status == ContestPending
}

// IsActive reports whether the contest still counts against the
// single-active-contest rule for its pending participants.
func (c *Contest) IsActive() bool {
	return c.Status == ContestPending || c.Status == ContestLive
}
