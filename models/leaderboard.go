package models

import "time"

// LeaderboardEntry is one buyer ranked by the time of their first
// confirmed purchase.
type LeaderboardEntry struct {
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}
