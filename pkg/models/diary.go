package models

import "time"

// DiaryEntry records that a user watched a title on a given day.
type DiaryEntry struct {
	UserID    string    `json:"user_id"`
	MediaType string    `json:"media_type"`
	MediaID   string    `json:"media_id"`
	WatchedOn string    `json:"watched_on"` // YYYY-MM-DD
	Rewatch   bool      `json:"rewatch,omitempty"`
	At        time.Time `json:"at"`
}
