package models

import "time"

// Rating is one user's rating (and optional review text) for a title.
// Ratings run 0.5-5.0 in half steps.
type Rating struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	MediaType string    `json:"media_type"`
	MediaID   string    `json:"media_id"`
	Rating    float64   `json:"rating"`
	Review    string    `json:"review,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
