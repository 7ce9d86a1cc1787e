package models

import "time"

// WatchlistItem is one entry in a user's watchlist.
type WatchlistItem struct {
	UserID    string    `json:"user_id"`
	MediaType string    `json:"media_type"`
	MediaID   string    `json:"media_id"`
	AddedAt   time.Time `json:"added_at"`
}

// Favorite marks a title a user has favorited.
type Favorite struct {
	UserID    string    `json:"user_id"`
	MediaType string    `json:"media_type"`
	MediaID   string    `json:"media_id"`
	CreatedAt time.Time `json:"created_at"`
}
