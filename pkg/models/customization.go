package models

import "time"

// Customization is an owner's per-title display override: a custom
// poster and/or banner shown on their profile instead of the catalog art.
// Readable by any viewer; writable only by the owner.
type Customization struct {
	UserID       string    `json:"user_id"`
	MediaType    string    `json:"media_type"`
	MediaID      string    `json:"media_id"`
	CustomPoster string    `json:"custom_poster,omitempty"`
	CustomBanner string    `json:"custom_banner,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}
