package models

import "time"

// Follow is one edge in the social graph: follower -> followee.
type Follow struct {
	FollowerID string    `json:"follower_id"`
	FolloweeID string    `json:"followee_id"`
	At         time.Time `json:"at"`
}

// FollowState is the viewer's relationship to a profile plus its stats.
type FollowState struct {
	IsFollowing bool         `json:"is_following"`
	Stats       ProfileStats `json:"stats"`
}

// UserSummary is the public shape of a user in follower listings.
type UserSummary struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Since    time.Time `json:"since"`
}

// ProfileStats are the live counters shown on a user's profile page.
type ProfileStats struct {
	UserID         string `json:"user_id"`
	FollowersCount int    `json:"followers_count"`
	FollowingCount int    `json:"following_count"`
	RatingsCount   int    `json:"ratings_count"`
}
