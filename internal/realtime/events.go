package realtime

import (
	"encoding/json"
	"time"
)

// Frame types on the realtime channel.
const (
	TypeWelcome     = "welcome"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeChange      = "change"
)

// ChangeEvent is one server-pushed update for a subject. Doc carries
// the subject's current document verbatim; Found false means the
// subject no longer exists server-side and clients should fall back to
// their defaults.
type ChangeEvent struct {
	Type    string          `json:"type"`
	Subject string          `json:"subject"`
	Found   bool            `json:"found"`
	Doc     json.RawMessage `json:"doc,omitempty"`
	At      time.Time       `json:"at"`
}

// ClientFrame is what websocket clients send: subscribe/unsubscribe
// requests for a subject.
type ClientFrame struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
}

// CustomizationSubject keys the live customization record of one
// owner's title.
func CustomizationSubject(ownerID, mediaType, mediaID string) string {
	return "customization/" + ownerID + "/" + mediaType + "_" + mediaID
}

// ProfileSubject keys one user's live profile stats.
func ProfileSubject(userID string) string {
	return "profile/" + userID
}

// WatchlistSubject keys one user's membership of one title.
func WatchlistSubject(userID, mediaType, mediaID string) string {
	return "watchlist/" + userID + "/" + mediaType + "_" + mediaID
}
