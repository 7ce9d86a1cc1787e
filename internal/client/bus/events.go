package bus

import "time"

// Kind identifies one of the closed set of client events. Handlers
// subscribe by kind; there are no free-form string event names.
type Kind int

const (
	KindProfileUpdated Kind = iota
	KindCustomizationUpdated
	KindRatingChanged
	KindWatchlistChanged
	KindFavoriteChanged
	KindFollowChanged
	KindStoreReset
)

func (k Kind) String() string {
	switch k {
	case KindProfileUpdated:
		return "profile.updated"
	case KindCustomizationUpdated:
		return "customization.updated"
	case KindRatingChanged:
		return "rating.changed"
	case KindWatchlistChanged:
		return "watchlist.changed"
	case KindFavoriteChanged:
		return "favorite.changed"
	case KindFollowChanged:
		return "follow.changed"
	case KindStoreReset:
		return "store.reset"
	default:
		return "unknown"
	}
}

// Origin says where a mutation came from. Handlers that persist on
// profile updates must skip OriginCrossTab events or two tabs would
// ping-pong storage writes forever.
type Origin int

const (
	OriginLocal Origin = iota
	OriginCrossTab
)

// Payload is implemented by every event payload type. The unexported
// method keeps the set closed: only this package can add kinds.
type Payload interface {
	payloadKind() Kind
}

// Event is what handlers receive.
type Event struct {
	Kind    Kind
	Origin  Origin
	Payload Payload
}

// ProfileUpdated is the generic "something about the profile state
// changed" event. Every store mutation emits one alongside its
// slice-specific event.
type ProfileUpdated struct{}

func (ProfileUpdated) payloadKind() Kind { return KindProfileUpdated }

type CustomizationUpdated struct {
	MediaType    string
	MediaID      string
	CustomPoster string
	CustomBanner string
	UpdatedAt    time.Time
}

func (CustomizationUpdated) payloadKind() Kind { return KindCustomizationUpdated }

type RatingChanged struct {
	MediaType string
	MediaID   string
	Rating    float64
	Removed   bool
}

func (RatingChanged) payloadKind() Kind { return KindRatingChanged }

type WatchlistChanged struct {
	MediaType string
	MediaID   string
	Added     bool
}

func (WatchlistChanged) payloadKind() Kind { return KindWatchlistChanged }

type FavoriteChanged struct {
	MediaType string
	MediaID   string
	Favorited bool
}

func (FavoriteChanged) payloadKind() Kind { return KindFavoriteChanged }

type FollowChanged struct {
	UserID         string
	Following      bool
	FollowersCount int
}

func (FollowChanged) payloadKind() Kind { return KindFollowChanged }

type StoreReset struct{}

func (StoreReset) payloadKind() Kind { return KindStoreReset }
