package store

import "time"

// SnapshotVersion tags the persisted snapshot schema. A slot carrying
// an unknown version rehydrates as a cold start rather than an error.
const SnapshotVersion = 1

// DefaultSlot is the storage slot name shared by every screenlog
// process on a machine.
const DefaultSlot = "screenlog_profile"

// MediaKey is the composite slice key: mediaType + "_" + mediaID.
type MediaKey string

func Key(mediaType, mediaID string) MediaKey {
	return MediaKey(mediaType + "_" + mediaID)
}

// CustomizationRecord is the viewer's own per-title display override.
type CustomizationRecord struct {
	CustomPoster string    `json:"custom_poster,omitempty"`
	CustomBanner string    `json:"custom_banner,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CustomizationPatch carries the fields of a customization mutation.
// Nil fields are left untouched; set fields are shallow-merged in.
type CustomizationPatch struct {
	CustomPoster *string
	CustomBanner *string
}

type RatingRecord struct {
	Rating    float64   `json:"rating"`
	Review    string    `json:"review,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WatchlistRecord struct {
	AddedAt time.Time `json:"added_at"`
}

// PendingUpdate marks an optimistic mutation that has been applied
// locally but not yet confirmed remotely. Pending entries are
// session-only: they are never part of the persisted snapshot.
type PendingUpdate struct {
	ID        string
	Key       string
	Data      any
	Timestamp int64
}

// Snapshot is the durable portion of the store as persisted to the
// storage slot.
type Snapshot struct {
	Version        int                              `json:"version"`
	Customizations map[MediaKey]CustomizationRecord `json:"customizations"`
	Ratings        map[MediaKey]RatingRecord        `json:"ratings"`
	Watchlist      map[MediaKey]WatchlistRecord     `json:"watchlist"`
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Version:        SnapshotVersion,
		Customizations: make(map[MediaKey]CustomizationRecord),
		Ratings:        make(map[MediaKey]RatingRecord),
		Watchlist:      make(map[MediaKey]WatchlistRecord),
	}
}

func normalize(s *Snapshot) {
	if s.Customizations == nil {
		s.Customizations = make(map[MediaKey]CustomizationRecord)
	}
	if s.Ratings == nil {
		s.Ratings = make(map[MediaKey]RatingRecord)
	}
	if s.Watchlist == nil {
		s.Watchlist = make(map[MediaKey]WatchlistRecord)
	}
}
