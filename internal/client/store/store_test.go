package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenlog/internal/client/bus"
)

func newTestStore(t *testing.T) (*Store, *MemStorage, *bus.Bus) {
	t.Helper()
	storage := NewMemStorage()
	b := bus.New(zerolog.Nop())
	return New(storage, b, zerolog.Nop()), storage, b
}

func TestRehydrateFromPersistedSnapshot(t *testing.T) {
	storage := NewMemStorage()
	b := bus.New(zerolog.Nop())

	first := New(storage, b, zerolog.Nop())
	first.SetRating("movie", "603", 4.5, "still holds up")
	first.AddWatchlist("tv", "1396")

	second := New(storage, b, zerolog.Nop())
	rec, ok := second.Rating("movie", "603")
	require.True(t, ok)
	assert.Equal(t, 4.5, rec.Rating)
	assert.Equal(t, "still holds up", rec.Review)
	assert.True(t, second.InWatchlist("tv", "1396"))
}

func TestRehydrateCorruptSnapshotStartsCold(t *testing.T) {
	storage := NewMemStorage()
	storage.Corrupt(DefaultSlot)

	s := New(storage, bus.New(zerolog.Nop()), zerolog.Nop())
	assert.Empty(t, s.Snapshot().Ratings)
	assert.Empty(t, s.Snapshot().Customizations)
	assert.Empty(t, s.Snapshot().Watchlist)
}

func TestRehydrateUnknownVersionStartsCold(t *testing.T) {
	storage := NewMemStorage()
	snap := emptySnapshot()
	snap.Version = 99
	snap.Ratings[Key("movie", "1")] = RatingRecord{Rating: 5}
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, storage.Set(DefaultSlot, data))

	s := New(storage, bus.New(zerolog.Nop()), zerolog.Nop())
	assert.Empty(t, s.Snapshot().Ratings)
}

func TestSetCustomizationShallowMerges(t *testing.T) {
	s, _, _ := newTestStore(t)

	poster := "https://img.example/poster.jpg"
	first := s.SetCustomization("movie", "603", CustomizationPatch{CustomPoster: &poster})
	assert.Equal(t, poster, first.CustomPoster)
	assert.Empty(t, first.CustomBanner)

	banner := "https://img.example/banner.jpg"
	second := s.SetCustomization("movie", "603", CustomizationPatch{CustomBanner: &banner})
	assert.Equal(t, poster, second.CustomPoster, "unpatched field survives the merge")
	assert.Equal(t, banner, second.CustomBanner)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestSetCustomizationRefreshesUpdatedAt(t *testing.T) {
	s, _, _ := newTestStore(t)

	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return tick }

	poster := "p1"
	rec := s.SetCustomization("movie", "1", CustomizationPatch{CustomPoster: &poster})
	assert.Equal(t, tick, rec.UpdatedAt)

	tick = tick.Add(time.Hour)
	rec = s.SetCustomization("movie", "1", CustomizationPatch{CustomPoster: &poster})
	assert.Equal(t, tick, rec.UpdatedAt, "UpdatedAt refreshes even when the value is unchanged")
}

func TestMutatingOneKeyLeavesOthersAlone(t *testing.T) {
	s, _, _ := newTestStore(t)

	poster := "p"
	s.SetCustomization("movie", "1", CustomizationPatch{CustomPoster: &poster})
	s.SetCustomization("movie", "2", CustomizationPatch{CustomPoster: &poster})
	s.SetRating("movie", "1", 3, "")
	s.AddWatchlist("movie", "1")

	before := s.Snapshot()
	s.SetRating("movie", "1", 5, "rewatched")
	after := s.Snapshot()

	assert.Equal(t, before.Customizations, after.Customizations)
	assert.Equal(t, before.Watchlist, after.Watchlist)
	assert.Equal(t, before.Ratings[Key("movie", "2")], after.Ratings[Key("movie", "2")])
	assert.NotEqual(t, before.Ratings[Key("movie", "1")], after.Ratings[Key("movie", "1")])
}

func TestEveryMutatorPersistsAndEmits(t *testing.T) {
	s, storage, b := newTestStore(t)

	var profileEvents, ratingEvents int
	b.Subscribe(bus.KindProfileUpdated, func(bus.Event) { profileEvents++ })
	b.Subscribe(bus.KindRatingChanged, func(bus.Event) { ratingEvents++ })

	s.SetRating("movie", "603", 4, "")
	assert.Equal(t, 1, storage.WriteCount(DefaultSlot))
	assert.Equal(t, 1, profileEvents, "slice mutation also emits the generic profile event")
	assert.Equal(t, 1, ratingEvents)

	// Reads neither persist nor emit.
	s.Rating("movie", "603")
	s.Snapshot()
	assert.Equal(t, 1, storage.WriteCount(DefaultSlot))
	assert.Equal(t, 1, profileEvents)
}

func TestPendingUpdateLifecycle(t *testing.T) {
	s, storage, _ := newTestStore(t)

	id := s.StartOptimisticUpdate("favorite_movie_42", map[string]any{"prev": false})
	assert.NotEmpty(t, id)

	p, ok := s.Pending("favorite_movie_42")
	require.True(t, ok)
	assert.Equal(t, id, p.ID)
	assert.NotZero(t, p.Timestamp)

	s.CompleteOptimisticUpdate("favorite_movie_42")
	_, ok = s.Pending("favorite_movie_42")
	assert.False(t, ok)

	s.StartOptimisticUpdate("follow_u2", nil)
	s.RollbackOptimisticUpdate("follow_u2")
	_, ok = s.Pending("follow_u2")
	assert.False(t, ok)
	assert.Zero(t, s.PendingCount())

	// The pending ledger is volatile: starting one never hits storage.
	assert.Zero(t, storage.WriteCount(DefaultSlot))
}

func TestPendingUpdatesExcludedFromSnapshot(t *testing.T) {
	s, storage, _ := newTestStore(t)

	s.StartOptimisticUpdate("op", "data")
	s.SetRating("movie", "1", 2, "")

	data, err := storage.Get(DefaultSlot)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "pending")

	// A fresh store over the same slot starts with an empty ledger.
	fresh := New(storage, bus.New(zerolog.Nop()), zerolog.Nop())
	assert.Zero(t, fresh.PendingCount())
}

func TestRemoveRatingOnAbsentKeyIsNoOp(t *testing.T) {
	s, storage, b := newTestStore(t)

	var events int
	b.Subscribe(bus.KindRatingChanged, func(bus.Event) { events++ })

	s.RemoveRating("movie", "nope")
	assert.Zero(t, storage.WriteCount(DefaultSlot))
	assert.Zero(t, events)
}

func TestResetClearsEverythingAndAnnounces(t *testing.T) {
	s, storage, b := newTestStore(t)

	var resets int
	b.Subscribe(bus.KindStoreReset, func(bus.Event) { resets++ })

	s.SetRating("movie", "1", 4, "")
	s.AddWatchlist("movie", "2")
	s.StartOptimisticUpdate("op", nil)

	s.Reset()

	snap := s.Snapshot()
	assert.Empty(t, snap.Ratings)
	assert.Empty(t, snap.Watchlist)
	assert.Empty(t, snap.Customizations)
	assert.Zero(t, s.PendingCount())
	assert.Equal(t, 1, resets)

	// The empty snapshot is what is on disk now.
	fresh := New(storage, bus.New(zerolog.Nop()), zerolog.Nop())
	assert.Empty(t, fresh.Snapshot().Ratings)
}
