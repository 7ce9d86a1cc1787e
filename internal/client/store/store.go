// Package store is the persisted client-side state tree: the viewer's
// customizations, ratings and watchlist membership, plus the volatile
// pending-update ledger. One store exists per screenlog process; it is
// rehydrated from its storage slot at construction and kept convergent
// with sibling processes by the cross-tab listener.
package store

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"screenlog/internal/client/bus"
)

type Store struct {
	mu      sync.Mutex
	log     zerolog.Logger
	bus     *bus.Bus
	storage Storage
	slot    string
	now     func() time.Time

	customizations map[MediaKey]CustomizationRecord
	ratings        map[MediaKey]RatingRecord
	watchlist      map[MediaKey]WatchlistRecord
	pending        map[string]PendingUpdate
}

// New builds a store over the given storage slot and rehydrates it.
// An absent or corrupt slot degrades to empty slices, never an error.
func New(storage Storage, eventBus *bus.Bus, logger zerolog.Logger) *Store {
	s := &Store{
		log:     logger,
		bus:     eventBus,
		storage: storage,
		slot:    DefaultSlot,
		now:     time.Now,
		pending: make(map[string]PendingUpdate),
	}
	s.rehydrate()
	return s
}

func (s *Store) rehydrate() {
	snap := emptySnapshot()

	data, err := s.storage.Get(s.slot)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Msg("store: rehydrate read failed, starting cold")
	case data != nil:
		var parsed Snapshot
		if err := json.Unmarshal(data, &parsed); err != nil {
			s.log.Warn().Err(err).Msg("store: corrupt snapshot, starting cold")
		} else if parsed.Version != SnapshotVersion {
			s.log.Warn().Int("version", parsed.Version).Msg("store: unknown snapshot version, starting cold")
		} else {
			normalize(&parsed)
			snap = parsed
		}
	}

	s.customizations = snap.Customizations
	s.ratings = snap.Ratings
	s.watchlist = snap.Watchlist
}

// Snapshot returns a deep copy of the durable slices.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := emptySnapshot()
	for k, v := range s.customizations {
		snap.Customizations[k] = v
	}
	for k, v := range s.ratings {
		snap.Ratings[k] = v
	}
	for k, v := range s.watchlist {
		snap.Watchlist[k] = v
	}
	return snap
}

// persist serializes the durable slices into the storage slot. Called
// with the bytes built under lock but the write issued outside it, so
// storage notifications can re-enter the store.
func (s *Store) persist(data []byte) {
	if err := s.storage.Set(s.slot, data); err != nil {
		s.log.Warn().Err(err).Msg("store: persist failed")
	}
}

func (s *Store) marshalLocked() []byte {
	data, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		// Snapshot is plain maps of plain structs; this cannot happen.
		s.log.Error().Err(err).Msg("store: snapshot marshal failed")
		return nil
	}
	return data
}

func (s *Store) afterMutation(data []byte, events ...bus.Payload) {
	if data != nil {
		s.persist(data)
	}
	for _, ev := range events {
		s.bus.Emit(ev)
	}
	s.bus.Emit(bus.ProfileUpdated{})
}

// Customization returns the viewer's record for one title.
func (s *Store) Customization(mediaType, mediaID string) (CustomizationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.customizations[Key(mediaType, mediaID)]
	return rec, ok
}

// SetCustomization shallow-merges the patch into the existing record
// for the key and refreshes UpdatedAt.
func (s *Store) SetCustomization(mediaType, mediaID string, patch CustomizationPatch) CustomizationRecord {
	key := Key(mediaType, mediaID)

	s.mu.Lock()
	rec := s.customizations[key]
	if patch.CustomPoster != nil {
		rec.CustomPoster = *patch.CustomPoster
	}
	if patch.CustomBanner != nil {
		rec.CustomBanner = *patch.CustomBanner
	}
	rec.UpdatedAt = s.now().UTC()
	s.customizations[key] = rec
	data := s.marshalLocked()
	s.mu.Unlock()

	s.afterMutation(data, bus.CustomizationUpdated{
		MediaType:    mediaType,
		MediaID:      mediaID,
		CustomPoster: rec.CustomPoster,
		CustomBanner: rec.CustomBanner,
		UpdatedAt:    rec.UpdatedAt,
	})
	return rec
}

// PutCustomization stores a record verbatim. The realtime projection
// uses it to mirror the server's canonical record for the viewer's own
// data; rollbacks use it to restore a captured value exactly.
func (s *Store) PutCustomization(mediaType, mediaID string, rec CustomizationRecord) {
	key := Key(mediaType, mediaID)

	s.mu.Lock()
	s.customizations[key] = rec
	data := s.marshalLocked()
	s.mu.Unlock()

	s.afterMutation(data, bus.CustomizationUpdated{
		MediaType:    mediaType,
		MediaID:      mediaID,
		CustomPoster: rec.CustomPoster,
		CustomBanner: rec.CustomBanner,
		UpdatedAt:    rec.UpdatedAt,
	})
}

// RemoveCustomization drops the record for one title.
func (s *Store) RemoveCustomization(mediaType, mediaID string) {
	key := Key(mediaType, mediaID)

	s.mu.Lock()
	if _, ok := s.customizations[key]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.customizations, key)
	data := s.marshalLocked()
	s.mu.Unlock()

	s.afterMutation(data, bus.CustomizationUpdated{MediaType: mediaType, MediaID: mediaID})
}

// Rating returns the viewer's rating record for one title.
func (s *Store) Rating(mediaType, mediaID string) (RatingRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.ratings[Key(mediaType, mediaID)]
	return rec, ok
}

// SetRating records a rating with the mutation time.
func (s *Store) SetRating(mediaType, mediaID string, value float64, review string) RatingRecord {
	rec := RatingRecord{Rating: value, Review: review, UpdatedAt: s.now().UTC()}
	s.PutRating(mediaType, mediaID, rec)
	return rec
}

// PutRating stores a rating record verbatim.
func (s *Store) PutRating(mediaType, mediaID string, rec RatingRecord) {
	key := Key(mediaType, mediaID)

	s.mu.Lock()
	s.ratings[key] = rec
	data := s.marshalLocked()
	s.mu.Unlock()

	s.afterMutation(data, bus.RatingChanged{
		MediaType: mediaType,
		MediaID:   mediaID,
		Rating:    rec.Rating,
	})
}

// RemoveRating drops the viewer's rating for one title.
func (s *Store) RemoveRating(mediaType, mediaID string) {
	key := Key(mediaType, mediaID)

	s.mu.Lock()
	if _, ok := s.ratings[key]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.ratings, key)
	data := s.marshalLocked()
	s.mu.Unlock()

	s.afterMutation(data, bus.RatingChanged{MediaType: mediaType, MediaID: mediaID, Removed: true})
}

// InWatchlist reports membership for one title.
func (s *Store) InWatchlist(mediaType, mediaID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watchlist[Key(mediaType, mediaID)]
	return ok
}

// WatchlistItem returns the membership record for one title.
func (s *Store) WatchlistItem(mediaType, mediaID string) (WatchlistRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.watchlist[Key(mediaType, mediaID)]
	return rec, ok
}

// AddWatchlist records membership with the mutation time.
func (s *Store) AddWatchlist(mediaType, mediaID string) WatchlistRecord {
	rec := WatchlistRecord{AddedAt: s.now().UTC()}
	s.PutWatchlist(mediaType, mediaID, rec)
	return rec
}

// PutWatchlist stores a membership record verbatim.
func (s *Store) PutWatchlist(mediaType, mediaID string, rec WatchlistRecord) {
	key := Key(mediaType, mediaID)

	s.mu.Lock()
	s.watchlist[key] = rec
	data := s.marshalLocked()
	s.mu.Unlock()

	s.afterMutation(data, bus.WatchlistChanged{MediaType: mediaType, MediaID: mediaID, Added: true})
}

// RemoveWatchlist drops membership for one title.
func (s *Store) RemoveWatchlist(mediaType, mediaID string) {
	key := Key(mediaType, mediaID)

	s.mu.Lock()
	if _, ok := s.watchlist[key]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.watchlist, key)
	data := s.marshalLocked()
	s.mu.Unlock()

	s.afterMutation(data, bus.WatchlistChanged{MediaType: mediaType, MediaID: mediaID, Added: false})
}

// StartOptimisticUpdate inserts a pending entry for key and returns the
// operation id. Pending entries are volatile: they are not persisted
// and do not survive the process.
func (s *Store) StartOptimisticUpdate(key string, data any) string {
	id := uuid.NewString()

	s.mu.Lock()
	s.pending[key] = PendingUpdate{
		ID:        id,
		Key:       key,
		Data:      data,
		Timestamp: s.now().UnixMilli(),
	}
	s.mu.Unlock()
	return id
}

// CompleteOptimisticUpdate removes the pending entry after the remote
// mutation confirmed.
func (s *Store) CompleteOptimisticUpdate(key string) {
	s.mu.Lock()
	delete(s.pending, key)
	s.mu.Unlock()
}

// RollbackOptimisticUpdate removes the pending entry after the remote
// mutation failed and the local value was restored.
func (s *Store) RollbackOptimisticUpdate(key string) {
	s.mu.Lock()
	delete(s.pending, key)
	s.mu.Unlock()
}

// Pending returns the in-flight entry for key, if any.
func (s *Store) Pending(key string) (PendingUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[key]
	return p, ok
}

// PendingCount reports the number of in-flight optimistic mutations.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Reset clears every slice and the pending ledger, persists the empty
// snapshot and announces the reset. Called on sign-out so the next
// user never sees the previous user's cached state.
func (s *Store) Reset() {
	s.mu.Lock()
	s.customizations = make(map[MediaKey]CustomizationRecord)
	s.ratings = make(map[MediaKey]RatingRecord)
	s.watchlist = make(map[MediaKey]WatchlistRecord)
	s.pending = make(map[string]PendingUpdate)
	data := s.marshalLocked()
	s.mu.Unlock()

	s.persist(data)
	s.bus.Emit(bus.StoreReset{})
	s.bus.Emit(bus.ProfileUpdated{})
}
