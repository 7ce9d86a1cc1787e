package store

import (
	"bytes"
	"encoding/json"

	"screenlog/internal/client/bus"
)

// StartCrossTabSync attaches the storage watcher that keeps this
// store convergent with sibling processes writing the same slot. The
// returned stop function is idempotent.
//
// The watcher also fires for this process's own writes; those parse to
// a snapshot deep-equal to current state and fall out at the equality
// check, which is the same mechanism that stops two processes from
// ping-ponging writes at each other.
func (s *Store) StartCrossTabSync() (func(), error) {
	return s.storage.Watch(s.slot, s.handleStorageChange)
}

func (s *Store) handleStorageChange(data []byte) {
	var incoming Snapshot
	if err := json.Unmarshal(data, &incoming); err != nil {
		s.log.Debug().Err(err).Msg("store: ignoring unparseable storage change")
		return
	}
	if incoming.Version != SnapshotVersion {
		s.log.Debug().Int("version", incoming.Version).Msg("store: ignoring storage change with unknown version")
		return
	}
	normalize(&incoming)

	s.mu.Lock()
	if snapshotsEqual(s.snapshotLocked(), incoming) {
		s.mu.Unlock()
		return
	}
	// Wholesale replacement: the incoming snapshot is authoritative for
	// every durable slice. The pending ledger is local-only and kept.
	s.customizations = incoming.Customizations
	s.ratings = incoming.Ratings
	s.watchlist = incoming.Watchlist
	s.mu.Unlock()

	// Cross-tab origin so persist-on-update handlers skip re-persisting.
	s.bus.EmitFrom(bus.OriginCrossTab, bus.ProfileUpdated{})
}

// snapshotsEqual compares two snapshots structurally via their
// canonical JSON. Marshaling both sides strips time.Time monotonic
// clocks and map ordering, which a reflect.DeepEqual on mixed
// in-memory/parsed values would trip over.
func snapshotsEqual(a, b Snapshot) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}
