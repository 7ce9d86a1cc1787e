package store

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenlog/internal/client/bus"
)

// twoTabs wires two stores over one shared storage, the way two browser
// tabs share an origin's storage slot.
func twoTabs(t *testing.T) (tabA, tabB *Store, busA, busB *bus.Bus, storage *MemStorage) {
	t.Helper()
	storage = NewMemStorage()
	busA = bus.New(zerolog.Nop())
	busB = bus.New(zerolog.Nop())
	tabA = New(storage, busA, zerolog.Nop())
	tabB = New(storage, busB, zerolog.Nop())

	stopA, err := tabA.StartCrossTabSync()
	require.NoError(t, err)
	t.Cleanup(stopA)
	stopB, err := tabB.StartCrossTabSync()
	require.NoError(t, err)
	t.Cleanup(stopB)
	return
}

func TestCrossTabConvergenceWithoutFeedback(t *testing.T) {
	tabA, tabB, _, busB, storage := twoTabs(t)

	var crossTab, local int
	busB.Subscribe(bus.KindProfileUpdated, func(e bus.Event) {
		if e.Origin == bus.OriginCrossTab {
			crossTab++
		} else {
			local++
		}
	})

	tabA.SetRating("movie", "5", 4.5, "")

	rec, ok := tabB.Rating("movie", "5")
	require.True(t, ok, "tab B converges to tab A's mutation")
	assert.Equal(t, 4.5, rec.Rating)

	recA, _ := tabA.Rating("movie", "5")
	assert.Equal(t, recA.Rating, rec.Rating)

	assert.Equal(t, 1, crossTab, "tab B announces the incoming change once, tagged cross-tab")
	assert.Zero(t, local)
	assert.Equal(t, 1, storage.WriteCount(DefaultSlot),
		"one originating mutation results in exactly one persisted write")
}

func TestCrossTabNoOpOnIdenticalContent(t *testing.T) {
	tabA, _, busA, busB, storage := twoTabs(t)

	tabA.SetRating("movie", "5", 4.5, "")
	require.Equal(t, 1, storage.WriteCount(DefaultSlot))

	var emissionsA, emissionsB int
	busA.Subscribe(bus.KindProfileUpdated, func(bus.Event) { emissionsA++ })
	busB.Subscribe(bus.KindProfileUpdated, func(bus.Event) { emissionsB++ })

	// Rewrite the slot with byte-identical content: both tabs must
	// deep-compare, find nothing new, and stay silent.
	data, err := storage.Get(DefaultSlot)
	require.NoError(t, err)
	require.NoError(t, storage.Set(DefaultSlot, data))

	assert.Zero(t, emissionsA)
	assert.Zero(t, emissionsB)
}

func TestCrossTabIgnoresUnparseableChange(t *testing.T) {
	tabA, tabB, _, busB, storage := twoTabs(t)

	tabA.AddWatchlist("movie", "42")
	require.True(t, tabB.InWatchlist("movie", "42"))

	var events int
	busB.Subscribe(bus.KindProfileUpdated, func(bus.Event) { events++ })

	require.NoError(t, storage.Set(DefaultSlot, []byte("{definitely not json")))

	assert.True(t, tabB.InWatchlist("movie", "42"), "corrupt change leaves state untouched")
	assert.Zero(t, events)
}

func TestCrossTabReplacesSlicesWholesale(t *testing.T) {
	tabA, tabB, _, _, _ := twoTabs(t)

	// Tab B holds an entry that tab A's snapshot does not have; after an
	// incoming snapshot the store mirrors the slot exactly, so the
	// local-only entry disappears. (Tab B's own write would have synced
	// it; this simulates divergence before the storage tick.)
	tabB.mu.Lock()
	tabB.watchlist[Key("movie", "stale")] = WatchlistRecord{}
	tabB.mu.Unlock()

	tabA.SetRating("movie", "1", 3, "")

	assert.False(t, tabB.InWatchlist("movie", "stale"))
	_, ok := tabB.Rating("movie", "1")
	assert.True(t, ok)
}

func TestCrossTabKeepsLocalPendingLedger(t *testing.T) {
	tabA, tabB, _, _, _ := twoTabs(t)

	tabB.StartOptimisticUpdate("follow_u9", nil)
	tabA.SetRating("movie", "1", 3, "")

	_, ok := tabB.Pending("follow_u9")
	assert.True(t, ok, "incoming snapshots never touch the volatile ledger")
}

func TestStopCrossTabSyncIsIdempotent(t *testing.T) {
	storage := NewMemStorage()
	s := New(storage, bus.New(zerolog.Nop()), zerolog.Nop())

	stop, err := s.StartCrossTabSync()
	require.NoError(t, err)
	stop()
	assert.NotPanics(t, stop)
}
