package bus

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *Bus {
	return New(zerolog.Nop())
}

func TestEmitDeliversInRegistrationOrder(t *testing.T) {
	b := newTestBus()

	var got []int
	b.Subscribe(KindRatingChanged, func(Event) { got = append(got, 1) })
	b.Subscribe(KindRatingChanged, func(Event) { got = append(got, 2) })
	b.Subscribe(KindRatingChanged, func(Event) { got = append(got, 3) })

	b.Emit(RatingChanged{MediaType: "movie", MediaID: "1", Rating: 4})

	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestPanickingHandlerDoesNotStopSiblings(t *testing.T) {
	b := newTestBus()

	secondRan := false
	b.Subscribe(KindWatchlistChanged, func(Event) { panic("boom") })
	b.Subscribe(KindWatchlistChanged, func(Event) { secondRan = true })

	require.NotPanics(t, func() {
		b.Emit(WatchlistChanged{MediaType: "movie", MediaID: "42", Added: true})
	})
	assert.True(t, secondRan)
}

func TestUnsubscribeSelfDuringEmit(t *testing.T) {
	b := newTestBus()

	var calls []string
	var sub Subscription
	sub = b.Subscribe(KindProfileUpdated, func(Event) {
		calls = append(calls, "first")
		b.Unsubscribe(sub)
	})
	b.Subscribe(KindProfileUpdated, func(Event) { calls = append(calls, "second") })

	b.Emit(ProfileUpdated{})
	assert.Equal(t, []string{"first", "second"}, calls, "removing yourself mid-emit must not skip siblings")

	// The self-removed handler stays gone on the next emit.
	calls = nil
	b.Emit(ProfileUpdated{})
	assert.Equal(t, []string{"second"}, calls)
}

func TestDuplicateRegistrationFiresPerRegistration(t *testing.T) {
	b := newTestBus()

	count := 0
	fn := func(Event) { count++ }
	b.Subscribe(KindFavoriteChanged, fn)
	b.Subscribe(KindFavoriteChanged, fn)

	b.Emit(FavoriteChanged{MediaType: "movie", MediaID: "7", Favorited: true})
	assert.Equal(t, 2, count)
}

func TestUnsubscribeRemovesOnlyThatRegistration(t *testing.T) {
	b := newTestBus()

	count := 0
	fn := func(Event) { count++ }
	first := b.Subscribe(KindFollowChanged, fn)
	b.Subscribe(KindFollowChanged, fn)

	b.Unsubscribe(first)
	b.Emit(FollowChanged{UserID: "u1", Following: true, FollowersCount: 1})
	assert.Equal(t, 1, count)
}

func TestNilHandlerIgnored(t *testing.T) {
	b := newTestBus()

	sub := b.Subscribe(KindStoreReset, nil)
	assert.Zero(t, sub.id)

	require.NotPanics(t, func() {
		b.Unsubscribe(sub)
		b.Emit(StoreReset{})
	})
}

func TestEventCarriesOriginAndPayload(t *testing.T) {
	b := newTestBus()

	var seen Event
	b.Subscribe(KindRatingChanged, func(e Event) { seen = e })

	b.EmitFrom(OriginCrossTab, RatingChanged{MediaType: "movie", MediaID: "5", Rating: 4.5})

	assert.Equal(t, OriginCrossTab, seen.Origin)
	payload, ok := seen.Payload.(RatingChanged)
	require.True(t, ok)
	assert.Equal(t, 4.5, payload.Rating)
}

func TestEmptyHandlerListIsDropped(t *testing.T) {
	b := newTestBus()

	sub := b.Subscribe(KindStoreReset, func(Event) {})
	b.Unsubscribe(sub)

	b.mu.Lock()
	_, present := b.handlers[KindStoreReset]
	b.mu.Unlock()
	assert.False(t, present)
}
