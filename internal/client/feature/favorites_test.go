package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenlog/internal/client/bus"
	"screenlog/internal/client/notify"
	"screenlog/internal/client/store"
)

type fakeFavoritesAPI struct {
	addErr    error
	removeErr error
}

func (f *fakeFavoritesAPI) AddFavorite(context.Context, string, string) error {
	return f.addErr
}

func (f *fakeFavoritesAPI) RemoveFavorite(context.Context, string, string) error {
	return f.removeErr
}

func TestToggleFavoriteOnAndOff(t *testing.T) {
	h := newHarness(t)
	fav := NewFavorites(&fakeFavoritesAPI{}, h.bus, h.coord)

	require.NoError(t, fav.Toggle(context.Background(), "movie", "603"))
	assert.True(t, fav.IsFavorite("movie", "603"))

	require.NoError(t, fav.Toggle(context.Background(), "movie", "603"))
	assert.False(t, fav.IsFavorite("movie", "603"))
}

func TestFavoriteWhileOfflineFlipsBackAndNotifiesOnce(t *testing.T) {
	h := newHarness(t)
	fav := NewFavorites(&fakeFavoritesAPI{addErr: errors.New("network down")}, h.bus, h.coord)

	var seen []bool
	h.bus.Subscribe(bus.KindFavoriteChanged, func(ev bus.Event) {
		seen = append(seen, ev.Payload.(bus.FavoriteChanged).Favorited)
	})

	err := fav.Toggle(context.Background(), "movie", "603")
	require.Error(t, err)

	assert.False(t, fav.IsFavorite("movie", "603"))
	assert.Equal(t, []bool{true, false}, seen, "heart fills instantly, then flips back on failure")
	require.Equal(t, 1, h.notes.count(), "the user is told exactly once")
	assert.Equal(t, notify.Error, h.notes.kinds[0])
	assert.Zero(t, h.store.PendingCount())
}

func TestSeedReplacesMembership(t *testing.T) {
	h := newHarness(t)
	fav := NewFavorites(&fakeFavoritesAPI{}, h.bus, h.coord)

	fav.Seed([]store.MediaKey{store.Key("movie", "603"), store.Key("tv", "1396")})
	assert.True(t, fav.IsFavorite("movie", "603"))
	assert.True(t, fav.IsFavorite("tv", "1396"))

	fav.Seed([]store.MediaKey{store.Key("tv", "1396")})
	assert.False(t, fav.IsFavorite("movie", "603"))
}
