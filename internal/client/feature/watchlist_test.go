package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenlog/pkg/models"
)

type fakeWatchlistAPI struct {
	addErr    error
	removeErr error
}

func (f *fakeWatchlistAPI) AddWatchlist(_ context.Context, mediaType, mediaID string) (*models.WatchlistItem, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &models.WatchlistItem{MediaType: mediaType, MediaID: mediaID}, nil
}

func (f *fakeWatchlistAPI) RemoveWatchlist(context.Context, string, string) error {
	return f.removeErr
}

func TestToggleAddsThenRemoves(t *testing.T) {
	h := newHarness(t)
	wl := NewWatchlist(&fakeWatchlistAPI{}, h.store, h.coord)

	require.NoError(t, wl.Toggle(context.Background(), "movie", "27205"))
	assert.True(t, wl.Contains("movie", "27205"))

	require.NoError(t, wl.Toggle(context.Background(), "movie", "27205"))
	assert.False(t, wl.Contains("movie", "27205"))
}

func TestAddFailureRemovesMembership(t *testing.T) {
	h := newHarness(t)
	wl := NewWatchlist(&fakeWatchlistAPI{addErr: errors.New("boom")}, h.store, h.coord)

	require.Error(t, wl.Add(context.Background(), "movie", "27205"))
	assert.False(t, wl.Contains("movie", "27205"))
	assert.Equal(t, 1, h.notes.count())
}

func TestRemoveFailureRestoresOriginalRecord(t *testing.T) {
	h := newHarness(t)
	api := &fakeWatchlistAPI{}
	wl := NewWatchlist(api, h.store, h.coord)

	require.NoError(t, wl.Add(context.Background(), "tv", "1396"))
	before, ok := h.store.WatchlistItem("tv", "1396")
	require.True(t, ok)

	api.removeErr = errors.New("boom")
	require.Error(t, wl.Remove(context.Background(), "tv", "1396"))

	after, ok := h.store.WatchlistItem("tv", "1396")
	require.True(t, ok)
	assert.Equal(t, before, after, "failed remove restores the original added-at timestamp")
}
