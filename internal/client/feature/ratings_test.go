package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenlog/pkg/models"
)

type fakeRatingsAPI struct {
	setErr    error
	deleteErr error
	setCalls  int
}

func (f *fakeRatingsAPI) SetRating(_ context.Context, mediaType, mediaID string, rating float64, review string) (*models.Rating, error) {
	f.setCalls++
	if f.setErr != nil {
		return nil, f.setErr
	}
	return &models.Rating{MediaType: mediaType, MediaID: mediaID, Rating: rating, Review: review}, nil
}

func (f *fakeRatingsAPI) DeleteRating(context.Context, string, string) error {
	return f.deleteErr
}

func TestRateAppliesLocallyAndConfirms(t *testing.T) {
	h := newHarness(t)
	api := &fakeRatingsAPI{}
	ratings := NewRatings(api, h.store, h.coord)

	require.NoError(t, ratings.Rate(context.Background(), "movie", "603", 4.5, "still holds up"))

	rec, ok := ratings.Get("movie", "603")
	require.True(t, ok)
	assert.Equal(t, 4.5, rec.Rating)
	assert.Equal(t, "still holds up", rec.Review)
	assert.Equal(t, 1, api.setCalls)
	assert.Zero(t, h.store.PendingCount())
}

func TestRateFailureRestoresPriorRating(t *testing.T) {
	h := newHarness(t)
	api := &fakeRatingsAPI{}
	ratings := NewRatings(api, h.store, h.coord)

	require.NoError(t, ratings.Rate(context.Background(), "movie", "603", 3.0, "first pass"))
	before, ok := ratings.Get("movie", "603")
	require.True(t, ok)

	api.setErr = errors.New("network down")
	err := ratings.Rate(context.Background(), "movie", "603", 5.0, "rewatch")
	require.Error(t, err)

	after, ok := ratings.Get("movie", "603")
	require.True(t, ok)
	assert.Equal(t, before, after, "failed re-rate restores the prior record exactly")
	assert.Equal(t, 1, h.notes.count())
}

func TestRateFailureOnFreshTitleLeavesNoRating(t *testing.T) {
	h := newHarness(t)
	api := &fakeRatingsAPI{setErr: errors.New("boom")}
	ratings := NewRatings(api, h.store, h.coord)

	require.Error(t, ratings.Rate(context.Background(), "tv", "1396", 4.0, ""))

	_, ok := ratings.Get("tv", "1396")
	assert.False(t, ok)
	assert.Zero(t, h.store.PendingCount())
}

func TestRemoveFailureRestoresRating(t *testing.T) {
	h := newHarness(t)
	api := &fakeRatingsAPI{}
	ratings := NewRatings(api, h.store, h.coord)

	require.NoError(t, ratings.Rate(context.Background(), "movie", "603", 4.0, "keeper"))
	before, _ := ratings.Get("movie", "603")

	api.deleteErr = errors.New("boom")
	require.Error(t, ratings.Remove(context.Background(), "movie", "603"))

	after, ok := ratings.Get("movie", "603")
	require.True(t, ok)
	assert.Equal(t, before, after)
}
