package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenlog/internal/realtime"
	"screenlog/pkg/models"
)

type fakeFollowAPI struct {
	followErr   error
	unfollowErr error
	stats       models.ProfileStats
	statsErr    error
	nilStats    bool
}

func (f *fakeFollowAPI) Follow(context.Context, string) (*models.ProfileStats, error) {
	if f.followErr != nil {
		return nil, f.followErr
	}
	stats := f.stats
	return &stats, nil
}

func (f *fakeFollowAPI) Unfollow(context.Context, string) (*models.ProfileStats, error) {
	if f.unfollowErr != nil {
		return nil, f.unfollowErr
	}
	if f.nilStats {
		return nil, nil
	}
	stats := f.stats
	return &stats, nil
}

func (f *fakeFollowAPI) GetFollowState(_ context.Context, userID string) (*models.FollowState, error) {
	return &models.FollowState{Stats: f.stats}, nil
}

func (f *fakeFollowAPI) GetProfileStats(context.Context, string) (*models.ProfileStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	stats := f.stats
	return &stats, nil
}

func TestFollowToggleReconcilesWithServerCount(t *testing.T) {
	h := newHarness(t)
	api := &fakeFollowAPI{stats: models.ProfileStats{FollowersCount: 15}}
	follow := NewFollow(api, h.bus, h.coord, newStubSource(), zerolog.Nop())
	follow.Seed("u2", FollowState{IsFollowing: false, FollowersCount: 10})

	require.NoError(t, follow.Toggle(context.Background(), "u2"))

	state := follow.State("u2")
	assert.True(t, state.IsFollowing)
	assert.Equal(t, 15, state.FollowersCount, "server count wins over the local +1")
}

func TestFollowFailureRestoresFlagAndCountExactly(t *testing.T) {
	h := newHarness(t)
	api := &fakeFollowAPI{followErr: errors.New("network down")}
	follow := NewFollow(api, h.bus, h.coord, newStubSource(), zerolog.Nop())
	follow.Seed("u2", FollowState{IsFollowing: false, FollowersCount: 10})

	require.Error(t, follow.Toggle(context.Background(), "u2"))

	state := follow.State("u2")
	assert.False(t, state.IsFollowing)
	assert.Equal(t, 10, state.FollowersCount, "the optimistic +1 is undone, not recomputed")
	assert.Equal(t, 1, h.notes.count())
}

func TestUnfollowFailureRestoresFlagAndCountExactly(t *testing.T) {
	h := newHarness(t)
	api := &fakeFollowAPI{unfollowErr: errors.New("boom")}
	follow := NewFollow(api, h.bus, h.coord, newStubSource(), zerolog.Nop())
	follow.Seed("u2", FollowState{IsFollowing: true, FollowersCount: 10})

	require.Error(t, follow.Toggle(context.Background(), "u2"))

	state := follow.State("u2")
	assert.True(t, state.IsFollowing)
	assert.Equal(t, 10, state.FollowersCount)
}

func TestUnfollowWithStaleZeroCountNeverGoesNegative(t *testing.T) {
	h := newHarness(t)
	api := &fakeFollowAPI{nilStats: true}
	follow := NewFollow(api, h.bus, h.coord, newStubSource(), zerolog.Nop())
	follow.Seed("u2", FollowState{IsFollowing: true, FollowersCount: 0})

	require.NoError(t, follow.Toggle(context.Background(), "u2"))

	state := follow.State("u2")
	assert.False(t, state.IsFollowing)
	assert.Equal(t, 0, state.FollowersCount, "local decrement clamps at zero")
}

func TestWatchProfileMirrorsLiveFollowerCount(t *testing.T) {
	h := newHarness(t)
	api := &fakeFollowAPI{stats: models.ProfileStats{UserID: "u2", FollowersCount: 7}}
	source := newStubSource()
	follow := NewFollow(api, h.bus, h.coord, source, zerolog.Nop())

	proj, err := follow.WatchProfile(context.Background(), "u2")
	require.NoError(t, err)
	defer proj.Stop()

	assert.Equal(t, 7, follow.State("u2").FollowersCount, "seed fetch fills the count")

	source.push(t, realtime.ProfileSubject("u2"), models.ProfileStats{UserID: "u2", FollowersCount: 8})
	assert.Equal(t, 8, follow.State("u2").FollowersCount)
	assert.Equal(t, 8, proj.Value().FollowersCount)
}
