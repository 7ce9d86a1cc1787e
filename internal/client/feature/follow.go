package feature

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"screenlog/internal/client/bus"
	"screenlog/internal/client/optimistic"
	clientrealtime "screenlog/internal/client/realtime"
	"screenlog/internal/realtime"
	"screenlog/pkg/models"
)

type FollowAPI interface {
	Follow(ctx context.Context, userID string) (*models.ProfileStats, error)
	Unfollow(ctx context.Context, userID string) (*models.ProfileStats, error)
	GetFollowState(ctx context.Context, userID string) (*models.FollowState, error)
	GetProfileStats(ctx context.Context, userID string) (*models.ProfileStats, error)
}

// FollowState is the display state for one profile.
type FollowState struct {
	IsFollowing    bool
	FollowersCount int
}

type Follow struct {
	api    FollowAPI
	bus    *bus.Bus
	coord  *optimistic.Coordinator
	source clientrealtime.Source
	log    zerolog.Logger

	mu     sync.Mutex
	states map[string]FollowState
}

func NewFollow(api FollowAPI, eventBus *bus.Bus, coord *optimistic.Coordinator, source clientrealtime.Source, logger zerolog.Logger) *Follow {
	return &Follow{
		api:    api,
		bus:    eventBus,
		coord:  coord,
		source: source,
		log:    logger,
		states: make(map[string]FollowState),
	}
}

// Seed loads the server's view of one profile.
func (f *Follow) Seed(userID string, state FollowState) {
	f.mu.Lock()
	f.states[userID] = state
	f.mu.Unlock()
}

// Load fetches and caches the follow state for a profile.
func (f *Follow) Load(ctx context.Context, userID string) (FollowState, error) {
	dto, err := f.api.GetFollowState(ctx, userID)
	if err != nil {
		return FollowState{}, err
	}
	state := FollowState{IsFollowing: dto.IsFollowing, FollowersCount: dto.Stats.FollowersCount}
	f.Seed(userID, state)
	return state, nil
}

func (f *Follow) State(userID string) FollowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[userID]
}

func (f *Follow) setState(userID string, state FollowState) {
	f.mu.Lock()
	f.states[userID] = state
	f.mu.Unlock()

	f.bus.Emit(bus.FollowChanged{
		UserID:         userID,
		Following:      state.IsFollowing,
		FollowersCount: state.FollowersCount,
	})
}

// Toggle follows or unfollows a profile. The local follower count moves
// immediately and is reconciled with the server's canonical count on
// success; on failure both fields are restored exactly.
func (f *Follow) Toggle(ctx context.Context, userID string) error {
	return optimistic.Run(f.coord, ctx, optimistic.Mutation[FollowState]{
		Key: "follow_" + userID,
		Capture: func() FollowState {
			return f.State(userID)
		},
		Apply: func() {
			prev := f.State(userID)
			next := FollowState{IsFollowing: !prev.IsFollowing}
			if next.IsFollowing {
				next.FollowersCount = prev.FollowersCount + 1
			} else if prev.FollowersCount > 0 {
				// Unseeded state starts at zero; never show a negative count.
				next.FollowersCount = prev.FollowersCount - 1
			}
			f.setState(userID, next)
		},
		Commit: func(ctx context.Context) error {
			current := f.State(userID)
			var stats *models.ProfileStats
			var err error
			if current.IsFollowing {
				stats, err = f.api.Follow(ctx, userID)
			} else {
				stats, err = f.api.Unfollow(ctx, userID)
			}
			if err != nil {
				return err
			}
			if stats != nil {
				// Server count is canonical.
				f.setState(userID, FollowState{
					IsFollowing:    current.IsFollowing,
					FollowersCount: stats.FollowersCount,
				})
			}
			return nil
		},
		Rollback: func(prev FollowState) {
			f.setState(userID, prev)
		},
		FailureMessage: "Could not update follow.",
	})
}

// WatchProfile attaches a live projection of a profile's stats and
// mirrors follower counts into the hook's display state.
func (f *Follow) WatchProfile(ctx context.Context, userID string) (*clientrealtime.Projection[models.ProfileStats], error) {
	proj := clientrealtime.NewProjection(f.source, models.ProfileStats{UserID: userID}, f.log)
	proj.OnValue(func(stats models.ProfileStats, found bool) {
		f.mu.Lock()
		state := f.states[userID]
		if found {
			state.FollowersCount = stats.FollowersCount
		} else {
			state.FollowersCount = 0
		}
		f.states[userID] = state
		f.mu.Unlock()
	})

	err := proj.Watch(ctx, realtime.ProfileSubject(userID),
		func(ctx context.Context) (models.ProfileStats, bool, error) {
			stats, err := f.api.GetProfileStats(ctx, userID)
			if err != nil {
				return models.ProfileStats{}, false, err
			}
			return *stats, true, nil
		})
	if err != nil {
		return nil, err
	}
	return proj, nil
}
