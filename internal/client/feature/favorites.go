package feature

import (
	"context"
	"sync"

	"screenlog/internal/client/bus"
	"screenlog/internal/client/optimistic"
	"screenlog/internal/client/store"
)

type FavoritesAPI interface {
	AddFavorite(ctx context.Context, mediaType, mediaID string) error
	RemoveFavorite(ctx context.Context, mediaType, mediaID string) error
}

// Favorites keeps its membership in hook-local state rather than the
// persisted store; it still goes through the coordinator so rollbacks
// and the pending ledger behave like every other feature.
type Favorites struct {
	api   FavoritesAPI
	bus   *bus.Bus
	coord *optimistic.Coordinator

	mu    sync.Mutex
	items map[store.MediaKey]bool
}

func NewFavorites(api FavoritesAPI, eventBus *bus.Bus, coord *optimistic.Coordinator) *Favorites {
	return &Favorites{
		api:   api,
		bus:   eventBus,
		coord: coord,
		items: make(map[store.MediaKey]bool),
	}
}

// Seed loads the server's favorite list, typically right after login.
func (f *Favorites) Seed(keys []store.MediaKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = make(map[store.MediaKey]bool, len(keys))
	for _, k := range keys {
		f.items[k] = true
	}
}

func (f *Favorites) IsFavorite(mediaType, mediaID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[store.Key(mediaType, mediaID)]
}

func (f *Favorites) set(mediaType, mediaID string, favorited bool) {
	key := store.Key(mediaType, mediaID)
	f.mu.Lock()
	if favorited {
		f.items[key] = true
	} else {
		delete(f.items, key)
	}
	f.mu.Unlock()

	f.bus.Emit(bus.FavoriteChanged{MediaType: mediaType, MediaID: mediaID, Favorited: favorited})
}

// Toggle flips the favorite flag for a title.
func (f *Favorites) Toggle(ctx context.Context, mediaType, mediaID string) error {
	target := !f.IsFavorite(mediaType, mediaID)

	return optimistic.Run(f.coord, ctx, optimistic.Mutation[bool]{
		Key: "favorite_" + string(store.Key(mediaType, mediaID)),
		Capture: func() bool {
			return f.IsFavorite(mediaType, mediaID)
		},
		Apply: func() {
			f.set(mediaType, mediaID, target)
		},
		Commit: func(ctx context.Context) error {
			if target {
				return f.api.AddFavorite(ctx, mediaType, mediaID)
			}
			return f.api.RemoveFavorite(ctx, mediaType, mediaID)
		},
		Rollback: func(prev bool) {
			f.set(mediaType, mediaID, prev)
		},
		FailureMessage: "Could not update your favorites.",
	})
}
