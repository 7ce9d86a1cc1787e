package feature

import (
	"context"

	"screenlog/internal/client/optimistic"
	"screenlog/internal/client/store"
	"screenlog/pkg/models"
)

type WatchlistAPI interface {
	AddWatchlist(ctx context.Context, mediaType, mediaID string) (*models.WatchlistItem, error)
	RemoveWatchlist(ctx context.Context, mediaType, mediaID string) error
}

type Watchlist struct {
	api   WatchlistAPI
	store *store.Store
	coord *optimistic.Coordinator
}

func NewWatchlist(api WatchlistAPI, st *store.Store, coord *optimistic.Coordinator) *Watchlist {
	return &Watchlist{api: api, store: st, coord: coord}
}

// Contains reports watchlist membership for a title.
func (w *Watchlist) Contains(mediaType, mediaID string) bool {
	return w.store.InWatchlist(mediaType, mediaID)
}

type watchlistPrev struct {
	rec     store.WatchlistRecord
	existed bool
}

// Toggle flips membership for a title. A toggle while the previous one
// for the same title is unresolved is ignored.
func (w *Watchlist) Toggle(ctx context.Context, mediaType, mediaID string) error {
	if w.store.InWatchlist(mediaType, mediaID) {
		return w.Remove(ctx, mediaType, mediaID)
	}
	return w.Add(ctx, mediaType, mediaID)
}

func (w *Watchlist) Add(ctx context.Context, mediaType, mediaID string) error {
	return optimistic.Run(w.coord, ctx, optimistic.Mutation[watchlistPrev]{
		Key: "watchlist_" + string(store.Key(mediaType, mediaID)),
		Capture: func() watchlistPrev {
			rec, ok := w.store.WatchlistItem(mediaType, mediaID)
			return watchlistPrev{rec: rec, existed: ok}
		},
		Apply: func() {
			w.store.AddWatchlist(mediaType, mediaID)
		},
		Commit: func(ctx context.Context) error {
			_, err := w.api.AddWatchlist(ctx, mediaType, mediaID)
			return err
		},
		Rollback: func(prev watchlistPrev) {
			if !prev.existed {
				w.store.RemoveWatchlist(mediaType, mediaID)
			}
		},
		FailureMessage: "Could not add to your watchlist.",
	})
}

func (w *Watchlist) Remove(ctx context.Context, mediaType, mediaID string) error {
	return optimistic.Run(w.coord, ctx, optimistic.Mutation[watchlistPrev]{
		Key: "watchlist_" + string(store.Key(mediaType, mediaID)),
		Capture: func() watchlistPrev {
			rec, ok := w.store.WatchlistItem(mediaType, mediaID)
			return watchlistPrev{rec: rec, existed: ok}
		},
		Apply: func() {
			w.store.RemoveWatchlist(mediaType, mediaID)
		},
		Commit: func(ctx context.Context) error {
			return w.api.RemoveWatchlist(ctx, mediaType, mediaID)
		},
		Rollback: func(prev watchlistPrev) {
			if prev.existed {
				w.store.PutWatchlist(mediaType, mediaID, prev.rec)
			}
		},
		FailureMessage: "Could not remove from your watchlist.",
	})
}
