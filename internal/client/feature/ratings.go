// Package feature holds the client-side feature hooks. Each hook owns
// one server collection, reads through the persisted store or its own
// local state, and mutates through the optimistic coordinator so every
// toggle is instant locally and rolled back exactly on remote failure.
package feature

import (
	"context"

	"screenlog/internal/client/optimistic"
	"screenlog/internal/client/store"
	"screenlog/pkg/models"
)

// RatingsAPI is the slice of the backend client the ratings hook needs.
type RatingsAPI interface {
	SetRating(ctx context.Context, mediaType, mediaID string, rating float64, review string) (*models.Rating, error)
	DeleteRating(ctx context.Context, mediaType, mediaID string) error
}

type Ratings struct {
	api   RatingsAPI
	store *store.Store
	coord *optimistic.Coordinator
}

func NewRatings(api RatingsAPI, st *store.Store, coord *optimistic.Coordinator) *Ratings {
	return &Ratings{api: api, store: st, coord: coord}
}

// Get returns the viewer's rating for a title, if any.
func (r *Ratings) Get(mediaType, mediaID string) (store.RatingRecord, bool) {
	return r.store.Rating(mediaType, mediaID)
}

type ratingPrev struct {
	rec     store.RatingRecord
	existed bool
}

// Rate applies the rating locally and confirms it remotely.
func (r *Ratings) Rate(ctx context.Context, mediaType, mediaID string, value float64, review string) error {
	return optimistic.Run(r.coord, ctx, optimistic.Mutation[ratingPrev]{
		Key: "rating_" + string(store.Key(mediaType, mediaID)),
		Capture: func() ratingPrev {
			rec, ok := r.store.Rating(mediaType, mediaID)
			return ratingPrev{rec: rec, existed: ok}
		},
		Apply: func() {
			r.store.SetRating(mediaType, mediaID, value, review)
		},
		Commit: func(ctx context.Context) error {
			_, err := r.api.SetRating(ctx, mediaType, mediaID, value, review)
			return err
		},
		Rollback: func(prev ratingPrev) {
			if prev.existed {
				r.store.PutRating(mediaType, mediaID, prev.rec)
			} else {
				r.store.RemoveRating(mediaType, mediaID)
			}
		},
		FailureMessage: "Could not save your rating.",
	})
}

// Remove deletes the viewer's rating for a title.
func (r *Ratings) Remove(ctx context.Context, mediaType, mediaID string) error {
	return optimistic.Run(r.coord, ctx, optimistic.Mutation[ratingPrev]{
		Key: "rating_" + string(store.Key(mediaType, mediaID)),
		Capture: func() ratingPrev {
			rec, ok := r.store.Rating(mediaType, mediaID)
			return ratingPrev{rec: rec, existed: ok}
		},
		Apply: func() {
			r.store.RemoveRating(mediaType, mediaID)
		},
		Commit: func(ctx context.Context) error {
			return r.api.DeleteRating(ctx, mediaType, mediaID)
		},
		Rollback: func(prev ratingPrev) {
			if prev.existed {
				r.store.PutRating(mediaType, mediaID, prev.rec)
			}
		},
		FailureMessage: "Could not remove your rating.",
	})
}
