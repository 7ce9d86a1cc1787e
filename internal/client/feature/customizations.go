package feature

import (
	"context"

	"github.com/rs/zerolog"

	"screenlog/internal/client/optimistic"
	clientrealtime "screenlog/internal/client/realtime"
	"screenlog/internal/client/store"
	"screenlog/internal/realtime"
	"screenlog/pkg/models"
)

type CustomizationsAPI interface {
	UpsertCustomization(ctx context.Context, mediaType, mediaID string, poster, banner *string) (*models.Customization, error)
	GetCustomization(ctx context.Context, ownerID, mediaType, mediaID string) (*models.Customization, error)
}

// Customizations owns per-title display overrides. Writes go through
// the coordinator against the viewer's own profile; reads can watch any
// owner's customization live, but only the viewer's own documents are
// mirrored back into the persisted store.
type Customizations struct {
	api      CustomizationsAPI
	store    *store.Store
	coord    *optimistic.Coordinator
	source   clientrealtime.Source
	viewerID string
	log      zerolog.Logger
}

func NewCustomizations(api CustomizationsAPI, st *store.Store, coord *optimistic.Coordinator, source clientrealtime.Source, logger zerolog.Logger) *Customizations {
	return &Customizations{
		api:    api,
		store:  st,
		coord:  coord,
		source: source,
		log:    logger,
	}
}

// SetViewer records the signed-in user, typically right after login.
func (c *Customizations) SetViewer(userID string) {
	c.viewerID = userID
}

// Get returns the viewer's own customization for a title, if any.
func (c *Customizations) Get(mediaType, mediaID string) (store.CustomizationRecord, bool) {
	return c.store.Customization(mediaType, mediaID)
}

type customizationPrev struct {
	rec     store.CustomizationRecord
	existed bool
}

// Set merges a patch into the viewer's customization for a title and
// confirms it remotely. Nil patch fields leave the stored value alone.
func (c *Customizations) Set(ctx context.Context, mediaType, mediaID string, patch store.CustomizationPatch) error {
	return optimistic.Run(c.coord, ctx, optimistic.Mutation[customizationPrev]{
		Key: "customization_" + string(store.Key(mediaType, mediaID)),
		Capture: func() customizationPrev {
			rec, ok := c.store.Customization(mediaType, mediaID)
			return customizationPrev{rec: rec, existed: ok}
		},
		Apply: func() {
			c.store.SetCustomization(mediaType, mediaID, patch)
		},
		Commit: func(ctx context.Context) error {
			_, err := c.api.UpsertCustomization(ctx, mediaType, mediaID, patch.CustomPoster, patch.CustomBanner)
			return err
		},
		Rollback: func(prev customizationPrev) {
			if prev.existed {
				c.store.PutCustomization(mediaType, mediaID, prev.rec)
			} else {
				c.store.RemoveCustomization(mediaType, mediaID)
			}
		},
		FailureMessage: "Could not save your customization.",
	})
}

// Watch attaches a live projection of one owner's customization for a
// title. When the owner is the viewer, accepted documents are mirrored
// into the persisted store so other tabs converge; other owners'
// documents stay projection-only.
func (c *Customizations) Watch(ctx context.Context, ownerID, mediaType, mediaID string, defaults models.Customization) (*clientrealtime.Projection[models.Customization], error) {
	proj := clientrealtime.NewProjection(c.source, defaults, c.log)

	if ownerID == c.viewerID && c.viewerID != "" {
		proj.OnValue(func(value models.Customization, found bool) {
			if found {
				c.store.PutCustomization(mediaType, mediaID, store.CustomizationRecord{
					CustomPoster: value.CustomPoster,
					CustomBanner: value.CustomBanner,
					UpdatedAt:    value.UpdatedAt,
				})
			} else {
				c.store.RemoveCustomization(mediaType, mediaID)
			}
		})
	}

	err := proj.Watch(ctx, realtime.CustomizationSubject(ownerID, mediaType, mediaID),
		func(ctx context.Context) (models.Customization, bool, error) {
			doc, err := c.api.GetCustomization(ctx, ownerID, mediaType, mediaID)
			if err != nil {
				return models.Customization{}, false, err
			}
			if doc == nil {
				return models.Customization{}, false, nil
			}
			return *doc, true, nil
		})
	if err != nil {
		return nil, err
	}
	return proj, nil
}
