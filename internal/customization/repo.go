package customization

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"screenlog/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Upsert merges a partial update into the user's customization row.
// Nil fields leave the stored column untouched.
func (r *Repo) Upsert(ctx context.Context, userID, mediaType, mediaID string, poster, banner *string) (*models.Customization, error) {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO customizations (user_id, media_type, media_id, custom_poster, custom_banner, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, media_type, media_id) DO UPDATE SET
			custom_poster = COALESCE(excluded.custom_poster, customizations.custom_poster),
			custom_banner = COALESCE(excluded.custom_banner, customizations.custom_banner),
			updated_at    = CURRENT_TIMESTAMP
	`, userID, mediaType, mediaID, poster, banner)
	if err != nil {
		return nil, fmt.Errorf("upsert customization: %w", err)
	}

	return r.Get(ctx, userID, mediaType, mediaID)
}

func (r *Repo) Get(ctx context.Context, userID, mediaType, mediaID string) (*models.Customization, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT user_id, media_type, media_id, custom_poster, custom_banner, updated_at
		FROM customizations
		WHERE user_id = ? AND media_type = ? AND media_id = ?
	`, userID, mediaType, mediaID)

	var (
		cu      models.Customization
		poster  sql.NullString
		banner  sql.NullString
		updated time.Time
	)
	if err := row.Scan(&cu.UserID, &cu.MediaType, &cu.MediaID, &poster, &banner, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get customization: %w", err)
	}

	cu.CustomPoster = poster.String
	cu.CustomBanner = banner.String
	cu.UpdatedAt = updated
	return &cu, nil
}

func (r *Repo) Delete(ctx context.Context, userID, mediaType, mediaID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM customizations
		WHERE user_id = ? AND media_type = ? AND media_id = ?
	`, userID, mediaType, mediaID)
	if err != nil {
		return false, fmt.Errorf("delete customization: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
