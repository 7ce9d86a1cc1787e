package favorites

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

func (r *Repo) Add(ctx context.Context, userID, mediaType, mediaID string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO favorites (user_id, media_type, media_id, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, media_type, media_id) DO NOTHING
	`, userID, mediaType, mediaID)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (r *Repo) Remove(ctx context.Context, userID, mediaType, mediaID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM favorites
		WHERE user_id = ? AND media_type = ? AND media_id = ?
	`, userID, mediaType, mediaID)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) List(ctx context.Context, userID string, limit, offset int) ([]models.Favorite, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM favorites WHERE user_id = ?
	`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count favorites: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id, media_type, media_id, created_at
		FROM favorites
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	out := make([]models.Favorite, 0, limit)
	for rows.Next() {
		var f models.Favorite
		var created time.Time
		if err := rows.Scan(&f.UserID, &f.MediaType, &f.MediaID, &created); err != nil {
			return nil, 0, fmt.Errorf("scan favorite row: %w", err)
		}
		f.CreatedAt = created
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}

	return out, total, nil
}
