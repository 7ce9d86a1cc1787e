package watchlist

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

// Add inserts a watchlist entry. Re-adding an existing entry keeps the
// original added_at.
func (r *Repo) Add(ctx context.Context, userID, mediaType, mediaID string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO watchlist (user_id, media_type, media_id, added_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, media_type, media_id) DO NOTHING
	`, userID, mediaType, mediaID)
	if err != nil {
		return fmt.Errorf("add watchlist: %w", err)
	}
	return nil
}

func (r *Repo) Remove(ctx context.Context, userID, mediaType, mediaID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM watchlist
		WHERE user_id = ? AND media_type = ? AND media_id = ?
	`, userID, mediaType, mediaID)
	if err != nil {
		return false, fmt.Errorf("remove watchlist: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Get(ctx context.Context, userID, mediaType, mediaID string) (*models.WatchlistItem, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT user_id, media_type, media_id, added_at
		FROM watchlist
		WHERE user_id = ? AND media_type = ? AND media_id = ?
	`, userID, mediaType, mediaID)

	var it models.WatchlistItem
	var added time.Time
	if err := row.Scan(&it.UserID, &it.MediaType, &it.MediaID, &added); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get watchlist item: %w", err)
	}
	it.AddedAt = added
	return &it, nil
}

func (r *Repo) List(ctx context.Context, userID string, limit, offset int) ([]models.WatchlistItem, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM watchlist WHERE user_id = ?
	`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count watchlist: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id, media_type, media_id, added_at
		FROM watchlist
		WHERE user_id = ?
		ORDER BY added_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	out := make([]models.WatchlistItem, 0, limit)
	for rows.Next() {
		var it models.WatchlistItem
		var added time.Time
		if err := rows.Scan(&it.UserID, &it.MediaType, &it.MediaID, &added); err != nil {
			return nil, 0, fmt.Errorf("scan watchlist row: %w", err)
		}
		it.AddedAt = added
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}

	return out, total, nil
}
