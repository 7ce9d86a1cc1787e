package diary

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

// Add appends one diary entry. The diary is append-only history; a
// rewatch is a new entry, not an update.
func (r *Repo) Add(ctx context.Context, entry models.DiaryEntry) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO diary (user_id, media_type, media_id, watched_on, rewatch, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.UserID, entry.MediaType, entry.MediaID, entry.WatchedOn, entry.Rewatch, entry.At)
	if err != nil {
		return fmt.Errorf("insert diary entry: %w", err)
	}
	return nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.DiaryEntry, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM diary WHERE user_id = ?
	`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count diary: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id, media_type, media_id, watched_on, rewatch, at
		FROM diary
		WHERE user_id = ?
		ORDER BY at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list diary: %w", err)
	}
	defer rows.Close()

	out := make([]models.DiaryEntry, 0, limit)
	for rows.Next() {
		var entry models.DiaryEntry
		var at time.Time
		if err := rows.Scan(&entry.UserID, &entry.MediaType, &entry.MediaID, &entry.WatchedOn, &entry.Rewatch, &at); err != nil {
			return nil, 0, fmt.Errorf("scan diary row: %w", err)
		}
		entry.At = at
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}

	return out, total, nil
}
