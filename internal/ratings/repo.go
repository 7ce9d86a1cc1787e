package ratings

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

// Upsert writes the user's rating for a title, replacing any previous
// one. One rating per user per title.
func (r *Repo) Upsert(ctx context.Context, userID, mediaType, mediaID string, rating float64, review string) (*models.Rating, error) {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO ratings (user_id, media_type, media_id, rating, review, timestamp)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, media_type, media_id) DO UPDATE SET
			rating    = excluded.rating,
			review    = excluded.review,
			timestamp = CURRENT_TIMESTAMP
	`, userID, mediaType, mediaID, rating, review)
	if err != nil {
		return nil, fmt.Errorf("upsert rating: %w", err)
	}

	return r.Get(ctx, userID, mediaType, mediaID)
}

func (r *Repo) Get(ctx context.Context, userID, mediaType, mediaID string) (*models.Rating, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, media_type, media_id, rating, review, timestamp
		FROM ratings
		WHERE user_id = ? AND media_type = ? AND media_id = ?
	`, userID, mediaType, mediaID)

	rating, err := scanRating(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan rating: %w", err)
	}
	return rating, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Rating, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, media_type, media_id, rating, review, timestamp
		FROM ratings
		WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	return collectRatings(rows, limit)
}

func (r *Repo) ListByMedia(ctx context.Context, mediaType, mediaID string, limit, offset int) ([]models.Rating, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, media_type, media_id, rating, review, timestamp
		FROM ratings
		WHERE media_type = ? AND media_id = ?
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`, mediaType, mediaID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ratings by media: %w", err)
	}
	defer rows.Close()

	return collectRatings(rows, limit)
}

func (r *Repo) Delete(ctx context.Context, userID, mediaType, mediaID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM ratings
		WHERE user_id = ? AND media_type = ? AND media_id = ?
	`, userID, mediaType, mediaID)
	if err != nil {
		return false, fmt.Errorf("delete rating: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

func scanRating(scan func(dest ...any) error) (*models.Rating, error) {
	var rating models.Rating
	var review sql.NullString
	var ts time.Time
	if err := scan(&rating.ID, &rating.UserID, &rating.MediaType, &rating.MediaID, &rating.Rating, &review, &ts); err != nil {
		return nil, err
	}
	rating.Review = review.String
	rating.Timestamp = ts
	return &rating, nil
}

func collectRatings(rows *sql.Rows, limit int) ([]models.Rating, error) {
	out := make([]models.Rating, 0, limit)
	for rows.Next() {
		rating, err := scanRating(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan rating row: %w", err)
		}
		out = append(out, *rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
