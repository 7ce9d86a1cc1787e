package follow

import (
	"context"
	"database/sql"
	"fmt"

	"screenlog/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Follow creates the edge follower -> followee. Following someone you
// already follow is a no-op.
func (r *Repo) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return fmt.Errorf("follow: cannot follow yourself")
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO follows (follower_id, followee_id, at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

func (r *Repo) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM follows
		WHERE follower_id = ? AND followee_id = ?
	`, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("unfollow: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `
		SELECT 1 FROM follows
		WHERE follower_id = ? AND followee_id = ?
	`, followerID, followeeID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is following: %w", err)
	}
	return true, nil
}

// Followers lists who follows the user, newest edge first.
func (r *Repo) Followers(ctx context.Context, userID string, limit, offset int) ([]models.UserSummary, error) {
	return r.listEdges(ctx, `
		SELECT u.id, u.username, f.at
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = ?
		ORDER BY f.at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
}

// Following lists who the user follows, newest edge first.
func (r *Repo) Following(ctx context.Context, userID string, limit, offset int) ([]models.UserSummary, error) {
	return r.listEdges(ctx, `
		SELECT u.id, u.username, f.at
		FROM follows f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = ?
		ORDER BY f.at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
}

func (r *Repo) listEdges(ctx context.Context, query, userID string, limit, offset int) ([]models.UserSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list follow edges: %w", err)
	}
	defer rows.Close()

	out := make([]models.UserSummary, 0, limit)
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.Since); err != nil {
			return nil, fmt.Errorf("scan follow edge: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Stats recomputes a user's live profile counters from the database.
func (r *Repo) Stats(ctx context.Context, userID string) (*models.ProfileStats, error) {
	stats := models.ProfileStats{UserID: userID}

	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM follows WHERE followee_id = ?
	`, userID).Scan(&stats.FollowersCount); err != nil {
		return nil, fmt.Errorf("count followers: %w", err)
	}

	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM follows WHERE follower_id = ?
	`, userID).Scan(&stats.FollowingCount); err != nil {
		return nil, fmt.Errorf("count following: %w", err)
	}

	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ratings WHERE user_id = ?
	`, userID).Scan(&stats.RatingsCount); err != nil {
		return nil, fmt.Errorf("count ratings: %w", err)
	}

	return &stats, nil
}
