package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"screenlog/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	Q         string // keyword search in title
	MediaType string // "movie", "tv" or empty for both
	Genres    []string
	Year      int
	Limit     int
	Offset    int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.TitleDB, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, media_type, tmdb_id, title, year, genres, overview, poster_url, banner_url
		FROM titles
		WHERE id = ?
	`, id)

	t, err := scanTitle(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return t, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	row := r.DB.QueryRowContext(ctx, sqlStr, args...)
	var total int
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.TitleDB, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.TitleDB, 0, q.Limit)
	for rows.Next() {
		t, err := scanTitle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Upsert writes a canonical title row; the catalog-sync command feeds
// it from TMDB.
func (r *Repo) Upsert(ctx context.Context, t models.TitleCanonical) error {
	genres, err := json.Marshal(t.Genres)
	if err != nil {
		return fmt.Errorf("marshal genres: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO titles (id, media_type, tmdb_id, title, year, genres, overview, poster_url, banner_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			media_type = excluded.media_type,
			tmdb_id    = excluded.tmdb_id,
			title      = excluded.title,
			year       = excluded.year,
			genres     = excluded.genres,
			overview   = excluded.overview,
			poster_url = excluded.poster_url,
			banner_url = excluded.banner_url
	`, t.ID, t.MediaType, t.TMDBID, t.Title, t.Year, string(genres), t.Overview, t.PosterURL, t.BannerURL)
	if err != nil {
		return fmt.Errorf("upsert title: %w", err)
	}
	return nil
}

func scanTitle(scan func(dest ...any) error) (*models.TitleDB, error) {
	var (
		t          models.TitleDB
		tmdbID     sql.NullInt64
		year       sql.NullInt64
		genresJSON string
		overview   sql.NullString
		posterURL  sql.NullString
		bannerURL  sql.NullString
	)

	if err := scan(
		&t.ID, &t.MediaType, &tmdbID, &t.Title, &year, &genresJSON, &overview, &posterURL, &bannerURL,
	); err != nil {
		return nil, err
	}

	t.TMDBID = tmdbID.Int64
	if year.Valid {
		t.Year = int(year.Int64)
	}
	t.Overview = overview.String
	t.PosterURL = posterURL.String
	t.BannerURL = bannerURL.String

	_ = json.Unmarshal([]byte(genresJSON), &t.Genres)
	return &t, nil
}

// buildListSQL builds either COUNT(*) or SELECT list.
// genres filter is "any-match" by doing LIKE searches inside stored JSON text.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `
		SELECT id, media_type, tmdb_id, title, year, genres, overview, poster_url, banner_url
		FROM titles
	`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM titles`
	}

	var where []string
	var args []any

	if strings.TrimSpace(q.Q) != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(q.Q))+"%")
	}

	if strings.TrimSpace(q.MediaType) != "" {
		where = append(where, "media_type = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(q.MediaType)))
	}

	if q.Year > 0 {
		where = append(where, "year = ?")
		args = append(args, q.Year)
	}

	// any-match genre filter against JSON string
	if len(q.Genres) > 0 {
		var genreOr []string
		for _, g := range q.Genres {
			g = strings.TrimSpace(g)
			if g == "" {
				continue
			}
			genreOr = append(genreOr, "LOWER(genres) LIKE ?")
			args = append(args, `%`+strings.ToLower(g)+`%`)
		}
		if len(genreOr) > 0 {
			where = append(where, "("+strings.Join(genreOr, " OR ")+")")
		}
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY title ASC"
		sqlStr += " LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}
