package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"screenlog/pkg/database"
)

func main() {
	var (
		titlesOut = flag.String("titles", "data/titles.csv", "output CSV path for catalog titles")
		diaryOut  = flag.String("diary", "data/diary.csv", "output CSV path for diary entries")
		userID    = flag.String("user", "", "export diary for this user only (default all users)")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportTitles(ctx, db, *titlesOut); err != nil {
		log.Fatalf("export titles failed: %v", err)
	}
	if err := exportDiary(ctx, db, *diaryOut, *userID); err != nil {
		log.Fatalf("export diary failed: %v", err)
	}

	log.Printf("✅ exported titles to %s and diary to %s", *titlesOut, *diaryOut)
}

func exportTitles(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "media_type", "title", "year", "genres", "overview", "poster_url", "banner_url"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, media_type, title, year, genres, overview, poster_url, banner_url
        FROM titles
        ORDER BY title
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        string
			mediaType string
			title     string
			year      sql.NullInt64
			genres    sql.NullString
			overview  sql.NullString
			posterURL sql.NullString
			bannerURL sql.NullString
		)

		if err := rows.Scan(&id, &mediaType, &title, &year, &genres, &overview, &posterURL, &bannerURL); err != nil {
			return err
		}

		yr := ""
		if year.Valid {
			yr = strconv.FormatInt(year.Int64, 10)
		}

		if err := w.Write([]string{
			id,
			mediaType,
			title,
			yr,
			genres.String,
			overview.String,
			posterURL.String,
			bannerURL.String,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportDiary(ctx context.Context, db *sql.DB, outPath, userID string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"user_id", "media_type", "media_id", "watched_on", "rewatch", "rating", "at"}); err != nil {
		return err
	}

	// LEFT JOIN so entries without a rating still export.
	query := `
        SELECT d.user_id, d.media_type, d.media_id, d.watched_on, d.rewatch, r.rating, d.at
        FROM diary d
        LEFT JOIN ratings r
          ON r.user_id = d.user_id AND r.media_type = d.media_type AND r.media_id = d.media_id
    `
	args := []any{}
	if userID != "" {
		query += ` WHERE d.user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY d.at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			uid       string
			mediaType string
			mediaID   string
			watchedOn string
			rewatch   bool
			rating    sql.NullFloat64
			at        sql.NullTime
		)

		if err := rows.Scan(&uid, &mediaType, &mediaID, &watchedOn, &rewatch, &rating, &at); err != nil {
			return err
		}

		ratingStr := ""
		if rating.Valid {
			ratingStr = strconv.FormatFloat(rating.Float64, 'f', 1, 64)
		}
		atStr := ""
		if at.Valid {
			atStr = at.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			uid,
			mediaType,
			mediaID,
			watchedOn,
			strconv.FormatBool(rewatch),
			ratingStr,
			atStr,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
