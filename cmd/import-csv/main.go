package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"screenlog/pkg/database"
)

func main() {
	var (
		titlesIn  = flag.String("titles", "data/titles.csv", "input CSV path for catalog titles")
		ratingsIn = flag.String("ratings", "", "optional input CSV path for ratings")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := importTitles(ctx, db, *titlesIn); err != nil {
		log.Fatalf("import titles failed: %v", err)
	}
	if *ratingsIn != "" {
		if err := importRatings(ctx, db, *ratingsIn); err != nil {
			log.Fatalf("import ratings failed: %v", err)
		}
	}

	log.Printf("✅ imported catalog from %s", *titlesIn)
}

func importTitles(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO titles (id, media_type, title, year, genres, overview, poster_url, banner_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  media_type = excluded.media_type,
		  title = excluded.title,
		  year = excluded.year,
		  genres = excluded.genres,
		  overview = excluded.overview,
		  poster_url = excluded.poster_url,
		  banner_url = excluded.banner_url
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		id := valueAt(header, row, "id")
		title := valueAt(header, row, "title")
		mediaType := valueAt(header, row, "media_type")
		if id == "" || title == "" || mediaType == "" {
			continue
		}

		year, err := parseNullInt(valueAt(header, row, "year"))
		if err != nil {
			return fmt.Errorf("parse year for %s: %w", id, err)
		}

		genres := valueAt(header, row, "genres")
		if genres == "" {
			genres = "[]"
		}

		if _, err := stmt.ExecContext(
			ctx,
			id,
			mediaType,
			title,
			year,
			genres,
			nullString(valueAt(header, row, "overview")),
			nullString(valueAt(header, row, "poster_url")),
			nullString(valueAt(header, row, "banner_url")),
		); err != nil {
			return err
		}
	}

	return nil
}

func importRatings(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO ratings (user_id, media_type, media_id, rating, review, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, media_type, media_id) DO UPDATE SET
			rating = excluded.rating,
			review = excluded.review,
			timestamp = excluded.timestamp
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		userID := valueAt(header, row, "user_id")
		mediaType := valueAt(header, row, "media_type")
		mediaID := valueAt(header, row, "media_id")
		if userID == "" || mediaType == "" || mediaID == "" {
			continue
		}

		rating, err := strconv.ParseFloat(valueAt(header, row, "rating"), 64)
		if err != nil {
			return fmt.Errorf("parse rating for %s %s_%s: %w", userID, mediaType, mediaID, err)
		}

		ts, err := parseTime(valueAt(header, row, "timestamp"))
		if err != nil {
			return fmt.Errorf("parse timestamp for %s %s_%s: %w", userID, mediaType, mediaID, err)
		}
		if !ts.Valid {
			ts = sql.NullTime{Time: time.Now().UTC(), Valid: true}
		}

		if _, err := stmt.ExecContext(
			ctx,
			userID,
			mediaType,
			mediaID,
			rating,
			nullString(valueAt(header, row, "review")),
			ts,
		); err != nil {
			return err
		}
	}

	return nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseNullInt(raw string) (sql.NullInt64, error) {
	if raw == "" {
		return sql.NullInt64{}, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: n, Valid: true}, nil
}

func parseTime(raw string) (sql.NullTime, error) {
	if raw == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

func nullString(raw string) sql.NullString {
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}
