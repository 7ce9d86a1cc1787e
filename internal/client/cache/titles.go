// Package cache keeps a local copy of catalog titles so repeat lookups
// skip the network. Entries age out rather than being invalidated; the
// catalog changes slowly enough that stale art is acceptable.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"screenlog/pkg/models"
)

var bucketTitles = []byte("titles")

// DefaultMaxAge is how long a cached title is served before Get treats
// it as missing.
const DefaultMaxAge = 24 * time.Hour

type Titles struct {
	db *bolt.DB
}

type entry struct {
	Title    models.TitleDB `json:"title"`
	CachedAt time.Time      `json:"cached_at"`
}

func Open(path string) (*Titles, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open title cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTitles)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init title cache: %w", err)
	}

	return &Titles{db: db}, nil
}

func (t *Titles) Close() error {
	return t.db.Close()
}

func (t *Titles) Put(title models.TitleDB) error {
	data, err := json.Marshal(entry{Title: title, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	return t.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTitles).Put([]byte(title.ID), data)
	})
}

func (t *Titles) PutAll(titles []models.TitleDB) error {
	now := time.Now().UTC()
	return t.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTitles)
		for _, title := range titles {
			data, err := json.Marshal(entry{Title: title, CachedAt: now})
			if err != nil {
				return fmt.Errorf("marshal cache entry: %w", err)
			}
			if err := b.Put([]byte(title.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get returns the cached title if it is younger than maxAge. maxAge <= 0
// uses DefaultMaxAge.
func (t *Titles) Get(id string, maxAge time.Duration) (*models.TitleDB, bool, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	var e entry
	var found bool
	err := t.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketTitles).Get([]byte(id))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &e); err != nil {
			return nil // treat corrupt entries as misses
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("read title cache: %w", err)
	}

	if !found || time.Since(e.CachedAt) > maxAge {
		return nil, false, nil
	}
	return &e.Title, true, nil
}

// Delete drops one cached title.
func (t *Titles) Delete(id string) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTitles).Delete([]byte(id))
	})
}
