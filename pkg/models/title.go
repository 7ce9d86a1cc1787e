package models

// TitleDB is a catalog row: one movie or TV show known to screenlog.
type TitleDB struct {
	ID        string   `json:"id"`
	MediaType string   `json:"media_type"` // "movie" or "tv"
	TMDBID    int64    `json:"tmdb_id,omitempty"`
	Title     string   `json:"title"`
	Year      int      `json:"year,omitempty"`
	Genres    []string `json:"genres"`
	Overview  string   `json:"overview,omitempty"`
	PosterURL string   `json:"poster_url,omitempty"`
	BannerURL string   `json:"banner_url,omitempty"`
}

// TitleCanonical is the normalized, internal form of a title entry
// used by the metadata importer and database layer.
//
// External metadata sources are mapped into this structure first,
// then we write to the DB from this representation.
type TitleCanonical struct {
	ID        string            `json:"id"`         // our canonical ID (slug)
	MediaType string            `json:"media_type"` // "movie" or "tv"
	TMDBID    int64             `json:"tmdb_id,omitempty"`
	Title     string            `json:"title"`
	AltTitles []string          `json:"alt_titles,omitempty"`
	Year      int               `json:"year,omitempty"`
	Genres    []string          `json:"genres"`
	Overview  string            `json:"overview"`
	PosterURL string            `json:"poster_url,omitempty"`
	BannerURL string            `json:"banner_url,omitempty"`
	SourceIDs map[string]string `json:"source_ids,omitempty"` // e.g. {"tmdb": "603"}
}
