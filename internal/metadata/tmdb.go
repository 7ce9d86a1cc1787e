package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"screenlog/pkg/models"
	"screenlog/pkg/utils"
)

const imageBase = "https://image.tmdb.org/t/p"

// Client talks to the TMDB v3 API. All calls go through a shared rate
// limiter so the catalog-sync command cannot trip TMDB's request caps.
type Client struct {
	HTTP    *http.Client
	APIKey  string
	BaseURL string

	limiter *rate.Limiter

	mu     sync.Mutex
	genres map[string]map[int64]string // media type -> genre id -> name
}

func NewClient(cfg utils.TMDBConfig) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: 12 * time.Second},
		APIKey:  cfg.APIKey,
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		// TMDB allows ~50 req/s; stay well under it.
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		genres:  make(map[string]map[int64]string),
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("tmdb: parse url: %w", err)
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.APIKey)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("tmdb: build request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb: request: %w", err)
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb: status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tmdb: decode: %w", err)
	}
	return nil
}

type tmdbResult struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`          // movies
	Name         string  `json:"name"`           // tv
	ReleaseDate  string  `json:"release_date"`   // movies
	FirstAirDate string  `json:"first_air_date"` // tv
	GenreIDs     []int64 `json:"genre_ids"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
}

type tmdbPage struct {
	Page         int          `json:"page"`
	Results      []tmdbResult `json:"results"`
	TotalPages   int          `json:"total_pages"`
	TotalResults int          `json:"total_results"`
}

// Search queries TMDB for movies or TV shows matching a keyword.
func (c *Client) Search(ctx context.Context, mediaType, query string, page int) ([]models.TitleCanonical, error) {
	if err := checkMediaType(mediaType); err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("page", fmt.Sprintf("%d", page))

	var out tmdbPage
	if err := c.get(ctx, "/search/"+mediaType, q, &out); err != nil {
		return nil, err
	}
	return c.canonicalize(ctx, mediaType, out.Results)
}

// Popular returns one page of TMDB's popular list; the catalog-sync
// command walks it to seed the local titles table.
func (c *Client) Popular(ctx context.Context, mediaType string, page int) ([]models.TitleCanonical, error) {
	if err := checkMediaType(mediaType); err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}

	q := url.Values{}
	q.Set("page", fmt.Sprintf("%d", page))

	var out tmdbPage
	if err := c.get(ctx, "/"+mediaType+"/popular", q, &out); err != nil {
		return nil, err
	}
	return c.canonicalize(ctx, mediaType, out.Results)
}

func (c *Client) canonicalize(ctx context.Context, mediaType string, results []tmdbResult) ([]models.TitleCanonical, error) {
	genreNames, err := c.genreNames(ctx, mediaType)
	if err != nil {
		// Search results are still useful without genre labels.
		genreNames = map[int64]string{}
	}

	out := make([]models.TitleCanonical, 0, len(results))
	for _, res := range results {
		if res.ID == 0 {
			continue
		}

		title := res.Title
		date := res.ReleaseDate
		if mediaType == "tv" {
			title = res.Name
			date = res.FirstAirDate
		}
		if strings.TrimSpace(title) == "" {
			continue
		}

		genres := make([]string, 0, len(res.GenreIDs))
		for _, id := range res.GenreIDs {
			if name := genreNames[id]; name != "" {
				genres = append(genres, name)
			}
		}

		t := models.TitleCanonical{
			ID:        fmt.Sprintf("%s-%d", mediaType, res.ID),
			MediaType: mediaType,
			TMDBID:    res.ID,
			Title:     title,
			Year:      yearOf(date),
			Genres:    genres,
			Overview:  res.Overview,
			SourceIDs: map[string]string{"tmdb": fmt.Sprintf("%d", res.ID)},
		}
		if res.PosterPath != "" {
			t.PosterURL = imageBase + "/w500" + res.PosterPath
		}
		if res.BackdropPath != "" {
			t.BannerURL = imageBase + "/w1280" + res.BackdropPath
		}
		out = append(out, t)
	}
	return out, nil
}

type tmdbGenreList struct {
	Genres []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// genreNames fetches and caches the TMDB genre table per media type.
func (c *Client) genreNames(ctx context.Context, mediaType string) (map[int64]string, error) {
	c.mu.Lock()
	if cached, ok := c.genres[mediaType]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	var list tmdbGenreList
	if err := c.get(ctx, "/genre/"+mediaType+"/list", nil, &list); err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(list.Genres))
	for _, g := range list.Genres {
		names[g.ID] = g.Name
	}

	c.mu.Lock()
	c.genres[mediaType] = names
	c.mu.Unlock()
	return names, nil
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	var year int
	if _, err := fmt.Sscanf(date[:4], "%d", &year); err != nil {
		return 0
	}
	return year
}

func checkMediaType(mediaType string) error {
	if mediaType != "movie" && mediaType != "tv" {
		return fmt.Errorf("tmdb: media type must be movie or tv, got %q", mediaType)
	}
	return nil
}
