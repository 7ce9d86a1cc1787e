// Package api is the HTTP client for the screenlog backend. Every
// remote mutation the sync core issues goes through here; the core only
// needs the calls to be awaitable and able to fail.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"screenlog/pkg/models"
)

const DefaultBaseURL = "http://localhost:8080"

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Token   string
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 12 * time.Second},
	}
}

type AuthResponse struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"user"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type apiError struct {
	Error string `json:"error"`
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e apiError
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %w", method, path, &StatusError{Code: resp.StatusCode, Message: e.Error})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"username": username, "email": email, "password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.Token = out.Token
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email": email, "password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.Token = out.Token
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return err
	}
	c.Token = ""
	return nil
}

func (c *Client) SetRating(ctx context.Context, mediaType, mediaID string, rating float64, review string) (*models.Rating, error) {
	var out models.Rating
	err := c.do(ctx, http.MethodPut,
		"/users/ratings/"+url.PathEscape(mediaType)+"/"+url.PathEscape(mediaID),
		map[string]any{"rating": rating, "review": review}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteRating(ctx context.Context, mediaType, mediaID string) error {
	return c.do(ctx, http.MethodDelete,
		"/users/ratings/"+url.PathEscape(mediaType)+"/"+url.PathEscape(mediaID), nil, nil)
}

func (c *Client) AddWatchlist(ctx context.Context, mediaType, mediaID string) (*models.WatchlistItem, error) {
	var out models.WatchlistItem
	err := c.do(ctx, http.MethodPost, "/users/watchlist",
		map[string]string{"media_type": mediaType, "media_id": mediaID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveWatchlist(ctx context.Context, mediaType, mediaID string) error {
	return c.do(ctx, http.MethodDelete,
		"/users/watchlist/"+url.PathEscape(mediaType)+"/"+url.PathEscape(mediaID), nil, nil)
}

func (c *Client) AddFavorite(ctx context.Context, mediaType, mediaID string) error {
	return c.do(ctx, http.MethodPost, "/users/favorites",
		map[string]string{"media_type": mediaType, "media_id": mediaID}, nil)
}

func (c *Client) RemoveFavorite(ctx context.Context, mediaType, mediaID string) error {
	return c.do(ctx, http.MethodDelete,
		"/users/favorites/"+url.PathEscape(mediaType)+"/"+url.PathEscape(mediaID), nil, nil)
}

func (c *Client) Follow(ctx context.Context, userID string) (*models.ProfileStats, error) {
	var out models.ProfileStats
	err := c.do(ctx, http.MethodPost, "/users/follow/"+url.PathEscape(userID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Unfollow(ctx context.Context, userID string) (*models.ProfileStats, error) {
	var out models.ProfileStats
	err := c.do(ctx, http.MethodDelete, "/users/follow/"+url.PathEscape(userID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetFollowState(ctx context.Context, userID string) (*models.FollowState, error) {
	var out models.FollowState
	err := c.do(ctx, http.MethodGet, "/users/follow/"+url.PathEscape(userID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCustomization reads the public customization of any owner. A nil
// result with nil error means the owner has none for this title.
func (c *Client) GetCustomization(ctx context.Context, ownerID, mediaType, mediaID string) (*models.Customization, error) {
	var out models.Customization
	err := c.do(ctx, http.MethodGet,
		"/profiles/"+url.PathEscape(ownerID)+"/customizations/"+url.PathEscape(mediaType)+"/"+url.PathEscape(mediaID),
		nil, &out)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpsertCustomization(ctx context.Context, mediaType, mediaID string, poster, banner *string) (*models.Customization, error) {
	body := map[string]any{}
	if poster != nil {
		body["custom_poster"] = *poster
	}
	if banner != nil {
		body["custom_banner"] = *banner
	}
	var out models.Customization
	err := c.do(ctx, http.MethodPut,
		"/users/customizations/"+url.PathEscape(mediaType)+"/"+url.PathEscape(mediaID), body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetProfileStats(ctx context.Context, userID string) (*models.ProfileStats, error) {
	var out models.ProfileStats
	err := c.do(ctx, http.MethodGet, "/profiles/"+url.PathEscape(userID)+"/stats", nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type TitleList struct {
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Items  []models.TitleDB `json:"items"`
}

func (c *Client) SearchTitles(ctx context.Context, q string, limit, offset int) (*TitleList, error) {
	var out TitleList
	path := fmt.Sprintf("/titles?q=%s&limit=%d&offset=%d", url.QueryEscape(q), limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTitle(ctx context.Context, id string) (*models.TitleDB, error) {
	var out models.TitleDB
	if err := c.do(ctx, http.MethodGet, "/titles/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type DiaryList struct {
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Items  []models.DiaryEntry `json:"items"`
}

func (c *Client) ListDiary(ctx context.Context, limit, offset int) (*DiaryList, error) {
	var out DiaryList
	path := fmt.Sprintf("/users/diary?limit=%d&offset=%d", limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddDiaryEntry(ctx context.Context, mediaType, mediaID, watchedOn string, rewatch bool) (*models.DiaryEntry, error) {
	var out models.DiaryEntry
	err := c.do(ctx, http.MethodPost, "/users/diary", map[string]any{
		"media_type": mediaType,
		"media_id":   mediaID,
		"watched_on": watchedOn,
		"rewatch":    rewatch,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

