package watchlist

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenlog/internal/auth"
	"screenlog/internal/realtime"
	"screenlog/pkg/database"
	"screenlog/pkg/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("../../docs/schema.sql")
	require.NoError(t, err)
	require.NoError(t, database.MigrateSQL(db, string(schema)))

	_, err = db.Exec(`INSERT INTO users (id, username, email, password_hash) VALUES ('user-a', 'ada', 'ada@example.com', 'x')`)
	require.NoError(t, err)
	return db
}

func newTestRouter(t *testing.T) (*gin.Engine, *realtime.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := realtime.NewHub(zerolog.Nop())
	router := gin.New()

	group := router.Group("/users", func(c *gin.Context) {
		auth.WithClaims(c, &auth.Claims{UserID: "user-a", Username: "ada"})
		c.Next()
	})
	NewHandler(NewRepo(openTestDB(t)), hub).RegisterRoutes(group)

	return router, hub
}

func TestAddPublishesRetainedChangeEvent(t *testing.T) {
	router, hub := newTestRouter(t)

	body := strings.NewReader(`{"media_type": "movie", "media_id": "603"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/watchlist", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	ev, ok := hub.Retained(realtime.WatchlistSubject("user-a", "movie", "603"))
	require.True(t, ok, "add must publish to the watchlist subject")
	assert.True(t, ev.Found)

	var item models.WatchlistItem
	require.NoError(t, json.Unmarshal(ev.Doc, &item))
	assert.Equal(t, "603", item.MediaID)
	assert.Equal(t, "movie", item.MediaType)
}

func TestRemoveRetractsSubject(t *testing.T) {
	router, hub := newTestRouter(t)

	add := httptest.NewRequest(http.MethodPost, "/users/watchlist",
		strings.NewReader(`{"media_type": "tv", "media_id": "1396"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, add)
	require.Equal(t, http.StatusOK, w.Code)

	del := httptest.NewRequest(http.MethodDelete, "/users/watchlist/tv/1396", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, del)
	require.Equal(t, http.StatusOK, w.Code)

	ev, ok := hub.Retained(realtime.WatchlistSubject("user-a", "tv", "1396"))
	require.True(t, ok)
	assert.False(t, ev.Found, "removal must retract the retained document")
}

func TestRemoveMissingItemPublishesNothing(t *testing.T) {
	router, hub := newTestRouter(t)

	del := httptest.NewRequest(http.MethodDelete, "/users/watchlist/movie/999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, del)
	require.Equal(t, http.StatusNotFound, w.Code)

	_, ok := hub.Retained(realtime.WatchlistSubject("user-a", "movie", "999"))
	assert.False(t, ok)
}
