package ratings

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenlog/pkg/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("../../docs/schema.sql")
	require.NoError(t, err)
	require.NoError(t, database.MigrateSQL(db, string(schema)))

	for _, id := range []string{"user-a", "user-b"} {
		_, err := db.Exec(`INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, 'x')`,
			id, id, id+"@example.com")
		require.NoError(t, err)
	}
	return db
}

func TestUpsertReplacesExistingRating(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	first, err := repo.Upsert(ctx, "user-a", "movie", "603", 3.5, "solid")
	require.NoError(t, err)
	assert.Equal(t, 3.5, first.Rating)

	second, err := repo.Upsert(ctx, "user-a", "movie", "603", 5.0, "rewatched it")
	require.NoError(t, err)
	assert.Equal(t, 5.0, second.Rating)
	assert.Equal(t, "rewatched it", second.Review)

	list, err := repo.ListByUser(ctx, "user-a", 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1, "one rating per user per title")
}

func TestGetMissingRatingReturnsNil(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	got, err := repo.Get(context.Background(), "user-a", "movie", "999")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListByMediaSeesAllUsers(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	_, err := repo.Upsert(ctx, "user-a", "tv", "1396", 5.0, "")
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, "user-b", "tv", "1396", 4.0, "")
	require.NoError(t, err)

	list, err := repo.ListByMedia(ctx, "tv", "1396", 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDeleteReportsWhetherRatingExisted(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	_, err := repo.Upsert(ctx, "user-a", "movie", "603", 4.5, "")
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, "user-a", "movie", "603")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "user-a", "movie", "603")
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := repo.Get(ctx, "user-a", "movie", "603")
	require.NoError(t, err)
	assert.Nil(t, got)
}
