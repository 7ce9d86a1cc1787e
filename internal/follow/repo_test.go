package follow

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

	for _, id := range []string{"user-a", "user-b", "user-c"} {
		_, err := db.Exec(`INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, 'x')`,
			id, id, id+"@example.com")
		require.NoError(t, err)
	}
	return db
}

func TestFollowIsIdempotent(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Follow(ctx, "user-a", "user-b"))
	require.NoError(t, repo.Follow(ctx, "user-a", "user-b"))

	stats, err := repo.Stats(ctx, "user-b")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FollowersCount)
}

func TestSelfFollowRejected(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	err := repo.Follow(context.Background(), "user-a", "user-a")
	assert.Error(t, err)
}

func TestUnfollowReportsWhetherEdgeExisted(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Follow(ctx, "user-a", "user-b"))

	removed, err := repo.Unfollow(ctx, "user-a", "user-b")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Unfollow(ctx, "user-a", "user-b")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStatsCountsBothDirections(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Follow(ctx, "user-a", "user-b"))
	require.NoError(t, repo.Follow(ctx, "user-c", "user-b"))
	require.NoError(t, repo.Follow(ctx, "user-b", "user-a"))

	stats, err := repo.Stats(ctx, "user-b")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FollowersCount)
	assert.Equal(t, 1, stats.FollowingCount)

	following, err := repo.IsFollowing(ctx, "user-a", "user-b")
	require.NoError(t, err)
	assert.True(t, following)

	following, err = repo.IsFollowing(ctx, "user-b", "user-c")
	require.NoError(t, err)
	assert.False(t, following)
}

func TestFollowerListingsResolveUsernames(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Follow(ctx, "user-a", "user-b"))
	require.NoError(t, repo.Follow(ctx, "user-c", "user-b"))

	followers, err := repo.Followers(ctx, "user-b", 10, 0)
	require.NoError(t, err)
	require.Len(t, followers, 2)

	names := []string{followers[0].Username, followers[1].Username}
	assert.ElementsMatch(t, []string{"user-a", "user-c"}, names)

	followed, err := repo.Following(ctx, "user-a", 10, 0)
	require.NoError(t, err)
	require.Len(t, followed, 1)
	assert.Equal(t, "user-b", followed[0].ID)
}
