package auth

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

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
	return db
}

func testTokens() TokenService {
	return TokenService{
		Secret:   []byte("test-secret"),
		Issuer:   "screenlog-test",
		Duration: time.Hour,
	}
}

func TestTokenRoundTripCarriesVersion(t *testing.T) {
	ts := testTokens()
	u := &User{ID: "user-a", Username: "ada", Email: "ada@example.com", TokenVersion: 3}

	signed, exp, err := ts.Sign(u)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := ts.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-a", claims.UserID)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, 3, claims.TokenVersion)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signed, _, err := testTokens().Sign(&User{ID: "user-a"})
	require.NoError(t, err)

	other := TokenService{Secret: []byte("different"), Issuer: "screenlog-test", Duration: time.Hour}
	_, err = other.Parse(signed)
	assert.Error(t, err)
}

func TestRotatePasswordAdvancesTokenVersion(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, User{
		ID: "user-a", Username: "ada", Email: "ada@example.com", PasswordHash: "old-hash",
	}))

	before, err := repo.TokenVersion(ctx, "user-a")
	require.NoError(t, err)

	require.NoError(t, repo.RotatePassword(ctx, "user-a", "new-hash"))

	after, err := repo.TokenVersion(ctx, "user-a")
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	u, err := repo.GetByID(ctx, "user-a")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "new-hash", u.PasswordHash)
}

func TestInvalidateTokensCutsOffOldClaims(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, User{
		ID: "user-a", Username: "ada", Email: "ada@example.com", PasswordHash: "h",
	}))

	u, err := repo.GetByID(ctx, "user-a")
	require.NoError(t, err)

	signed, _, err := testTokens().Sign(u)
	require.NoError(t, err)
	claims, err := testTokens().Parse(signed)
	require.NoError(t, err)

	require.NoError(t, repo.InvalidateTokens(ctx, "user-a"))

	current, err := repo.TokenVersion(ctx, "user-a")
	require.NoError(t, err)
	assert.NotEqual(t, claims.TokenVersion, current, "stale claims must not match the live generation")
}

func TestGetByEmailIsCaseInsensitive(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, User{
		ID: "user-a", Username: "ada", Email: "ada@example.com", PasswordHash: "h",
	}))

	u, err := repo.GetByEmail(ctx, "Ada@Example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "user-a", u.ID)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
