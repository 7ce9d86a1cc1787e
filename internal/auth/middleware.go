package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxClaimsKey = "auth_claims"

// AuthMiddleware parses the bearer token and checks its generation
// against the repo, so rotated credentials cut off old tokens
// immediately. A nil repo skips the generation check.
func AuthMiddleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		if repo != nil {
			current, err := repo.TokenVersion(c.Request.Context(), claims.UserID)
			if err != nil || current != claims.TokenVersion {
				abortUnauthorized(c, "invalid token")
				return
			}
		}

		WithClaims(c, claims)
		c.Next()
	}
}

// WithClaims attaches parsed claims to the request context. Handler
// tests use it in place of the full middleware.
func WithClaims(c *gin.Context, claims *Claims) {
	c.Set(ctxClaimsKey, claims)
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[len("bearer "):]), true
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
	c.Abort()
}

// MustGetClaims returns the claims the middleware stored, or nil when
// the request never passed through it.
func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
