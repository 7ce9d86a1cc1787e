package utils

import (
	"os"
	"strconv"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("SCREENLOG_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("SCREENLOG_JWT_ISSUER")
	if issuer == "" {
		issuer = "screenlog"
	}

	duration := 24 * time.Hour
	if ttl := os.Getenv("SCREENLOG_JWT_TTL_HOURS"); ttl != "" {
		if hours, err := strconv.Atoi(ttl); err == nil && hours > 0 {
			duration = time.Duration(hours) * time.Hour
		}
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: duration,
	}
}

// TMDBConfig configures the metadata service.
type TMDBConfig struct {
	APIKey  string
	BaseURL string
}

func LoadTMDBConfig() TMDBConfig {
	base := os.Getenv("SCREENLOG_TMDB_BASE_URL")
	if base == "" {
		base = "https://api.themoviedb.org/3"
	}
	return TMDBConfig{
		APIKey:  os.Getenv("SCREENLOG_TMDB_API_KEY"),
		BaseURL: base,
	}
}
