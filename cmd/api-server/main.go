package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"screenlog/internal/auth"
	"screenlog/internal/catalog"
	"screenlog/internal/customization"
	"screenlog/internal/diary"
	"screenlog/internal/favorites"
	"screenlog/internal/follow"
	"screenlog/internal/metadata"
	"screenlog/internal/ratings"
	"screenlog/internal/realtime"
	"screenlog/internal/watchlist"
	"screenlog/pkg/database"
	"screenlog/pkg/logging"
	"screenlog/pkg/utils"
)

func main() {
	logger := logging.New(os.Getenv("SCREENLOG_LOG_LEVEL"))

	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("db migrate failed")
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Realtime first so binding errors surface early.
	hub := realtime.NewHub(logger)
	router.GET("/ws", realtime.WSHandler(hub, logger))
	tcpSrv := realtime.NewServer(":7070", hub, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/debug", func(c *gin.Context) {
		stats := hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"db":          cfg.Path,
			"subjects":    stats.Subjects,
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Catalog (public)
	catalogRepo := catalog.NewRepo(db)
	catalogHandler := catalog.NewHandler(catalogRepo)
	catalogHandler.RegisterRoutes(router.Group("/titles"))

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc, logger)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Metadata proxy (public)
	tmdbCfg := utils.LoadTMDBConfig()
	if tmdbCfg.APIKey != "" {
		tmdbClient := metadata.NewClient(tmdbCfg)
		metadata.NewHandler(tmdbClient).RegisterRoutes(router.Group("/metadata"))
	} else {
		logger.Warn().Msg("SCREENLOG_TMDB_API_KEY not set, metadata proxy disabled")
	}

	followRepo := follow.NewRepo(db)

	// Public profile routes
	profiles := router.Group("/profiles")
	followHandler := follow.NewHandler(followRepo, hub)
	followHandler.RegisterPublicRoutes(profiles)

	customizationRepo := customization.NewRepo(db)
	customizationHandler := customization.NewHandler(customizationRepo, hub)
	customizationHandler.RegisterPublicRoutes(profiles)

	ratingsRepo := ratings.NewRepo(db)
	ratingsHandler := ratings.NewHandler(ratingsRepo, hub, followRepo)
	ratingsHandler.RegisterPublicRoutes(router.Group("/"))

	// Protected routes
	protected := router.Group("/users")
	protected.Use(auth.AuthMiddleware(tokenSvc, authRepo))

	protected.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"id":       claims.UserID,
			"username": claims.Username,
			"email":    claims.Email,
		})
	})

	ratingsHandler.RegisterProtectedRoutes(protected)
	followHandler.RegisterProtectedRoutes(protected)
	customizationHandler.RegisterProtectedRoutes(protected)
	watchlist.NewHandler(watchlist.NewRepo(db), hub).RegisterRoutes(protected)
	favorites.NewHandler(favorites.NewRepo(db)).RegisterRoutes(protected)
	diary.NewHandler(diary.NewRepo(db)).RegisterRoutes(protected)

	httpSrv := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info().Str("addr", httpSrv.Addr).Msg("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Stringer("signal", sig).Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
	}

	logger.Info().Msg("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	if err := tcpSrv.Close(); err != nil {
		logger.Error().Err(err).Msg("tcp shutdown error")
	}

	wg.Wait()
	logger.Info().Msg("servers stopped")
}
