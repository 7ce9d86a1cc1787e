package ratings

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"screenlog/internal/auth"
	"screenlog/internal/realtime"
	"screenlog/pkg/models"
)

// StatsSource recomputes a user's live profile counters after a change.
type StatsSource interface {
	Stats(ctx context.Context, userID string) (*models.ProfileStats, error)
}

type Handler struct {
	Repo  *Repo
	Hub   *realtime.Hub
	Stats StatsSource
}

func NewHandler(repo *Repo, hub *realtime.Hub, stats StatsSource) *Handler {
	return &Handler{Repo: repo, Hub: hub, Stats: stats}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/ratings/:media_type/:media_id", h.listByMedia)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/ratings", h.listMine)
	rg.PUT("/ratings/:media_type/:media_id", h.upsert)
	rg.DELETE("/ratings/:media_type/:media_id", h.delete)
}

type upsertReq struct {
	Rating float64 `json:"rating"`
	Review string  `json:"review"`
}

func validRating(v float64) bool {
	if v < 0.5 || v > 5.0 {
		return false
	}
	doubled := v * 2
	return doubled == float64(int(doubled))
}

func (h *Handler) upsert(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	mediaType, mediaID, ok := mediaParams(c)
	if !ok {
		return
	}

	var req upsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if !validRating(req.Rating) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be 0.5-5.0 in half steps"})
		return
	}

	rating, err := h.Repo.Upsert(c.Request.Context(), claims.UserID, mediaType, mediaID, req.Rating, strings.TrimSpace(req.Review))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	h.publishStats(c.Request.Context(), claims.UserID)
	c.JSON(http.StatusOK, rating)
}

func (h *Handler) delete(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	mediaType, mediaID, ok := mediaParams(c)
	if !ok {
		return
	}

	deleted, err := h.Repo.Delete(c.Request.Context(), claims.UserID, mediaType, mediaID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.publishStats(c.Request.Context(), claims.UserID)
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) listMine(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, err := h.Repo.ListByUser(c.Request.Context(), claims.UserID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"limit": limit, "offset": offset, "items": items})
}

func (h *Handler) listByMedia(c *gin.Context) {
	mediaType, mediaID, ok := mediaParams(c)
	if !ok {
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, err := h.Repo.ListByMedia(c.Request.Context(), mediaType, mediaID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"limit": limit, "offset": offset, "items": items})
}

func (h *Handler) publishStats(ctx context.Context, userID string) {
	if h.Hub == nil || h.Stats == nil {
		return
	}
	stats, err := h.Stats.Stats(ctx, userID)
	if err != nil || stats == nil {
		return
	}
	h.Hub.Publish(realtime.ProfileSubject(userID), stats)
}

func mediaParams(c *gin.Context) (string, string, bool) {
	mediaType := strings.ToLower(strings.TrimSpace(c.Param("media_type")))
	mediaID := strings.TrimSpace(c.Param("media_id"))

	if mediaType != "movie" && mediaType != "tv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media_type must be movie or tv"})
		return "", "", false
	}
	if mediaID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media_id required"})
		return "", "", false
	}
	return mediaType, mediaID, true
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
