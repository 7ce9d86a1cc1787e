package follow

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

type Handler struct {
	Repo *Repo
	Hub  *realtime.Hub
}

func NewHandler(repo *Repo, hub *realtime.Hub) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/follow/:user_id", h.follow)
	rg.DELETE("/follow/:user_id", h.unfollow)
	rg.GET("/follow/:user_id", h.state)
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/:user_id/stats", h.stats)
	rg.GET("/:user_id/followers", h.followers)
	rg.GET("/:user_id/following", h.following)
}

func (h *Handler) follow(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	followeeID := strings.TrimSpace(c.Param("user_id"))
	if followeeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	if followeeID == claims.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot follow yourself"})
		return
	}

	if err := h.Repo.Follow(c.Request.Context(), claims.UserID, followeeID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "follow failed"})
		return
	}

	stats := h.publishStats(c.Request.Context(), followeeID)
	if stats == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) unfollow(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	followeeID := strings.TrimSpace(c.Param("user_id"))
	if followeeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	if _, err := h.Repo.Unfollow(c.Request.Context(), claims.UserID, followeeID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unfollow failed"})
		return
	}

	stats := h.publishStats(c.Request.Context(), followeeID)
	if stats == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) state(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	followeeID := strings.TrimSpace(c.Param("user_id"))
	if followeeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	following, err := h.Repo.IsFollowing(c.Request.Context(), claims.UserID, followeeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "state failed"})
		return
	}

	stats, err := h.Repo.Stats(c.Request.Context(), followeeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}

	c.JSON(http.StatusOK, models.FollowState{IsFollowing: following, Stats: *stats})
}

func (h *Handler) stats(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	stats, err := h.Repo.Stats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) followers(c *gin.Context) {
	h.listEdges(c, h.Repo.Followers)
}

func (h *Handler) following(c *gin.Context) {
	h.listEdges(c, h.Repo.Following)
}

func (h *Handler) listEdges(c *gin.Context, list func(context.Context, string, int, int) ([]models.UserSummary, error)) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	users, err := list(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "users": users})
}

func (h *Handler) publishStats(ctx context.Context, userID string) *models.ProfileStats {
	stats, err := h.Repo.Stats(ctx, userID)
	if err != nil || stats == nil {
		return nil
	}
	if h.Hub != nil {
		h.Hub.Publish(realtime.ProfileSubject(userID), stats)
	}
	return stats
}
