package watchlist

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"screenlog/internal/auth"
	"screenlog/internal/realtime"
)

type Handler struct {
	Repo *Repo
	Hub  *realtime.Hub
}

func NewHandler(repo *Repo, hub *realtime.Hub) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/watchlist", h.list)
	rg.POST("/watchlist", h.add)
	rg.DELETE("/watchlist/:media_type/:media_id", h.remove)
	rg.GET("/watchlist/:media_type/:media_id", h.getOne)
}

type addReq struct {
	MediaType string `json:"media_type"`
	MediaID   string `json:"media_id"`
}

func (h *Handler) add(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	mediaType := strings.ToLower(strings.TrimSpace(req.MediaType))
	mediaID := strings.TrimSpace(req.MediaID)
	if mediaType != "movie" && mediaType != "tv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media_type must be movie or tv"})
		return
	}
	if mediaID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media_id required"})
		return
	}

	if err := h.Repo.Add(c.Request.Context(), claims.UserID, mediaType, mediaID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	saved, err := h.Repo.Get(c.Request.Context(), claims.UserID, mediaType, mediaID)
	if err != nil || saved == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}

	if h.Hub != nil {
		h.Hub.Publish(realtime.WatchlistSubject(claims.UserID, mediaType, mediaID), saved)
	}

	c.JSON(http.StatusOK, saved)
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	mediaType := strings.ToLower(strings.TrimSpace(c.Param("media_type")))
	mediaID := strings.TrimSpace(c.Param("media_id"))
	if mediaType == "" || mediaID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media_type and media_id required"})
		return
	}

	ok, err := h.Repo.Remove(c.Request.Context(), claims.UserID, mediaType, mediaID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if h.Hub != nil {
		h.Hub.Retract(realtime.WatchlistSubject(claims.UserID, mediaType, mediaID))
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.List(c.Request.Context(), claims.UserID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func (h *Handler) getOne(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	mediaType := strings.ToLower(strings.TrimSpace(c.Param("media_type")))
	mediaID := strings.TrimSpace(c.Param("media_id"))

	it, err := h.Repo.Get(c.Request.Context(), claims.UserID, mediaType, mediaID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if it == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, it)
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
