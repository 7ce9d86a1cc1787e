package diary

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"screenlog/internal/auth"
	"screenlog/pkg/models"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/diary", h.list)
	rg.POST("/diary", h.add)
}

type addReq struct {
	MediaType string `json:"media_type"`
	MediaID   string `json:"media_id"`
	WatchedOn string `json:"watched_on"` // YYYY-MM-DD, defaults to today
	Rewatch   bool   `json:"rewatch"`
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

	watchedOn := strings.TrimSpace(req.WatchedOn)
	if watchedOn == "" {
		watchedOn = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", watchedOn); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "watched_on must be YYYY-MM-DD"})
		return
	}

	entry := models.DiaryEntry{
		UserID:    claims.UserID,
		MediaType: mediaType,
		MediaID:   mediaID,
		WatchedOn: watchedOn,
		Rewatch:   req.Rewatch,
		At:        time.Now().UTC(),
	}

	if err := h.Repo.Add(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.ListByUser(c.Request.Context(), claims.UserID, limit, offset)
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
