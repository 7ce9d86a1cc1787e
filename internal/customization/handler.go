package customization

import (
	"net/http"
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

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.PUT("/customizations/:media_type/:media_id", h.upsert)
	rg.DELETE("/customizations/:media_type/:media_id", h.delete)
}

// Customizations are publicly readable: any viewer can see the art an
// owner chose for their own profile.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/:user_id/customizations/:media_type/:media_id", h.get)
}

type upsertReq struct {
	CustomPoster *string `json:"custom_poster"`
	CustomBanner *string `json:"custom_banner"`
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
	if req.CustomPoster == nil && req.CustomBanner == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "custom_poster or custom_banner required"})
		return
	}

	saved, err := h.Repo.Upsert(c.Request.Context(), claims.UserID, mediaType, mediaID, req.CustomPoster, req.CustomBanner)
	if err != nil || saved == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	if h.Hub != nil {
		h.Hub.Publish(realtime.CustomizationSubject(claims.UserID, mediaType, mediaID), saved)
	}

	c.JSON(http.StatusOK, saved)
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

	if h.Hub != nil {
		h.Hub.Retract(realtime.CustomizationSubject(claims.UserID, mediaType, mediaID))
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) get(c *gin.Context) {
	ownerID := strings.TrimSpace(c.Param("user_id"))
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	mediaType, mediaID, ok := mediaParams(c)
	if !ok {
		return
	}

	cu, err := h.Repo.Get(c.Request.Context(), ownerID, mediaType, mediaID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if cu == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, cu)
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
