package metadata

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Handler proxies metadata lookups to TMDB so browser clients never see
// the API key.
type Handler struct {
	Client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{Client: client}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
}

func (h *Handler) search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	mediaType := strings.ToLower(strings.TrimSpace(c.DefaultQuery("media_type", "movie")))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	items, err := h.Client.Search(c.Request.Context(), mediaType, q, page)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "metadata lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
