package mirror

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mirrorhub/internal/album"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/mirror", h.create)
	r.GET("/api/get-mirror", h.missingID)
	r.GET("/api/get-mirror/:id", h.getByID)
	r.GET("/m/:id", h.view)
}

type createReq struct {
	URL string `json:"url"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		jsonError(c, http.StatusBadRequest, "invalid_url",
			"Invalid Yupoo album URL. Expected format: https://rmqc.x.yupoo.com/albums/[ID]")
		return
	}

	m, cached, err := h.Service.ResolveOrCreate(c.Request.Context(), req.URL)
	switch {
	case errors.Is(err, ErrInvalidSourceURL):
		jsonError(c, http.StatusBadRequest, "invalid_url",
			"Invalid Yupoo album URL. Expected format: https://rmqc.x.yupoo.com/albums/[ID]")
		return
	case errors.Is(err, album.ErrUpstreamUnavailable):
		jsonError(c, http.StatusNotFound, "fetch_failed",
			"Failed to fetch album from Yupoo. The album may not exist.")
		return
	case err != nil:
		log.Printf("[mirror] create failed: %v", err)
		jsonError(c, http.StatusInternalServerError, "server_error",
			"An internal error occurred. Please try again.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"mirror_id":  m.ID,
		"mirror_url": requestBaseURL(c) + "/m/" + m.ID,
		"album": gin.H{
			"title":       m.Title,
			"image_count": len(m.Images),
			"thumbnail":   m.Cover,
		},
		"cached": cached,
	})
}

func (h *Handler) missingID(c *gin.Context) {
	jsonError(c, http.StatusBadRequest, "missing_id", "Mirror ID is required")
}

func (h *Handler) getByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		h.missingID(c)
		return
	}

	m, err := h.Service.Repo.GetMirror(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		jsonError(c, http.StatusNotFound, "not_found", "Mirror not found")
		return
	}
	if err != nil {
		log.Printf("[mirror] get %s failed: %v", id, err)
		jsonError(c, http.StatusInternalServerError, "server_error", "Failed to retrieve mirror")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"mirror":  m,
	})
}

func (h *Handler) view(c *gin.Context) {
	id := c.Param("id")

	m, err := h.Service.Repo.GetMirror(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		renderError(c, http.StatusNotFound, "Mirror not found")
		return
	}
	if err != nil {
		log.Printf("[mirror] view %s failed: %v", id, err)
		renderError(c, http.StatusInternalServerError, "Failed to load mirror")
		return
	}

	// Bump the counter off the request path: the page renders whether or
	// not this write ever lands, and a disconnecting client must not
	// cancel it.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Service.RecordView(ctx, id); err != nil {
			log.Printf("[mirror] record view %s: %v", id, err)
		}
	}()

	renderMirror(c, m)
}

func jsonError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   code,
		"message": message,
	})
}

// requestBaseURL rebuilds the origin the client reached us on, so mirror
// links work behind a proxy as well as on localhost.
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + c.Request.Host
}
