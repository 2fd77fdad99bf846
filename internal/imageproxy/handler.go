// Package imageproxy passes Yupoo image bytes through our own origin.
// The photo host rejects requests with a foreign referrer, so browsers
// cannot load the images directly; we fetch them server-side with the
// headers the host expects and stream them back unchanged.
package imageproxy

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mirrorhub/pkg/utils"
)

const invalidPathMessage = "Invalid path format. Expected: /api/image/{vendor}/{imageId}/{size}"

type Handler struct {
	Client       *http.Client
	PhotoBaseURL string // e.g. https://photo.yupoo.com
	Referer      string
	UserAgent    string
}

func NewHandler(cfg utils.UpstreamConfig) *Handler {
	return &Handler{
		Client:       &http.Client{Timeout: cfg.Timeout},
		PhotoBaseURL: "https://" + cfg.PhotoHost,
		Referer:      "https://" + cfg.AlbumHost + "/",
		UserAgent:    cfg.UserAgent,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// One catch-all route serves both variants: /api/image/{vendor}/{id}/{size}
	// and /api/image/?url=https://photo.yupoo.com/... (raw passthrough).
	r.GET("/api/image/*path", h.serve)
}

func (h *Handler) serve(c *gin.Context) {
	path := strings.Trim(c.Param("path"), "/")
	if path == "" {
		h.serveRawURL(c)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) != 3 {
		c.String(http.StatusBadRequest, invalidPathMessage)
		return
	}

	vendor, imageID, sizeFile := parts[0], parts[1], parts[2]
	h.proxy(c, fmt.Sprintf("%s/%s/%s/%s", h.PhotoBaseURL, vendor, imageID, sizeFile))
}

// serveRawURL accepts a full upstream URL but only from the photo host;
// anything else would turn this endpoint into an open proxy.
func (h *Handler) serveRawURL(c *gin.Context) {
	imageURL := c.Query("url")
	if !strings.HasPrefix(imageURL, h.PhotoBaseURL+"/") {
		c.String(http.StatusBadRequest, "Invalid image URL")
		return
	}
	h.proxy(c, imageURL)
}

func (h *Handler) proxy(c *gin.Context, imageURL string) {
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, imageURL, nil)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error loading image")
		return
	}
	req.Header.Set("Referer", h.Referer)
	req.Header.Set("User-Agent", h.UserAgent)

	resp, err := h.Client.Do(req)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error loading image")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.String(resp.StatusCode, "Image not found")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	c.DataFromReader(http.StatusOK, resp.ContentLength, contentType, resp.Body, map[string]string{
		"Cache-Control":               "public, max-age=31536000",
		"Access-Control-Allow-Origin": "*",
	})
}
