package mirror

import (
	"bytes"
	"html/template"
	"log"

	"github.com/gin-gonic/gin"

	"mirrorhub/pkg/models"
	"mirrorhub/templates"
)

// html/template autoescapes every interpolated value, which is what
// keeps stored titles and URLs from injecting markup into the page.
var pageTemplates = template.Must(
	template.ParseFS(templates.EmbeddedTemplates, "*.tmpl"))

func renderMirror(c *gin.Context, m *models.Mirror) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, "viewer.html.tmpl", m); err != nil {
		log.Printf("[mirror] render viewer %s: %v", m.ID, err)
		renderError(c, 500, "Failed to load mirror")
		return
	}
	c.Data(200, "text/html; charset=utf-8", buf.Bytes())
}

func renderError(c *gin.Context, status int, message string) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, "error.html.tmpl", message); err != nil {
		// last resort: plain text, still no raw stack trace
		c.String(status, message)
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
