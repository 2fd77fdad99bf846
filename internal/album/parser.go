package album

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mirrorhub/pkg/models"
)

// Yupoo titles come as "Album Name _ Store Name"; we keep the part
// before the separator.
const titleSeparator = " _ "

// Parser extracts a normalized album from raw Yupoo HTML. Photos are
// referenced through lazy-load attributes whose value embeds the photo
// host and the vendor segment; the token after the vendor is the image
// identifier.
type Parser struct {
	Vendor    string
	idPattern *regexp.Regexp
}

func NewParser(vendor string) *Parser {
	return &Parser{
		Vendor:    vendor,
		idPattern: regexp.MustCompile(`photo\.yupoo\.com/` + regexp.QuoteMeta(vendor) + `/([^/"]+)`),
	}
}

// Parse never fails on content: HTML that matches nothing yields a valid
// album with an empty image list, not an error.
func (p *Parser) Parse(html, albumID string) (models.Album, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.Album{}, fmt.Errorf("album: parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if before, _, found := strings.Cut(title, titleSeparator); found {
		title = strings.TrimSpace(before)
	}
	if title == "" {
		title = "Album " + albumID
	}

	// Current Yupoo markup lazy-loads via data-src; older album pages
	// used data-origin instead.
	ids := p.scanAttr(doc, "data-src")
	if len(ids) == 0 {
		ids = p.scanAttr(doc, "data-origin")
	}

	seen := make(map[string]bool, len(ids))
	images := make([]models.ImageRef, 0, len(ids))
	for _, id := range ids {
		ref := models.ImageRef{
			Small: proxyPath(p.Vendor, id, "small.jpg"),
			Big:   proxyPath(p.Vendor, id, "big.jpg"),
		}
		if seen[ref.Big] {
			continue
		}
		seen[ref.Big] = true
		images = append(images, ref)
	}

	var cover string
	if len(images) > 0 {
		cover = strings.Replace(images[0].Big, "/big.jpg", "/medium.jpg", 1)
	}

	return models.Album{
		Title:  title,
		Cover:  cover,
		Images: images,
	}, nil
}

// scanAttr collects image identifiers from every element carrying the
// given attribute, in document order.
func (p *Parser) scanAttr(doc *goquery.Document, attr string) []string {
	var ids []string
	doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
		val, _ := s.Attr(attr)
		if m := p.idPattern.FindStringSubmatch(val); m != nil {
			ids = append(ids, m[1])
		}
	})
	return ids
}

// proxyPath builds a URL on our own image-proxy route so clients never
// hit the upstream photo host directly.
func proxyPath(vendor, imageID, sizeFile string) string {
	return fmt.Sprintf("/api/image/%s/%s/%s", vendor, imageID, sizeFile)
}
