package album

import "regexp"

// Album URLs look like https://rmqc.x.yupoo.com/albums/123456?uid=1.
// The numeric segment is the upstream album identity.
var albumURLPattern = regexp.MustCompile(`yupoo\.com/albums/(\d+)`)

// ExtractAlbumID pulls the upstream album id out of a source URL.
// Returns false when the URL does not match the expected shape.
func ExtractAlbumID(rawURL string) (string, bool) {
	m := albumURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}
