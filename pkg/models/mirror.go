package models

import "time"

// ImageRef is one photo of a mirrored album. Both URLs point at our own
// image-proxy route, never at the upstream host directly, so the browser
// never has to talk to Yupoo. Two refs are the same photo iff their Big
// URLs are equal.
type ImageRef struct {
	Small string `json:"small"`
	Big   string `json:"big"`
}

// Mirror is the persisted unit of value: a normalized snapshot of one
// upstream album. Immutable after creation except Views.
//
// JSON field names are the storage format (key mirror:<id>) and must not
// change without migrating stored records.
type Mirror struct {
	ID        string     `json:"id"`
	YupooID   string     `json:"yupoo_id"`
	Title     string     `json:"title"`
	Cover     string     `json:"cover,omitempty"`
	Images    []ImageRef `json:"images"`
	CreatedAt time.Time  `json:"created_at"`
	Views     int64      `json:"views"`
	SourceURL string     `json:"source_url"`
}

// Album is the parser's output before a mirror identity is assigned.
type Album struct {
	Title  string
	Cover  string
	Images []ImageRef
}
