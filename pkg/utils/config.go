package utils

import (
	"os"
	"time"
)

// UpstreamConfig pins the one Yupoo storefront this deployment mirrors.
// The content host refuses or degrades requests without a browser-like
// identity, so the spoofed headers live here too.
type UpstreamConfig struct {
	AlbumHost string // e.g. rmqc.x.yupoo.com
	PhotoHost string // e.g. photo.yupoo.com
	Vendor    string // path segment on the photo host, e.g. rmqc
	UserAgent string
	Timeout   time.Duration
}

func LoadUpstreamConfig() UpstreamConfig {
	albumHost := os.Getenv("MIRRORHUB_ALBUM_HOST")
	if albumHost == "" {
		albumHost = "rmqc.x.yupoo.com"
	}

	photoHost := os.Getenv("MIRRORHUB_PHOTO_HOST")
	if photoHost == "" {
		photoHost = "photo.yupoo.com"
	}

	vendor := os.Getenv("MIRRORHUB_VENDOR")
	if vendor == "" {
		vendor = "rmqc"
	}

	return UpstreamConfig{
		AlbumHost: albumHost,
		PhotoHost: photoHost,
		Vendor:    vendor,
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Timeout:   15 * time.Second,
	}
}

type ServerConfig struct {
	Addr string
}

func LoadServerConfig() ServerConfig {
	addr := os.Getenv("MIRRORHUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return ServerConfig{Addr: addr}
}
