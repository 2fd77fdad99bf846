// mirror-cli creates (or resolves) a mirror for an album URL without
// going through the HTTP API, and can optionally download the album's
// full-resolution images to a local directory.
//
//	mirror-cli [-dry-run] [-download DIR] <album URL>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mirrorhub/internal/album"
	"mirrorhub/internal/mirror"
	"mirrorhub/pkg/database"
	"mirrorhub/pkg/kv"
	"mirrorhub/pkg/models"
	"mirrorhub/pkg/utils"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "do not touch the database, keep the mirror in memory only")
	download := flag.String("download", "", "download every image of the album into this directory")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: mirror-cli [-dry-run] [-download DIR] <album URL>")
		os.Exit(2)
	}
	sourceURL := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var store kv.Store
	if *dryRun {
		store = kv.NewMemory()
	} else {
		db := database.MustOpen(database.DefaultConfig())
		defer db.Close()
		if err := database.Migrate(db); err != nil {
			log.Fatalf("db migrate failed: %v", err)
		}
		store = kv.NewSQLite(db)
	}

	upstream := utils.LoadUpstreamConfig()
	repo := mirror.NewRepo(store)
	fetcher := album.NewFetcher(upstream)
	parser := album.NewParser(upstream.Vendor)
	svc := mirror.NewService(repo, fetcher, parser)

	m, cached, err := svc.ResolveOrCreate(ctx, sourceURL)
	if err != nil {
		log.Fatalf("mirror failed: %v", err)
	}

	state := "created"
	if cached {
		state = "cached"
	}
	log.Printf("mirror %s (%s): %q, %d images", m.ID, state, m.Title, len(m.Images))
	fmt.Printf("/m/%s\n", m.ID)

	if *download != "" {
		if err := downloadImages(ctx, upstream, m.Images, *download); err != nil {
			log.Fatalf("download failed: %v", err)
		}
	}
}

// downloadImages pulls every big.jpg straight from the photo host with
// the spoofed headers, one request at a time like a polite scraper.
func downloadImages(ctx context.Context, upstream utils.UpstreamConfig, images []models.ImageRef, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	for i, img := range images {
		// /api/image/{vendor}/{id}/big.jpg -> https://photo.yupoo.com/{vendor}/{id}/big.jpg
		rel := strings.TrimPrefix(img.Big, "/api/image/")
		upstreamURL := "https://" + upstream.PhotoHost + "/" + rel

		name := filepath.Join(dir, fmt.Sprintf("%04d.jpg", i+1))
		if err := downloadOne(ctx, client, upstream, upstreamURL, name); err != nil {
			log.Printf("image %d/%d failed: %v", i+1, len(images), err)
			continue
		}
		log.Printf("image %d/%d saved to %s", i+1, len(images), name)
	}
	return nil
}

func downloadOne(ctx context.Context, client *http.Client, upstream utils.UpstreamConfig, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", upstream.UserAgent)
	req.Header.Set("Referer", "https://"+upstream.AlbumHost+"/")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
