package mirror

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mirrorhub/internal/album"
	"mirrorhub/internal/shortid"
	"mirrorhub/pkg/models"
)

// ErrInvalidSourceURL means the submitted URL does not look like an
// album URL on the supported host.
var ErrInvalidSourceURL = errors.New("mirror: invalid source url")

// PageFetcher is implemented by album.Fetcher; tests substitute their
// own.
type PageFetcher interface {
	FetchPage(ctx context.Context, albumID string) (string, error)
}

// Service owns the idempotent source-album -> mirror cache. Each distinct
// upstream album gets exactly one mirror; repeat submissions return the
// existing record without touching the upstream host.
//
// Concurrency note: two racing creators for the same fresh album can both
// fetch and both write a mirror record. The conditional index write
// decides the winner; the loser returns the winner's record and its own
// orphaned record is simply never referenced. The store offers no
// stronger primitive than put-if-absent, so the orphan is accepted.
type Service struct {
	Repo    *Repo
	Fetcher PageFetcher
	Parser  *album.Parser

	now   func() time.Time
	newID func() string
}

func NewService(repo *Repo, fetcher PageFetcher, parser *album.Parser) *Service {
	return &Service{
		Repo:    repo,
		Fetcher: fetcher,
		Parser:  parser,
		now:     time.Now,
		newID:   shortid.New,
	}
}

// ResolveOrCreate returns the mirror for sourceURL, creating it on first
// sight. cached reports whether an existing record was returned.
func (s *Service) ResolveOrCreate(ctx context.Context, sourceURL string) (models.Mirror, bool, error) {
	albumID, ok := album.ExtractAlbumID(sourceURL)
	if !ok {
		return models.Mirror{}, false, ErrInvalidSourceURL
	}

	// Cache check. A hit must not re-fetch or re-parse anything.
	staleIndex := false
	existingID, err := s.Repo.GetSourceIndex(ctx, albumID)
	switch {
	case err == nil:
		m, err := s.Repo.GetMirror(ctx, existingID)
		if err == nil {
			return *m, true, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return models.Mirror{}, false, err
		}
		// Index points at a record that no longer resolves. Soft
		// inconsistency: re-create and overwrite the stale entry.
		log.Printf("[mirror] stale index for album %s (mirror %s missing), re-creating", albumID, existingID)
		staleIndex = true
	case errors.Is(err, ErrNotFound):
		// first sight of this album
	default:
		return models.Mirror{}, false, err
	}

	html, err := s.Fetcher.FetchPage(ctx, albumID)
	if err != nil {
		return models.Mirror{}, false, err
	}

	parsed, err := s.Parser.Parse(html, albumID)
	if err != nil {
		return models.Mirror{}, false, err
	}

	id, err := s.allocateID(ctx)
	if err != nil {
		return models.Mirror{}, false, err
	}

	m := models.Mirror{
		ID:        id,
		YupooID:   albumID,
		Title:     parsed.Title,
		Cover:     parsed.Cover,
		Images:    parsed.Images,
		CreatedAt: s.now().UTC(),
		Views:     0,
		SourceURL: sourceURL,
	}

	// Record first, index second: anyone following a visible index entry
	// must find the record behind it.
	if err := s.Repo.SaveMirror(ctx, m); err != nil {
		return models.Mirror{}, false, err
	}

	won, err := s.Repo.SetSourceIndex(ctx, albumID, m.ID, staleIndex)
	if err != nil {
		return models.Mirror{}, false, err
	}
	if !won {
		// A concurrent creator claimed the index between our cache check
		// and now. Hand back the winner's record.
		winnerID, err := s.Repo.GetSourceIndex(ctx, albumID)
		if err == nil {
			if winner, err := s.Repo.GetMirror(ctx, winnerID); err == nil {
				return *winner, true, nil
			}
		}
		log.Printf("[mirror] lost index race for album %s but winner unreadable, returning own record %s", albumID, m.ID)
	}

	return m, false, nil
}

// RecordView bumps the view counter of a mirror. Best effort: a plain
// read-modify-write, last write wins under concurrency. Callers must not
// let a failure here affect their own response.
func (s *Service) RecordView(ctx context.Context, id string) error {
	m, err := s.Repo.GetMirror(ctx, id)
	if err != nil {
		return err
	}
	m.Views++
	return s.Repo.SaveMirror(ctx, *m)
}

const maxIDAttempts = 5

// allocateID draws random short ids until one is free in the store.
// Collisions are astronomically unlikely (36^8 space) but cheap to rule
// out with a read.
func (s *Service) allocateID(ctx context.Context) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		_, err := s.Repo.GetMirror(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
		log.Printf("[mirror] id collision on %s, retrying", id)
	}
	return "", fmt.Errorf("mirror: no free id after %d attempts", maxIDAttempts)
}
