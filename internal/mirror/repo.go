package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mirrorhub/pkg/kv"
	"mirrorhub/pkg/models"
)

// ErrNotFound means the requested mirror (or index entry) is not in the
// store.
var ErrNotFound = errors.New("mirror: not found")

// Repo maps mirrors onto the key-value store. Two key families exist:
//
//	mirror:<id>       -> serialized Mirror record
//	yupoo:<albumID>   -> mirror id (forward index, source album -> mirror)
type Repo struct {
	Store kv.Store
}

func NewRepo(store kv.Store) *Repo {
	return &Repo{Store: store}
}

func mirrorKey(id string) string      { return "mirror:" + id }
func sourceKey(albumID string) string { return "yupoo:" + albumID }

func (r *Repo) GetMirror(ctx context.Context, id string) (*models.Mirror, error) {
	raw, err := r.Store.Get(ctx, mirrorKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get mirror %s: %w", id, err)
	}

	var m models.Mirror
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode mirror %s: %w", id, err)
	}
	return &m, nil
}

func (r *Repo) SaveMirror(ctx context.Context, m models.Mirror) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode mirror %s: %w", m.ID, err)
	}
	if err := r.Store.Put(ctx, mirrorKey(m.ID), string(raw)); err != nil {
		return fmt.Errorf("save mirror %s: %w", m.ID, err)
	}
	return nil
}

// GetSourceIndex returns the mirror id registered for an upstream album.
func (r *Repo) GetSourceIndex(ctx context.Context, albumID string) (string, error) {
	id, err := r.Store.Get(ctx, sourceKey(albumID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get source index %s: %w", albumID, err)
	}
	return id, nil
}

// SetSourceIndex claims the forward-index entry for an album. With
// overwrite false it is a conditional write: the return value reports
// whether this caller won the entry.
func (r *Repo) SetSourceIndex(ctx context.Context, albumID, mirrorID string, overwrite bool) (bool, error) {
	key := sourceKey(albumID)
	if overwrite {
		if err := r.Store.Put(ctx, key, mirrorID); err != nil {
			return false, fmt.Errorf("set source index %s: %w", albumID, err)
		}
		return true, nil
	}

	won, err := r.Store.PutIfAbsent(ctx, key, mirrorID)
	if err != nil {
		return false, fmt.Errorf("set source index %s: %w", albumID, err)
	}
	return won, nil
}
