package mirror

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"mirrorhub/internal/album"
	"mirrorhub/pkg/kv"
	"mirrorhub/pkg/models"
)

const fixtureHTML = `<html>
<head><title>Spring 2024 _ Shop</title></head>
<body>
<img data-src="//photo.yupoo.com/rmqc/aaa/small.jpg">
<img data-src="//photo.yupoo.com/rmqc/bbb/small.jpg">
<img data-src="//photo.yupoo.com/rmqc/ccc/small.jpg">
</body>
</html>`

const fixtureURL = "https://rmqc.x.yupoo.com/albums/123456?uid=1"

type stubFetcher struct {
	html  string
	err   error
	calls int
}

func (f *stubFetcher) FetchPage(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.html, nil
}

func newTestService(store kv.Store, fetcher PageFetcher) *Service {
	svc := NewService(NewRepo(store), fetcher, album.NewParser("rmqc"))
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestResolveOrCreate_InvalidURL(t *testing.T) {
	svc := newTestService(kv.NewMemory(), &stubFetcher{html: fixtureHTML})

	for _, url := range []string{"", "https://example.com/albums/1", "not a url"} {
		if _, _, err := svc.ResolveOrCreate(context.Background(), url); !errors.Is(err, ErrInvalidSourceURL) {
			t.Errorf("url %q: err = %v, want ErrInvalidSourceURL", url, err)
		}
	}
}

func TestResolveOrCreate_CreatesThenCaches(t *testing.T) {
	ctx := context.Background()
	fetcher := &stubFetcher{html: fixtureHTML}
	svc := newTestService(kv.NewMemory(), fetcher)

	first, cached, err := svc.ResolveOrCreate(ctx, fixtureURL)
	if err != nil {
		t.Fatalf("first ResolveOrCreate: %v", err)
	}
	if cached {
		t.Error("first call reported cached")
	}
	if first.YupooID != "123456" {
		t.Errorf("yupoo id = %q", first.YupooID)
	}
	if first.Title != "Spring 2024" {
		t.Errorf("title = %q", first.Title)
	}
	if len(first.Images) != 3 {
		t.Errorf("len(images) = %d, want 3", len(first.Images))
	}
	if first.Views != 0 {
		t.Errorf("views = %d, want 0", first.Views)
	}
	if first.SourceURL != fixtureURL {
		t.Errorf("source url = %q", first.SourceURL)
	}

	second, cached, err := svc.ResolveOrCreate(ctx, fixtureURL)
	if err != nil {
		t.Fatalf("second ResolveOrCreate: %v", err)
	}
	if !cached {
		t.Error("second call not cached")
	}
	if second.ID != first.ID {
		t.Errorf("second id = %q, want %q", second.ID, first.ID)
	}
	if fetcher.calls != 1 {
		t.Errorf("upstream fetched %d times, want 1 (cache hit must not re-fetch)", fetcher.calls)
	}
}

func TestResolveOrCreate_UpstreamUnavailable(t *testing.T) {
	svc := newTestService(kv.NewMemory(), &stubFetcher{err: album.ErrUpstreamUnavailable})

	if _, _, err := svc.ResolveOrCreate(context.Background(), fixtureURL); !errors.Is(err, album.ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestResolveOrCreate_StaleIndexRecreates(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	fetcher := &stubFetcher{html: fixtureHTML}
	svc := newTestService(store, fetcher)

	first, _, err := svc.ResolveOrCreate(ctx, fixtureURL)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Simulate a partial failure: index entry survives, record is gone.
	store.Delete(mirrorKey(first.ID))

	second, cached, err := svc.ResolveOrCreate(ctx, fixtureURL)
	if err != nil {
		t.Fatalf("re-create: %v", err)
	}
	if cached {
		t.Error("stale index hit reported cached")
	}
	if second.ID == first.ID {
		t.Error("re-created mirror reused the dangling id")
	}

	// The stale index entry must now point at the fresh record.
	id, err := svc.Repo.GetSourceIndex(ctx, "123456")
	if err != nil || id != second.ID {
		t.Errorf("index = %q, %v; want %q", id, err, second.ID)
	}
}

// racingStore injects a concurrent winner between the service's cache
// check and its conditional index write.
type racingStore struct {
	*kv.Memory
	winner models.Mirror
	fired  bool
}

func (s *racingStore) PutIfAbsent(ctx context.Context, key, value string) (bool, error) {
	if !s.fired && strings.HasPrefix(key, "yupoo:") {
		s.fired = true
		if err := NewRepo(s.Memory).SaveMirror(ctx, s.winner); err != nil {
			return false, err
		}
		if err := s.Memory.Put(ctx, key, s.winner.ID); err != nil {
			return false, err
		}
	}
	return s.Memory.PutIfAbsent(ctx, key, value)
}

func TestResolveOrCreate_LostIndexRaceReturnsWinner(t *testing.T) {
	winner := models.Mirror{
		ID:      "winner00",
		YupooID: "123456",
		Title:   "Winner",
		Images:  []models.ImageRef{},
	}
	store := &racingStore{Memory: kv.NewMemory(), winner: winner}
	svc := newTestService(store, &stubFetcher{html: fixtureHTML})

	got, cached, err := svc.ResolveOrCreate(context.Background(), fixtureURL)
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if !cached {
		t.Error("losing the index race should report the result as cached")
	}
	if got.ID != "winner00" {
		t.Errorf("id = %q, want the race winner's id", got.ID)
	}
}

func TestAllocateID_RetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	svc := newTestService(store, &stubFetcher{html: fixtureHTML})

	taken := models.Mirror{ID: "taken000", Images: []models.ImageRef{}}
	if err := svc.Repo.SaveMirror(ctx, taken); err != nil {
		t.Fatalf("seed: %v", err)
	}

	calls := 0
	svc.newID = func() string {
		calls++
		if calls <= 2 {
			return "taken000"
		}
		return "freeid00"
	}

	id, err := svc.allocateID(ctx)
	if err != nil {
		t.Fatalf("allocateID: %v", err)
	}
	if id != "freeid00" {
		t.Errorf("id = %q, want freeid00", id)
	}
	if calls != 3 {
		t.Errorf("generator called %d times, want 3", calls)
	}
}

func TestAllocateID_GivesUpAfterBoundedAttempts(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(kv.NewMemory(), &stubFetcher{html: fixtureHTML})

	if err := svc.Repo.SaveMirror(ctx, models.Mirror{ID: "taken000", Images: []models.ImageRef{}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	calls := 0
	svc.newID = func() string {
		calls++
		return "taken000"
	}

	if _, err := svc.allocateID(ctx); err == nil {
		t.Fatal("allocateID succeeded against a fully taken generator")
	}
	if calls != maxIDAttempts {
		t.Errorf("generator called %d times, want %d", calls, maxIDAttempts)
	}
}

func TestRecordView(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(kv.NewMemory(), &stubFetcher{html: fixtureHTML})

	m, _, err := svc.ResolveOrCreate(ctx, fixtureURL)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 1; i <= 3; i++ {
		if err := svc.RecordView(ctx, m.ID); err != nil {
			t.Fatalf("RecordView #%d: %v", i, err)
		}
	}

	got, err := svc.Repo.GetMirror(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMirror: %v", err)
	}
	if got.Views != 3 {
		t.Errorf("views = %d, want 3", got.Views)
	}

	if err := svc.RecordView(ctx, "nope1234"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RecordView on missing id: err = %v, want ErrNotFound", err)
	}
}

func TestMirrorRecord_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(kv.NewMemory())

	want := models.Mirror{
		ID:      "abcd1234",
		YupooID: "99887766",
		Title:   "Round Trip",
		Cover:   "/api/image/rmqc/aaa/medium.jpg",
		Images: []models.ImageRef{
			{Small: "/api/image/rmqc/aaa/small.jpg", Big: "/api/image/rmqc/aaa/big.jpg"},
		},
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Views:     7,
		SourceURL: "https://rmqc.x.yupoo.com/albums/99887766?uid=1",
	}

	if err := repo.SaveMirror(ctx, want); err != nil {
		t.Fatalf("SaveMirror: %v", err)
	}
	got, err := repo.GetMirror(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetMirror: %v", err)
	}
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", *got, want)
	}
}
