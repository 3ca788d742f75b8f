package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/imaging"
	"github.com/nawabsahab16/ancestral-ai/internal/storage"
	"github.com/nawabsahab16/ancestral-ai/internal/storage/inline"
)

type putCall struct {
	key  string
	opts storage.PutOptions
}

type stubStore struct {
	mu    sync.Mutex
	err   error
	calls []putCall
}

func (s *stubStore) Put(ctx context.Context, key string, data []byte, opts storage.PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, putCall{key: key, opts: opts})
	return s.err
}

func (s *stubStore) PublicURL(key string) string {
	return "https://cdn.example.com/ancestor-photos/" + key
}

func (s *stubStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (r *noticeRecorder) Notify(n domain.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func pngPhoto(t *testing.T, name string, size int) domain.Photo {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return domain.Photo{Filename: name, ContentType: "image/png", Data: buf.Bytes()}
}

func photoSet(t *testing.T) domain.PhotoSet {
	return domain.PhotoSet{
		domain.GenerationGrandfather: pngPhoto(t, "a.png", 32),
		domain.GenerationFather:      pngPhoto(t, "b.png", 32),
		domain.GenerationSon:         pngPhoto(t, "c.png", 32),
	}
}

var owner = domain.Owner{UserID: "user-1"}

func TestValidate(t *testing.T) {
	big := domain.Photo{ContentType: "image/jpeg", Data: make([]byte, MaxPhotoBytes+1)}
	text := domain.Photo{Filename: "notes.txt", Data: []byte("plain text, definitely not an image")}
	ok := domain.Photo{ContentType: "image/jpeg", Data: make([]byte, MaxPhotoBytes)}

	if err := Validate(big, domain.GenerationSon); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for oversized photo, got %v", err)
	}
	if err := Validate(text, domain.GenerationSon); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for non-image, got %v", err)
	}
	if err := Validate(ok, domain.GenerationSon); err != nil {
		t.Fatalf("expected photo at the limit to pass, got %v", err)
	}
}

func TestUploadSuccess(t *testing.T) {
	store := &stubStore{}
	u := New(store, inline.NewMemoryCache(0), zerolog.Nop())
	u.newID = func() string { return "tok" }

	res, err := u.Upload(context.Background(), pngPhoto(t, "grandpa.png", 8), domain.GenerationGrandfather, owner, nil)
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if res.Fallback {
		t.Fatal("unexpected fallback")
	}
	if res.URL != "https://cdn.example.com/ancestor-photos/user-1/grandfather/tok.png" {
		t.Fatalf("unexpected url %q", res.URL)
	}
	call := store.calls[0]
	if !call.opts.Upsert || call.opts.CacheControl != "max-age=3600" || call.opts.ContentType != "image/png" {
		t.Fatalf("unexpected put options %+v", call.opts)
	}
}

func TestUploadRejectsBeforeNetwork(t *testing.T) {
	store := &stubStore{}
	u := New(store, nil, zerolog.Nop())
	big := domain.Photo{Filename: "big.jpg", ContentType: "image/jpeg", Data: make([]byte, 12*1024*1024)}

	_, err := u.Upload(context.Background(), big, domain.GenerationSon, owner, nil)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.count() != 0 {
		t.Fatal("store must not be called for an invalid photo")
	}
}

func TestUploadRequiresOwner(t *testing.T) {
	store := &stubStore{}
	u := New(store, nil, zerolog.Nop())
	_, err := u.Upload(context.Background(), pngPhoto(t, "a.png", 4), domain.GenerationSon, domain.Owner{}, nil)
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestUploadFallsBackOnPermissionDenied(t *testing.T) {
	store := &stubStore{err: fmt.Errorf("%w: new row violates row-level security policy", domain.ErrAuthorization)}
	cache := inline.NewMemoryCache(5 * 1024 * 1024)
	rec := &noticeRecorder{}
	u := New(store, cache, zerolog.Nop())

	res, err := u.Upload(context.Background(), pngPhoto(t, "dad.png", 16), domain.GenerationFather, owner, rec)
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if !res.Fallback || !strings.HasPrefix(res.URL, "data:image/jpeg;base64,") {
		t.Fatalf("expected inline fallback, got %+v", res)
	}
	cached, ok, _ := cache.Get(context.Background(), inline.Key(owner.UserID, "father"))
	if !ok || cached != res.URL {
		t.Fatal("fallback image should be cached under the owner's generation key")
	}
	if len(rec.notices) != 1 || rec.notices[0].Title != "Using local storage for father image as fallback" {
		t.Fatalf("unexpected notices %+v", rec.notices)
	}
}

func TestUploadFallbackRecompressesWhenQuotaExceeded(t *testing.T) {
	store := &stubStore{err: domain.ErrAuthorization}
	cache := inline.NewMemoryCache(16)
	u := New(store, cache, zerolog.Nop())
	photo := pngPhoto(t, "son.png", 200)

	res, err := u.Upload(context.Background(), photo, domain.GenerationSon, owner, nil)
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	want, err := imaging.NewInlineEncoder().Encode(photo.Data, imaging.FallbackQuality)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if res.URL != want {
		t.Fatal("expected the quality 30 re-encode")
	}
	if _, ok, _ := cache.Get(context.Background(), inline.Key(owner.UserID, "son")); ok {
		t.Fatal("over-quota value must not be cached")
	}
}

func TestUploadAllConcurrentFallback(t *testing.T) {
	store := &stubStore{err: domain.ErrAuthorization}
	u := New(store, inline.NewMemoryCache(0), zerolog.Nop())

	set, err := u.UploadAll(context.Background(), photoSet(t), owner, nil)
	if err != nil {
		t.Fatalf("UploadAll error: %v", err)
	}
	if !set.UsingFallbackMode() {
		t.Fatal("expected fallback mode when storage denies every upload")
	}
	for _, g := range domain.Generations {
		if !set[g].Fallback {
			t.Fatalf("%s should be a fallback entry", g)
		}
	}
	if store.count() != 3 {
		t.Fatalf("expected 3 store calls, got %d", store.count())
	}
	if got := Describe(set); got != "grandfather=inline,father=inline,son=inline" {
		t.Fatalf("Describe() = %q", got)
	}
}

func TestUploadAllKeyedByGeneration(t *testing.T) {
	store := &stubStore{}
	u := New(store, nil, zerolog.Nop())

	set, err := u.UploadAll(context.Background(), photoSet(t), owner, nil)
	if err != nil {
		t.Fatalf("UploadAll error: %v", err)
	}
	if set.UsingFallbackMode() {
		t.Fatal("unexpected fallback mode")
	}
	for _, g := range domain.Generations {
		if !strings.Contains(set[g].URL, "/user-1/"+string(g)+"/") {
			t.Fatalf("%s url %q not scoped under owner and generation", g, set[g].URL)
		}
	}
}

func TestUploadAllValidatesEveryPhotoFirst(t *testing.T) {
	store := &stubStore{}
	u := New(store, nil, zerolog.Nop())
	set := photoSet(t)
	set[domain.GenerationSon] = domain.Photo{Filename: "c.jpg", ContentType: "image/jpeg", Data: make([]byte, 12*1024*1024)}

	_, err := u.UploadAll(context.Background(), set, owner, nil)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.count() != 0 {
		t.Fatal("no upload should start when any photo is invalid")
	}
}

func TestUploadFallbackSlotsAreOwnerScoped(t *testing.T) {
	store := &stubStore{err: domain.ErrAuthorization}
	cache := inline.NewMemoryCache(5 * 1024 * 1024)
	u := New(store, cache, zerolog.Nop())
	ctx := context.Background()

	alice := domain.Owner{UserID: "alice"}
	bob := domain.Owner{UserID: "bob"}
	first, err := u.Upload(ctx, pngPhoto(t, "a.png", 16), domain.GenerationFather, alice, nil)
	if err != nil {
		t.Fatalf("alice upload: %v", err)
	}
	second, err := u.Upload(ctx, pngPhoto(t, "b.png", 24), domain.GenerationFather, bob, nil)
	if err != nil {
		t.Fatalf("bob upload: %v", err)
	}
	if first.URL == second.URL {
		t.Fatal("different photos should encode differently")
	}

	for _, tc := range []struct {
		owner domain.Owner
		want  string
	}{{alice, first.URL}, {bob, second.URL}} {
		got, ok, _ := cache.Get(ctx, inline.Key(tc.owner.UserID, "father"))
		if !ok || got != tc.want {
			t.Fatalf("%s slot holds another owner's image", tc.owner.UserID)
		}
	}
}

func TestObjectKeyIgnoresHostileExtensions(t *testing.T) {
	p := domain.Photo{Filename: `a.jpg\..\..\victim\son\planted`, ContentType: "image/png"}
	got := ObjectKey("user-1", domain.GenerationSon, "tok", p)
	if got != "user-1/son/tok.png" {
		t.Fatalf("ObjectKey() = %q", got)
	}
}
