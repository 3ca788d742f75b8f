package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/imaging"
	"github.com/nawabsahab16/ancestral-ai/internal/infra"
	"github.com/nawabsahab16/ancestral-ai/internal/storage"
	"github.com/nawabsahab16/ancestral-ai/internal/storage/inline"
)

const cacheControl = "max-age=3600"

// Uploader stores photos in the object store, degrading to inline data URLs
// when the store refuses them.
type Uploader struct {
	store   storage.ObjectStore
	cache   inline.Cache
	encoder imaging.InlineEncoder
	logger  infra.Logger
	newID   func() string
}

// New builds an Uploader. cache may be nil, in which case fallback images are
// never cached.
func New(store storage.ObjectStore, cache inline.Cache, logger infra.Logger) *Uploader {
	return &Uploader{
		store:   store,
		cache:   cache,
		encoder: imaging.NewInlineEncoder(),
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// ObjectKey builds {owner}/{generation}/{token}.{ext}.
func ObjectKey(ownerID string, g domain.Generation, token string, p domain.Photo) string {
	return fmt.Sprintf("%s/%s/%s.%s", ownerID, g, token, storage.ExtensionFor(p.Filename, ContentType(p)))
}

// Upload validates and stores one photo. Store failures are absorbed by the
// inline fallback; only validation and fallback encoding errors surface.
func (u *Uploader) Upload(ctx context.Context, p domain.Photo, g domain.Generation, owner domain.Owner, n domain.Notifier) (domain.UploadedPhoto, error) {
	if err := Validate(p, g); err != nil {
		return domain.UploadedPhoto{}, err
	}
	if !owner.Authenticated() {
		return domain.UploadedPhoto{}, domain.ErrNotAuthenticated
	}
	if n == nil {
		n = domain.NopNotifier{}
	}

	log := u.logger.With().Str("user_id", owner.UserID).Str("generation", string(g)).Logger()
	key := ObjectKey(owner.UserID, g, u.newID(), p)

	err := u.store.Put(ctx, key, p.Data, storage.PutOptions{
		ContentType:  ContentType(p),
		CacheControl: cacheControl,
		Upsert:       true,
	})
	if err == nil {
		log.Info().Str("key", key).Msg("photo uploaded")
		return domain.UploadedPhoto{URL: u.store.PublicURL(key)}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.UploadedPhoto{}, ctxErr
	}

	if errors.Is(err, domain.ErrAuthorization) {
		log.Warn().Err(err).Msg("storage permission denied, using inline fallback")
	} else {
		log.Error().Err(err).Msg("photo upload failed, using inline fallback")
	}

	url, ferr := u.fallback(ctx, p, g, owner)
	if ferr != nil {
		return domain.UploadedPhoto{}, fmt.Errorf("inline fallback for %s: %w (upload error: %v)", g, ferr, err)
	}
	n.Notify(domain.Notice{
		Level:       domain.NoticeError,
		Title:       fmt.Sprintf("Using local storage for %s image as fallback", g),
		Description: "Images won't persist after page refresh in demo mode",
	})
	return domain.UploadedPhoto{URL: url, Fallback: true}, nil
}

func (u *Uploader) fallback(ctx context.Context, p domain.Photo, g domain.Generation, owner domain.Owner) (string, error) {
	img, err := u.encoder.Prepare(p.Data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	url, err := imaging.EncodeJPEGDataURL(img, imaging.InlineQuality)
	if err != nil {
		return "", err
	}
	if u.cache == nil {
		return url, nil
	}
	err = u.cache.Set(ctx, inline.Key(owner.UserID, string(g)), url)
	switch {
	case err == nil:
		return url, nil
	case errors.Is(err, inline.ErrQuotaExceeded):
		u.logger.Warn().Str("generation", string(g)).Msg("inline cache quota exceeded, compressing further")
		return imaging.EncodeJPEGDataURL(img, imaging.FallbackQuality)
	default:
		u.logger.Warn().Err(err).Str("generation", string(g)).Msg("inline cache unavailable")
		return url, nil
	}
}

// UploadAll validates the whole set, then uploads all three photos
// concurrently. The result is keyed by generation regardless of completion
// order; the first non-absorbed failure cancels the rest.
func (u *Uploader) UploadAll(ctx context.Context, set domain.PhotoSet, owner domain.Owner, n domain.Notifier) (domain.UploadedSet, error) {
	if err := ValidateSet(set); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	out := make(domain.UploadedSet, len(domain.Generations))
	for _, gen := range domain.Generations {
		photo := set[gen]
		g.Go(func() error {
			res, err := u.Upload(gctx, photo, gen, owner, n)
			if err != nil {
				return fmt.Errorf("upload %s: %w", gen, err)
			}
			mu.Lock()
			out[gen] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Describe summarizes an uploaded set for logs.
func Describe(set domain.UploadedSet) string {
	parts := make([]string, 0, len(set))
	for _, g := range domain.Generations {
		u, ok := set[g]
		if !ok {
			continue
		}
		kind := "remote"
		if u.Fallback {
			kind = "inline"
		}
		parts = append(parts, string(g)+"="+kind)
	}
	return strings.Join(parts, ",")
}
