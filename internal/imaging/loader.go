package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
)

const (
	// DefaultLoadBudget bounds how long LoadAll waits for every source to settle.
	DefaultLoadBudget = 10 * time.Second
	maxSourceBytes    = 20 << 20
)

// Loader resolves image sources given as data: or http(s) URLs.
type Loader struct {
	HTTPClient *http.Client
	Budget     time.Duration
}

// NewLoader returns a Loader with the default budget.
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{HTTPClient: client, Budget: DefaultLoadBudget}
}

// Fetch returns the raw bytes and media type behind src.
func (l *Loader) Fetch(ctx context.Context, src string) ([]byte, string, error) {
	src = strings.TrimSpace(src)
	switch {
	case IsDataURL(src):
		mediaType, data, err := DecodeDataURL(src)
		return data, mediaType, err
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, "", err
		}
		resp, err := l.client().Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("%w: fetch image: %v", domain.ErrTransient, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes+1))
		if err != nil {
			return nil, "", fmt.Errorf("read image: %w", err)
		}
		if len(data) > maxSourceBytes {
			return nil, "", fmt.Errorf("%w: image exceeds %d bytes", domain.ErrValidation, maxSourceBytes)
		}
		return data, resp.Header.Get("Content-Type"), nil
	default:
		return nil, "", fmt.Errorf("%w: unsupported image source", domain.ErrValidation)
	}
}

// Load fetches and decodes a single source.
func (l *Loader) Load(ctx context.Context, src string) (image.Image, error) {
	data, _, err := l.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// LoadAll loads every source concurrently. Individual failures leave a nil
// entry and a non-nil error at the same index. If the budget elapses before
// every load settles the call fails with domain.ErrTimeout.
func (l *Loader) LoadAll(ctx context.Context, sources []string) ([]image.Image, []error, error) {
	budget := l.Budget
	if budget <= 0 {
		budget = DefaultLoadBudget
	}
	loadCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	images := make([]image.Image, len(sources))
	errs := make([]error, len(sources))
	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			images[i], errs[i] = l.Load(loadCtx, src)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	if err := settle(ctx, done, loadCtx.Done()); err != nil {
		return nil, nil, err
	}
	return images, errs, nil
}

// settle waits for every load or for the budget to expire. Loads that have
// all finished win over a budget that expires at the same moment.
func settle(ctx context.Context, done, expired <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-expired:
		select {
		case <-done:
			return nil
		default:
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: waiting for images to load", domain.ErrTimeout)
	}
}

func (l *Loader) client() *http.Client {
	if l.HTTPClient != nil {
		return l.HTTPClient
	}
	return http.DefaultClient
}
