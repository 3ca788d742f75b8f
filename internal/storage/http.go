package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
)

// HTTPStore talks to a hosted object store REST API using the
// /object/{bucket}/{key} convention.
type HTTPStore struct {
	baseURL    string
	bucket     string
	apiKey     string
	httpClient *http.Client
}

// HTTPStoreOption customizes an HTTPStore.
type HTTPStoreOption func(*HTTPStore)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPStoreOption {
	return func(s *HTTPStore) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// NewHTTPStore builds a store for bucket under baseURL (e.g.
// https://project.example.com/storage/v1).
func NewHTTPStore(baseURL, bucket, apiKey string, opts ...HTTPStoreOption) (*HTTPStore, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("storage: api url is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("storage: bucket is required")
	}
	s := &HTTPStore{
		baseURL:    baseURL,
		bucket:     bucket,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type storeError struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// Put uploads data. Permission denials map to domain.ErrAuthorization and
// network failures to domain.ErrTransient.
func (s *HTTPStore) Put(ctx context.Context, key string, data []byte, opts PutOptions) error {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/object/%s/%s", s.baseURL, url.PathEscape(s.bucket), escapeKey(cleanKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("storage: build request: %w", err)
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	if opts.CacheControl != "" {
		req.Header.Set("Cache-Control", opts.CacheControl)
	}
	req.Header.Set("x-upsert", strconv.FormatBool(opts.Upsert))
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("apikey", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: storage upload: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return classifyStoreError(resp.StatusCode, body)
}

func classifyStoreError(status int, body []byte) error {
	var se storeError
	_ = json.Unmarshal(body, &se)
	msg := strings.TrimSpace(se.Message)
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		se.StatusCode == "401", se.StatusCode == "403",
		strings.Contains(strings.ToLower(msg), "row-level security"):
		return fmt.Errorf("%w: %s", domain.ErrAuthorization, msg)
	case status == http.StatusConflict || se.StatusCode == "409":
		return ErrObjectExists
	case status >= 500 || status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: storage status %d: %s", domain.ErrTransient, status, msg)
	default:
		return fmt.Errorf("storage: status %d: %s", status, msg)
	}
}

// PublicURL returns the public-bucket address for key.
func (s *HTTPStore) PublicURL(key string) string {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s/object/public/%s/%s", s.baseURL, url.PathEscape(s.bucket), escapeKey(cleanKey))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

var _ ObjectStore = (*HTTPStore)(nil)
