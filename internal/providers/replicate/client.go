package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("replicate: api token is required")

const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Options configures the Replicate client.
type Options struct {
	APIToken       string
	BaseURL        string
	PollInterval   time.Duration
	MaxPolls       int
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Replicate predictions API.
type Client struct {
	apiToken     string
	baseURL      string
	pollInterval time.Duration
	maxPolls     int
	httpClient   *http.Client
	logger       *infra.Logger
	sleep        func(ctx context.Context, d time.Duration) error
}

// Prediction mirrors the fields of a Replicate prediction the service reads.
type Prediction struct {
	ID      string          `json:"id"`
	Version string          `json:"version"`
	Status  string          `json:"status"`
	Output  json.RawMessage `json:"output,omitempty"`
	Error   any             `json:"error,omitempty"`
	Logs    string          `json:"logs,omitempty"`
}

type createRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

// NewClient constructs a client with defaults of a 3s poll interval and 50 polls.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = 50
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiToken:     strings.TrimSpace(opts.APIToken),
		baseURL:      baseURL,
		pollInterval: interval,
		maxPolls:     maxPolls,
		httpClient:   httpClient,
		logger:       logger,
		sleep:        sleepContext,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiToken != ""
}

// CreatePrediction submits a job for the given model version.
func (c *Client) CreatePrediction(ctx context.Context, version string, input map[string]any) (*Prediction, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	body, err := json.Marshal(createRequest{Version: version, Input: input})
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}
	var pred Prediction
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/predictions", body, &pred); err != nil {
		return nil, err
	}
	c.logger.Info().Str("prediction_id", pred.ID).Str("version", shortVersion(version)).Msg("replicate: prediction started")
	return &pred, nil
}

// GetPrediction fetches the current state of a job.
func (c *Client) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	var pred Prediction
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/predictions/"+id, nil, &pred); err != nil {
		return nil, fmt.Errorf("replicate: check prediction status: %w", err)
	}
	return &pred, nil
}

// WaitForCompletion polls until the job reaches a terminal status or the
// attempt budget runs out. It returns the first output URL on success.
func (c *Client) WaitForCompletion(ctx context.Context, id string) (string, error) {
	for attempt := 1; attempt <= c.maxPolls; attempt++ {
		pred, err := c.GetPrediction(ctx, id)
		if err != nil {
			return "", err
		}
		c.logger.Debug().
			Str("prediction_id", id).
			Int("attempt", attempt).
			Int("max_attempts", c.maxPolls).
			Str("status", pred.Status).
			Msg("replicate: polled prediction")

		switch pred.Status {
		case StatusSucceeded:
			url, err := FirstOutput(pred.Output)
			if err != nil {
				return "", err
			}
			return url, nil
		case StatusFailed:
			return "", fmt.Errorf("%w: image generation failed: %s", domain.ErrUpstream, errorMessage(pred.Error))
		case StatusCanceled:
			return "", fmt.Errorf("%w: prediction was canceled", domain.ErrUpstream)
		}

		if attempt < c.maxPolls {
			if err := c.sleep(ctx, c.pollInterval); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("%w: no result after %d status checks", domain.ErrTimeout, c.maxPolls)
}

// Run submits a job and waits for its output.
func (c *Client) Run(ctx context.Context, version string, input map[string]any) (string, error) {
	pred, err := c.CreatePrediction(ctx, version, input)
	if err != nil {
		return "", err
	}
	return c.WaitForCompletion(ctx, pred.ID)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: replicate: http request: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("replicate: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var detail struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		}
		msg := strings.TrimSpace(string(raw))
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != "" {
			msg = detail.Detail
		}
		if resp.StatusCode == http.StatusPaymentRequired {
			return fmt.Errorf("%w: replicate: billing issue: %s", domain.ErrUpstream, msg)
		}
		return fmt.Errorf("%w: replicate: status %d: %s", domain.ErrUpstream, resp.StatusCode, msg)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("replicate: decode response: %w", err)
	}
	return nil
}

// FirstOutput accepts either a string or an array of strings.
func FirstOutput(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("%w: prediction has no output", domain.ErrUpstream)
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
		return strings.TrimSpace(single), nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, s := range many {
			if s = strings.TrimSpace(s); s != "" {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("%w: unrecognized prediction output", domain.ErrUpstream)
}

func errorMessage(v any) string {
	switch e := v.(type) {
	case nil:
		return "unknown error"
	case string:
		return e
	case map[string]any:
		if msg, ok := e["message"]; ok {
			return fmt.Sprintf("%v", msg)
		}
	}
	return fmt.Sprintf("%v", v)
}

func shortVersion(v string) string {
	if name, hash, ok := strings.Cut(v, ":"); ok && len(hash) > 8 {
		return name + ":" + hash[:8]
	}
	return v
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
