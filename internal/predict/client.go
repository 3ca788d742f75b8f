package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
)

// Client calls the remote inference endpoint.
type Client interface {
	Predict(ctx context.Context, urls domain.PhotoURLs, owner domain.Owner) (string, error)
}

// FunctionClient posts to the predict-ancestor function over HTTP.
type FunctionClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewFunctionClient targets endpoint. apiKey, when set, is sent as the apikey
// header alongside the owner's bearer token.
func NewFunctionClient(endpoint, apiKey string, httpClient *http.Client) *FunctionClient {
	if httpClient == nil {
		// The function polls upstream for up to 150s.
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &FunctionClient{endpoint: endpoint, apiKey: apiKey, httpClient: httpClient}
}

// Predict returns the generated image URL. Errors wrap one of
// domain.ErrEndpointUnavailable, domain.ErrUpstreamRejected,
// domain.ErrValidation or domain.ErrInvalidResponse.
func (c *FunctionClient) Predict(ctx context.Context, urls domain.PhotoURLs, owner domain.Owner) (string, error) {
	body, err := json.Marshal(Request{PhotoURLs: &urls, UserID: owner.UserID})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEndpointUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if owner.Token != "" {
		req.Header.Set("Authorization", "Bearer "+owner.Token)
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %v", domain.ErrEndpointUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrEndpointUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var out Response
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
		}
		url := strings.TrimSpace(out.ResultURL)
		if url == "" || strings.HasSuffix(url, PlaceholderPath) {
			return "", domain.ErrInvalidResponse
		}
		return url, nil
	}

	var e ErrorResponse
	decoded := json.Unmarshal(raw, &e) == nil && e.Error != ""
	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		return "", fmt.Errorf("%w: %s", domain.ErrValidation, describe(e, raw))
	case decoded && resp.StatusCode >= 500 && !gatewayStatus(resp.StatusCode):
		return "", fmt.Errorf("%w: %s", domain.ErrUpstreamRejected, describe(e, raw))
	default:
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrEndpointUnavailable, resp.StatusCode, describe(e, raw))
	}
}

// gatewayStatus reports statuses produced by proxies in front of the
// function rather than by the function itself.
func gatewayStatus(code int) bool {
	return code == http.StatusBadGateway || code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
}

func describe(e ErrorResponse, raw []byte) string {
	switch {
	case e.Error != "" && e.Details != "":
		return e.Error + ": " + e.Details
	case e.Error != "":
		return e.Error
	default:
		return strings.TrimSpace(string(raw))
	}
}

var _ Client = (*FunctionClient)(nil)
