package predict

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/imagegen"
)

// LocalClient runs the generator in-process instead of calling the hosted
// function. Failures are classified the way FunctionClient classifies the
// function's responses.
type LocalClient struct {
	Generator imagegen.Generator
}

func NewLocalClient(g imagegen.Generator) *LocalClient {
	return &LocalClient{Generator: g}
}

func (c *LocalClient) Predict(ctx context.Context, urls domain.PhotoURLs, owner domain.Owner) (string, error) {
	if c.Generator == nil {
		return "", fmt.Errorf("%w: no image generator configured", domain.ErrEndpointUnavailable)
	}
	for _, g := range domain.Generations {
		if strings.TrimSpace(urls.Get(g)) == "" {
			return "", fmt.Errorf("%w: Missing %s photo", domain.ErrValidation, g)
		}
	}
	url, err := c.Generator.Generate(ctx, imagegen.GenerateRequest{
		Grandfather: urls.Grandfather,
		Father:      urls.Father,
		Son:         urls.Son,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, domain.ErrValidation) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamRejected, err)
	}
	url = strings.TrimSpace(url)
	if url == "" || strings.HasSuffix(url, PlaceholderPath) {
		return "", domain.ErrInvalidResponse
	}
	return url, nil
}

var _ Client = (*LocalClient)(nil)
