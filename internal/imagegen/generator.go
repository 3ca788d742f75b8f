package imagegen

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/infra"
)

// ErrAllModelsFailed is returned when neither model produced an image.
var ErrAllModelsFailed = errors.New("unable to generate ancestor image after multiple attempts")

// AncestorGenerator runs the primary model and falls back to the secondary
// one on any primary failure.
type AncestorGenerator struct {
	runner Runner
	models ModelConfig
	logger infra.Logger
	seed   func() int
}

func NewAncestorGenerator(runner Runner, models ModelConfig, logger infra.Logger) *AncestorGenerator {
	return &AncestorGenerator{
		runner: runner,
		models: models,
		logger: logger,
		seed:   func() int { return rand.IntN(2147483647) },
	}
}

func (g *AncestorGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	reference := strings.TrimSpace(req.Grandfather)
	if reference == "" {
		return "", fmt.Errorf("%w: missing grandfather photo", domain.ErrValidation)
	}

	url, err := g.runner.Run(ctx, g.models.Primary, PrimaryInput(reference, g.seed()))
	if err == nil {
		g.logger.Info().Str("model", "primary").Msg("ancestor image generated")
		return url, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	g.logger.Warn().Err(err).Msg("primary model attempt failed, trying secondary model")

	if strings.TrimSpace(g.models.Secondary) == "" {
		return "", fmt.Errorf("%w: %w", ErrAllModelsFailed, err)
	}
	url, serr := g.runner.Run(ctx, g.models.Secondary, SecondaryInput(reference))
	if serr != nil {
		g.logger.Error().Err(serr).Msg("secondary model attempt failed")
		return "", fmt.Errorf("%w: %w", ErrAllModelsFailed, serr)
	}
	g.logger.Info().Str("model", "secondary").Msg("ancestor image generated")
	return url, nil
}

var _ Generator = (*AncestorGenerator)(nil)
