package predict

import (
	"context"
	"errors"
	"fmt"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/imaging"
	"github.com/nawabsahab16/ancestral-ai/internal/infra"
)

// Requester turns an uploaded set into a prediction, falling back to the
// local blend when the remote path is unusable.
type Requester struct {
	client     Client
	compositor imaging.Compositor
	logger     infra.Logger
}

func NewRequester(client Client, compositor imaging.Compositor, logger infra.Logger) *Requester {
	return &Requester{client: client, compositor: compositor, logger: logger}
}

// Predict never calls the remote endpoint when any upload is an inline
// fallback. Unavailable or rejecting endpoints degrade to the blend; if the
// blend also fails the original error is returned.
func (r *Requester) Predict(ctx context.Context, uploaded domain.UploadedSet, owner domain.Owner, n domain.Notifier) (domain.PredictionResult, error) {
	if n == nil {
		n = domain.NopNotifier{}
	}
	log := r.logger.With().Str("user_id", owner.UserID).Logger()

	if uploaded.UsingFallbackMode() {
		log.Info().Msg("using fallback mode for prediction")
		n.Notify(domain.Notice{
			Level:       domain.NoticeWarning,
			Title:       "Using demo mode for ancestor prediction",
			Description: "This is a simulated result. Connect the storage backend for full functionality.",
		})
		url, err := r.blend(ctx, uploaded)
		if err != nil {
			return domain.PredictionResult{}, fmt.Errorf("local blend: %w", err)
		}
		return domain.PredictionResult{URL: url, Fallback: true}, nil
	}

	url, err := r.client.Predict(ctx, domain.PhotoURLsFrom(uploaded), owner)
	if err == nil {
		log.Info().Msg("ancestor prediction completed")
		return domain.PredictionResult{URL: url}, nil
	}
	if ctx.Err() != nil {
		return domain.PredictionResult{}, ctx.Err()
	}

	switch {
	case errors.Is(err, domain.ErrEndpointUnavailable):
		log.Warn().Err(err).Msg("prediction endpoint unavailable, blending locally")
		n.Notify(domain.Notice{
			Level:       domain.NoticeWarning,
			Title:       "Edge function unavailable, using local processing instead",
			Description: "Results may be less accurate in demo mode",
		})
	case errors.Is(err, domain.ErrUpstreamRejected):
		log.Warn().Err(err).Msg("provider rejected prediction, blending locally")
		n.Notify(domain.Notice{
			Level:       domain.NoticeError,
			Title:       "Error processing ancestor prediction",
			Description: "Using a locally blended image as fallback",
		})
	default:
		log.Error().Err(err).Msg("prediction failed")
		return domain.PredictionResult{}, err
	}

	blended, berr := r.blend(ctx, uploaded)
	if berr != nil {
		log.Error().Err(berr).Msg("fallback blending failed")
		return domain.PredictionResult{}, fmt.Errorf("%w (fallback blend: %v)", err, berr)
	}
	return domain.PredictionResult{URL: blended, Fallback: true}, nil
}

func (r *Requester) blend(ctx context.Context, uploaded domain.UploadedSet) (string, error) {
	if r.compositor == nil {
		return "", errors.New("no compositor configured")
	}
	layers := make([]imaging.Layer, 0, len(uploaded))
	for _, g := range domain.Generations {
		if u, ok := uploaded[g]; ok && u.URL != "" {
			layers = append(layers, imaging.Layer{Generation: g, Source: u.URL})
		}
	}
	return r.compositor.Blend(ctx, layers)
}
