package imagegen

import "context"

// Runner submits a job to a text-to-image provider and waits for its output URL.
type Runner interface {
	Run(ctx context.Context, version string, input map[string]any) (string, error)
}

// Generator produces an ancestor portrait from the three family photos.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest carries the reference photo URLs, oldest generation first.
type GenerateRequest struct {
	Grandfather string
	Father      string
	Son         string
}

// ModelConfig names the primary and secondary model versions.
type ModelConfig struct {
	Primary   string
	Secondary string
}
