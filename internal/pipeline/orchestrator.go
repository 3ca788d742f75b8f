// Package pipeline sequences upload and prediction for one set of family
// photos, tracking stage and progress and retrying a bounded number of times.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/infra"
	"github.com/nawabsahab16/ancestral-ai/internal/upload"
)

// Progress checkpoints.
const (
	PercentStart     = 0
	PercentUploading = 10
	PercentUploaded  = 40
	PercentAnalyzing = 50
	PercentAnalyzed  = 60
	PercentPredict   = 70
	PercentFinalize  = 90
	PercentDone      = 100
)

// Uploader stores a photo set and reports where each photo ended up.
type Uploader interface {
	UploadAll(ctx context.Context, set domain.PhotoSet, owner domain.Owner, n domain.Notifier) (domain.UploadedSet, error)
}

// Predictor turns an uploaded set into a result URL.
type Predictor interface {
	Predict(ctx context.Context, uploaded domain.UploadedSet, owner domain.Owner, n domain.Notifier) (domain.PredictionResult, error)
}

// Progress is emitted at every checkpoint.
type Progress struct {
	Stage    domain.Stage
	Percent  int
	Retries  int
	Uploaded domain.UploadedSet
	Result   domain.PredictionResult
	Err      error
}

// Reporter receives checkpoint updates in order.
type Reporter interface {
	Report(Progress)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Progress)

func (f ReporterFunc) Report(p Progress) { f(p) }

type nopReporter struct{}

func (nopReporter) Report(Progress) {}

// checkpointReporter remembers the last percent reported so a failure is
// reported at the checkpoint it happened on.
type checkpointReporter struct {
	next    Reporter
	percent int
}

func (c *checkpointReporter) Report(p Progress) {
	c.percent = p.Percent
	c.next.Report(p)
}

// Options tune the retry policy.
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
	Sleep      func(ctx context.Context, d time.Duration) error
}

// Outcome is the result of a completed run.
type Outcome struct {
	Uploaded domain.UploadedSet
	Result   domain.PredictionResult
	Retries  int
}

// Orchestrator runs Uploading -> Analyzing -> Predicting -> Finalizing and
// restarts from Uploading after a flat delay on retryable failures.
type Orchestrator struct {
	uploader   Uploader
	predictor  Predictor
	maxRetries int
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     infra.Logger
}

func NewOrchestrator(uploader Uploader, predictor Predictor, opts Options, logger infra.Logger) *Orchestrator {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Orchestrator{
		uploader:   uploader,
		predictor:  predictor,
		maxRetries: maxRetries,
		retryDelay: opts.RetryDelay,
		sleep:      sleep,
		logger:     logger,
	}
}

// MaxRetries returns the configured ceiling.
func (o *Orchestrator) MaxRetries() int { return o.maxRetries }

// Run drives one pipeline to a terminal stage. Unauthenticated owners and
// incomplete or invalid photo sets fail immediately without retry.
func (o *Orchestrator) Run(ctx context.Context, owner domain.Owner, photos domain.PhotoSet, rep Reporter, n domain.Notifier) (Outcome, error) {
	if rep == nil {
		rep = nopReporter{}
	}
	if n == nil {
		n = domain.NopNotifier{}
	}
	if !owner.Authenticated() {
		rep.Report(Progress{Stage: domain.StageFailed, Percent: PercentStart, Err: domain.ErrNotAuthenticated})
		return Outcome{}, domain.ErrNotAuthenticated
	}
	if missing, ok := photos.Missing(); ok {
		err := fmt.Errorf("%w: missing %s photo", domain.ErrValidation, missing)
		rep.Report(Progress{Stage: domain.StageFailed, Percent: PercentStart, Err: err})
		return Outcome{}, err
	}

	log := o.logger.With().Str("user_id", owner.UserID).Logger()
	track := &checkpointReporter{next: rep, percent: PercentStart}
	rep = track
	retries := 0
	for {
		out, err := o.attempt(ctx, owner, photos, retries, rep, n, log)
		if err == nil {
			out.Retries = retries
			rep.Report(Progress{Stage: domain.StageSucceeded, Percent: PercentDone, Retries: retries, Uploaded: out.Uploaded, Result: out.Result})
			log.Info().Int("retries", retries).Bool("fallback", out.Result.Fallback).Msg("ancestor prediction complete")
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			rep.Report(Progress{Stage: domain.StageFailed, Percent: track.percent, Retries: retries, Err: ctxErr})
			return Outcome{Retries: retries}, ctxErr
		}
		if !domain.IsRetryable(err) || retries >= o.maxRetries {
			log.Error().Err(err).Int("retries", retries).Msg("prediction pipeline failed")
			rep.Report(Progress{Stage: domain.StageFailed, Percent: track.percent, Retries: retries, Err: err})
			return Outcome{Retries: retries}, err
		}

		retries++
		log.Warn().Err(err).Int("retry", retries).Int("max_retries", o.maxRetries).Msg("retrying prediction pipeline")
		rep.Report(Progress{Stage: domain.StageUploading, Percent: PercentStart, Retries: retries, Err: err})
		if err := o.sleep(ctx, o.retryDelay); err != nil {
			rep.Report(Progress{Stage: domain.StageFailed, Percent: track.percent, Retries: retries, Err: err})
			return Outcome{Retries: retries}, err
		}
	}
}

func (o *Orchestrator) attempt(ctx context.Context, owner domain.Owner, photos domain.PhotoSet, retries int, rep Reporter, n domain.Notifier, log infra.Logger) (Outcome, error) {
	rep.Report(Progress{Stage: domain.StageUploading, Percent: PercentUploading, Retries: retries})
	uploaded, err := o.uploader.UploadAll(ctx, photos, owner, n)
	if err != nil {
		return Outcome{}, fmt.Errorf("upload photos: %w", err)
	}
	log.Info().Str("uploads", upload.Describe(uploaded)).Int("retry", retries).Msg("photos uploaded")
	rep.Report(Progress{Stage: domain.StageUploading, Percent: PercentUploaded, Retries: retries, Uploaded: uploaded})

	rep.Report(Progress{Stage: domain.StageAnalyzing, Percent: PercentAnalyzing, Retries: retries, Uploaded: uploaded})
	rep.Report(Progress{Stage: domain.StageAnalyzing, Percent: PercentAnalyzed, Retries: retries, Uploaded: uploaded})

	rep.Report(Progress{Stage: domain.StagePredicting, Percent: PercentPredict, Retries: retries, Uploaded: uploaded})
	result, err := o.predictor.Predict(ctx, uploaded, owner, n)
	if err != nil {
		return Outcome{}, fmt.Errorf("predict ancestor: %w", err)
	}
	if result.URL == "" {
		return Outcome{}, domain.ErrInvalidResponse
	}

	rep.Report(Progress{Stage: domain.StageFinalizing, Percent: PercentFinalize, Retries: retries, Uploaded: uploaded, Result: result})
	return Outcome{Uploaded: uploaded, Result: result}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsNotAuthenticated reports whether err is the missing-owner failure.
func IsNotAuthenticated(err error) bool {
	return errors.Is(err, domain.ErrNotAuthenticated)
}
