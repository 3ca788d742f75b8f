package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/infra"
)

// ErrBusy is returned when photos are submitted while a run is in progress.
var ErrBusy = errors.New("a prediction is already in progress")

// PreviewBuilder issues and revokes display URLs for a session's photos.
type PreviewBuilder interface {
	Build(key string, set domain.PhotoSet) domain.PreviewSet
	Release(key string)
}

// Snapshot is a copy of session state for rendering.
type Snapshot struct {
	ID                string            `json:"id"`
	Stage             domain.Stage      `json:"stage"`
	StageLabel        string            `json:"stageLabel"`
	Progress          int               `json:"progress"`
	Retries           int               `json:"retries"`
	MaxRetries        int               `json:"maxRetries"`
	Running           bool              `json:"running"`
	UsingFallbackMode bool              `json:"usingFallbackMode"`
	Previews          map[string]string `json:"previews"`
	ResultURL         string            `json:"resultUrl,omitempty"`
	Error             string            `json:"error,omitempty"`
	Notices           []domain.Notice   `json:"notices"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// Session owns one user's upload-predict-display flow. Runs superseded by
// Reset keep executing but no longer touch visible state.
type Session struct {
	id       string
	owner    domain.Owner
	orch     *Orchestrator
	previews PreviewBuilder
	logger   infra.Logger

	mu        sync.Mutex
	epoch     uint64
	running   bool
	done      chan struct{}
	photos    domain.PhotoSet
	preview   domain.PreviewSet
	uploaded  domain.UploadedSet
	result    domain.PredictionResult
	stage     domain.Stage
	progress  int
	retries   int
	err       error
	notices   []domain.Notice
	updatedAt time.Time
}

func NewSession(id string, owner domain.Owner, orch *Orchestrator, previews PreviewBuilder, logger infra.Logger) *Session {
	return &Session{
		id:        id,
		owner:     owner,
		orch:      orch,
		previews:  previews,
		logger:    logger.With().Str("session_id", id).Logger(),
		stage:     domain.StageIdle,
		updatedAt: time.Now().UTC(),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Owner() domain.Owner { return s.owner }

// SetPhoto stages a single photo and rebuilds previews.
func (s *Session) SetPhoto(g domain.Generation, p domain.Photo) error {
	if !g.Valid() {
		return fmt.Errorf("%w: unknown generation %q", domain.ErrValidation, g)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.stage != domain.StageIdle {
		return ErrBusy
	}
	if s.photos == nil {
		s.photos = make(domain.PhotoSet, len(domain.Generations))
	}
	p.Data = append([]byte(nil), p.Data...)
	s.photos[g] = p
	s.preview = s.previews.Build(s.id, s.photos)

	if s.photos.Complete() {
		s.noticeLocked(domain.Notice{Level: domain.NoticeSuccess, Title: "All photos uploaded successfully!"})
	} else {
		s.noticeLocked(domain.Notice{Level: domain.NoticeSuccess, Title: g.Title() + "'s photo uploaded successfully!"})
	}
	s.touchLocked()
	return nil
}

// RemovePhoto unstages a photo.
func (s *Session) RemovePhoto(g domain.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.stage != domain.StageIdle {
		return ErrBusy
	}
	if _, ok := s.photos[g]; !ok {
		return nil
	}
	delete(s.photos, g)
	s.preview = s.previews.Build(s.id, s.photos)
	s.noticeLocked(domain.Notice{Level: domain.NoticeInfo, Title: g.Title() + "'s photo removed"})
	s.touchLocked()
	return nil
}

// Submit stages a complete photo set in one call.
func (s *Session) Submit(set domain.PhotoSet) error {
	for _, g := range domain.Generations {
		p, ok := set[g]
		if !ok {
			continue
		}
		if err := s.SetPhoto(g, p); err != nil {
			return err
		}
	}
	return nil
}

// Start launches the pipeline when every preview is ready, no retry has been
// consumed and nothing is in flight. It reports whether a run was started.
func (s *Session) Start(ctx context.Context) bool {
	s.mu.Lock()
	if s.running || s.retries != 0 || s.stage != domain.StageIdle || !s.preview.Ready() {
		s.mu.Unlock()
		return false
	}
	s.running = true
	epoch := s.epoch
	photos := s.photos.Clone()
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		rep := ReporterFunc(func(p Progress) { s.apply(epoch, p) })
		n := domain.NotifierFunc(func(x domain.Notice) { s.notice(epoch, x) })
		_, err := s.orch.Run(ctx, s.owner, photos, rep, n)
		s.finish(epoch, err)
	}()
	return true
}

// Wait blocks until the current run, if any, returns.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset returns to Idle, discarding photos, previews, uploads and result.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.previews.Release(s.id)
	s.running = false
	s.done = nil
	s.photos = nil
	s.preview = nil
	s.uploaded = nil
	s.result = domain.PredictionResult{}
	s.stage = domain.StageIdle
	s.progress = PercentStart
	s.retries = 0
	s.err = nil
	s.notices = nil
	s.touchLocked()
	s.logger.Debug().Uint64("epoch", s.epoch).Msg("session reset")
}

// Close releases previews; the session must not be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.previews.Release(s.id)
}

// Result returns the prediction once the session has succeeded.
func (s *Session) Result() (domain.PredictionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.stage == domain.StageSucceeded && s.result.URL != ""
}

// Snapshot copies the visible state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:                s.id,
		Stage:             s.stage,
		StageLabel:        s.stage.Label(),
		Progress:          s.progress,
		Retries:           s.retries,
		MaxRetries:        s.orch.MaxRetries(),
		Running:           s.running,
		UsingFallbackMode: s.uploaded.UsingFallbackMode(),
		Previews:          make(map[string]string, len(s.preview)),
		ResultURL:         s.result.URL,
		Notices:           append([]domain.Notice(nil), s.notices...),
		UpdatedAt:         s.updatedAt,
	}
	for g, url := range s.preview {
		snap.Previews[string(g)] = url
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}

func (s *Session) apply(epoch uint64, p Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return
	}
	s.stage = p.Stage
	s.progress = p.Percent
	s.retries = p.Retries
	if p.Uploaded != nil {
		s.uploaded = p.Uploaded
	}
	if p.Result.URL != "" {
		s.result = p.Result
	}
	if p.Stage == domain.StageFailed {
		s.err = p.Err
	}
	s.touchLocked()
}

func (s *Session) notice(epoch uint64, n domain.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return
	}
	s.noticeLocked(n)
}

func (s *Session) finish(epoch uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return
	}
	s.running = false
	if err != nil {
		s.noticeLocked(domain.Notice{Level: domain.NoticeError, Title: "Prediction failed", Description: err.Error()})
		return
	}
	s.noticeLocked(domain.Notice{
		Level:       domain.NoticeSuccess,
		Title:       "Ancestor prediction complete!",
		Description: "We've successfully generated a prediction of your ancestor using AI.",
	})
}

func (s *Session) noticeLocked(n domain.Notice) {
	s.notices = append(s.notices, n)
}

func (s *Session) touchLocked() {
	s.updatedAt = time.Now().UTC()
}
