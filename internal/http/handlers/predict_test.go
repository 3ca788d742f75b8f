package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/imagegen"
	"github.com/nawabsahab16/ancestral-ai/internal/infra"
	"github.com/nawabsahab16/ancestral-ai/internal/predict"
)

type stubGenerator struct {
	mu   sync.Mutex
	url  string
	err  error
	reqs []imagegen.GenerateRequest
}

func (g *stubGenerator) Generate(ctx context.Context, req imagegen.GenerateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reqs = append(g.reqs, req)
	return g.url, g.err
}

type stubRepo struct {
	mu      sync.Mutex
	saveErr error
	saved   []domain.PredictionRecord
	list    []domain.PredictionRecord
	limit   int
}

func (r *stubRepo) Save(ctx context.Context, record *domain.PredictionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, *record)
	return nil
}

func (r *stubRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.PredictionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limit = limit
	var out []domain.PredictionRecord
	for _, rec := range r.list {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

const completeBody = `{"photoUrls":{"grandfather":"https://cdn/g.jpg","father":"https://cdn/f.jpg","son":"https://cdn/s.jpg"},"userId":"user-1"}`

func TestPredictAncestorHandler(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		body        string
		user        string
		gen         *stubGenerator
		repo        *stubRepo
		wantStatus  int
		wantError   string
		wantDetails string
		wantResult  string
		wantSaved   int
	}{
		{
			name:       "preflight",
			method:     http.MethodOptions,
			gen:        &stubGenerator{},
			wantStatus: http.StatusOK,
		},
		{
			name:        "missing parameters",
			method:      http.MethodPost,
			body:        `{"userId":"user-1"}`,
			gen:         &stubGenerator{},
			wantStatus:  http.StatusBadRequest,
			wantError:   "Failed to process ancestor prediction",
			wantDetails: "Missing required parameters",
		},
		{
			name:        "missing user",
			method:      http.MethodPost,
			body:        `{"photoUrls":{"grandfather":"a","father":"b","son":"c"}}`,
			gen:         &stubGenerator{},
			wantStatus:  http.StatusBadRequest,
			wantDetails: "Missing required parameters",
		},
		{
			name:        "missing son photo",
			method:      http.MethodPost,
			body:        `{"photoUrls":{"grandfather":"a","father":"b"},"userId":"user-1"}`,
			gen:         &stubGenerator{},
			wantStatus:  http.StatusBadRequest,
			wantDetails: "Missing son photo",
		},
		{
			name:        "malformed json",
			method:      http.MethodPost,
			body:        `{"photoUrls":`,
			gen:         &stubGenerator{},
			wantStatus:  http.StatusBadRequest,
			wantDetails: "Invalid request body",
		},
		{
			name:        "generation failure",
			method:      http.MethodPost,
			body:        completeBody,
			gen:         &stubGenerator{err: errors.New("prediction failed: NSFW content detected")},
			repo:        &stubRepo{},
			wantStatus:  http.StatusInternalServerError,
			wantError:   "Failed to generate ancestor image",
			wantDetails: "prediction failed: NSFW content detected",
		},
		{
			name:       "success",
			method:     http.MethodPost,
			body:       completeBody,
			gen:        &stubGenerator{url: "https://replicate.delivery/out.png"},
			repo:       &stubRepo{},
			wantStatus: http.StatusOK,
			wantResult: "https://replicate.delivery/out.png",
			wantSaved:  1,
		},
		{
			name:        "caller predicting for another user",
			method:      http.MethodPost,
			body:        completeBody,
			user:        "user-2",
			gen:         &stubGenerator{url: "https://replicate.delivery/out.png"},
			repo:        &stubRepo{},
			wantStatus:  http.StatusForbidden,
			wantError:   "Failed to process ancestor prediction",
			wantDetails: "userId does not match the authenticated user",
		},
		{
			name:       "caller predicting for itself",
			method:     http.MethodPost,
			body:       completeBody,
			user:       "user-1",
			gen:        &stubGenerator{url: "https://replicate.delivery/out.png"},
			repo:       &stubRepo{},
			wantStatus: http.StatusOK,
			wantResult: "https://replicate.delivery/out.png",
			wantSaved:  1,
		},
		{
			name:       "audit failure is not surfaced",
			method:     http.MethodPost,
			body:       completeBody,
			gen:        &stubGenerator{url: "https://replicate.delivery/out.png"},
			repo:       &stubRepo{saveErr: errors.New("db down")},
			wantStatus: http.StatusOK,
			wantResult: "https://replicate.delivery/out.png",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := NewApp(&infra.Config{}, zerolog.Nop(), 2)
			app.Generator = tc.gen
			if tc.repo != nil {
				app.Predictions = tc.repo
			}

			req := httptest.NewRequest(tc.method, "/functions/v1/predict-ancestor", strings.NewReader(tc.body))
			if tc.user != "" {
				req = req.WithContext(contextWithUser(req.Context(), tc.user))
			}
			rr := httptest.NewRecorder()
			app.PredictAncestor(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tc.wantStatus, rr.Body.String())
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Fatalf("Access-Control-Allow-Origin = %q, want *", got)
			}
			if tc.method == http.MethodOptions {
				if rr.Body.String() != "ok" {
					t.Fatalf("preflight body = %q", rr.Body.String())
				}
				return
			}

			if tc.wantStatus != http.StatusOK {
				var payload predict.ErrorResponse
				if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
					t.Fatalf("decode error response: %v", err)
				}
				if tc.wantError != "" && payload.Error != tc.wantError {
					t.Fatalf("error = %q, want %q", payload.Error, tc.wantError)
				}
				if payload.Details != tc.wantDetails {
					t.Fatalf("details = %q, want %q", payload.Details, tc.wantDetails)
				}
				if tc.wantStatus < http.StatusInternalServerError && len(tc.gen.reqs) != 0 {
					t.Fatal("generator must not run for rejected requests")
				}
				return
			}

			var payload predict.Response
			if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if payload.ResultURL != tc.wantResult || payload.Message != "Ancestor predicted successfully" {
				t.Fatalf("unexpected response %+v", payload)
			}
			if got := tc.gen.reqs[0]; got.Grandfather != "https://cdn/g.jpg" || got.Son != "https://cdn/s.jpg" {
				t.Fatalf("unexpected generate request %+v", got)
			}
			if len(tc.repo.saved) != tc.wantSaved {
				t.Fatalf("saved %d records, want %d", len(tc.repo.saved), tc.wantSaved)
			}
			if tc.wantSaved > 0 {
				rec := tc.repo.saved[0]
				if rec.UserID != "user-1" || rec.ResultURL != tc.wantResult || rec.InputPhotoURLs["father"] != "https://cdn/f.jpg" {
					t.Fatalf("unexpected record %+v", rec)
				}
			}
		})
	}
}

func TestPredictionsList(t *testing.T) {
	repo := &stubRepo{list: []domain.PredictionRecord{
		{ID: "p1", UserID: "user-1", ResultURL: "https://r/1.png", InputPhotoURLs: map[string]string{"son": "s"}},
		{ID: "p2", UserID: "user-2", ResultURL: "https://r/2.png"},
	}}
	app := NewApp(&infra.Config{}, zerolog.Nop(), 0)
	app.Predictions = repo

	req := httptest.NewRequest(http.MethodGet, "/v1/predictions?limit=500", nil)
	req = req.WithContext(contextWithUser(req.Context(), "user-1"))
	rr := httptest.NewRecorder()
	app.PredictionsList(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var payload struct {
		Items []predictionDTO `json:"items"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].ID != "p1" {
		t.Fatalf("unexpected items %+v", payload.Items)
	}
	if repo.limit != maxHistoryLimit {
		t.Fatalf("limit = %d, want capped at %d", repo.limit, maxHistoryLimit)
	}

	bad := httptest.NewRequest(http.MethodGet, "/v1/predictions?limit=-1", nil)
	bad = bad.WithContext(contextWithUser(bad.Context(), "user-1"))
	rr = httptest.NewRecorder()
	app.PredictionsList(rr, bad)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHealth(t *testing.T) {
	app := NewApp(&infra.Config{}, zerolog.Nop(), 0)
	app.Checks = map[string]HealthChecker{
		"database": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	}
	rr := httptest.NewRecorder()
	app.Health(rr, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	var payload struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "degraded" || payload.Checks["database"] != "ok" || payload.Checks["redis"] != "down" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}
