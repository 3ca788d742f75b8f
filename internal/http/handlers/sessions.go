package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/pipeline"
	"github.com/nawabsahab16/ancestral-ai/internal/present"
	"github.com/nawabsahab16/ancestral-ai/internal/upload"
)

const maxSessionBodyBytes = 3*upload.MaxPhotoBytes + 1<<20

// SessionsCreate opens a session from a multipart form with grandfather,
// father and son files. A complete set starts the pipeline right away.
func (a *App) SessionsCreate(w http.ResponseWriter, r *http.Request) {
	owner := a.currentOwner(r)
	if !owner.Authenticated() {
		a.error(w, http.StatusUnauthorized, "unauthorized", domain.ErrNotAuthenticated.Error())
		return
	}
	if !a.parseMultipart(w, r) {
		return
	}

	set := make(domain.PhotoSet, len(domain.Generations))
	for _, g := range domain.Generations {
		p, ok, err := readPhoto(r, string(g))
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		if !ok {
			continue
		}
		if err := upload.Validate(p, g); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		set[g] = p
	}

	s := a.Sessions.Create(owner)
	if err := s.Submit(set); err != nil {
		status, code := statusFor(err)
		a.error(w, status, code, err.Error())
		return
	}
	a.Logger.Info().Str("user_id", owner.UserID).Str("session_id", s.ID()).Int("photos", len(set)).Msg("session created")

	status := http.StatusCreated
	if s.Start(context.WithoutCancel(r.Context())) {
		status = http.StatusAccepted
	}
	a.json(w, status, s.Snapshot())
}

// SessionGet returns the current snapshot.
func (a *App) SessionGet(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

// SessionPutPhoto stages one generation's photo from the multipart field
// "photo". The pipeline starts once all three are present.
func (a *App) SessionPutPhoto(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	g, err := domain.ParseGeneration(chi.URLParam(r, "generation"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if !a.parseMultipart(w, r) {
		return
	}
	p, found, err := readPhoto(r, "photo")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if !found {
		a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("Missing %s photo", g))
		return
	}
	if err := upload.Validate(p, g); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := s.SetPhoto(g, p); err != nil {
		status, code := statusFor(err)
		a.error(w, status, code, err.Error())
		return
	}
	status := http.StatusOK
	if s.Start(context.WithoutCancel(r.Context())) {
		status = http.StatusAccepted
	}
	a.json(w, status, s.Snapshot())
}

// SessionDeletePhoto unstages one generation.
func (a *App) SessionDeletePhoto(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	g, err := domain.ParseGeneration(chi.URLParam(r, "generation"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := s.RemovePhoto(g); err != nil {
		status, code := statusFor(err)
		a.error(w, status, code, err.Error())
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

// SessionReset returns the session to Idle so new photos can be tried.
func (a *App) SessionReset(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	s.Reset()
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) SessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Delete(a.currentOwner(r), chi.URLParam(r, "id")); err != nil {
		status, code := statusFor(err)
		a.error(w, status, code, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SessionResult renders the result view of a succeeded session.
func (a *App) SessionResult(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	view, err := present.NewView(s.Snapshot())
	if err != nil {
		a.error(w, http.StatusConflict, "not_ready", err.Error())
		return
	}
	a.json(w, http.StatusOK, view)
}

// SessionDownload streams the result as an attachment.
func (a *App) SessionDownload(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	result, ready := s.Result()
	if !ready {
		a.error(w, http.StatusConflict, "not_ready", present.ErrNoResult.Error())
		return
	}
	var buf bytes.Buffer
	contentType, err := present.Download(r.Context(), a.Fetcher, result.URL, &buf)
	if err != nil {
		a.Logger.Error().Err(err).Str("session_id", s.ID()).Msg("download result failed")
		a.error(w, http.StatusBadGateway, "upstream", "failed to fetch result")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", present.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// SessionShare returns the share payload; the client hands it to its own
// share sheet or clipboard.
func (a *App) SessionShare(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	result, ready := s.Result()
	if !ready {
		a.error(w, http.StatusConflict, "not_ready", present.ErrNoResult.Error())
		return
	}
	a.json(w, http.StatusOK, present.NewPayload(result.URL))
}

func (a *App) loadSession(w http.ResponseWriter, r *http.Request) (*pipeline.Session, bool) {
	owner := a.currentOwner(r)
	if !owner.Authenticated() {
		a.error(w, http.StatusUnauthorized, "unauthorized", domain.ErrNotAuthenticated.Error())
		return nil, false
	}
	s, err := a.Sessions.Get(owner, chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "session not found")
		return nil, false
	}
	return s, true
}

func (a *App) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxSessionBodyBytes)
	if err := r.ParseMultipartForm(maxSessionBodyBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", "photos exceed the 5MB size limit")
			return false
		}
		a.error(w, http.StatusBadRequest, "bad_request", "expected multipart form data")
		return false
	}
	return true
}

// readPhoto reads one file field. Reads stop one byte past the photo limit
// so oversized files still fail validation.
func readPhoto(r *http.Request, field string) (domain.Photo, bool, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return domain.Photo{}, false, nil
	}
	if err != nil {
		return domain.Photo{}, false, fmt.Errorf("read %s: %w", field, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, upload.MaxPhotoBytes+1))
	if err != nil {
		return domain.Photo{}, false, fmt.Errorf("read %s: %w", field, err)
	}
	return domain.Photo{Filename: header.Filename, ContentType: contentTypeOf(header), Data: data}, true, nil
}

func contentTypeOf(h *multipart.FileHeader) string {
	if h == nil {
		return ""
	}
	return h.Header.Get("Content-Type")
}
