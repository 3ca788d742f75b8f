package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nawabsahab16/ancestral-ai/internal/upload"
)

// PreviewOpen serves a staged photo by its preview token. Revoked tokens 404.
func (a *App) PreviewOpen(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" || a.Previews == nil {
		a.error(w, http.StatusNotFound, "not_found", "preview not found")
		return
	}
	photo, err := a.Previews.Open(token)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "preview not found")
		return
	}
	w.Header().Set("Content-Type", upload.ContentType(photo))
	w.Header().Set("Content-Length", strconv.Itoa(len(photo.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(photo.Data)
}
