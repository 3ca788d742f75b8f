package handlers

import (
	"net/http"
	"strconv"
	"time"
)

const maxHistoryLimit = 100

type predictionDTO struct {
	ID          string            `json:"id"`
	InputPhotos map[string]string `json:"input_photos"`
	ResultURL   string            `json:"result_url"`
	CreatedAt   time.Time         `json:"created_at"`
}

// PredictionsList returns the caller's prediction history, newest first.
func (a *App) PredictionsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	if a.Predictions == nil {
		a.json(w, http.StatusOK, map[string]any{"items": []predictionDTO{}})
		return
	}
	records, err := a.Predictions.ListByUser(r.Context(), userID, limit)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("list predictions failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load predictions")
		return
	}
	items := make([]predictionDTO, 0, len(records))
	for _, rec := range records {
		items = append(items, predictionDTO{
			ID:          rec.ID,
			InputPhotos: rec.InputPhotoURLs,
			ResultURL:   rec.ResultURL,
			CreatedAt:   rec.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
