package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/imagegen"
	"github.com/nawabsahab16/ancestral-ai/internal/imaging"
	"github.com/nawabsahab16/ancestral-ai/internal/predict"
)

const maxPredictBodyBytes = 1 << 20

const (
	msgProcessFailed  = "Failed to process ancestor prediction"
	msgGenerateFailed = "Failed to generate ancestor image"
	msgMissingParams  = "Missing required parameters"
)

// The inference function is called cross-origin from any frontend.
func setFunctionCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
}

// PredictAncestor generates an ancestor portrait from three photo URLs and
// records the result. Callers are verified by middleware.FunctionAuth; a
// bearer caller may only predict for itself. Audit failures are logged and
// never fail the request.
func (a *App) PredictAncestor(w http.ResponseWriter, r *http.Request) {
	setFunctionCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}

	var req predict.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPredictBodyBytes)).Decode(&req); err != nil {
		a.json(w, http.StatusBadRequest, predict.ErrorResponse{Error: msgProcessFailed, Details: "Invalid request body"})
		return
	}
	if details := a.checkPredictRequest(req); details != "" {
		a.json(w, http.StatusBadRequest, predict.ErrorResponse{Error: msgProcessFailed, Details: details})
		return
	}
	if uid := a.currentUserID(r); uid != "" && uid != req.UserID {
		a.json(w, http.StatusForbidden, predict.ErrorResponse{Error: msgProcessFailed, Details: "userId does not match the authenticated user"})
		return
	}
	urls := *req.PhotoURLs

	log := a.Logger.With().Str("user_id", req.UserID).Logger()
	log.Info().Msg("processing prediction request")
	for _, g := range domain.Generations {
		if imaging.IsDataURL(urls.Get(g)) {
			log.Warn().Str("generation", string(g)).Msg("photo is a data URL, not a storage URL")
		}
	}

	if a.Generator == nil {
		a.json(w, http.StatusInternalServerError, predict.ErrorResponse{Error: msgGenerateFailed, Details: "image generation is not configured"})
		return
	}
	if a.generateLimiter != nil {
		select {
		case a.generateLimiter <- struct{}{}:
			defer func() { <-a.generateLimiter }()
		case <-r.Context().Done():
			return
		}
	}

	resultURL, err := a.Generator.Generate(r.Context(), imagegen.GenerateRequest{
		Grandfather: urls.Grandfather,
		Father:      urls.Father,
		Son:         urls.Son,
	})
	if err != nil {
		log.Error().Err(err).Msg("ancestor image generation failed")
		a.json(w, http.StatusInternalServerError, predict.ErrorResponse{Error: msgGenerateFailed, Details: err.Error()})
		return
	}
	log.Info().Msg("ancestor image generated")

	if a.Predictions != nil {
		record := &domain.PredictionRecord{UserID: req.UserID, InputPhotoURLs: urls.Map(), ResultURL: resultURL}
		if err := a.Predictions.Save(r.Context(), record); err != nil {
			log.Error().Err(err).Msg("failed to save prediction, continuing")
		}
	}

	a.json(w, http.StatusOK, predict.Response{ResultURL: resultURL, Message: "Ancestor predicted successfully"})
}

// checkPredictRequest returns the client-facing reason a request is invalid,
// or "" when it is complete.
func (a *App) checkPredictRequest(req predict.Request) string {
	err := a.requestValidator().Struct(req)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}
	missing := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "photoUrls", "userId":
			return msgMissingParams
		default:
			missing[strings.ToLower(fe.Field())] = true
		}
	}
	for _, g := range domain.Generations {
		if missing[string(g)] {
			return "Missing " + string(g) + " photo"
		}
	}
	return "Invalid request"
}
