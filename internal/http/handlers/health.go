package handlers

import (
	"context"
	"net/http"
	"time"
)

// Health reports ok when every registered dependency check passes.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	if len(a.Checks) == 0 {
		a.json(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(a.Checks))
	for name, check := range a.Checks {
		if err := check(ctx); err != nil {
			a.Logger.Warn().Err(err).Str("check", name).Msg("health check failed")
			results[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	a.json(w, status, map[string]any{"status": overall, "checks": results})
}
