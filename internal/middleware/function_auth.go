package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

const serviceCallerKey userKey = "service_caller"

// FunctionAuth admits callers of the inference function that present either
// a valid HS256 bearer token or the configured service key in the apikey
// header. Verified users are placed in the context so later layers can rate
// limit and authorize per user. Pre-flight requests pass through.
func FunctionAuth(secret, apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if token, ok := bearerToken(r); ok {
				if claims, err := VerifyJWT(secret, token); err == nil {
					ctx := ContextWithUserID(r.Context(), claims.Sub)
					if claims.Email != "" {
						ctx = context.WithValue(ctx, userEmailKey, claims.Email)
					}
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			if key := r.Header.Get("apikey"); apiKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), serviceCallerKey, true)))
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized","details":"a valid bearer token or apikey is required"}`))
		})
	}
}

// IsServiceCaller reports whether the request was admitted by service key.
func IsServiceCaller(ctx context.Context) bool {
	v, _ := ctx.Value(serviceCallerKey).(bool)
	return v
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
