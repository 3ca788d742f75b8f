package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{name: "minted when absent"},
		{name: "reused when present", incoming: "req-abc", reuse: true},
		{name: "replaced when oversized", incoming: strings.Repeat("x", maxRequestIDLength+1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.incoming != "" {
				req.Header.Set("X-Request-ID", tc.incoming)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if seen == "" || rr.Header().Get("X-Request-ID") != seen {
				t.Fatalf("request id mismatch: context %q header %q", seen, rr.Header().Get("X-Request-ID"))
			}
			if tc.reuse != (seen == tc.incoming) {
				t.Fatalf("reuse = %v, got id %q for incoming %q", tc.reuse, seen, tc.incoming)
			}
		})
	}
}
