package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFunctionAuth(t *testing.T) {
	const secret = "fn-secret"
	valid, err := IssueToken(secret, "user-1", "u@example.com", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	foreign, err := IssueToken("other-secret", "user-1", "", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	tests := []struct {
		name        string
		method      string
		auth        string
		apiKey      string
		wantStatus  int
		wantUser    string
		wantService bool
	}{
		{name: "preflight", method: http.MethodOptions, wantStatus: http.StatusNoContent},
		{name: "anonymous", method: http.MethodPost, wantStatus: http.StatusUnauthorized},
		{name: "valid bearer", method: http.MethodPost, auth: "Bearer " + valid, wantStatus: http.StatusNoContent, wantUser: "user-1"},
		{name: "foreign bearer", method: http.MethodPost, auth: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
		{name: "service key", method: http.MethodPost, apiKey: "svc-key", wantStatus: http.StatusNoContent, wantService: true},
		{name: "wrong service key", method: http.MethodPost, apiKey: "guess", wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotUser string
			var gotService bool
			h := FunctionAuth(secret, "svc-key")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = UserIDFromContext(r.Context())
				gotService = IsServiceCaller(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))
			req := httptest.NewRequest(tc.method, "/functions/v1/predict-ancestor", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			if tc.apiKey != "" {
				req.Header.Set("apikey", tc.apiKey)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			if gotUser != tc.wantUser || gotService != tc.wantService {
				t.Fatalf("user = %q service = %v, want %q %v", gotUser, gotService, tc.wantUser, tc.wantService)
			}
			if rr.Code == http.StatusUnauthorized && rr.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Fatal("rejections must carry the function CORS header")
			}
		})
	}
}

func TestFunctionAuthWithoutServiceKeyRejectsEmptyAPIKey(t *testing.T) {
	h := FunctionAuth("s", "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/predict-ancestor", nil)
	req.Header.Set("apikey", "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}
