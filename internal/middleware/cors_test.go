package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantOrigin  string
		wantMethods bool
	}{
		{
			name:        "listed origin preflight",
			allowed:     []string{"https://app.example.com/"},
			method:      http.MethodOptions,
			origin:      "https://app.example.com",
			preflight:   true,
			wantStatus:  http.StatusNoContent,
			wantOrigin:  "https://app.example.com",
			wantMethods: true,
		},
		{
			name:       "unlisted origin preflight",
			allowed:    []string{"https://app.example.com"},
			method:     http.MethodOptions,
			origin:     "https://evil.example.com",
			preflight:  true,
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "simple request passes through",
			allowed:    []string{"https://app.example.com"},
			method:     http.MethodGet,
			origin:     "https://app.example.com",
			wantStatus: http.StatusTeapot,
			wantOrigin: "https://app.example.com",
		},
		{
			name:       "wildcard",
			allowed:    []string{"*"},
			method:     http.MethodGet,
			origin:     "https://any.example.com",
			wantStatus: http.StatusTeapot,
			wantOrigin: "*",
		},
		{
			name:       "plain options reaches handler",
			allowed:    []string{"*"},
			method:     http.MethodOptions,
			origin:     "https://any.example.com",
			wantStatus: http.StatusTeapot,
			wantOrigin: "*",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := CORS(tc.allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}))
			req := httptest.NewRequest(tc.method, "/v1/jobs/1", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("allow origin = %q, want %q", got, tc.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Methods") != ""; got != tc.wantMethods {
				t.Fatalf("allow methods set = %v, want %v", got, tc.wantMethods)
			}
			if tc.wantOrigin == "*" && rec.Header().Get("Access-Control-Allow-Credentials") != "" {
				t.Fatalf("wildcard must not allow credentials")
			}
		})
	}
}
