package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignAndVerifyToken(t *testing.T) {
	token, err := SignToken("s3cret", "owner-1", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("SignToken error: %v", err)
	}
	claims, err := VerifyToken("s3cret", token)
	if err != nil {
		t.Fatalf("VerifyToken error: %v", err)
	}
	if claims.Subject != "owner-1" || claims.Role != RoleAdmin {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := VerifyToken("other", token); err == nil {
		t.Fatalf("VerifyToken with wrong secret succeeded")
	}

	if _, err := SignToken("s3cret", " ", "", time.Hour); err == nil {
		t.Fatalf("SignToken without owner succeeded")
	}
}

func TestAuthMiddleware(t *testing.T) {
	token, err := SignToken("s3cret", "owner-9", "", time.Hour)
	if err != nil {
		t.Fatalf("SignToken error: %v", err)
	}
	var seen string
	handler := Auth("s3cret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = OwnerIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusUnauthorized {
				var body struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Error.Code != "unauthorized" {
					t.Fatalf("body code = %q, err %v", body.Error.Code, err)
				}
			}
		})
	}
	if seen != "owner-9" {
		t.Fatalf("owner = %q, want %q", seen, "owner-9")
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(ContextWithOwner(req.Context(), "u", ""))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(ContextWithOwner(req.Context(), "u", RoleAdmin))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
