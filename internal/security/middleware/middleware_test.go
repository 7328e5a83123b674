package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/repository/memory"
	"github.com/aryan0dhankhar/hirebridge/internal/security/audit"
	"github.com/aryan0dhankhar/hirebridge/internal/security/auth"
	"github.com/aryan0dhankhar/hirebridge/internal/security/ratelimit"
)

func newProvider(t *testing.T) (*auth.Provider, *auth.TokenManager) {
	t.Helper()
	tm := auth.NewTokenManager("middleware-secret", "hirebridge")
	return auth.NewProvider(tm, memory.New(), nil), tm
}

func mint(t *testing.T, tm *auth.TokenManager, claims domain.Claims) string {
	t.Helper()
	token, err := tm.GenerateToken(claims, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "no identity", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(id.PrincipalID + "/" + string(id.EffectiveRole())))
	})
}

func decodeCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body["code"]
}

func TestAuthenticate(t *testing.T) {
	provider, tm := newProvider(t)
	handler := Authenticate(provider, nil)(echoIdentity())

	valid := mint(t, tm, domain.Claims{Subject: "hr-1", Role: "hr_partner", CompanyID: "c-1"})
	dualAdmin := mint(t, tm, domain.Claims{Subject: "a-1", Role: "admin", HasDualRole: true})

	cases := []struct {
		name     string
		header   string
		query    string
		upgrade  bool
		status   int
		wantBody string
		wantCode string
	}{
		{name: "missing", status: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "bad scheme", header: "Basic abc", status: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "garbage token", header: "Bearer nope", status: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "valid", header: "Bearer " + valid, status: http.StatusOK, wantBody: "hr-1/hr_partner"},
		{name: "malformed claims", header: "Bearer " + dualAdmin, status: http.StatusUnauthorized, wantCode: "invalid_identity"},
		{name: "query token without upgrade", query: "?token=" + valid, status: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "query token on websocket upgrade", query: "?token=" + valid, upgrade: true, status: http.StatusOK, wantBody: "hr-1/hr_partner"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/identity"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.upgrade {
				req.Header.Set("Upgrade", "websocket")
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("status=%d want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
			if tc.wantBody != "" && rec.Body.String() != tc.wantBody {
				t.Fatalf("body=%q want %q", rec.Body.String(), tc.wantBody)
			}
			if tc.wantCode != "" && decodeCode(t, rec) != tc.wantCode {
				t.Fatalf("code=%q want %q", decodeCode(t, rec), tc.wantCode)
			}
		})
	}
}

func TestRateLimitIsPerPrincipal(t *testing.T) {
	limiter := ratelimit.NewLimiter(2, time.Minute)
	defer limiter.Stop()
	handler := RateLimit(limiter, "memory", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(principal string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/introductions", nil)
		req = req.WithContext(WithIdentity(req.Context(), domain.Identity{
			PrincipalID: principal,
			Roles:       domain.NewSingleRole(domain.RoleProfessional),
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := call("p-1"); code != http.StatusNoContent {
			t.Fatalf("call %d: status=%d", i, code)
		}
	}
	if code := call("p-1"); code != http.StatusTooManyRequests {
		t.Fatalf("status=%d want 429", code)
	}
	if code := call("p-2"); code != http.StatusNoContent {
		t.Fatalf("another principal should not share the quota, status=%d", code)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = audit.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("expected incoming request ID to be reused, got ctx=%q header=%q", seen, rec.Header().Get(RequestIDHeader))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if seen == "" || seen == "abc-123" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected a fresh request ID, got %q", seen)
	}
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/introductions", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("Allow-Origin=%q", got)
	}
}

func TestValidateJSONContentType(t *testing.T) {
	handler := ValidateJSONContentType(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/introductions", strings.NewReader("professionalId=p-1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d want 415", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/introductions/x/accept", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("bodiless POST status=%d want 201", rec.Code)
	}
}
