package middleware_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/osprey/pkg/middleware"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
})

func TestApplyOrder(t *testing.T) {
	var order []string
	trace := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	mw := middleware.New()
	mw.Use(trace("first"))
	mw.Use(trace("second"))
	mw.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if strings.Join(order, ",") != "first,second,handler" {
		t.Errorf("order = %v, want [first second handler]", order)
	}
}

func corsConfig(t *testing.T, cfg middleware.CORSConfig) *middleware.CORSConfig {
	t.Helper()
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return &cfg
}

func TestCORS(t *testing.T) {
	listed := middleware.CORSConfig{Enabled: true, Origins: []string{"http://qc.local"}}
	wildcard := middleware.CORSConfig{Enabled: true, Origins: []string{middleware.AnyOrigin}}
	creds := middleware.CORSConfig{Enabled: true, Origins: []string{"http://qc.local"}, AllowCredentials: true}

	tests := []struct {
		name        string
		cfg         middleware.CORSConfig
		method      string
		origin      string
		status      int
		allowOrigin string
		preflight   bool
		credentials bool
	}{
		{"disabled", middleware.CORSConfig{Origins: []string{"http://qc.local"}}, "GET", "http://qc.local", http.StatusOK, "", false, false},
		{"enabled without origins", middleware.CORSConfig{Enabled: true}, "GET", "http://qc.local", http.StatusOK, "", false, false},
		{"listed origin", listed, "GET", "http://qc.local", http.StatusOK, "http://qc.local", false, false},
		{"unlisted origin", listed, "GET", "http://evil.local", http.StatusOK, "", false, false},
		{"preflight listed", listed, "OPTIONS", "http://qc.local", http.StatusNoContent, "http://qc.local", true, false},
		{"preflight unlisted", listed, "OPTIONS", "http://evil.local", http.StatusForbidden, "", false, false},
		{"wildcard", wildcard, "GET", "http://anywhere.local", http.StatusOK, "*", false, false},
		{"wildcard without origin header", wildcard, "GET", "", http.StatusOK, "", false, false},
		{"credentials", creds, "GET", "http://qc.local", http.StatusOK, "http://qc.local", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.CORS(corsConfig(t, tt.cfg))(ok)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/qc/projects/1", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			handler.ServeHTTP(rec, req)

			h := rec.Header()
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := h.Get("Access-Control-Allow-Origin"); got != tt.allowOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.allowOrigin)
			}
			if got := h.Get("Access-Control-Allow-Methods") != ""; got != tt.preflight {
				t.Errorf("Allow-Methods present = %v, want %v", got, tt.preflight)
			}
			if got := h.Get("Access-Control-Allow-Credentials") == "true"; got != tt.credentials {
				t.Errorf("Allow-Credentials = %v, want %v", got, tt.credentials)
			}
			if tt.allowOrigin != "" && h.Get("Access-Control-Expose-Headers") != middleware.RequestIDHeader {
				t.Errorf("Expose-Headers = %q, want %s", h.Get("Access-Control-Expose-Headers"), middleware.RequestIDHeader)
			}
		})
	}
}

func TestCORSConfigFinalize(t *testing.T) {
	t.Setenv("TEST_CORS_ENABLED", "true")
	t.Setenv("TEST_CORS_ORIGINS", "http://a.local, ,http://b.local")
	t.Setenv("TEST_CORS_MAX_AGE", "600")

	cfg := middleware.CORSConfig{}
	err := cfg.Finalize(&middleware.CORSEnv{
		Enabled: "TEST_CORS_ENABLED",
		Origins: "TEST_CORS_ORIGINS",
		MaxAge:  "TEST_CORS_MAX_AGE",
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if !cfg.Enabled {
		t.Error("Enabled = false, want true from env")
	}
	if strings.Join(cfg.Origins, "|") != "http://a.local|http://b.local" {
		t.Errorf("Origins = %v", cfg.Origins)
	}
	if cfg.MaxAge != 600 {
		t.Errorf("MaxAge = %d, want 600", cfg.MaxAge)
	}
	if strings.Join(cfg.AllowedMethods, ",") != "GET,POST,OPTIONS" {
		t.Errorf("AllowedMethods = %v", cfg.AllowedMethods)
	}
	if strings.Join(cfg.AllowedHeaders, ",") != "Content-Type,X-Request-ID" {
		t.Errorf("AllowedHeaders = %v", cfg.AllowedHeaders)
	}
}

func TestCORSConfigRejectsWildcardCredentials(t *testing.T) {
	cfg := middleware.CORSConfig{Origins: []string{"*"}, AllowCredentials: true}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error for credentials with wildcard origin")
	}
}

func TestCORSConfigMerge(t *testing.T) {
	base := middleware.CORSConfig{
		Origins:        []string{"http://base.local"},
		AllowedMethods: []string{"GET"},
		MaxAge:         3600,
	}
	base.Merge(&middleware.CORSConfig{Enabled: true, Origins: []string{"http://overlay.local"}})

	if !base.Enabled {
		t.Error("Enabled not taken from overlay")
	}
	if base.Origins[0] != "http://overlay.local" {
		t.Errorf("Origins = %v", base.Origins)
	}
	if len(base.AllowedMethods) != 1 || base.MaxAge != 3600 {
		t.Errorf("unset overlay fields replaced base: %+v", base)
	}
}

func TestRequestID(t *testing.T) {
	inbound := uuid.NewString()

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"generated", "", false},
		{"kept", inbound, true},
		{"replaced when not a uuid", "req-42", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = middleware.RequestIDFrom(r.Context())
			}))

			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set(middleware.RequestIDHeader, tt.header)
			}
			handler.ServeHTTP(rec, req)

			echoed := rec.Header().Get(middleware.RequestIDHeader)
			if echoed != seen {
				t.Errorf("echoed %q, handler saw %q", echoed, seen)
			}
			if _, err := uuid.Parse(seen); err != nil {
				t.Errorf("request id %q is not a uuid", seen)
			}
			if (seen == tt.header) != tt.keep {
				t.Errorf("request id = %q, inbound %q, keep = %v", seen, tt.header, tt.keep)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{"success", http.StatusOK, "level=INFO"},
		{"client error", http.StatusConflict, "level=WARN"},
		{"server error", http.StatusBadGateway, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			handler := middleware.RequestID()(middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("12345"))
			})))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/qc/folders/7/finalize?x=1", nil))

			out := buf.String()
			for _, want := range []string{
				tt.level,
				"method=POST",
				"uri=\"/qc/folders/7/finalize?x=1\"",
				"bytes=5",
				"request_id=",
			} {
				if !strings.Contains(out, want) {
					t.Errorf("log output %q missing %q", out, want)
				}
			}
		})
	}
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := middleware.Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("sample table missing")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/qc/folders/7/next", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error":"internal server error"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if !strings.Contains(buf.String(), "sample table missing") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestRecoverAfterPartialWrite(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := middleware.Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late failure")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want the already written 202", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("error body appended after headers were sent: %s", rec.Body.String())
	}
}

func TestRecoverReraisesAbort(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := middleware.Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if recover() != http.ErrAbortHandler {
			t.Error("ErrAbortHandler was swallowed")
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
}

func TestMaxBytes(t *testing.T) {
	tests := []struct {
		name   string
		limit  int64
		body   string
		status int
	}{
		{"within limit", 16, `{"reviewer":"a"}`, http.StatusOK},
		{"over limit", 8, `{"reviewer":"alice"}`, http.StatusRequestEntityTooLarge},
		{"disabled", 0, strings.Repeat("x", 1024), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.MaxBytes(tt.limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if _, err := io.ReadAll(r.Body); err != nil {
					w.WriteHeader(http.StatusRequestEntityTooLarge)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest("POST", "/", strings.NewReader(tt.body)))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}
