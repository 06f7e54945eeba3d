package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"root", "/", "/"},
		{"static", "/healthz", "/healthz"},
		{"integer id", "/api/qc/folders/42/summary", "/api/qc/folders/{id}/summary"},
		{"uuid id", "/api/qc/folders/6f1c2a4e-8b1d-4c3e-9a7f-1e2d3c4b5a69/enter", "/api/qc/folders/{id}/enter"},
		{"nested ids", "/api/qc/folders/7/files/1001", "/api/qc/folders/{id}/files/{id}"},
		{"word segment", "/api/qc/projects/abc", "/api/qc/projects/abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePath(tt.path); got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestMetricsRecordsStatus(t *testing.T) {
	counter := httpRequestsTotal.WithLabelValues("POST", "/metrics-test/{id}", "409")
	before := testutil.ToFloat64(counter)

	handler := Metrics()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/metrics-test/17", nil)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", rec.Code)
	}
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("request counter: got %v, want %v", got, before+1)
	}
}

func TestStatusRecorderDefault(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	if rec.status != http.StatusOK {
		t.Errorf("default status: got %d, want 200", rec.status)
	}
	if rec.Unwrap() == nil {
		t.Error("Unwrap() returned nil")
	}
}
