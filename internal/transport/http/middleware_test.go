package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_LogsStatusAndPath(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()

	RequestLogger(zap.New(core))(handler).ServeHTTP(rec, req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != "GET" {
		t.Fatalf("expected method in log, got %v", fields)
	}
	if fields["path"] != "/orders" {
		t.Fatalf("expected path in log, got %v", fields)
	}
	if fields["status"] != int64(201) {
		t.Fatalf("expected status in log, got %v", fields)
	}
}

func TestRequestLogger_DefaultsTo200(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	RequestLogger(zap.New(core))(handler).ServeHTTP(rec, req)

	if got := logs.All()[0].ContextMap()["status"]; got != int64(200) {
		t.Fatalf("expected default status 200 in log, got %v", got)
	}
}

func TestAdminOnly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		configured     string
		sent           string
		expectedStatus int
	}{
		{name: "valid token", configured: "secret-token", sent: "secret-token", expectedStatus: http.StatusTeapot},
		{name: "wrong token", configured: "secret-token", sent: "nope", expectedStatus: http.StatusForbidden},
		{name: "missing token", configured: "secret-token", expectedStatus: http.StatusForbidden},
		{name: "admin disabled", configured: "", sent: "", expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handler := AdminOnly(tt.configured)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}))

			req := httptest.NewRequest(http.MethodPost, "/admin/keys", nil)
			if tt.sent != "" {
				req.Header.Set(adminTokenHeader, tt.sent)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
		})
	}
}
