package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/auth"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		JWTSecret:   "secret",
		ServerPort:  ":0",
		QueuePath:   filepath.Join(t.TempDir(), "queue.db"),
		SinkBackend: "rest",
		SupabaseURL: "http://localhost:0",
		SupabaseKey: "key",
	}
	s, err := NewServer(cfg, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 status")
	}
}

func TestRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/tracking/status", "/detect/config", "/sync/status"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := s.App.Test(req)
		if err != nil {
			t.Fatalf("test request: %v", err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestControlFlowThroughServer(t *testing.T) {
	s := newTestServer(t)
	token, err := auth.SignToken("secret", "user-1", time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	body, _ := json.Marshal(map[string]string{"action": "start", "mode": "walk"})
	req := httptest.NewRequest(http.MethodPost, "/tracking/control", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/tracking/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	var status struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.State != "active" {
		t.Fatalf("expected active trip, got %s", status.State)
	}
}
