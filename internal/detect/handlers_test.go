package detect

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newConfigApp(store *Store) *fiber.App {
	app := fiber.New()
	pass := func(c *fiber.Ctx) error { return c.Next() }
	RegisterRoutes(app.Group("/detect"), store, pass)
	return app
}

func TestConfigGet(t *testing.T) {
	app := newConfigApp(NewStore(DefaultConfig()))

	req := httptest.NewRequest(http.MethodGet, "/detect/config", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}

	var cfg Config
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Version != 1 || cfg.SampleBatchSize != 100 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestConfigPut(t *testing.T) {
	store := NewStore(DefaultConfig())
	app := newConfigApp(store)

	next := DefaultConfig()
	next.MinTripDistanceM = 100
	body, _ := json.Marshal(next)

	req := httptest.NewRequest(http.MethodPut, "/detect/config", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}

	var got Config
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("expected bumped version, got %d", got.Version)
	}
	if store.Current().MinTripDistanceM != 100 {
		t.Fatalf("replacement not applied")
	}
}

func TestConfigPutRejectsInvalid(t *testing.T) {
	app := newConfigApp(NewStore(DefaultConfig()))

	bad := DefaultConfig()
	bad.AutoStopSpeedMps = bad.AutoStartSpeedMps + 1
	body, _ := json.Marshal(bad)

	req := httptest.NewRequest(http.MethodPut, "/detect/config", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}
