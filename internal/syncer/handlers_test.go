package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSyncApp(c *Coordinator) *fiber.App {
	app := fiber.New()
	pass := func(ctx *fiber.Ctx) error { return ctx.Next() }
	RegisterRoutes(app.Group("/sync"), c, pass)
	return app
}

func TestSyncNowEndpoint(t *testing.T) {
	fs := &fakeSink{}
	c, q := newTestCoordinator(t, fs, nil)
	app := newSyncApp(c)

	c.RecordBatch(finishedSummary("trip-1"), somePoints("trip-1", 2))

	req := httptest.NewRequest(http.MethodPost, "/sync/now", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, 0, st.Pending)

	n, err := q.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSyncStatusEndpoint(t *testing.T) {
	fs := &fakeSink{}
	c, _ := newTestCoordinator(t, fs, nil)
	c.SetOnline(false)
	c.RecordBatch(finishedSummary("trip-1"), somePoints("trip-1", 1))
	app := newSyncApp(c)

	req := httptest.NewRequest(http.MethodGet, "/sync/status", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.False(t, st.Online)
	assert.Equal(t, 1, st.Pending)
	assert.NotNil(t, st.OldestItem)
}

func TestSyncOnlineEndpoint(t *testing.T) {
	fs := &fakeSink{}
	c, q := newTestCoordinator(t, fs, nil)
	c.SetOnline(false)
	c.RecordBatch(finishedSummary("trip-1"), somePoints("trip-1", 1))
	app := newSyncApp(c)

	body, _ := json.Marshal(map[string]bool{"online": true})
	req := httptest.NewRequest(http.MethodPost, "/sync/online", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.True(t, st.Online)

	// The flush itself happens on the drain loop; a manual sync moves it now.
	require.NoError(t, c.SyncNow(context.Background()))
	n, err := q.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

type tokenFakeSink struct {
	fakeSink
	token string
}

func (s *tokenFakeSink) SetAuthToken(token string) { s.token = token }

func TestSyncReauthedEndpoint(t *testing.T) {
	fs := &tokenFakeSink{}
	c, _ := newTestCoordinator(t, fs, nil)
	c.mu.Lock()
	c.authExpired = true
	c.mu.Unlock()
	app := newSyncApp(c)

	body, _ := json.Marshal(map[string]string{"token": "fresh-token"})
	req := httptest.NewRequest(http.MethodPost, "/sync/reauthed", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.False(t, st.AuthExpired)
	assert.Equal(t, "fresh-token", fs.token)
}
