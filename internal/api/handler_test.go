package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pointsbridge/ww-adapter/internal/registry"
	"github.com/pointsbridge/ww-adapter/internal/ww"
)

type stubService struct {
	createFn func(ctx context.Context, creds ww.Credentials) (*registry.Entry, error)
	entries  map[string]*registry.Entry
}

func (s *stubService) Create(ctx context.Context, creds ww.Credentials) (*registry.Entry, error) {
	return s.createFn(ctx, creds)
}

func (s *stubService) Get(id string) (*registry.Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

func (s *stubService) List() []*registry.Entry {
	out := make([]*registry.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

func (s *stubService) Remove(id string) bool {
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

func testEntry(id, username string) *registry.Entry {
	return &registry.Entry{
		ID:       id,
		Username: username,
		Region:   "US",
		Poller:   ww.NewPoller(zap.NewNop(), username, nil, nil, time.Minute),
	}
}

func newTestApp(svc AccountService) *fiber.App {
	app := fiber.New()
	h := NewHandler(zap.NewNop(), svc)
	RegisterRoutes(app, nil, registry.New(), h)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func TestCreateAccount_Success(t *testing.T) {
	svc := &stubService{createFn: func(ctx context.Context, creds ww.Credentials) (*registry.Entry, error) {
		assert.Equal(t, "u@example.com", creds.Username)
		assert.Equal(t, "UK", creds.Region)
		return testEntry("id-1", creds.Username), nil
	}}
	app := newTestApp(svc)

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/accounts",
		`{"username":"u@example.com","password":"pw","region":"UK"}`)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "id-1", body["id"])
	assert.Equal(t, "u@example.com", body["username"])
	assert.Equal(t, string(ww.StatePending), body["state"])
}

func TestCreateAccount_Validation(t *testing.T) {
	app := newTestApp(&stubService{})

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/accounts", `{"username":"u@example.com"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "password is required")
}

func TestCreateAccount_Duplicate(t *testing.T) {
	svc := &stubService{createFn: func(context.Context, ww.Credentials) (*registry.Entry, error) {
		return nil, registry.ErrAlreadyRegistered
	}}
	app := newTestApp(svc)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/accounts",
		`{"username":"u@example.com","password":"pw"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCreateAccount_ErrorMapping(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantCode  int
		wantState string
	}{
		{"auth", &ww.Error{Kind: ww.KindAuth, Op: "login", Msg: "invalid username, password, or region"},
			fiber.StatusUnauthorized, string(ww.StateReauthRequired)},
		{"connection", &ww.Error{Kind: ww.KindConnection, Op: "login", Msg: "connection failure"},
			fiber.StatusServiceUnavailable, string(ww.StateUnavailable)},
		{"generic", &ww.Error{Kind: ww.KindGeneric, Op: "authorize", Msg: "unexpected status 500"},
			fiber.StatusBadGateway, string(ww.StateUnavailable)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{createFn: func(context.Context, ww.Credentials) (*registry.Entry, error) {
				return nil, tc.err
			}}
			app := newTestApp(svc)

			resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/accounts",
				`{"username":"u@example.com","password":"pw"}`)
			assert.Equal(t, tc.wantCode, resp.StatusCode)
			assert.Equal(t, tc.wantState, body["state"])
		})
	}
}

func TestListAccounts(t *testing.T) {
	svc := &stubService{entries: map[string]*registry.Entry{
		"id-1": testEntry("id-1", "u@example.com"),
	}}
	app := newTestApp(svc)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/accounts", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out []AccountResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, "id-1", out[0].ID)
	assert.Equal(t, string(ww.StatePending), out[0].State)
	assert.Nil(t, out[0].LastPolled)
}

func TestDeleteAccount(t *testing.T) {
	svc := &stubService{entries: map[string]*registry.Entry{
		"id-1": testEntry("id-1", "u@example.com"),
	}}
	app := newTestApp(svc)

	resp, _ := doJSON(t, app, fiber.MethodDelete, "/api/v1/accounts/id-1", "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, fiber.MethodDelete, "/api/v1/accounts/id-1", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetLatest(t *testing.T) {
	svc := &stubService{entries: map[string]*registry.Entry{
		"id-1": testEntry("id-1", "u@example.com"),
	}}
	app := newTestApp(svc)

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/v1/accounts/id-1/latest", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, string(ww.StatePending), body["state"])
	assert.NotContains(t, body, "snapshot")

	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/v1/accounts/missing/latest", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetSummary_BadDate(t *testing.T) {
	svc := &stubService{entries: map[string]*registry.Entry{
		"id-1": testEntry("id-1", "u@example.com"),
	}}
	app := newTestApp(svc)

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/v1/accounts/id-1/summary?date=03-01-2025", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "YYYY-MM-DD")
}

func TestGetSummary_UnknownAccount(t *testing.T) {
	app := newTestApp(&stubService{})

	resp, _ := doJSON(t, app, fiber.MethodGet, "/api/v1/accounts/missing/summary", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestListRegions(t *testing.T) {
	app := newTestApp(&stubService{})

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/v1/regions", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "US", body["default"])

	regions, ok := body["regions"].([]any)
	require.True(t, ok)
	assert.Len(t, regions, 15)
	assert.Contains(t, regions, "UK")
}

func TestHealth(t *testing.T) {
	app := newTestApp(&stubService{})

	resp, body := doJSON(t, app, fiber.MethodGet, "/health", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	checks, ok := body["checks"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "disabled", checks["nats"], "nil NATS connection reports as disabled, not degraded")
}
