package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/darmiel/authnd/internal/api/middleware"
	"github.com/darmiel/authnd/internal/audit"
	"github.com/darmiel/authnd/internal/authenticators"
	"github.com/darmiel/authnd/internal/config"
	"github.com/darmiel/authnd/internal/core"
	"github.com/darmiel/authnd/internal/service"
	"github.com/darmiel/authnd/internal/session"
	"github.com/darmiel/authnd/internal/store"
)

func hash(t *testing.T, key string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := store.NewInMemoryDirectory()
	dir.Load([]config.AccountConfig{{
		Name: "cucumber",
		Roles: []config.RoleConfig{
			{Kind: "user", ID: "admin", APIKeyHash: hash(t, "admin-key")},
			{Kind: "user", ID: "alice", APIKeyHash: hash(t, "alice-key")},
			{Kind: "user", ID: "bob", APIKeyHash: hash(t, "bob-key")},
			{Kind: "host", ID: "myapp", APIKeyHash: hash(t, "app-key")},
		},
		Resources: []config.ResourceConfig{
			{
				Kind:   "webservice",
				ID:     "conjur/smoke/main",
				Permit: []config.PermitConfig{{Role: "user:alice", Privileges: []string{"authenticate"}}},
			},
			{
				Kind:   "webservice",
				ID:     "conjur/smoke/main/status",
				Permit: []config.PermitConfig{{Role: "user:alice", Privileges: []string{"read"}}},
			},
			{Kind: "webservice", ID: "conjur/smoke/disabled/status"},
			{Kind: "webservice", ID: "conjur/smoke/disabled"},
		},
	}})

	registry, err := authenticators.BuildRegistry([]config.AuthenticatorConfig{{
		Name:   "smoke",
		Type:   "stub",
		Config: map[string]any{"logins": map[string]any{"token-alice": "alice"}},
	}}, authenticators.Dependencies{Secrets: dir, Credentials: dir})
	require.NoError(t, err)

	sessions := session.NewManager([]byte("test-signing-key"), "authnd", time.Minute)
	svc := service.NewAuthnService(registry, dir, audit.NewInMemoryAuditor(), sessions, "authn,smoke/main")

	srv := httptest.NewServer(NewServer(svc, sessions, registry.Names()).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func login(t *testing.T, srv *httptest.Server, loginName, key string) string {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost,
		srv.URL+"/authn/cucumber/"+url.PathEscape(loginName)+"/authenticate", strings.NewReader(key))
	require.NoError(t, err)
	resp, body := do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	return body["token"].(string)
}

func get(t *testing.T, url, token string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(t, req)
}

func TestStatusRoutes(t *testing.T) {
	srv := newTestServer(t)
	alice := login(t, srv, "alice", "alice-key")
	bob := login(t, srv, "bob", "bob-key")

	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
		wantError  string
	}{
		{name: "Healthy", path: "/smoke/main/cucumber/status", token: alice, wantStatus: http.StatusOK},
		{name: "Unknown Authenticator", path: "/authn-k8s/main/cucumber/status", token: alice, wantStatus: http.StatusNotFound, wantError: "CONJ00001E"},
		{name: "Status Not Implemented", path: "/authn/cucumber/status", token: alice, wantStatus: http.StatusNotImplemented, wantError: "CONJ00056E"},
		{name: "Anonymous", path: "/smoke/main/cucumber/status", wantStatus: http.StatusUnauthorized, wantError: "CONJ00007E"},
		{name: "Not Authorized", path: "/smoke/main/cucumber/status", token: bob, wantStatus: http.StatusForbidden, wantError: "CONJ00006E User 'bob' is not authorized"},
		{name: "Unknown Account", path: "/smoke/main/nope/status", token: alice, wantStatus: http.StatusInternalServerError, wantError: "CONJ00008E"},
		{name: "Undefined Webservice", path: "/smoke/other/cucumber/status", token: alice, wantStatus: http.StatusInternalServerError, wantError: "CONJ00005E"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path, tt.token)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantError == "" {
				assert.Equal(t, map[string]any{"status": "ok"}, body)
				return
			}
			assert.Equal(t, "error", body["status"])
			assert.Contains(t, body["error"], tt.wantError)
		})
	}
}

func TestStatus_NotWhitelisted(t *testing.T) {
	srv := newTestServer(t)
	admin := login(t, srv, "admin", "admin-key")

	resp, body := get(t, srv.URL+"/smoke/disabled/cucumber/status", admin)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body["error"], "CONJ00004E Authenticator 'smoke/disabled' is not enabled")
}

func TestAPIKeyAuthenticate(t *testing.T) {
	srv := newTestServer(t)

	token := login(t, srv, "host/myapp", "app-key")
	assert.NotEmpty(t, token)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/authn/cucumber/alice/authenticate", strings.NewReader("wrong"))
	require.NoError(t, err)
	resp, body := do(t, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body["error"], "CONJ00002E")
	assert.NotEmpty(t, body["correlation_id"])
}

func TestWebserviceAuthenticate(t *testing.T) {
	srv := newTestServer(t)

	form := url.Values{"id_token": {"token-alice"}}
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/smoke/main/cucumber/authenticate", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, body := do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "cucumber:user:alice", body["role"])

	req, err = http.NewRequest(http.MethodPost, srv.URL+"/smoke/main/cucumber/authenticate", strings.NewReader(`{"credentials":"nope"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, _ = do(t, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err = http.NewRequest(http.MethodPost, srv.URL+"/smoke/main/cucumber/authenticate", strings.NewReader(`{"password":"x"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, _ = do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuditEventsRoute(t *testing.T) {
	srv := newTestServer(t)
	admin := login(t, srv, "admin", "admin-key")
	alice := login(t, srv, "alice", "alice-key")
	_, _ = get(t, srv.URL+"/smoke/main/cucumber/status", alice)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/audit/events?account=cucumber&action="+core.ActionStatus, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events []core.AuditEvent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 1)
	assert.Equal(t, "alice", events[0].Username)
	assert.True(t, events[0].Success)

	forbidden, _ := get(t, srv.URL+"/audit/events?account=cucumber", alice)
	assert.Equal(t, http.StatusForbidden, forbidden.StatusCode)

	badLimit, _ := get(t, srv.URL+"/audit/events?account=cucumber&limit=-3", admin)
	assert.Equal(t, http.StatusBadRequest, badLimit.StatusCode)
}

func TestSessionMiddleware_InvalidToken(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/smoke/main/cucumber/status", "forged")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid access token", body["error"])
}

func TestPublicRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/info", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.CorrelationIDHeader, "my-correlation-id")
	resp, body := do(t, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "my-correlation-id", resp.Header.Get(middleware.CorrelationIDHeader))
	assert.Equal(t, "authnd", body["service"])
	assert.Equal(t, []any{"authn", "smoke"}, body["authenticators"])
}

func TestStatusCodeMapping(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusCodeForStatus(assert.AnError))
	assert.Equal(t, http.StatusInternalServerError, statusCodeForLogin(assert.AnError))
}
