package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/authnd/internal/api/presenter"
	"github.com/darmiel/authnd/internal/authn"
	"github.com/darmiel/authnd/internal/core"
)

type staticSessions map[string]*core.Role

func (s staticSessions) Parse(token string) (*core.Role, error) {
	if role, ok := s[token]; ok {
		return role, nil
	}
	return nil, errors.New("unknown token")
}

// captureLog redirects the global logger into a buffer for the duration of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })
	return &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &line))
	return line
}

func chain(sessions SessionParser, h http.Handler) http.Handler {
	return CorrelationIDMiddleware(LoggingMiddleware(RecoverMiddleware(Session(sessions)(h))))
}

func TestLoggingMiddleware_RecordsCallerAndErrorKind(t *testing.T) {
	buf := captureLog(t)
	sessions := staticSessions{"alice-token": {ID: "cucumber:user:alice"}}

	h := chain(sessions, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presenter.Status(w, r, authn.NotWhitelisted("authn-oidc/okta"), http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/authn-oidc/okta/cucumber/status", nil)
	req.Header.Set("Authorization", "Bearer alice-token")
	req.Header.Set(CorrelationIDHeader, "corr-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	line := lastLine(t, buf)
	assert.Equal(t, "request.handled", line["message"])
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "corr-7", line["correlation_id"])
	assert.Equal(t, "cucumber:user:alice", line["caller"])
	assert.Equal(t, string(authn.KindNotWhitelisted), line["error_kind"])
}

func TestLoggingMiddleware_LevelFollowsStatus(t *testing.T) {
	buf := captureLog(t)

	h := chain(staticSessions{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presenter.AuthnError(w, r, errors.New("boom"), http.StatusUnauthorized)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/authn/cucumber/alice/authenticate", nil))

	line := lastLine(t, buf)
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "unclassified", line["error_kind"])
	assert.NotContains(t, line, "caller")
}

func TestRecoverMiddleware(t *testing.T) {
	buf := captureLog(t)

	h := chain(staticSessions{}, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	req.Header.Set(CorrelationIDHeader, "corr-9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body presenter.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal server error", body.Error)
	assert.Equal(t, "corr-9", body.CorrelationID)

	assert.Contains(t, buf.String(), "panic.recovered")
	assert.Equal(t, float64(http.StatusInternalServerError), lastLine(t, buf)["status"])
}

func TestSession_RejectsInvalidToken(t *testing.T) {
	captureLog(t)

	h := chain(staticSessions{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))
	req := httptest.NewRequest(http.MethodGet, "/audit/events", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
