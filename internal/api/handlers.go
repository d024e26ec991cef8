package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/darmiel/authnd/internal/api/middleware"
	"github.com/darmiel/authnd/internal/api/presenter"
	"github.com/darmiel/authnd/internal/buildinfo"
	"github.com/darmiel/authnd/internal/core"
	"github.com/darmiel/authnd/internal/service"
)

// maximum accepted size of a credential request body
const maxCredentialsSize = 64 << 10

// handleHealth responds with a simple OK status to indicate the server is healthy.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type InfoResponse struct {
	buildinfo.Info
	Authenticators []string `json:"authenticators"`
}

// handleInfo responds with build information and the installed authenticators.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, InfoResponse{
		Info:           buildinfo.GetBuildInfo(),
		Authenticators: s.authenticators,
	}, http.StatusOK)
}

// handleStatus runs the status check of an authenticator webservice.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	err := s.authnService.Status(r.Context(), service.StatusRequest{
		Authenticator: r.PathValue("authenticator"),
		ServiceID:     r.PathValue("service"),
		Account:       r.PathValue("account"),
		Caller:        middleware.CallerCtx(r.Context()),
	})
	presenter.Status(w, r, err, statusCodeForStatus(err))
}

type AuthenticateResponse struct {
	Role      string `json:"role"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// handleAPIKeyAuthenticate exchanges the API key in the request body for an access token.
func (s *Server) handleAPIKeyAuthenticate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCredentialsSize))
	if err != nil {
		presenter.Error(w, r, "failed to read request body", http.StatusBadRequest)
		return
	}

	s.authenticate(w, r, service.AuthenticateRequest{
		Authenticator: core.DefaultAuthenticatorName,
		Account:       r.PathValue("account"),
		Login:         r.PathValue("login"),
		Credentials:   strings.TrimSpace(string(body)),
	})
}

// handleAuthenticate exchanges the credentials of a webservice authenticator
// (e.g. an OIDC id_token) for an access token.
func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCredentialsSize)
	credentials, err := readCredentials(r)
	if err != nil {
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	s.authenticate(w, r, service.AuthenticateRequest{
		Authenticator: r.PathValue("authenticator"),
		ServiceID:     r.PathValue("service"),
		Account:       r.PathValue("account"),
		Credentials:   credentials,
	})
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, req service.AuthenticateRequest) {
	resp, err := s.authnService.Authenticate(r.Context(), req)
	if err != nil {
		presenter.AuthnError(w, r, err, statusCodeForLogin(err))
		return
	}
	presenter.JSON(w, r, AuthenticateResponse{
		Role:      resp.Role.ID,
		Token:     resp.Token.Value,
		ExpiresAt: resp.Token.ExpiresAt.Unix(),
	}, http.StatusOK)
}

type credentialsPayload struct {
	IDToken     string `json:"id_token"`
	Credentials string `json:"credentials"`
}

// readCredentials accepts form encoded and JSON bodies with either an
// "id_token" or a "credentials" field.
func readCredentials(r *http.Request) (string, error) {
	var payload credentialsPayload
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&payload); err != nil {
			return "", err
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return "", err
		}
		payload.IDToken = r.PostForm.Get("id_token")
		payload.Credentials = r.PostForm.Get("credentials")
	}
	if payload.IDToken != "" {
		return payload.IDToken, nil
	}
	return payload.Credentials, nil
}

// handleAuditEvents lists recent audit events of an account. Only the account admin may call it.
func (s *Server) handleAuditEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			presenter.Error(w, r, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	failedOnly, _ := strconv.ParseBool(query.Get("failed"))

	events, err := s.authnService.AuditEvents(r.Context(), service.AuditQuery{
		Caller:     middleware.CallerCtx(r.Context()),
		Account:    query.Get("account"),
		Action:     query.Get("action"),
		FailedOnly: failedOnly,
		Limit:      limit,
	})
	if err != nil {
		presenter.Err(w, r, err, "failed to list audit events")
		return
	}
	presenter.JSON(w, r, events, http.StatusOK)
}
