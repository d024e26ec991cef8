package api

import (
	"net/http"

	"github.com/darmiel/authnd/internal/api/middleware"
	"github.com/darmiel/authnd/internal/service"
)

type Server struct {
	authnService   *service.AuthnService
	sessions       middleware.SessionParser
	authenticators []string
}

// NewServer creates the HTTP surface of the authentication service.
// authenticators lists the installed authenticator names reported by /info.
func NewServer(authnService *service.AuthnService, sessions middleware.SessionParser, authenticators []string) *Server {
	return &Server{
		authnService:   authnService,
		sessions:       sessions,
		authenticators: authenticators,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+InfoRoute, s.handleInfo)

	// authenticator routes
	mux.HandleFunc("GET "+StatusRoute, s.handleStatus)
	mux.HandleFunc("GET "+ServiceStatusRoute, s.handleStatus)
	mux.HandleFunc("POST "+APIKeyAuthenticateRoute, s.handleAPIKeyAuthenticate)
	mux.HandleFunc("POST "+AuthenticateRoute, s.handleAuthenticate)

	// admin routes
	mux.HandleFunc("GET "+AuditEventsRoute, s.handleAuditEvents)

	return middleware.CorrelationIDMiddleware(
		middleware.LoggingMiddleware(
			middleware.RecoverMiddleware(
				middleware.Session(s.sessions)(
					mux))))
}
