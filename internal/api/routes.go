package api

const (
	HealthCheckRoute = "/healthz"
	InfoRoute        = "/info"

	StatusRoute             = "/{authenticator}/{account}/status"
	ServiceStatusRoute      = "/{authenticator}/{service}/{account}/status"
	APIKeyAuthenticateRoute = "/authn/{account}/{login}/authenticate"
	AuthenticateRoute       = "/{authenticator}/{service}/{account}/authenticate"

	AuditEventsRoute = "/audit/events"
)
