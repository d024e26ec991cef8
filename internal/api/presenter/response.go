package presenter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/authnd/internal/authn"
	"github.com/darmiel/authnd/internal/core"
	"github.com/darmiel/authnd/internal/service"
)

type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id"`
}

// StatusResponse is the body of the authenticator status routes.
type StatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	resp := ErrorResponse{
		Error:         msg,
		CorrelationID: core.CorrelationID(r.Context()),
	}
	JSON(w, r, resp, status)
}

func Err(w http.ResponseWriter, r *http.Request, err error, short string) {
	status := http.StatusBadRequest // generic default status
	var httpError *service.HTTPError
	if errors.As(err, &httpError) {
		status = httpError.StatusCode
	}
	Error(w, r, short+": "+err.Error(), status)
}

// Status writes the result of a status check. A nil err reports "ok".
func Status(w http.ResponseWriter, r *http.Request, err error, status int) {
	if err == nil {
		JSON(w, r, StatusResponse{Status: "ok"}, http.StatusOK)
		return
	}
	annotate(r, err)
	JSON(w, r, StatusResponse{Status: "error", Error: err.Error()}, status)
}

// AuthnError writes a failed login. The message carries the CONJ code of err.
func AuthnError(w http.ResponseWriter, r *http.Request, err error, status int) {
	annotate(r, err)
	Error(w, r, err.Error(), status)
}

// annotate adds the error kind to the request logger, "unclassified" for
// errors raised outside the authn taxonomy.
func annotate(r *http.Request, err error) {
	kind := string(authn.KindOf(err))
	if kind == "" {
		kind = "unclassified"
	}
	log.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("error_kind", kind)
	})
}
