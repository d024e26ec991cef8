package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/authnd/internal/api/presenter"
	"github.com/darmiel/authnd/internal/core"
)

// SessionParser turns an access token into the role it was issued for.
type SessionParser interface {
	Parse(token string) (*core.Role, error)
}

type callerKey struct{}

// CallerCtx returns the role of the access token presented with the request, nil if anonymous.
func CallerCtx(ctx context.Context) *core.Role {
	role, _ := ctx.Value(callerKey{}).(*core.Role)
	return role
}

// Session reads an optional bearer access token. Requests without a token
// continue anonymously, requests with an invalid one are rejected.
func Session(parser SessionParser) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			tokenStr := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			role, err := parser.Parse(tokenStr)
			if err != nil {
				log.Ctx(r.Context()).Debug().Err(err).Msg("rejected access token")
				presenter.Error(w, r, "invalid access token", http.StatusUnauthorized)
				return
			}

			log.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("caller", role.ID)
			})
			ctx := context.WithValue(r.Context(), callerKey{}, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
