// Package identity carries the authenticated caller through request contexts.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Black-And-White-Club/shinobi-ranked/pkg/httpx"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/jwt"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
)

// Actor is the user on whose behalf an operation runs.
type Actor struct {
	UserID string
	Role   jwt.Role
}

// System is used by scheduled jobs that act without a user.
var System = Actor{UserID: "system", Role: jwt.RoleAdmin}

// CanManageContent reports whether the actor may edit seasons and tournaments.
func (a Actor) CanManageContent() bool { return a.Role.CanManageContent() }

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok && a.UserID != ""
}

var errMissingToken = errors.New("missing bearer token")

// Middleware authenticates the bearer token and stores the Actor. Websocket
// upgrades may pass the token as the "token" query parameter instead.
func Middleware(tokens jwt.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := tokens.ValidateToken(raw)
			if err != nil {
				logger.WarnContext(r.Context(), "Rejected bearer token",
					attr.ExtractCorrelationID(r.Context()),
					attr.Error(err),
				)
				httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := WithActor(r.Context(), Actor{UserID: claims.Subject, Role: jwt.Role(claims.Role)})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", errMissingToken
		}
		return token, nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", errMissingToken
}
