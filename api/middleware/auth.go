package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yvoloshin/paylink-backend/api/responses"
	"github.com/yvoloshin/paylink-backend/pkg/config"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
)

type ctxKeyActor struct{}

// WithActor stores the admin identity on the context the way AdminAuth does.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKeyActor{}, actor)
}

// ActorFromContext returns the admin identity AdminAuth stored, or "".
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(ctxKeyActor{}).(string); ok {
		return actor
	}
	return ""
}

// AdminAuth validates a bearer token signed with the admin secret and seeds
// the request context with the actor identity from the subject claim.
func AdminAuth(cfg config.AdminConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims := jwt.RegisteredClaims{}
			parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unexpected signing method")
				}
				return []byte(cfg.JWTSecret), nil
			}, jwt.WithIssuer(cfg.JWTIssuer), jwt.WithExpirationRequired())
			if err != nil || !parsed.Valid {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.Subject == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing subject"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyActor{}, claims.Subject)
			if logg != nil {
				ctx = logg.WithField(ctx, "actor", claims.Subject)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
