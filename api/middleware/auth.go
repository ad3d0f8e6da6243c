package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/telavo/activation-backend/api/responses"
	pkgAuth "github.com/telavo/activation-backend/pkg/auth"
	"github.com/telavo/activation-backend/pkg/config"
	pkgerrors "github.com/telavo/activation-backend/pkg/errors"
	"github.com/telavo/activation-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// subscriber identity.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
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

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.UserID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing subject"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
			ctx = context.WithValue(ctx, ctxAccountType, string(claims.AccountType))

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":      claims.UserID,
					"account_type": string(claims.AccountType),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
