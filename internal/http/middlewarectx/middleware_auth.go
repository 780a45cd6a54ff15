// Package middlewarectx contains the HTTP middleware of the warranty API:
// token authentication, admin checks, rate limiting, language negotiation,
// CORS and panic recovery.
package middlewarectx

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/http/response"
	"github.com/magabrotheeeer/warranty-service/internal/i18n"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
)

// BearerToken returns the token of the Authorization header. Websocket
// upgrades may pass it in the "token" query parameter instead, since
// browsers cannot set headers on them.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("token")
	}
	return ""
}

// JWTMiddleware authenticates the bearer token and puts the caller into the
// request context.
func JWTMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := BearerToken(r)
			if token == "" {
				log.Info("missing authorization header")
				response.WriteError(w, r, apperr.New(apperr.KindAuth, op, i18n.CodeTokenMissing))
				return
			}

			p, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				log.Info("authentication failed", sl.Err(err))
				response.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdmin rejects callers without the admin role. It must run after
// JWTMiddleware.
func RequireAdmin(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequireAdmin"
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				response.WriteError(w, r, apperr.New(apperr.KindAuth, op, i18n.CodeUnauthorized))
				return
			}
			if !p.IsAdmin() {
				log.Warn("admin route denied",
					slog.String("user_id", p.UserID.String()),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				response.WriteError(w, r, apperr.New(apperr.KindForbidden, op, i18n.CodeForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
