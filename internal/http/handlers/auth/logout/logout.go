// Package logout implements the sign out endpoint.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/warranty-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/warranty-service/internal/http/response"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

// Service revokes sessions.
type Service interface {
	Logout(ctx context.Context, token string) (models.Principal, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Sign out
// @Description Revokes the presented session token. Clients clear their stored token whatever the outcome.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Missing or invalid token"
// @Router /auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, err := h.service.Logout(r.Context(), middlewarectx.BearerToken(r))
	if err != nil {
		log.Info("logout failed", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("user signed out", slog.String("user_id", p.UserID.String()))
	render.JSON(w, r, response.OK())
}
