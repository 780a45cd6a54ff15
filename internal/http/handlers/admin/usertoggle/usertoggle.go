// Package usertoggle activates or deactivates a staff account.
package usertoggle

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/warranty-service/internal/http/response"
	"github.com/magabrotheeeer/warranty-service/internal/i18n"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	ToggleUserStatus(ctx context.Context, actorID, id uuid.UUID) (models.User, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Toggle a user
// @Description Deactivated users are disconnected and their tokens stop working.
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 403 {object} response.ErrorResponse "Own account"
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/users/{id}/toggle [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.usertoggle"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		log.Error("principal not found in context")
		response.WriteError(w, r, apperr.New(apperr.KindAuth, op, i18n.CodeUnauthorized))
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		log.Info("invalid id", sl.Err(err))
		response.WriteError(w, r, apperr.Validation(op, "id", i18n.CodeInvalidIdentifier))
		return
	}

	user, err := h.service.ToggleUserStatus(r.Context(), p.UserID, id)
	if err != nil {
		log.Info("failed to toggle user", slog.String("id", id.String()), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithMessage(r.Context(), i18n.CodeUserUpdated, user))
}
