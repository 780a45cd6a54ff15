// Package userremove deletes a staff account.
package userremove

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
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	DeleteUser(ctx context.Context, actorID, id uuid.UUID) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Delete a user
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Self deletion"
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.userremove"
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

	if err := h.service.DeleteUser(r.Context(), p.UserID, id); err != nil {
		log.Info("failed to delete user", slog.String("id", id.String()), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithMessage(r.Context(), i18n.CodeUserDeleted, nil))
}
