// Package usercreate adds a staff account.
package usercreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

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
	CreateUser(ctx context.Context, actorID uuid.UUID, req models.CreateUserRequest) (models.User, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Create a user
// @Description The service checks email shape, password strength, name and role.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.CreateUserRequest true "New account"
// @Success 201 {object} response.Response{data=models.User}
// @Failure 409 {object} response.ErrorResponse "Email taken"
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/users [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.usercreate"
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

	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Info("failed to decode request", sl.Err(err))
		response.BadRequest(w, r)
		return
	}

	user, err := h.service.CreateUser(r.Context(), p.UserID, req)
	if err != nil {
		log.Info("failed to create user", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithMessage(r.Context(), i18n.CodeUserCreated, user))
}
