// Package edit replaces the whole certificate of a customer: customer
// fields, product set and duration.
package edit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/warranty-service/internal/http/response"
	"github.com/magabrotheeeer/warranty-service/internal/i18n"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
	"github.com/magabrotheeeer/warranty-service/internal/lib/validation"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

type Service interface {
	EditCertificate(ctx context.Context, userID, customerID uuid.UUID, req models.EditRequest) (models.EditResult, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validation.New(),
	}
}

// ServeHTTP godoc
// @Summary Edit a certificate
// @Description Products no longer selected lose their warranty, new ones get one, kept ones are updated in place.
// @Tags Certificates
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Param request body models.EditRequest true "Certificate form"
// @Success 200 {object} response.Response{data=models.EditResult}
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /customers/{id}/certificate [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.customer.edit"
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

	var req models.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Info("failed to decode request", sl.Err(err))
		response.BadRequest(w, r)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	result, err := h.service.EditCertificate(r.Context(), p.UserID, id, req)
	if err != nil {
		log.Error("failed to edit certificate", slog.String("customer_id", id.String()), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("certificate edited",
		slog.String("customer_id", id.String()),
		slog.Int("created", len(result.Created)),
		slog.Int("updated", len(result.Updated)),
		slog.Int("deleted", len(result.Deleted)),
	)
	render.JSON(w, r, response.OKWithMessage(r.Context(), i18n.CodeWarrantyUpdated, result))
}
