// Package issue creates a customer with one warranty per selected product.
package issue

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

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

// IdempotencyHeader carries the client generated request token.
const IdempotencyHeader = "Idempotency-Key"

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

type Service interface {
	Issue(ctx context.Context, userID uuid.UUID, req models.IssueRequest) (models.IssueResult, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validation.New(),
	}
}

// ServeHTTP godoc
// @Summary Issue a certificate
// @Description Creates the customer and one warranty per product. A repeated Idempotency-Key returns the certificate issued the first time.
// @Tags Certificates
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client request token"
// @Param request body models.IssueRequest true "Certificate form"
// @Success 201 {object} response.Response{data=models.IssueResult}
// @Success 200 {object} response.Response{data=models.IssueResult} "Replayed request"
// @Failure 400 {object} response.ErrorResponse "Malformed JSON"
// @Failure 422 {object} response.ErrorResponse "Validation error"
// @Router /certificates [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.warranty.issue"
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

	var req models.IssueRequest
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
	req.RequestToken = strings.TrimSpace(r.Header.Get(IdempotencyHeader))

	result, err := h.service.Issue(r.Context(), p.UserID, req)
	if err != nil {
		log.Error("failed to issue certificate", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("certificate issued",
		slog.String("customer_id", result.Customer.ID.String()),
		slog.Int("warranties", len(result.Warranties)),
		slog.Bool("replayed", result.Replayed),
	)
	if !result.Replayed {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, response.OKWithMessage(r.Context(), i18n.CodeWarrantyCreated, result))
}
