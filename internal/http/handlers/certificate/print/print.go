// Package print serves the printable certificate page of a customer.
package print

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/http/response"
	"github.com/magabrotheeeer/warranty-service/internal/i18n"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

type Handler struct {
	log      *slog.Logger
	service  Service
	renderer Renderer
}

type Service interface {
	Certificate(ctx context.Context, customerID uuid.UUID) (models.Certificate, error)
}

type Renderer interface {
	RenderBytes(cert models.Certificate) ([]byte, error)
}

func New(log *slog.Logger, service Service, renderer Renderer) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		renderer: renderer,
	}
}

// ServeHTTP godoc
// @Summary Printable certificate
// @Description Returns a standalone A4 HTML page that opens the print dialog.
// @Tags Certificates
// @Produce  html
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Success 200 {string} string "HTML page"
// @Failure 404 {object} response.ErrorResponse
// @Router /customers/{id}/certificate [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.certificate.print"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		log.Info("invalid id", sl.Err(err))
		response.WriteError(w, r, apperr.Validation(op, "id", i18n.CodeInvalidIdentifier))
		return
	}

	cert, err := h.service.Certificate(r.Context(), id)
	if err != nil {
		log.Error("failed to load certificate", slog.String("customer_id", id.String()), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	page, err := h.renderer.RenderBytes(cert)
	if err != nil {
		log.Error("failed to render certificate", slog.String("customer_id", id.String()), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(page); err != nil {
		log.Warn("failed to write certificate", sl.Err(err))
	}
}
