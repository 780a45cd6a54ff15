// Package search looks certificates up by invoice number and/or phone.
package search

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/warranty-service/internal/http/response"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Search(ctx context.Context, params models.SearchParams) ([]models.CustomerGroup, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Search certificates
// @Description Exact match on invoice number and/or phone. At least one is required.
// @Tags Warranties
// @Produce  json
// @Security BearerAuth
// @Param invoice query string false "Invoice number"
// @Param phone query string false "Phone number"
// @Success 200 {object} response.Response{data=[]models.CustomerGroup}
// @Failure 422 {object} response.ErrorResponse "No search key"
// @Router /warranties/search [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.warranty.search"

	q := r.URL.Query()
	params := models.SearchParams{
		InvoiceNumber: strings.TrimSpace(q.Get("invoice")),
		PhoneNumber:   strings.TrimSpace(q.Get("phone")),
	}

	groups, err := h.service.Search(r.Context(), params)
	if err != nil {
		h.log.Info("search failed",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(groups))
}
