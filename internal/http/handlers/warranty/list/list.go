// Package list serves the filtered, grouped certificate list.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/warranty-service/internal/http/response"
	"github.com/magabrotheeeer/warranty-service/internal/lib/listing"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
	services "github.com/magabrotheeeer/warranty-service/internal/services/warranty"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	List(ctx context.Context, c listing.Criteria) (services.ListResult, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List certificates
// @Description Filters warranties and groups them by customer, newest first.
// @Tags Warranties
// @Produce  json
// @Security BearerAuth
// @Param search query string false "Customer name, phone, invoice number or product name"
// @Param status query string false "all, active, expiring_soon or expired"
// @Param date query string false "all, today, week, month or year"
// @Param product query string false "Product name or all"
// @Success 200 {object} response.Response{data=services.ListResult}
// @Failure 422 {object} response.ErrorResponse "Unknown filter value"
// @Failure 500 {object} response.ErrorResponse
// @Router /warranties [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.warranty.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	q := r.URL.Query()
	criteria, err := listing.ParseCriteria(q.Get("search"), q.Get("status"), q.Get("date"), q.Get("product"))
	if err != nil {
		log.Info("invalid filter", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	result, err := h.service.List(r.Context(), criteria)
	if err != nil {
		log.Error("failed to list warranties", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(result))
}
