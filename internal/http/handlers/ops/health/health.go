// Package health reports whether the service and its dependencies answer.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/warranty-service/internal/http/response"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
)

const checkTimeout = 2 * time.Second

// Pinger is a dependency that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the body of a health reply.
type Status struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type Handler struct {
	log      *slog.Logger
	required map[string]Pinger
	optional map[string]Pinger
}

// New creates the handler. A failing required dependency turns the reply
// into 503; optional ones are only reported.
func New(log *slog.Logger, required, optional map[string]Pinger) *Handler {
	return &Handler{log: log, required: required, optional: optional}
}

// ServeHTTP godoc
// @Summary Health check
// @Tags Ops
// @Produce  json
// @Success 200 {object} response.Response{data=health.Status}
// @Failure 503 {object} response.Response{data=health.Status}
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ops.health"

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	st := Status{Status: "ok", Checks: make(map[string]string, len(h.required)+len(h.optional))}
	healthy := true
	for _, name := range names(h.required) {
		if err := h.required[name].Ping(ctx); err != nil {
			h.log.Warn("dependency down", slog.String("op", op), slog.String("dependency", name), sl.Err(err))
			st.Checks[name] = "down"
			healthy = false
			continue
		}
		st.Checks[name] = "up"
	}
	for _, name := range names(h.optional) {
		if err := h.optional[name].Ping(ctx); err != nil {
			h.log.Debug("optional dependency down", slog.String("op", op), slog.String("dependency", name), sl.Err(err))
			st.Checks[name] = "degraded"
			continue
		}
		st.Checks[name] = "up"
	}

	if !healthy {
		st.Status = "unavailable"
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Response{Status: response.StatusError, Data: st})
		return
	}
	render.JSON(w, r, response.OKWithData(st))
}

func names(m map[string]Pinger) []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
