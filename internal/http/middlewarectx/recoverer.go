package middlewarectx

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/i18n"
)

// PanicResponse is written when a handler panics.
type PanicResponse struct {
	Status  string   `json:"status"`
	Error   string   `json:"error"`
	Kind    string   `json:"kind"`
	Actions []string `json:"actions"`
	Stack   string   `json:"stack,omitempty"`
}

// Recoverer turns a panic into a 500 JSON reply offering retry and home
// actions. The stack trace is included only when showStack is set, which
// the app does in the local and dev environments.
func Recoverer(log *slog.Logger, showStack bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				stack := string(debug.Stack())
				log.Error("panic recovered",
					slog.String("panic", fmt.Sprint(rec)),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("stack", stack),
				)

				resp := PanicResponse{
					Status:  "Error",
					Error:   i18n.Message(i18n.FromContext(r.Context()), i18n.CodeUnknown),
					Kind:    string(apperr.KindUnknown),
					Actions: []string{"retry", "home"},
				}
				if showStack {
					resp.Stack = stack
				}
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
