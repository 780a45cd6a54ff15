package warranty

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	// Registers the OpenAPI document served at /docs.
	_ "github.com/magabrotheeeer/warranty-service/internal/docs"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/admin/stats"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/admin/usercreate"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/admin/userlist"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/admin/userremove"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/admin/usertoggle"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/admin/userupdate"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/auth/refresh"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/auth/session"
	certprint "github.com/magabrotheeeer/warranty-service/internal/http/handlers/certificate/print"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/customer/edit"
	customerremove "github.com/magabrotheeeer/warranty-service/internal/http/handlers/customer/remove"
	customerupdate "github.com/magabrotheeeer/warranty-service/internal/http/handlers/customer/update"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/ops/health"
	productlist "github.com/magabrotheeeer/warranty-service/internal/http/handlers/product/list"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/realtime/ws"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/warranty/issue"
	warrantylist "github.com/magabrotheeeer/warranty-service/internal/http/handlers/warranty/list"
	warrantyremove "github.com/magabrotheeeer/warranty-service/internal/http/handlers/warranty/remove"
	"github.com/magabrotheeeer/warranty-service/internal/http/handlers/warranty/search"
	warrantyupdate "github.com/magabrotheeeer/warranty-service/internal/http/handlers/warranty/update"
	"github.com/magabrotheeeer/warranty-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/warranty-service/internal/lib/ratelimit"
)

// AuthService is everything the auth routes and the token middleware need.
type AuthService interface {
	middlewarectx.Authenticator
	login.Service
	logout.Service
	refresh.Service
	session.Service
}

// WarrantyService is everything the certificate routes need.
type WarrantyService interface {
	productlist.Service
	warrantylist.Service
	search.Service
	issue.Service
	warrantyupdate.Service
	warrantyremove.Service
	customerupdate.Service
	edit.Service
	customerremove.Service
	certprint.Service
}

// AdminService is everything the admin routes need.
type AdminService interface {
	stats.Service
	userlist.Service
	usercreate.Service
	userupdate.Service
	userremove.Service
	usertoggle.Service
}

// Deps are the collaborators of the router.
type Deps struct {
	Auth     AuthService
	Warranty WarrantyService
	Admin    AdminService
	Renderer certprint.Renderer
	Hub      ws.Hub

	// Metrics wraps every request; nil disables it.
	Metrics func(http.Handler) http.Handler
	// MetricsHandler is served at /metrics when set.
	MetricsHandler http.Handler
	Limiter        *ratelimit.Keyed
	AllowedOrigins []string
	ShowStack      bool

	Required map[string]health.Pinger
	Optional map[string]health.Pinger
}

// RegisterRoutes registers every route of the API on r.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middlewarectx.Recoverer(logger, d.ShowStack),
		middleware.URLFormat,
		middlewarectx.Language,
		middlewarectx.CORS(d.AllowedOrigins),
	)
	if d.Metrics != nil {
		r.Use(d.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(middlewarectx.RateLimitMiddleware(logger, d.Limiter))
		}

		// Open endpoints. Logout, refresh and session read the token themselves.
		r.Post("/auth/login", login.New(logger, d.Auth).ServeHTTP)
		r.Post("/auth/logout", logout.New(logger, d.Auth).ServeHTTP)
		r.Post("/auth/refresh", refresh.New(logger, d.Auth).ServeHTTP)
		r.Get("/auth/session", session.New(logger, d.Auth).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Auth, logger))

			r.Get("/products", productlist.New(logger, d.Warranty).ServeHTTP)
			r.Get("/warranties", warrantylist.New(logger, d.Warranty).ServeHTTP)
			r.Get("/warranties/search", search.New(logger, d.Warranty).ServeHTTP)
			r.Put("/warranties/{id}", warrantyupdate.New(logger, d.Warranty).ServeHTTP)
			r.Delete("/warranties/{id}", warrantyremove.New(logger, d.Warranty).ServeHTTP)
			r.Post("/certificates", issue.New(logger, d.Warranty).ServeHTTP)
			r.Patch("/customers/{id}", customerupdate.New(logger, d.Warranty).ServeHTTP)
			r.Delete("/customers/{id}", customerremove.New(logger, d.Warranty).ServeHTTP)
			r.Get("/customers/{id}/certificate", certprint.New(logger, d.Warranty, d.Renderer).ServeHTTP)
			r.Put("/customers/{id}/certificate", edit.New(logger, d.Warranty).ServeHTTP)
			if d.Hub != nil {
				r.Get("/ws", ws.New(logger, d.Hub, d.AllowedOrigins).ServeHTTP)
			}

			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarectx.RequireAdmin(logger))
				r.Get("/stats", stats.New(logger, d.Admin).ServeHTTP)
				r.Get("/users", userlist.New(logger, d.Admin).ServeHTTP)
				r.Post("/users", usercreate.New(logger, d.Admin).ServeHTTP)
				r.Patch("/users/{id}", userupdate.New(logger, d.Admin).ServeHTTP)
				r.Delete("/users/{id}", userremove.New(logger, d.Admin).ServeHTTP)
				r.Post("/users/{id}/toggle", usertoggle.New(logger, d.Admin).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, d.Required, d.Optional).ServeHTTP)
	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
