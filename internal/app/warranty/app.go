// Package warranty assembles the warranty API: storage, cache, event
// delivery, services, HTTP routes and the gRPC health endpoint.
package warranty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"

	"github.com/magabrotheeeer/warranty-service/internal/cache"
	"github.com/magabrotheeeer/warranty-service/internal/config"
	"github.com/magabrotheeeer/warranty-service/internal/events"
	"github.com/magabrotheeeer/warranty-service/internal/grpc/health"
	healthhandler "github.com/magabrotheeeer/warranty-service/internal/http/handlers/ops/health"
	"github.com/magabrotheeeer/warranty-service/internal/lib/jwt"
	"github.com/magabrotheeeer/warranty-service/internal/lib/logger"
	"github.com/magabrotheeeer/warranty-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/warranty-service/internal/lib/ratelimit"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
	"github.com/magabrotheeeer/warranty-service/internal/metrics"
	"github.com/magabrotheeeer/warranty-service/internal/migrations"
	adminservice "github.com/magabrotheeeer/warranty-service/internal/services/admin"
	authservice "github.com/magabrotheeeer/warranty-service/internal/services/auth"
	certificateservice "github.com/magabrotheeeer/warranty-service/internal/services/certificate"
	warrantyservice "github.com/magabrotheeeer/warranty-service/internal/services/warranty"
	"github.com/magabrotheeeer/warranty-service/internal/storage/repository"
)

const (
	shutdownTimeout = 15 * time.Second
	limiterCleanup  = 5 * time.Minute
)

type App struct {
	server  *http.Server
	health  *health.Server
	logger  *slog.Logger
	db      *repository.Storage
	cache   *cache.Cache
	conn    *amqp.Connection
	channel *amqp.Channel

	grpcAddress string
	limiters    []*ratelimit.Keyed
}

// New connects every dependency and builds the HTTP server. Resources
// opened before a failure are released.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (app *App, err error) {
	a := &App{logger: log, grpcAddress: cfg.GRPCHealthAddress}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.db, err = repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	version, err := migrations.Run(a.db.DB, cfg.MigrationsPath)
	if err != nil {
		return nil, err
	}
	log.Info("schema is up to date", slog.Uint64("version", uint64(version)))
	if cfg.SeedProducts {
		n, err := a.db.SeedProducts(ctx)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			log.Info("sample products inserted", slog.Int("count", n))
		}
	}

	a.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	hub := events.NewHub(log)
	publishers := []events.Publisher{hub}
	if cfg.RabbitMQURL != "" {
		a.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			return nil, err
		}
		a.channel, err = rabbitmq.SetupChannel(a.conn, rabbitmq.Events(), nil)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, events.NewAMQPPublisher(a.channel, rabbitmq.EventsExchange))
	} else {
		log.Warn("rabbitmq url not set, events are delivered to websocket clients only")
	}
	publisher := events.NewFanout(log, collector, publishers...)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authSvc := authservice.NewAuthService(a.db, a.cache, jwtMaker, collector, log, authservice.Config{
		RefreshThreshold:  cfg.RefreshThreshold,
		AttemptsPerMinute: cfg.LoginAttemptsPerMinute,
		Burst:             cfg.LoginBurst,
	})
	warrantySvc := warrantyservice.NewWarrantyService(a.db, a.cache, publisher, collector, log, warrantyservice.Config{
		CacheTTL: cfg.CacheTTL,
		Location: cfg.TimeLocation(),
	})
	adminSvc := adminservice.NewAdminService(a.db, publisher, hub, a.cache, log)

	requestLimiter := ratelimit.NewKeyed(rate.Limit(cfg.RequestsPerSec), cfg.RequestsBurst)
	a.limiters = []*ratelimit.Keyed{requestLimiter, authSvc.Limiter()}

	router := chi.NewRouter()
	RegisterRoutes(router, log, Deps{
		Auth:           authSvc,
		Warranty:       warrantySvc,
		Admin:          adminSvc,
		Renderer:       certificateservice.NewRenderer(certificateservice.Options{AutoPrint: true}),
		Hub:            hub,
		Metrics:        collector.Middleware,
		MetricsHandler: metrics.Handler(registry),
		Limiter:        requestLimiter,
		AllowedOrigins: cfg.AllowedOrigins,
		ShowStack:      logger.ShowsStack(cfg.Env),
		Required:       map[string]healthhandler.Pinger{"postgres": a.db},
		Optional:       map[string]healthhandler.Pinger{"redis": a.cache},
	})

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	a.health = health.New(log, a.db, health.DefaultInterval)
	return a, nil
}

// Run serves HTTP and gRPC health until ctx is done, then shuts both down.
func (a *App) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.grpcAddress)
	if err != nil {
		return fmt.Errorf("app.Run: listen %s: %w", a.grpcAddress, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, l := range a.limiters {
		g.Go(func() error {
			l.Cleanup(ctx, limiterCleanup)
			return nil
		})
	}
	g.Go(func() error {
		a.health.Watch(ctx)
		return nil
	})
	g.Go(func() error {
		if err := a.health.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.health.Stop()
		return err
	})

	err = g.Wait()
	a.close()
	return err
}

func (a *App) close() {
	if a.channel != nil {
		if err := a.channel.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close storage", sl.Err(err))
		}
	}
}
