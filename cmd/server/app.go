package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"badgeissuer/internal/address"
	badgehandler "badgeissuer/internal/badge/handler"
	badgemetrics "badgeissuer/internal/badge/metrics"
	badgeservice "badgeissuer/internal/badge/service"
	badgestore "badgeissuer/internal/badge/store"
	"badgeissuer/internal/platform/config"
	"badgeissuer/internal/platform/kafka"
	"badgeissuer/internal/platform/metrics"
	"badgeissuer/internal/platform/postgres"
	"badgeissuer/internal/platform/redis"
	"badgeissuer/internal/platform/tracing"
	"badgeissuer/internal/proof"
	ratelimitmetrics "badgeissuer/internal/ratelimit/metrics"
	ratelimitmw "badgeissuer/internal/ratelimit/middleware"
	ratelimitmodels "badgeissuer/internal/ratelimit/models"
	ratelimitstore "badgeissuer/internal/ratelimit/store"
	registryhandler "badgeissuer/internal/registry/handler"
	registrymetrics "badgeissuer/internal/registry/metrics"
	registryservice "badgeissuer/internal/registry/service"
	registrystore "badgeissuer/internal/registry/store"
	"badgeissuer/pkg/platform/audit"
	"badgeissuer/pkg/platform/audit/publisher"
	kafkastore "badgeissuer/pkg/platform/audit/store/kafka"
	auditmemory "badgeissuer/pkg/platform/audit/store/memory"
	"badgeissuer/pkg/platform/audit/worker"
	"badgeissuer/pkg/platform/circuit"
	"badgeissuer/pkg/platform/httputil"
	"badgeissuer/pkg/platform/middleware/admin"
	"badgeissuer/pkg/platform/middleware/auth"
	"badgeissuer/pkg/platform/middleware/metadata"
	"badgeissuer/pkg/platform/middleware/request"
	"badgeissuer/pkg/platform/middleware/requesttime"
)

const requestTimeout = 30 * time.Second

// app holds everything serve needs and everything close must release.
type app struct {
	router      http.Handler
	registry    *registryservice.Manager
	badges      *badgeservice.Service
	proofs      *proof.Service
	auditStore  *auditmemory.InMemoryStore
	auditWorker *worker.Worker
	tracing     *tracing.Provider
	redis       *redis.Client
	limiter     *ratelimitmw.Middleware

	publisher *publisher.Publisher
	closers   []func() error
	checks    map[string]func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *app, err error) {
	a := &app{checks: make(map[string]func(context.Context) error)}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	a.tracing, err = tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := a.buildAudit(ctx, cfg, log); err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.RegistryBackend == config.BackendPostgres || cfg.ComponentBackend == config.BackendPostgres {
		db, err = postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.checks["postgres"] = db.PingContext
	}

	if cfg.RedisEnabled() {
		a.redis, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.redis.Close)
		a.checks["redis"] = a.redis.Health
	}

	regStore, err := a.registryStore(cfg, db)
	if err != nil {
		return nil, err
	}
	compStore, err := a.componentStore(cfg, db)
	if err != nil {
		return nil, err
	}

	allocator := address.NewAllocator()
	a.registry = registryservice.New(regStore, allocator,
		registryservice.WithLogger(log),
		registryservice.WithAuditPublisher(a.publisher),
		registryservice.WithMetrics(registrymetrics.New(reg)),
		registryservice.WithTracer(a.tracing.Tracer()),
	)
	a.badges = badgeservice.New(compStore, a.registry, allocator,
		badgeservice.WithLogger(log),
		badgeservice.WithAuditPublisher(a.publisher),
		badgeservice.WithMetrics(badgemetrics.New(reg)),
		badgeservice.WithTracer(a.tracing.Tracer()),
	)
	a.proofs = proof.NewService(cfg.ProofSigningKey, programName)
	a.limiter = a.rateLimiter(cfg, log, reg)

	a.router = a.routes(cfg, log, reg)
	return a, nil
}

// buildAudit keeps recent events in memory. With Kafka configured, a worker
// forwards a copy of each event to the topic off the request path.
func (a *app) buildAudit(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	a.auditStore = auditmemory.NewInMemoryStore()
	var store audit.Store = a.auditStore

	if cfg.KafkaEnabled() {
		client, err := kafka.NewClient(ctx, cfg.Kafka)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { client.Close(); return nil })
		if err := kafka.EnsureTopic(ctx, client, cfg.Kafka); err != nil {
			return err
		}
		a.checks["kafka"] = client.Ping

		sink := kafkastore.New(client, cfg.Kafka.Topic,
			kafkastore.WithBreaker(circuit.New("kafka-audit")),
			kafkastore.WithFallback(auditmemory.NewInMemoryStore()),
			kafkastore.WithLogger(log),
		)
		tee := worker.NewTee(a.auditStore, cfg.AuditBuffer)
		a.auditWorker = worker.NewWorker(sink, tee.Events(), log)
		store = tee
	}

	a.publisher = publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(cfg.AuditBuffer),
		publisher.WithLogger(log),
	)
	return nil
}

func (a *app) registryStore(cfg *config.Config, db *sql.DB) (registryservice.Store, error) {
	switch cfg.RegistryBackend {
	case config.BackendPostgres:
		return registrystore.NewPostgres(db), nil
	case config.BackendRedis:
		return registrystore.NewRedis(a.redis.Client), nil
	case config.BackendMemory:
		return registrystore.NewInMemory(), nil
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.RegistryBackend)
	}
}

// componentStore picks the component backend. Components never change after
// publication, so durable backends sit behind a read-through cache.
func (a *app) componentStore(cfg *config.Config, db *sql.DB) (badgeservice.ComponentStore, error) {
	var next badgestore.Store
	switch cfg.ComponentBackend {
	case config.BackendPostgres:
		next = badgestore.NewPostgres(db)
	case config.BackendSQLite:
		s, err := badgestore.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		next = s
	case config.BackendMemory:
		return badgestore.NewInMemory(), nil
	default:
		return nil, fmt.Errorf("unknown component backend %q", cfg.ComponentBackend)
	}
	return badgestore.NewCached(next, cfg.ComponentCacheTTL), nil
}

func (a *app) rateLimiter(cfg *config.Config, log *slog.Logger, reg prometheus.Registerer) *ratelimitmw.Middleware {
	var store ratelimitmw.Store
	if cfg.RateLimit.Backend == config.BackendRedis && a.redis != nil {
		store = ratelimitstore.NewRedis(a.redis.Client)
	} else {
		store = ratelimitstore.NewInMemory()
	}
	return ratelimitmw.New(store, log,
		ratelimitmw.WithDisabled(!cfg.RateLimit.Enabled),
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
	)
}

func (a *app) routes(cfg *config.Config, log *slog.Logger, reg *prometheus.Registry) http.Handler {
	httpMetrics := metrics.New(reg)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(httpMetrics.Middleware)

	r.Get("/health", a.handleHealth)
	r.Handle("/metrics", metrics.Handler(reg))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(auth.CallerProofs(a.proofs, log))
		registryhandler.New(a.registry, log).Register(r)
		claimPolicy := ratelimitmodels.Policy{Limit: cfg.RateLimit.ClaimLimit, Window: cfg.RateLimit.Window}
		badgehandler.New(a.badges, log,
			badgehandler.WithClaimMiddleware(a.limiter.PerCaller("claim", claimPolicy)),
		).Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(admin.RequireAdminToken([]byte(cfg.AdminTokenHash), log))
		badgehandler.New(a.badges, log).RegisterAdmin(r)
		proof.NewHandler(a.proofs, log, a.publisher).RegisterAdmin(r)
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(a.checks))}
	status := http.StatusOK
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}

// close drains the audit publisher before releasing connections so buffered
// events still reach their store.
func (a *app) close(ctx context.Context) {
	if a.publisher != nil {
		a.publisher.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if a.tracing != nil {
		errs = append(errs, a.tracing.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		slog.Default().Warn("shutdown completed with errors", "error", err)
	}
}
