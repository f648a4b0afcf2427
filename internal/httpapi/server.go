// Package httpapi is the HTTP surface (spec.md §6): chi routes for
// describe/data/find/aggregate/history plus the sudo-only tenant
// endpoints, mounted over auth.Middleware/RequireAuth/RequireMinAccess
// and resolveTenant, delegating all domain work to pkg/record.Pipeline,
// pkg/schema.Registry, pkg/filter, and pkg/tenant.Manager. Grounded on
// the teacher's internal/httpserver.Server (global middleware stack,
// health/ready/metrics endpoints, the authenticated sub-router shape),
// rewired from on-call's single-tenant /api/v1 surface to this module's
// per-tenant describe/data/find/aggregate/history operations.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ianzepp/monk-api/internal/auth"
	"github.com/ianzepp/monk-api/internal/config"
	"github.com/ianzepp/monk-api/internal/dbadapter"
	"github.com/ianzepp/monk-api/pkg/record"
	"github.com/ianzepp/monk-api/pkg/schema"
	"github.com/ianzepp/monk-api/pkg/tenant"
)

// Server holds the HTTP server dependencies and the chi router.
type Server struct {
	Router *chi.Mux
	Logger *slog.Logger
	DB     *pgxpool.Pool
	Redis  *redis.Client

	registry  *schema.Registry
	pipeline  *record.Pipeline
	manager   *tenant.Manager
	startedAt time.Time
}

// Deps bundles the resolved domain components NewServer wires into
// the router; internal/app constructs these once at startup.
type Deps struct {
	Config     *config.Config
	Logger     *slog.Logger
	DB         *pgxpool.Pool
	Redis      *redis.Client
	MetricsReg *prometheus.Registry
	Postgres   *dbadapter.PostgresFactory
	SQLite     *dbadapter.SQLiteFactory
	Registry   *schema.Registry
	Pipeline   *record.Pipeline
	Manager    *tenant.Manager

	// AdapterTimeout bounds every /api request's context (config's
	// ADAPTER_TIMEOUT). Zero disables the bound.
	AdapterTimeout time.Duration
}

// NewServer builds the router: global middleware, health/metrics
// endpoints, the authenticated tenant-scoped /api surface, and the
// sudo-only /sudo/tenant surface.
func NewServer(d Deps) *Server {
	s := &Server{
		Router:    chi.NewRouter(),
		Logger:    d.Logger,
		DB:        d.DB,
		Redis:     d.Redis,
		registry:  d.Registry,
		pipeline:  d.Pipeline,
		manager:   d.Manager,
		startedAt: time.Now(),
	}

	s.Router.Use(RequestID)
	s.Router.Use(Logger(d.Logger))
	s.Router.Use(Metrics)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", auth.HeaderUserID, auth.HeaderTenantID, auth.HeaderName, auth.HeaderAccess, "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.Router.Get("/healthz", s.handleHealthz)
	s.Router.Get("/readyz", s.handleReadyz)
	s.Router.Handle("/metrics", promhttp.HandlerFor(d.MetricsReg, promhttp.HandlerOpts{}))

	authMW := auth.Middleware(d.Logger)
	tenantMW := resolveTenant(d.Manager, d.Postgres, d.SQLite, d.Logger)

	s.Router.Route("/api", func(r chi.Router) {
		if d.AdapterTimeout > 0 {
			r.Use(AdapterTimeout(d.AdapterTimeout))
		}
		r.Use(authMW)
		r.Use(tenantMW)
		r.Use(auth.RequireAuth)

		r.Get("/describe", s.handleDescribeList)
		r.Post("/describe/{model}", s.handleModelCreate)
		r.Get("/describe/{model}", s.handleModelRead)
		r.Put("/describe/{model}", auth.RequireMinAccess(auth.AccessFull)(http.HandlerFunc(s.handleModelUpdate)).ServeHTTP)
		r.Delete("/describe/{model}", auth.RequireMinAccess(auth.AccessFull)(http.HandlerFunc(s.handleModelDelete)).ServeHTTP)
		r.Post("/describe/{model}/{field}", auth.RequireMinAccess(auth.AccessFull)(http.HandlerFunc(s.handleFieldCreate)).ServeHTTP)
		r.Get("/describe/{model}/{field}", s.handleFieldRead)
		r.Put("/describe/{model}/{field}", auth.RequireMinAccess(auth.AccessFull)(http.HandlerFunc(s.handleFieldUpdate)).ServeHTTP)
		r.Delete("/describe/{model}/{field}", auth.RequireMinAccess(auth.AccessFull)(http.HandlerFunc(s.handleFieldDelete)).ServeHTTP)

		r.Post("/data/{model}", auth.RequireMinAccess(auth.AccessEdit)(http.HandlerFunc(s.handleDataCreate)).ServeHTTP)
		r.Get("/data/{model}", s.handleDataList)
		r.Get("/data/{model}/{id}", s.handleDataRead)
		r.Put("/data/{model}/{id}", auth.RequireMinAccess(auth.AccessEdit)(http.HandlerFunc(s.handleDataUpdate)).ServeHTTP)
		r.Delete("/data/{model}/{id}", auth.RequireMinAccess(auth.AccessEdit)(http.HandlerFunc(s.handleDataDelete)).ServeHTTP)

		r.Post("/find/{model}", s.handleFind)
		r.Post("/aggregate/{model}", s.handleAggregate)

		r.Get("/history/{model}/{id}", s.handleHistoryList)
		r.Get("/history/{model}/{id}/{change_id}", s.handleHistoryRead)
	})

	s.Router.Route("/sudo", func(r chi.Router) {
		r.Use(authMW)
		r.Use(auth.RequireAuth)
		r.Use(auth.RequireRoot)
		r.Post("/tenant", s.handleTenantCreate)
		r.Get("/tenant", s.handleTenantList)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.Router.ServeHTTP(w, r) }

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	RespondOK(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.DB.Ping(ctx); err != nil {
		s.Logger.Error("readiness check: database ping failed", "error", err)
		RespondOK(w, http.StatusServiceUnavailable, map[string]string{"status": "database not ready"})
		return
	}
	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			s.Logger.Error("readiness check: redis ping failed", "error", err)
			RespondOK(w, http.StatusServiceUnavailable, map[string]string{"status": "redis not ready"})
			return
		}
	}
	RespondOK(w, http.StatusOK, map[string]string{"status": "ready"})
}

// sudoFlag reports whether the authenticated identity has root access
// (Identity.IsRoot), the "sudo" switch pkg/record.Pipeline and pkg/schema use
// to bypass system-model protection and field-level sudo gates
// (spec.md §4.2/§4.4).
func sudoFlag(ctx context.Context) bool {
	id, ok := auth.FromContext(ctx)
	return ok && id.IsRoot()
}
