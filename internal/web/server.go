package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/calvinalkan/tillbook/internal/config"
	"github.com/calvinalkan/tillbook/internal/store"
	"github.com/calvinalkan/tillbook/pkg/kit"
)

// Server bundles the handlers' shared dependencies. Catalog and Ledger
// coordinate through file locks, so one Server is safe for concurrent
// requests.
type Server struct {
	Log     *zap.Logger
	Config  config.Config
	Catalog *store.Catalog
	Ledger  *store.Ledger
	IDs     *store.IDGenerator
	JWT     *TokenMaker
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/auth/whoami", s.handleWhoAmI)

		r.Get("/products", s.handleListProducts)
		r.Post("/products", s.handleCreateProduct)
		r.Get("/products/{sku}", s.handleGetProduct)
		r.Post("/products/search", s.handleSearchProducts)

		r.Post("/sales", s.handleCreateSale)
		r.Get("/sales/{id}", s.handleGetSale)

		r.Get("/reports/daily", s.handleDailyReport)
	})

	return r
}

// HTTPDeps configures the outer middleware stack around [Server.Routes].
type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsToken string
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))

	if deps.Registry != nil {
		metrics := kit.NewMetrics(deps.Registry)
		r.Use(metrics.Middleware(deps.Service, kit.RoutePatternOrPath))

		r.With(kit.MetricsAuth(deps.MetricsToken)).
			Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Mount("/", s.Routes())
	return r
}
