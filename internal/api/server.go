package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"menu-planner/internal/auth"
	"menu-planner/internal/backend"
	"menu-planner/internal/docs"
	"menu-planner/internal/menu"
	"menu-planner/internal/metrics"
	"menu-planner/internal/notify"
	"menu-planner/internal/recipe"
)

// Server wires the HTTP surface over the domain services.
type Server struct {
	auth     *auth.Service
	menus    *menu.Repository
	gen      *recipe.Generator
	docs     *docs.Generator
	importer *recipe.Importer
	health   *backend.HealthMonitor
	metrics  *metrics.Store
	notifier *notify.Notifier
	dataDir  string
	sessions sessionRegistry
}

// NewServer creates the API server.
func NewServer(
	authService *auth.Service,
	menuRepo *menu.Repository,
	generator *recipe.Generator,
	docGenerator *docs.Generator,
	importer *recipe.Importer,
	health *backend.HealthMonitor,
	metricsStore *metrics.Store,
	notifier *notify.Notifier,
	dataDir string,
) *Server {
	return &Server{
		auth:     authService,
		menus:    menuRepo,
		gen:      generator,
		docs:     docGenerator,
		importer: importer,
		health:   health,
		metrics:  metricsStore,
		notifier: notifier,
		dataDir:  dataDir,
	}
}

// Routes constructs the chi router containing all API endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(countRequests)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/auth/refresh", s.handleRefresh)
			r.Get("/auth/profile", s.handleGetProfile)
			r.Put("/auth/profile", s.handleUpdateProfile)

			r.Get("/menus", s.handleListMenus)
			r.Post("/menus", s.handleSaveMenu)
			r.Get("/menus/{id}", s.handleGetMenu)
			r.Put("/menus/{id}", s.handleSaveMenu)
			r.Delete("/menus/{id}", s.handleDeleteMenu)
			r.Post("/menus/{id}/complete", s.handleCompletePlanning)
			r.Post("/menus/{id}/reopen", s.handleReopenPlanning)
			r.Get("/menus/{id}/documents", s.handleListDocuments)

			r.Post("/generate/recipe", s.handleGenerateRecipe)
			r.Post("/generate/menu", s.handleGenerateMenu)
			r.Post("/generate/documents", s.handleGenerateDocuments)
			r.Post("/import/recipe", s.handleImportRecipe)

			r.Get("/usage", s.handleUsage)
		})
	})

	return r
}

// countRequests records per-route request counts keyed by the matched chi
// route pattern, not the raw path, to keep label cardinality bounded.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	})
}

// handleUsage reports model token consumption for the last week.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, map[string]any{"usage": []any{}})
		return
	}
	usage, err := s.metrics.GetDailyUsage(7)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"usage": usage})
}

// handleHealth reports backend reachability using the bounded window
// predicate plus a process health snapshot.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sys := metrics.GetSysHealth(s.dataDir)
	respondJSON(w, http.StatusOK, map[string]any{
		"healthy":      s.health.IsHealthy(),
		"last_success": s.health.LastSuccess(),
		"goroutines":   sys.Goroutines,
		"alloc_mb":     sys.AllocMB,
		"cache_size":   sys.CacheSize,
	})
}
