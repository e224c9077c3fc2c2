// Package httpapi exposes the published endpoint map and resolver status
// over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hamed0406/endpointresolver/internal/domain"
	apimw "github.com/hamed0406/endpointresolver/internal/httpapi/middleware"
	"github.com/hamed0406/endpointresolver/internal/logging"
	"github.com/hamed0406/endpointresolver/internal/publish"
	"github.com/hamed0406/endpointresolver/internal/resolve"
)

// Resolver is the part of resolve.Resolver the API drives.
type Resolver interface {
	RunOnce(ctx context.Context) domain.ServiceConfigMap
	State() resolve.State
}

// DefaultRefreshTimeout bounds a manual refresh cycle.
const DefaultRefreshTimeout = 2 * time.Minute

// CallURLs returns the current call-service endpoints.
type CallURLs interface {
	URLs(ctx context.Context) []string
}

type Server struct {
	Logger   *zap.Logger
	Local    *publish.LocalCache
	Resolver Resolver
	Calls    CallURLs
	Known    []string
	Gatherer prometheus.Gatherer

	RefreshTimeout time.Duration
}

func NewServer(l *zap.Logger, local *publish.LocalCache, res Resolver, calls CallURLs, known []string, g prometheus.Gatherer) *Server {
	return &Server{
		Logger:   logging.OrNop(l),
		Local:    local,
		Resolver: res,
		Calls:    calls,
		Known:    known,
		Gatherer: g,

		RefreshTimeout: DefaultRefreshTimeout,
	}
}

// Router builds the handler tree. Reads are rate limited per client IP;
// POST /api/refresh needs an admin key.
func (s *Server) Router(keys apimw.Keys, publicRPM, publicBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", s.handleHealth)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(publicRPM, publicBurst))
			r.Use(apimw.RequireAny(keys))
			r.Get("/services", s.handleServices)
			r.Get("/services/{name}", s.handleService)
			r.Get("/call-urls", s.handleCallURLs)
		})
		r.With(apimw.RequireAdmin(keys)).Post("/refresh", s.handleRefresh)
	})
	return r
}

type healthResponse struct {
	State     string `json:"state"`
	Published bool   `json:"published"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := healthResponse{State: resolve.StateIdle.String()}
	if s.Resolver != nil {
		h.State = s.Resolver.State().String()
	}
	if s.Local != nil {
		h.Published = s.Local.Ready()
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	m := s.Local.Snapshot()
	if m == nil {
		m = domain.ServiceConfigMap{}
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleService(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !slices.Contains(s.Known, name) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown service"})
		return
	}
	eps, ok := s.Local.Service(name)
	if !ok || eps == nil {
		eps = []domain.ResolvedEndpoint{}
	}
	writeJSON(w, http.StatusOK, eps)
}

func (s *Server) handleCallURLs(w http.ResponseWriter, r *http.Request) {
	urls := []string{}
	if s.Calls != nil {
		if got := s.Calls.URLs(r.Context()); got != nil {
			urls = got
		}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"serviceUrls": urls})
}

// handleRefresh runs the cycle detached from the request, so a client that
// goes away does not cut the probes short.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	timeout := s.RefreshTimeout
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
	defer cancel()

	m := s.Resolver.RunOnce(ctx)
	if m == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no map published"})
		return
	}
	s.Logger.Info("manual_refresh", zap.Int("services", len(m)))
	writeJSON(w, http.StatusOK, m)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
