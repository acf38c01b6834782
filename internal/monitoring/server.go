// internal/monitoring/server.go
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/CatalogSync/internal/reconcile"
	"github.com/valpere/CatalogSync/internal/utils"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes health, metrics, and run status over HTTP while a
// reconciliation run is in progress.
type Server struct {
	httpServer *http.Server
	registry   *prometheus.Registry
	store      Pinger
	logger     utils.Logger

	mu         sync.RWMutex
	lastReport *reconcile.Report
	started    time.Time
}

// NewServer builds the monitoring server. The registry must be the one
// the pipeline metrics were registered on.
func NewServer(addr string, registry *prometheus.Registry, store Pinger) *Server {
	s := &Server{
		registry: registry,
		store:    store,
		logger:   utils.NewComponentLogger("monitoring"),
		started:  time.Now(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start serves in a background goroutine until Shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.WithField("address", s.httpServer.Addr).Info("monitoring server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("monitoring server failed: %v", err)
		}
	}()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// SetReport publishes the latest run report on /status.
func (s *Server) SetReport(report *reconcile.Report) {
	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	type componentHealth struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}

	health := struct {
		Status     string                     `json:"status"`
		Uptime     string                     `json:"uptime"`
		Components map[string]componentHealth `json:"components"`
	}{
		Status:     "healthy",
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Components: map[string]componentHealth{},
	}

	code := http.StatusOK
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["database"] = componentHealth{Status: "unhealthy", Error: err.Error()}
			code = http.StatusServiceUnavailable
		} else {
			health.Components["database"] = componentHealth{Status: "healthy"}
		}
	}

	writeJSON(w, code, health)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	report := s.lastReport
	s.mu.RUnlock()

	if report == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no completed runs"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
