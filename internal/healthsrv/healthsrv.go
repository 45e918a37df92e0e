// Package healthsrv is the process's liveness and metrics listener: two
// undocumented routes, no dashboard, no public API surface. Reuses the
// same logging and metrics middleware the API server would.
package healthsrv

import (
	"context"
	"database/sql"
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"stormlightlabs.org/mlbedge/internal/middleware"
)

// Pinger is satisfied by *store.Store (which embeds *sql.DB); kept as an
// interface here so healthsrv does not import internal/store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server is the health/metrics HTTP listener.
type Server struct {
	httpServer *http.Server
	log        *log.Logger
}

// Status is the /healthz response body.
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Version  string `json:"version"`
}

// New builds a health server bound to addr. db is pinged on every
// /healthz request; version is an arbitrary build identifier surfaced
// for operators tailing logs during a deploy.
func New(addr string, db Pinger, version string, logger *log.Logger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler(db, version))
	mux.Handle("/debug/vars", expvar.Handler())

	var handler http.Handler = mux
	handler = middleware.MetricsMiddleware(nil)(handler)
	handler = middleware.Logger(logger)(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger,
	}
}

func healthHandler(db Pinger, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := Status{OK: true, Database: "ok", Version: version}
		code := http.StatusOK

		if err := db.PingContext(ctx); err != nil {
			status.OK = false
			status.Database = "unreachable"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}

// ListenAndServe blocks serving health/metrics traffic until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("health server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("health server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

var _ Pinger = (*sql.DB)(nil)
