// Package server provides the HTTP status API and live telemetry for mimic.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/mimic/internal/app"
	"github.com/ayusman/mimic/internal/server/api"
	"github.com/ayusman/mimic/internal/store"
)

// Controller is the running application. *app.App implements it.
type Controller interface {
	api.Controller
	Latest() app.Frame
}

// Config holds the server configuration. Every field is optional; routes
// whose dependencies are missing are not registered.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Controller Controller
	Telemetry  *TelemetryHub
}

// Server is the HTTP server of the application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Controller != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.HandleFunc("/api/actuation", s.handleActuation)

		calibrationHandler := api.NewCalibrationHandler(s.config.Controller)
		s.mux.Handle("/api/calibration", calibrationHandler)
		s.mux.Handle("/api/calibration/", calibrationHandler)
	}

	if s.config.Store != nil {
		var ctrl api.Controller
		if s.config.Controller != nil {
			ctrl = s.config.Controller
		}
		profileHandler := api.NewProfileHandler(s.config.Store, ctrl)
		s.mux.Handle("/api/profiles", profileHandler)
		s.mux.Handle("/api/profiles/", profileHandler)
	}

	if s.config.Telemetry != nil {
		s.mux.Handle("/api/telemetry", s.config.Telemetry)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

type statusResponse struct {
	Enabled     bool      `json:"enabled"`
	Calibration string    `json:"calibration"`
	Session     string    `json:"session,omitempty"`
	Frame       app.Frame `json:"frame"`
}

// handleStatus handles GET /api/status with the latest processed frame.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{
		Enabled:     s.config.Controller.IsEnabled(),
		Calibration: s.config.Controller.CalibrationState().String(),
		Frame:       s.config.Controller.Latest(),
	}
	if s.config.Telemetry != nil {
		resp.Session = s.config.Telemetry.Session()
	}
	writeJSON(w, http.StatusOK, resp)
}

type actuationRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleActuation reads (GET) or sets (POST {"enabled": bool}) whether the
// frame loop drives the hand.
func (s *Server) handleActuation(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req actuationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "enabled is required"})
			return
		}
		s.config.Controller.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.config.Controller.IsEnabled()})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s.config.Telemetry != nil {
			s.config.Telemetry.Close()
		}
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
