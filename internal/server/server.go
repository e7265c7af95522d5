// Package server provides the HTTP interface of the tutor: control and state
// endpoints, the sign catalog API, live outcome events over WebSocket, the
// annotated camera stream and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/catalog"
	"github.com/ayusman/mudra/internal/render"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/pkg/logger"
	"github.com/ayusman/mudra/pkg/metrics"
)

// Config holds the server configuration. Routes whose dependency is nil are
// not registered.
type Config struct {
	StaticDir string
	App       *app.App
	Store     *store.Store
	Frames    *capture.FrameBuffer
	Hub       *EventHub
	Metrics   *metrics.Manager
	Logger    logger.Logger
}

// Server is the HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	log    logger.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	log := config.Logger
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		log:    log,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.handle("/api/health", http.HandlerFunc(s.handleHealth))

	if s.config.App != nil {
		s.handle("/api/state", http.HandlerFunc(s.handleState))
		s.handle("/api/next", http.HandlerFunc(s.handleNext))
		s.handle("/api/target", http.HandlerFunc(s.handleTarget))
		s.handle("/api/session", http.HandlerFunc(s.handleSession))
		s.handle("/api/camera", http.HandlerFunc(s.handleCamera))
	}

	if s.config.Store != nil {
		signs := api.NewSignHandler(s.config.Store)
		s.handle("/api/signs", signs)
		s.handle("/api/signs/", signs)
		s.handle("/api/history", api.NewHistoryHandler(s.config.Store))
	}

	if s.config.Hub != nil {
		s.handle("/api/events", s.config.Hub)
	}

	if s.config.Frames != nil {
		s.handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	if s.config.Metrics != nil {
		s.handle("/metrics", s.config.Metrics.Handler())
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

func (s *Server) handle(route string, h http.Handler) {
	s.mux.Handle(route, instrument(route, s.config.Metrics, h))
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "http server listening", logger.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.config.Hub != nil {
		s.config.Hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

type stateResponse struct {
	app.Snapshot
	Hint string `json:"hint,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) state() stateResponse {
	snap := s.config.App.Snapshot()
	resp := stateResponse{Snapshot: snap}
	if snap.Target != nil {
		resp.Hint = render.Hint(*snap.Target)
	}
	return resp
}

type signChangeResponse struct {
	Sign    catalog.Sign `json:"sign"`
	Message string       `json:"message"`
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	sign, err := s.config.App.NextSign()
	if err != nil {
		s.log.Error(r.Context(), "next sign", logger.Error(err))
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, signChangeResponse{Sign: sign, Message: render.NewChallenge(sign)})
}

type targetRequest struct {
	SignID *int `json:"sign_id"`
}

func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SignID == nil {
		writeError(w, http.StatusBadRequest, "sign_id is required")
		return
	}
	sign, err := s.config.App.SetTarget(*req.SignID)
	if errors.Is(err, catalog.ErrUnknownSign) {
		writeError(w, http.StatusNotFound, "Sign not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, signChangeResponse{Sign: sign, Message: render.NewChallenge(sign)})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	id, err := s.config.App.StartSession()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "state": s.state()})
}

type cameraRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleCamera(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req cameraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Active {
		if err := s.config.App.StartCamera(); err != nil {
			status := http.StatusServiceUnavailable
			if errors.Is(err, app.ErrNoCamera) {
				status = http.StatusNotFound
			}
			writeError(w, status, err.Error())
			return
		}
	} else {
		s.config.App.StopCamera()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": s.config.App.CameraActive()})
}
