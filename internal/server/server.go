package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dyluth/bandstand/internal/tracker"
	"github.com/dyluth/bandstand/pkg/realtime"
	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// View is the live state the server publishes. *tracker.View satisfies it.
type View interface {
	Snapshot() tracker.ViewState
	Changes() <-chan struct{}
	AddSample(ctx context.Context) (realtime.Record, error)
}

// Server exposes a mounted view over HTTP:
//
//	GET  /healthz  store connectivity and view phase
//	GET  /state    the current ViewState as JSON
//	GET  /ws       a websocket receiving the ViewState after every change
//	POST /samples  inserts a random sample instrument
type Server struct {
	pinger Pinger
	view   View
	hub    *hub

	mu     sync.Mutex
	server *http.Server
	addr   string
}

// New creates a server for view. Call Start to listen and Run to publish changes.
func New(pinger Pinger, view View) *Server {
	return &Server{
		pinger: pinger,
		view:   view,
		hub:    newHub(view),
	}
}

// Handler returns the routed HTTP handler with request logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(logRequests)

	r.HandleFunc("/healthz", s.healthCheckHandler).Methods(http.MethodGet)
	r.HandleFunc("/state", s.stateHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.hub.serveWS).Methods(http.MethodGet)
	r.HandleFunc("/samples", s.addSampleHandler).Methods(http.MethodPost)

	return r
}

// Start listens on addr and serves in the background. Use ":0" for a random port.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 5 * time.Second,
		// Websocket connections clear this deadline when they are upgraded
		WriteTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.addr = listener.Addr().String()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Server] HTTP server error: %v", err)
		}
	}()

	log.Printf("[Server] Listening on %s", listener.Addr())
	return nil
}

// Addr returns the address the server is listening on, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run forwards view changes to every websocket viewer until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.hub.closeAll()
			return
		case <-s.view.Changes():
			s.hub.broadcast()
		}
	}
}

// Shutdown gracefully shuts down the HTTP server and disconnects viewers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// HealthResponse is the JSON response structure for health checks.
type HealthResponse struct {
	Status string        `json:"status"`
	Redis  string        `json:"redis,omitempty"`
	Phase  tracker.Phase `json:"phase"`
	Error  string        `json:"error,omitempty"`
}

// healthCheckHandler returns 200 OK if Redis is accessible and the view is ready,
// 503 Service Unavailable otherwise.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status: "healthy",
		Redis:  "connected",
		Phase:  s.view.Snapshot().Phase,
	}
	status := http.StatusOK

	if err := s.pinger.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Redis = "disconnected"
		response.Error = err.Error()
		status = http.StatusServiceUnavailable
	} else if response.Phase != tracker.PhaseReady {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, response)
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.view.Snapshot())
}

func (s *Server) addSampleHandler(w http.ResponseWriter, r *http.Request) {
	record, err := s.view.AddSample(r.Context())
	if err != nil && record.ID == 0 {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	// The insert landed even if the activity broadcast failed
	writeJSON(w, http.StatusCreated, record)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] Failed to write response: %v", err)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		log.Printf("[Server] %s %s %d %s", r.Method, r.URL.Path, m.Code, m.Duration)
	})
}
