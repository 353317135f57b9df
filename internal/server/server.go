// Package server exposes the simulator over HTTP: one route per control
// operation, all backed by the simulator's own internal mutex so no
// additional locking is needed at this layer.
package server

import (
	"encoding/json"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/legsim/legsim/internal/simulator"
	"github.com/legsim/legsim/web"
)

// Server wraps a Simulator with its HTTP router.
type Server struct {
	sim    *simulator.Simulator
	logger *log.Logger
	router *mux.Router
}

// New builds a Server routing the full control surface over sim.
func New(sim *simulator.Simulator, logger *log.Logger) *Server {
	s := &Server{sim: sim, logger: logger, router: mux.NewRouter()}
	s.router.Use(s.logRequest)
	s.routes()
	return s
}

// ServeHTTP lets Server itself act as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// logRequest logs every request's method, path, and duration through the
// same logger the CLI uses — no separate logging framework.
func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) routes() {
	s.router.HandleFunc("/step", s.handleStep).Methods(http.MethodGet)
	s.router.HandleFunc("/run", s.handleRun).Methods(http.MethodGet)
	s.router.HandleFunc("/reset", s.handleReset).Methods(http.MethodGet)
	s.router.HandleFunc("/flash", s.handleFlash).Methods(http.MethodPost)
	s.router.HandleFunc("/registers", s.handleRegisters).Methods(http.MethodGet)
	s.router.HandleFunc("/registers/status", s.handleRegisterStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/memory/size", s.handleMemorySize).Methods(http.MethodGet)
	s.router.HandleFunc("/memory/line/{n}", s.handleMemoryLine).Methods(http.MethodGet)
	s.router.HandleFunc("/processor/pipeline", s.handlePipeline).Methods(http.MethodGet)
	s.router.HandleFunc("/processor/pipeline/status", s.handlePipelineStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/cycles", s.handleCycles).Methods(http.MethodGet)
	s.router.HandleFunc("/refresh/{line}", s.handleRefresh).Methods(http.MethodGet)

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		panic(err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("server: failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("server: %v", err)
	http.Error(w, err.Error(), status)
}

// handleStep reports a fatal pipeline error as a 500 with the message as
// body; an ordinary HLT retirement (alive=false, Err()==nil) is still a
// 200 — it's the core that halted, not the request.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	alive := s.sim.Step()
	if err := s.sim.Err(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, map[string]any{"alive": alive})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	s.sim.Run()
	if err := s.sim.Err(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, map[string]any{"cycles": s.sim.Cycles()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.sim.Reset()
	s.writeJSON(w, map[string]string{"status": "reset"})
}

type flashRequest struct {
	Program string `json:"program"`
}

func (s *Server) handleFlash(w http.ResponseWriter, r *http.Request) {
	var req flashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.sim.Flash(req.Program); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, map[string]string{"status": "flashed"})
}

func (s *Server) handleRegisters(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.sim.Registers())
}

func (s *Server) handleRegisterStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.sim.RegisterStatus())
}

func (s *Server) handleMemorySize(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.sim.MemorySize())
}

func (s *Server) handleMemoryLine(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, s.sim.MemoryLine(n))
}

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.sim.Pipeline())
}

func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	view := s.sim.Pipeline()
	statuses := make([]string, len(view))
	for i, st := range view {
		statuses[i] = st.Status.String()
	}
	s.writeJSON(w, statuses)
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]int64{"cycles": s.sim.Cycles()})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["line"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, map[string]any{
		"registers":        s.sim.Registers(),
		"registers_status": s.sim.RegisterStatus(),
		"memory_size":      s.sim.MemorySize(),
		"memory_line":      s.sim.MemoryLine(n),
		"pipeline":         s.sim.Pipeline(),
		"cycles":           s.sim.Cycles(),
	})
}
