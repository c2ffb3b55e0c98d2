// Package server exposes the move engine over HTTP and websockets.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brensch/twenty48/game"
	"github.com/brensch/twenty48/search"
)

const maxBodyBytes = 1 << 16

// InfoResponse is served at GET /.
type InfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Evaluator string `json:"evaluator"`
	Depth     string `json:"depth"`
	MemoLimit int    `json:"memo_limit"`
}

// MoveRequest carries a board as rows of tile values (0 = empty).
type MoveRequest struct {
	Board [][]int `json:"board"`
}

// MoveResponse is the engine's answer. Move is null when no direction
// changes the board. Scores lists legal directions only.
type MoveResponse struct {
	Move      *string            `json:"move"`
	Scores    map[string]float64 `json:"scores,omitempty"`
	Depth     int                `json:"depth"`
	Empty     int                `json:"empty"`
	Nodes     int                `json:"nodes"`
	MemoSize  int                `json:"memo_size"`
	ElapsedMs float64            `json:"elapsed_ms"`
}

// StatsResponse is served at GET /stats.
type StatsResponse struct {
	UptimeSeconds float64          `json:"uptime_seconds"`
	Requests      int64            `json:"requests"`
	NoMove        int64            `json:"no_move"`
	WSSessions    int64            `json:"ws_sessions"`
	Memo          search.MemoStats `json:"memo"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server holds one shared engine for HTTP requests. Websocket sessions each
// build their own engine from the same config.
type Server struct {
	config  search.Config
	logger  *slog.Logger
	version string
	started time.Time

	mu     sync.Mutex
	engine *search.Engine

	requests   atomic.Int64
	noMove     atomic.Int64
	wsSessions atomic.Int64
}

func New(config search.Config, logger *slog.Logger, version string) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	config.Logger = logger.With("component", "engine")
	engine, err := search.New(config)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return &Server{
		config:  engine.Config(),
		logger:  logger,
		version: version,
		started: time.Now(),
		engine:  engine,
	}, nil
}

// Routes returns the chi router for the server.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Post("/move", s.handleMove)
	r.Get("/ws", s.handleWS)
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	depth := "adaptive"
	if s.config.Depth > 0 {
		depth = fmt.Sprint(s.config.Depth)
	}
	writeJSON(w, http.StatusOK, InfoResponse{
		Name:      "twenty48",
		Version:   s.version,
		Evaluator: s.config.Evaluator,
		Depth:     depth,
		MemoLimit: s.engine.Memo().Limit(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	memo := s.engine.Memo().Stats()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, StatsResponse{
		UptimeSeconds: time.Since(s.started).Seconds(),
		Requests:      s.requests.Load(),
		NoMove:        s.noMove.Load(),
		WSSessions:    s.wsSessions.Load(),
		Memo:          memo,
	})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "decode request: " + err.Error()})
		return
	}
	b, err := game.FromRows(req.Board)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	s.mu.Lock()
	a := s.engine.Analyze(b)
	s.mu.Unlock()

	s.requests.Add(1)
	if !a.HasMove {
		s.noMove.Add(1)
	}
	resp := newMoveResponse(a)
	s.logger.Debug("move",
		"request_id", middleware.GetReqID(r.Context()),
		"board", b,
		"move", moveName(resp.Move),
		"depth", a.Depth,
		"nodes", a.Nodes,
		"elapsed", a.Elapsed,
	)
	writeJSON(w, http.StatusOK, resp)
}

func newMoveResponse(a search.Analysis) MoveResponse {
	resp := MoveResponse{
		Depth:     a.Depth,
		Empty:     a.Empty,
		Nodes:     a.Nodes,
		MemoSize:  a.MemoSize,
		ElapsedMs: float64(a.Elapsed.Microseconds()) / 1000,
	}
	if a.HasMove {
		name := a.Move.String()
		resp.Move = &name
	}
	for _, dir := range game.Directions {
		if !a.Legal[dir] {
			continue
		}
		if resp.Scores == nil {
			resp.Scores = make(map[string]float64, 4)
		}
		score := a.Scores[dir]
		// JSON has no infinities; a legal move whose every future is stuck
		// reports the lowest finite value instead.
		if math.IsInf(score, -1) {
			score = -math.MaxFloat64
		}
		resp.Scores[dir.String()] = score
	}
	return resp
}

func moveName(m *string) string {
	if m == nil {
		return "none"
	}
	return *m
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start),
			)
		})
	}
}
