package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"job-scorer/internal/scorer"

	"go.uber.org/zap"
)

// Runner executes one scoring batch.
type Runner interface {
	Run(ctx context.Context) (*scorer.Result, error)
}

// Server exposes the batch trigger endpoint. POST starts a run, OPTIONS
// answers CORS preflight, everything else is rejected.
type Server struct {
	runner         Runner
	allowedOrigins []string
	logger         *zap.Logger
	httpServer     *http.Server
}

type response struct {
	Success bool       `json:"success"`
	Data    *batchData `json:"data,omitempty"`
	Error   string     `json:"error,omitempty"`
}

type batchData struct {
	RequestID              string `json:"request_id"`
	ProcessedJobs          int    `json:"processed_jobs"`
	ScoredAnalyses         int    `json:"scored_analyses"`
	FailedJobs             int    `json:"failed_jobs"`
	NotificationsTriggered int    `json:"notifications_triggered"`
	DurationMS             int64  `json:"duration_ms"`
}

func New(addr string, runner Runner, allowedOrigins []string, logger *zap.Logger) *Server {
	s := &Server{
		runner:         runner,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/score/run", s.handleRun)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Minute, // a batch run happens inside the request
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin != "" && !s.originAllowed(origin) {
		s.logger.Warn("rejected request from disallowed origin", zap.String("origin", origin))
		writeJSON(w, http.StatusForbidden, response{Success: false, Error: "origin not allowed"})
		return
	}
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}

	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, response{Success: false, Error: "method not allowed"})
		return
	}

	result, err := s.runner.Run(r.Context())
	if err != nil {
		s.logger.Error("batch run failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, response{Success: false, Error: "batch run failed"})
		return
	}

	data := &batchData{
		RequestID:              result.RequestID,
		ProcessedJobs:          result.ProcessedJobs,
		ScoredAnalyses:         result.ScoredAnalyses,
		FailedJobs:             result.FailedJobs,
		NotificationsTriggered: result.NotificationsTriggered,
		DurationMS:             result.Duration.Milliseconds(),
	}

	status := http.StatusOK
	if result.Partial() {
		status = http.StatusMultiStatus
	}

	writeJSON(w, status, response{Success: true, Data: data})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, code int, v response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
