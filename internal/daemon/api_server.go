package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"qbridge/internal/api"
	"qbridge/internal/logging"
)

const requestIDHeader = "X-Request-ID"

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	router chi.Router

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind string, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(bind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	router := chi.NewRouter()
	router.Use(srv.requestID)
	router.Use(d.metrics.InstrumentHandler)

	router.Get("/api/questions", srv.handleListQuestions)
	router.Put("/api/questions/{id}/answer", srv.handleAnswer)
	router.Get(api.WatchPath, srv.handleWatch)
	router.Get("/api/status", srv.handleStatus)
	router.Method(http.MethodGet, "/metrics", d.metrics.Handler())

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		srv.writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		srv.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	srv.router = router
	return srv
}

// start listens on the configured bind address. An empty bind leaves the API
// disabled. Requests inherit ctx so long-lived change feeds end with it.
func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}

	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the bind address is free"),
			)
		}
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	listener := s.listener
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	items, err := s.daemon.ListQuestions(r.Context())
	if err != nil {
		s.writeQuestionsError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *apiServer) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid question id")
		return
	}
	var answer api.Answer
	if err := json.NewDecoder(r.Body).Decode(&answer); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid answer body: %v", err))
		return
	}
	if err := s.daemon.SubmitAnswer(r.Context(), uint32(id), answer); err != nil {
		s.writeQuestionsError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, statusPayload(s.daemon.Status(r.Context())))
}

func statusPayload(status Status) api.DaemonStatus {
	return api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		LockFilePath: status.LockFilePath,
		APIAddress:   status.APIAddress,
		Bus:          status.Bus,
		Service:      status.Service,
		RootPath:     status.RootPath,
		StartedAt:    api.FormatTimestamp(status.StartedAt),
		Watchers:     status.Watchers,
	}
}

func (s *apiServer) writeQuestionsError(w http.ResponseWriter, r *http.Request, err error) {
	qerr := &api.QuestionsError{Err: err}
	logging.WithContext(r.Context(), s.logger).Warn("question request failed",
		logging.String(logging.FieldEventType, "question_request_failed"),
		logging.String("method", r.Method),
		logging.String("path", r.URL.Path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the question may have been answered or withdrawn"),
		logging.String(logging.FieldImpact, "client receives HTTP 400"),
	)
	s.writeError(w, http.StatusBadRequest, qerr.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
