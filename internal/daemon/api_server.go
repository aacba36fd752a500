package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ttm/internal/api"
	"ttm/internal/config"
	"ttm/internal/logging"
	"ttm/internal/report"
	"ttm/internal/services"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	backend api.Backend
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:    bind,
		logger:  logger,
		daemon:  d,
		backend: d.Backend(),
	}
	srv.handler = srv.routes(cfg.Paths.APIToken)
	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, authMiddleware(token, h))
	}

	handle("GET /api/status", s.handleStatus)
	handle("GET /api/health", s.handleHealth)
	handle("GET /api/projects", s.handleListProjects)
	handle("POST /api/projects", s.handleAddProject)
	handle("POST /api/projects/{ref}/{action}", s.handleProjectAction)
	handle("DELETE /api/projects/{ref}", s.handleDeleteProject)
	handle("GET /api/timers", s.handleRunning)
	handle("POST /api/timers/stop-all", s.handleStopAll)
	handle("POST /api/timers/{ref}/{action}", s.handleTimerAction)
	handle("POST /api/slots/{index}/toggle", s.handleSlotToggle)
	handle("GET /api/today", s.handleToday)
	handle("GET /api/history", s.handleHistory)
	handle("GET /api/export", s.handleExport)
	handle("POST /api/reset", s.handleReset)

	return s.withRequestContext(mux)
}

// withRequestContext tags each request with a correlation ID and origin.
func (s *apiServer) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		origin := strings.TrimSpace(r.Header.Get("X-TTM-Origin"))
		if origin == "" {
			origin = "api"
		}
		ctx := services.WithRequestID(r.Context(), requestID)
		ctx = services.WithOrigin(ctx, origin)
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logging.WithContext(ctx, s.log()).Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Duration("duration", time.Since(start)),
		)
	})
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      st.Running,
		PID:          st.PID,
		DatabasePath: st.DatabasePath,
		LockFilePath: st.LockFilePath,
		APIBind:      st.APIAddress,
		Status:       st.Snapshot,
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.daemon.DatabaseHealth(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, health)
}

func (s *apiServer) handleListProjects(w http.ResponseWriter, r *http.Request) {
	includeArchived := truthy(r.URL.Query().Get("archived"))
	projects, err := s.backend.Projects(r.Context(), includeArchived)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ProjectListResponse{Projects: projects})
}

func (s *apiServer) handleAddProject(w http.ResponseWriter, r *http.Request) {
	var req api.ProjectRequest
	if !s.decode(w, r, &req) {
		return
	}
	project, err := s.backend.AddProject(r.Context(), req.Name, req.Color)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.ProjectResponse{Project: project})
}

func (s *apiServer) handleProjectAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := r.PathValue("ref")
	switch r.PathValue("action") {
	case "rename":
		var req api.RenameRequest
		if !s.decode(w, r, &req) {
			return
		}
		s.writeProject(w, func() (any, error) { return s.backend.RenameProject(ctx, ref, req.Name) })
	case "color":
		var req api.ColorRequest
		if !s.decode(w, r, &req) {
			return
		}
		s.writeProject(w, func() (any, error) { return s.backend.SetColor(ctx, ref, req.Color) })
	case "archive":
		s.writeProject(w, func() (any, error) { return s.backend.SetArchived(ctx, ref, true) })
	case "unarchive":
		s.writeProject(w, func() (any, error) { return s.backend.SetArchived(ctx, ref, false) })
	case "reset":
		removed, err := s.backend.ResetProject(ctx, ref)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ResetResponse{Removed: removed})
	default:
		s.writeError(w, http.StatusNotFound, "unknown project action")
	}
}

func (s *apiServer) writeProject(w http.ResponseWriter, op func() (any, error)) {
	result, err := op()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"project": result})
}

func (s *apiServer) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.backend.DeleteProject(r.Context(), r.PathValue("ref"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ProjectResponse{Project: project})
}

func (s *apiServer) handleRunning(w http.ResponseWriter, r *http.Request) {
	entries, err := s.backend.Running(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.EntriesResponse{Entries: entries})
}

func (s *apiServer) handleStopAll(w http.ResponseWriter, r *http.Request) {
	entries, err := s.backend.StopAll(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.EntriesResponse{Entries: entries})
}

func (s *apiServer) handleTimerAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := r.PathValue("ref")
	var (
		result any
		err    error
	)
	switch r.PathValue("action") {
	case "start":
		result, err = s.backend.Start(ctx, ref)
	case "stop":
		result, err = s.backend.Stop(ctx, ref)
	case "toggle":
		result, err = s.backend.Toggle(ctx, ref)
	default:
		s.writeError(w, http.StatusNotFound, "unknown timer action")
		return
	}
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleSlotToggle(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "slot index must be an integer")
		return
	}
	ctx := services.WithOrigin(r.Context(), "slot")
	tr, err := s.backend.ToggleSlot(ctx, index)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tr)
}

func (s *apiServer) handleToday(w http.ResponseWriter, r *http.Request) {
	summary, err := s.backend.Today(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	days := 0
	if value := strings.TrimSpace(r.URL.Query().Get("days")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = parsed
	}
	history, err := s.backend.History(r.Context(), days)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, history)
}

func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	var buf bytes.Buffer
	if err := s.backend.Export(r.Context(), &buf, format); err != nil {
		s.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *apiServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.ResetAll(r.Context()); err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(out); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeErr(w http.ResponseWriter, err error) {
	code := services.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		s.log().Error("api request failed", logging.Error(err))
	}
	s.writeError(w, code, err.Error())
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}

func truthy(value string) bool {
	value = strings.TrimSpace(value)
	return value == "1" || strings.EqualFold(value, "true") || strings.EqualFold(value, "yes")
}
