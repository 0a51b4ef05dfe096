package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"sideline/internal/api"
	"sideline/internal/config"
	"sideline/internal/ingest"
	"sideline/internal/logging"
	"sideline/internal/services"
)

const (
	coachHeader = "X-Coach-ID"
	orgHeader   = "X-Org-ID"

	maxUploadBytes = 64 << 20
	maxJSONBytes   = 1 << 20
)

type apiServer struct {
	bind     string
	inboxDir string
	logger   *slog.Logger
	daemon   *Daemon
	handler  http.Handler

	mu       sync.Mutex
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
		bind:   bind,
		logger: logger,
		daemon: d,
	}
	if cfg.Inbox.Enabled {
		srv.inboxDir = cfg.Paths.InboxDir
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("POST /api/artifacts", srv.handleSubmit)
	mux.HandleFunc("GET /api/artifacts/{id}", srv.handleArtifact)
	mux.HandleFunc("POST /api/artifacts/{id}/retry", srv.handleRetry)
	mux.HandleFunc("POST /api/artifacts/{id}/drafts/confirm", srv.handleArtifactDrafts(d.service.ConfirmAll))
	mux.HandleFunc("POST /api/artifacts/{id}/drafts/reject", srv.handleArtifactDrafts(d.service.RejectAll))
	mux.HandleFunc("GET /api/drafts", srv.handlePendingDrafts)
	mux.HandleFunc("POST /api/drafts/{id}/confirm", srv.handleDraft(d.service.ConfirmDraft))
	mux.HandleFunc("POST /api/drafts/{id}/reject", srv.handleDraft(d.service.RejectDraft))
	mux.HandleFunc("POST /api/drafts/{id}/apply", srv.handleApply)
	mux.HandleFunc("POST /api/claims/{id}/disambiguate", srv.handleDisambiguate)
	mux.HandleFunc("GET /api/coaches/{coach}/stats", srv.handleCoachStats)
	srv.handler = authMiddleware(strings.TrimSpace(cfg.Paths.APIToken), mux.ServeHTTP)

	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

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

	s.log().Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
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
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Providers:    status.Providers,
		InboxDir:     s.inboxDir,
		Workflow:     api.FromStatusSummary(status.Workflow),
	})
}

// handleSubmit accepts either a JSON typed note or a multipart form with an
// "audio" file part.
func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	coachID := r.Header.Get(coachHeader)
	sub := ingest.Submission{CoachID: coachID, OrgID: orgID(r), Channel: "api"}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile("audio")
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "audio file part is required")
			return
		}
		defer file.Close()
		if org := strings.TrimSpace(r.FormValue("orgId")); org != "" {
			sub.OrgID = org
		}
		if channel := strings.TrimSpace(r.FormValue("channel")); channel != "" {
			sub.Channel = channel
		}
		sub.Audio = file
		sub.AudioName = header.Filename
	} else {
		var req api.SubmitRequest
		if !s.decode(w, r, &req) {
			return
		}
		if org := strings.TrimSpace(req.OrgID); org != "" {
			sub.OrgID = org
		}
		if channel := strings.TrimSpace(req.Channel); channel != "" {
			sub.Channel = channel
		}
		sub.Transcript = req.Transcript
	}

	resp, err := s.daemon.service.Submit(r.Context(), sub)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *apiServer) handleArtifact(w http.ResponseWriter, r *http.Request) {
	coachID, ok := s.coach(w, r)
	if !ok {
		return
	}
	detail, err := s.daemon.service.Artifact(r.Context(), r.PathValue("id"), coachID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	coachID, ok := s.coach(w, r)
	if !ok {
		return
	}
	resp, err := s.daemon.service.RetryArtifact(r.Context(), r.PathValue("id"), coachID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.daemon.workflow.Wake()
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleArtifactDrafts(fn func(context.Context, string, string) ([]api.Draft, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coachID, ok := s.coach(w, r)
		if !ok {
			return
		}
		list, err := fn(r.Context(), r.PathValue("id"), coachID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if list == nil {
			list = []api.Draft{}
		}
		s.writeJSON(w, http.StatusOK, api.DraftListResponse{Drafts: list})
	}
}

func (s *apiServer) handlePendingDrafts(w http.ResponseWriter, r *http.Request) {
	coachID, ok := s.coach(w, r)
	if !ok {
		return
	}
	list, err := s.daemon.service.PendingDrafts(r.Context(), orgID(r), coachID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []api.Draft{}
	}
	s.writeJSON(w, http.StatusOK, api.DraftListResponse{Drafts: list})
}

func (s *apiServer) handleDraft(fn func(context.Context, string, string) (api.Draft, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coachID, ok := s.coach(w, r)
		if !ok {
			return
		}
		draft, err := fn(r.Context(), r.PathValue("id"), coachID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, draft)
	}
}

func (s *apiServer) handleApply(w http.ResponseWriter, r *http.Request) {
	coachID, ok := s.coach(w, r)
	if !ok {
		return
	}
	insight, err := s.daemon.service.ApplyDraft(r.Context(), r.PathValue("id"), coachID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, insight)
}

func (s *apiServer) handleDisambiguate(w http.ResponseWriter, r *http.Request) {
	coachID, ok := s.coach(w, r)
	if !ok {
		return
	}
	var req api.DisambiguateRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.daemon.service.Disambiguate(r.Context(), r.PathValue("id"), coachID, req.PlayerID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleCoachStats only serves the caller's own statistics.
func (s *apiServer) handleCoachStats(w http.ResponseWriter, r *http.Request) {
	coachID, ok := s.coach(w, r)
	if !ok {
		return
	}
	if r.PathValue("coach") != coachID {
		s.writeError(w, http.StatusForbidden, "coaches may only read their own statistics")
		return
	}
	stats, err := s.daemon.service.CoachStats(r.Context(), orgID(r), coachID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *apiServer) coach(w http.ResponseWriter, r *http.Request) (string, bool) {
	coachID := strings.TrimSpace(r.Header.Get(coachHeader))
	if coachID == "" {
		s.writeError(w, http.StatusBadRequest, coachHeader+" header is required")
		return "", false
	}
	return coachID, true
}

func orgID(r *http.Request) string {
	if org := strings.TrimSpace(r.Header.Get(orgHeader)); org != "" {
		return org
	}
	return strings.TrimSpace(r.URL.Query().Get("org"))
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBytes)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	code := api.StatusCode(err)
	if code >= http.StatusInternalServerError {
		s.log().Error("api request failed", logging.Error(err))
	}
	message := err.Error()
	if errors.Is(err, services.ErrNotFound) {
		message = "not found"
	}
	s.writeError(w, code, message)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Warn("api encode failed", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.NewNop()
}
