package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"herald/internal/api"
	"herald/internal/approvals"
	"herald/internal/campaign"
	"herald/internal/config"
	"herald/internal/logging"
	"herald/internal/report"
	"herald/internal/services"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		token:  cfg.Paths.APIToken,
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", srv.guard(srv.handleHealth))
	mux.HandleFunc("/api/campaigns", srv.guard(srv.handleCampaigns))
	mux.HandleFunc("/api/campaigns/", srv.guard(srv.handleCampaignStatus))
	mux.HandleFunc("/api/approvals/", srv.guard(srv.handleApprovals))
	mux.HandleFunc("/api/send/", srv.guard(srv.handleSend))
	mux.HandleFunc("/api/reports/", srv.guard(srv.handleReport))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) guard(next http.HandlerFunc) http.HandlerFunc {
	return authMiddleware(s.token, next)
}

func (s *apiServer) start(ctx context.Context) error {
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

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Health(r.Context()))
}

func (s *apiServer) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var submission campaign.Submission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid submission payload: "+err.Error())
		return
	}
	job, err := s.daemon.workflow.Submit(r.Context(), submission)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	var statuses []campaign.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, err := campaign.ParseStatus(trimmed)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		statuses = append(statuses, status)
	}

	jobs, err := s.daemon.ListJobs(r.Context(), statuses)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(jobs)})
}

func (s *apiServer) handleCampaignStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/campaigns/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "campaign not found")
		return
	}
	job, err := s.daemon.store.GetJob(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "campaign not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.StatusFromJob(job))
}

func (s *apiServer) handleApprovals(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/approvals/")
	if rest == "" {
		s.writeError(w, http.StatusNotFound, "event is required")
		return
	}
	event, participant, hasParticipant := strings.Cut(rest, "/")

	switch {
	case r.Method == http.MethodGet && !hasParticipant:
		records, err := s.daemon.store.ApprovalsByEvent(r.Context(), event)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.ApprovalListResponse{Records: api.FromApprovals(records)})
	case r.Method == http.MethodPut && hasParticipant:
		s.handleApprovalUpdate(w, r, event, participant)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleApprovalUpdate(w http.ResponseWriter, r *http.Request, event, participant string) {
	var payload api.ApprovalUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid approval payload: "+err.Error())
		return
	}
	status, err := approvals.ParseStatus(payload.Status)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.daemon.store.UpdateApproval(r.Context(), event, participant, status, payload.Message)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !updated {
		s.writeError(w, http.StatusNotFound, "approval record not found")
		return
	}
	record, err := s.daemon.store.GetApproval(r.Context(), event, participant)
	if err != nil || record == nil {
		s.writeError(w, http.StatusInternalServerError, "approval record unavailable after update")
		return
	}
	s.writeJSON(w, http.StatusOK, api.ApprovalUpdateResponse{Record: api.FromApproval(*record)})
}

func (s *apiServer) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	event := strings.TrimPrefix(r.URL.Path, "/api/send/")
	count, err := s.daemon.sender.SendApproved(r.Context(), event)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SendResponse{Sent: count})
}

func (s *apiServer) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	if jobID == "" || strings.Contains(jobID, "/") {
		s.writeError(w, http.StatusNotFound, "report not found")
		return
	}
	rep, err := report.Build(r.Context(), s.daemon.store, jobID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

// writeServiceError maps the sentinel taxonomy onto HTTP statuses so CLI
// consumers can distinguish caller mistakes from daemon trouble.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
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

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
