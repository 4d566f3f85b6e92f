package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"article_sync/internal/domain"
	"article_sync/internal/remote/github"
	"article_sync/internal/service"
	"article_sync/internal/storage/postgres"
)

// userHeader carries the authenticated user id, resolved by the gateway in
// front of this service.
const userHeader = "X-User-ID"

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Server is a thin JSON transport over the sync service. All decisions live
// in the service layer; handlers only decode, dispatch and encode.
type Server struct {
	httpServer *http.Server
	svc        *service.SyncService
	logger     *slog.Logger
	shutdown   time.Duration
}

func NewServer(cfg Config, svc *service.SyncService, logger *slog.Logger) *Server {
	s := &Server{
		svc:      svc,
		logger:   logger,
		shutdown: cfg.ShutdownTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sync/publish", s.handlePublish)
	mux.HandleFunc("POST /api/sync/pull", s.handlePull)
	mux.HandleFunc("POST /api/sync/resolve", s.handleResolve)
	mux.HandleFunc("POST /api/sync/unpublish", s.handleUnpublish)
	mux.HandleFunc("GET /api/sync/status/{articleID}", s.handleStatus)
	mux.HandleFunc("GET /api/sync/history/{articleID}", s.handleHistory)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.withIdentity(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" && r.Header.Get(userHeader) == "" {
			s.writeError(w, http.StatusUnauthorized, "missing "+userHeader+" header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type publishRequest struct {
	ArticleID     string               `json:"articleId"`
	Files         []domain.PublishFile `json:"files"`
	CommitMessage string               `json:"commitMessage"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ArticleID == "" {
		s.writeError(w, http.StatusBadRequest, "articleId is required")
		return
	}

	result, err := s.svc.Publish(r.Context(), userID(r), req.ArticleID, req.Files, req.CommitMessage)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type pullRequest struct {
	ArticleID      string `json:"articleId"`
	ForceOverwrite bool   `json:"forceOverwrite"`
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	var req pullRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ArticleID == "" {
		s.writeError(w, http.StatusBadRequest, "articleId is required")
		return
	}

	// a conflict is a regular outcome here, reported in the body with 200
	result, err := s.svc.Pull(r.Context(), userID(r), req.ArticleID, req.ForceOverwrite)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type resolveRequest struct {
	ArticleID     string            `json:"articleId"`
	Resolution    domain.Resolution `json:"resolution"`
	CustomContent string            `json:"customContent"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ArticleID == "" {
		s.writeError(w, http.StatusBadRequest, "articleId is required")
		return
	}

	result, err := s.svc.ResolveConflict(r.Context(), userID(r), req.ArticleID, req.Resolution, req.CustomContent)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type unpublishRequest struct {
	ArticleID string `json:"articleId"`
}

func (s *Server) handleUnpublish(w http.ResponseWriter, r *http.Request) {
	var req unpublishRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ArticleID == "" {
		s.writeError(w, http.StatusBadRequest, "articleId is required")
		return
	}

	result, err := s.svc.Unpublish(r.Context(), userID(r), req.ArticleID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Status(r.Context(), userID(r), r.PathValue("articleID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	rows, err := s.svc.History(r.Context(), userID(r), r.PathValue("articleID"), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"history": rows})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func userID(r *http.Request) string {
	return r.Header.Get(userHeader)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps service and transport errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, postgres.ErrArticleNotFound),
		errors.Is(err, github.ErrNotFound),
		errors.Is(err, service.ErrNotLinked),
		errors.Is(err, service.ErrNotPublished):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrEmptyBatch),
		errors.Is(err, service.ErrInvalidResolution),
		errors.Is(err, service.ErrMissingCustomContent):
		status = http.StatusBadRequest
	case errors.Is(err, github.ErrAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, github.ErrStaleToken):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	s.writeError(w, status, err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
