package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"dubber/internal/config"
	"dubber/internal/deps"
	"dubber/internal/jobs"
	"dubber/internal/language"
	"dubber/internal/logging"
	"dubber/internal/services"
)

// maxUploadBytes caps multipart memory buffering; larger files spill to disk.
const maxUploadBytes = 32 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	cfg    *config.Config

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logger,
		daemon: d,
		cfg:    cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/languages", srv.handleLanguages)
	mux.HandleFunc("/upload", srv.handleUpload)
	mux.HandleFunc("/live_translate", srv.handleLiveTranslate)
	mux.HandleFunc("/jobs/", srv.handleJobStatus)
	mux.HandleFunc("/preview/", srv.handlePreview)
	mux.HandleFunc("/download/", srv.handleDownload)
	mux.HandleFunc("/subtitles/", srv.handleSubtitles)
	mux.HandleFunc("/dashboard/", srv.handleDashboard)
	mux.HandleFunc("/auth/mock-login", srv.handleMockLogin)

	srv.server = &http.Server{
		Handler:           srv.corsMiddleware(srv.requestIDMiddleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
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

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
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

// handler returns the configured HTTP handler, for tests.
func (s *apiServer) handler() http.Handler {
	return s.server.Handler
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	statuses := deps.CheckBinaries(deps.Requirements(s.cfg))
	tools := make(map[string]bool, len(statuses))
	for _, status := range statuses {
		tools[status.Name] = status.Available
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tools":  tools,
	})
}

func (s *apiServer) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"languages": language.Options()})
}

// handleUpload accepts the video, validates the request, registers the job,
// and launches the pipeline. Validation failures never create a job.
func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	target := strings.TrimSpace(r.FormValue("target_language"))
	if !language.Supported(target) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported target language %q", target))
		return
	}
	user := strings.TrimSpace(r.FormValue("user_id"))
	if user == "" {
		user = "anonymous"
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing video file")
		return
	}
	defer file.Close()

	job := s.daemon.store.Create(user, filepath.Base(header.Filename), target, "")
	workDir := filepath.Join(s.cfg.Paths.StorageDir, job.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		s.failUpload(w, job.ID, "create job directory", err)
		return
	}
	sourcePath := filepath.Join(workDir, "source"+filepath.Ext(header.Filename))
	if err := saveUpload(file, sourcePath); err != nil {
		s.failUpload(w, job.ID, "save upload", err)
		return
	}

	voicePath := ""
	if sample, sampleHeader, err := r.FormFile("voice_sample"); err == nil {
		defer sample.Close()
		voicePath = filepath.Join(workDir, "voice_sample"+filepath.Ext(sampleHeader.Filename))
		if err := saveUpload(sample, voicePath); err != nil {
			s.log().Warn("voice sample save failed", logging.Error(err))
			voicePath = ""
		}
	}

	if _, err := s.daemon.store.Update(job.ID, func(j *jobs.Job) {
		j.WorkDir = workDir
		j.Artifacts.SourceVideo = sourcePath
		j.Artifacts.VoiceSample = voicePath
	}); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.daemon.supervisor.Launch(job.ID)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"job_id":          job.ID,
		"status":          jobs.StatusQueued,
		"target_language": target,
	})
}

// handleLiveTranslate runs the synchronous path: the upload is transcribed,
// translated as one block, and spoken in a single take; the audio comes back
// in the response body. Nothing is registered in the job store.
func (s *apiServer) handleLiveTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	target := strings.TrimSpace(r.FormValue("target_language"))
	if target == "" {
		target = strings.TrimSpace(r.FormValue("lang"))
	}
	if !language.Supported(target) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported target language %q", target))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing video file")
		return
	}
	defer file.Close()

	workDir, err := os.MkdirTemp(s.cfg.Paths.StorageDir, "live-")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "create work directory failed")
		return
	}
	defer os.RemoveAll(workDir) //nolint:errcheck

	srcPath := filepath.Join(workDir, "source"+filepath.Ext(header.Filename))
	if err := saveUpload(file, srcPath); err != nil {
		s.writeError(w, http.StatusInternalServerError, "save upload failed")
		return
	}

	live, err := s.daemon.supervisor.Pipeline().LiveTranslate(r.Context(), srcPath, target, workDir)
	if err != nil {
		s.log().Warn("live translate failed", logging.Error(err))
		if errors.Is(err, services.ErrValidation) {
			s.writeError(w, http.StatusBadRequest, services.Message(err))
			return
		}
		s.writeError(w, http.StatusInternalServerError, services.Message(err))
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="translated.wav"`)
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, live.AudioPath)
}

func (s *apiServer) failUpload(w http.ResponseWriter, jobID, op string, err error) {
	s.log().Error("upload failed", logging.String("operation", op), logging.Error(err))
	s.daemon.store.Update(jobID, func(j *jobs.Job) { //nolint:errcheck
		j.Status = jobs.StatusFailed
		j.Error = op + " failed"
	})
	s.writeError(w, http.StatusInternalServerError, op+" failed")
}

func (s *apiServer) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	job, ok := s.jobFromPath(w, r, "/jobs/")
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *apiServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobFromPath(w, r, "/preview/")
	if !ok {
		return
	}
	s.serveArtifact(w, r, job.Artifacts.Preview, "video/mp4")
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobFromPath(w, r, "/download/")
	if !ok {
		return
	}
	s.serveArtifact(w, r, job.Artifacts.DubbedVideo, "video/mp4")
}

func (s *apiServer) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/subtitles/")
	var (
		id          string
		contentType string
		pick        func(jobs.Job) string
	)
	switch {
	case strings.HasSuffix(rest, ".srt"):
		id = strings.TrimSuffix(rest, ".srt")
		contentType = "application/x-subrip"
		pick = func(j jobs.Job) string { return j.Artifacts.SubtitleSRT }
	case strings.HasSuffix(rest, ".vtt"):
		id = strings.TrimSuffix(rest, ".vtt")
		contentType = "text/vtt"
		pick = func(j jobs.Job) string { return j.Artifacts.SubtitleVTT }
	default:
		s.writeError(w, http.StatusNotFound, "unknown subtitle format")
		return
	}

	job, err := s.daemon.store.Get(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.serveArtifact(w, r, pick(job), contentType)
}

func (s *apiServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	user := strings.TrimPrefix(r.URL.Path, "/dashboard/")
	if user == "" || strings.Contains(user, "/") {
		s.writeError(w, http.StatusNotFound, "unknown user")
		return
	}
	if s.daemon.history == nil {
		s.writeJSON(w, http.StatusOK, jobs.Dashboard{User: user, History: []jobs.HistoryEntry{}})
		return
	}
	dashboard, err := s.daemon.history.Dashboard(r.Context(), user)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, dashboard)
}

// handleMockLogin issues a development token. There is no real
// authentication; the token just tags uploads with a user id.
func (s *apiServer) handleMockLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.UserID) == "" {
		s.writeError(w, http.StatusBadRequest, "user_id required")
		return
	}
	user := strings.TrimSpace(body.UserID)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"token": "mock-token-" + user,
		"user":  user,
	})
}

func (s *apiServer) jobFromPath(w http.ResponseWriter, r *http.Request, prefix string) (jobs.Job, bool) {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return jobs.Job{}, false
	}
	job, err := s.daemon.store.Get(id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
		} else {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return jobs.Job{}, false
	}
	return job, true
}

// serveArtifact streams a job file, or 404s while it does not exist yet.
func (s *apiServer) serveArtifact(w http.ResponseWriter, r *http.Request, path, contentType string) {
	if path == "" {
		s.writeError(w, http.StatusNotFound, "artifact not ready")
		return
	}
	if _, err := os.Stat(path); err != nil {
		s.writeError(w, http.StatusNotFound, "artifact not ready")
		return
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeFile(w, r, path)
}

func (s *apiServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := s.allowedOrigin(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware tags every request with a correlation ID and logs the
// request line with it.
func (s *apiServer) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := services.WithRequestID(r.Context(), uuid.NewString())
		logging.WithContext(ctx, s.log()).Debug("request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *apiServer) allowedOrigin(origin string) string {
	if s.cfg.API.Development {
		return "*"
	}
	for _, allowed := range s.cfg.API.CORSOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return allowed
		}
	}
	return ""
}

func saveUpload(src io.Reader, dstPath string) error {
	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
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
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
