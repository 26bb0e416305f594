// Package server exposes the HTTP surface: drawing submission, status
// polling, a job listing, health probes, and a WebSocket update feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/boqai/boq-server/models"
	"github.com/boqai/boq-server/queue"
	"github.com/boqai/boq-server/storage"
	"github.com/boqai/boq-server/store"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing.
const maxUploadMemory = 10 << 20 // 10MB

// Server handles HTTP requests for job submission and status
type Server struct {
	store     store.Store
	queue     queue.Queue
	files     *storage.FileStore
	wsManager *models.WebSocketManager
	upgrader  websocket.Upgrader
	log       zerolog.Logger
}

// New creates a server over the given store, queue, and upload storage.
func New(s store.Store, q queue.Queue, files *storage.FileStore, log zerolog.Logger) *Server {
	wsManager := models.NewWebSocketManager(log)
	wsManager.Start()

	return &Server{
		store:     s,
		queue:     q,
		files:     files,
		wsManager: wsManager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log.With().Str("component", "server").Logger(),
	}
}

// NotifyJobUpdate pushes a job snapshot to all WebSocket clients. The
// worker pool calls it after every committed transition.
func (s *Server) NotifyJobUpdate(job *models.Job) {
	s.wsManager.BroadcastJobUpdate(job)
}

// Router builds the chi router with CORS handling for the browser frontend.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Get("/api/hello", s.handleHello)
	r.Post("/api/boq", s.handleSubmit)
	r.Get("/status/{jobID}", s.handleStatus)
	r.Get("/jobs", s.handleListJobs)
	r.Get("/ws", s.handleWebSocket)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, map[string]string{"error": message})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("BoQ extraction backend is running"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Hello from backend"})
}

// handleSubmit accepts a multipart drawing upload, persists it, creates a
// pending job, and enqueues it. The job id comes back immediately; the
// extraction happens out-of-band.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, models.ErrNoInput.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, models.ErrNoInput.Error())
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.writeError(w, http.StatusBadRequest, models.ErrNoInput.Error())
		return
	}

	path, err := s.files.Save(header.Filename, file)
	if err != nil {
		s.log.Error().Err(err).Str("filename", header.Filename).Msg("failed to persist upload")
		s.writeError(w, http.StatusInternalServerError, "failed to save file")
		return
	}
	s.log.Info().Str("filename", header.Filename).Str("path", path).Msg("received drawing")

	job, err := s.store.Create(r.Context(), path)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create job")
		s.writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	if err := s.queue.Enqueue(r.Context(), job.ID); err != nil {
		s.rollbackCreate(r.Context(), job.ID)
		if errors.Is(err, models.ErrQueueFull) {
			s.writeError(w, http.StatusServiceUnavailable, "queue full, try again later")
			return
		}
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to enqueue job")
		s.writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}
	s.log.Info().Str("job_id", job.ID).Msg("job enqueued")

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// rollbackCreate removes a job whose enqueue was rejected so a failed
// submission leaves the store unchanged.
func (s *Server) rollbackCreate(ctx context.Context, jobID string) {
	d, ok := s.store.(store.Deleter)
	if !ok {
		return
	}
	if err := d.Delete(ctx, jobID); err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("failed to roll back job create")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := s.store.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		s.log.Error().Err(err).Str("job_id", jobID).Msg("status query failed")
		s.writeError(w, http.StatusInternalServerError, "status query failed")
		return
	}

	resp := map[string]any{
		"job_id": job.ID,
		"status": job.Status,
	}
	switch job.Status {
	case models.StatusFinished:
		resp["result"] = job.Result
	case models.StatusFailed:
		resp["error"] = job.ErrorMessage
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	status := models.JobStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		s.writeError(w, http.StatusBadRequest, "invalid status parameter")
		return
	}

	jobs, err := s.store.List(r.Context(), status)
	if err != nil {
		s.log.Error().Err(err).Msg("job listing failed")
		s.writeError(w, http.StatusInternalServerError, "job listing failed")
		return
	}
	s.writeJSON(w, http.StatusOK, jobs)
}

// handleWebSocket upgrades the connection and streams job updates. The
// client receives the current job list on connect.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to upgrade to websocket")
		return
	}

	s.wsManager.RegisterClient(conn)

	jobs, err := s.store.List(r.Context(), "")
	if err == nil {
		initialData, merr := json.Marshal(map[string]any{
			"type": "initial_jobs",
			"jobs": jobs,
		})
		if merr == nil {
			_ = conn.WriteMessage(websocket.TextMessage, initialData)
		}
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.wsManager.UnregisterClient(conn)
				return
			}
		}
	}()
}
