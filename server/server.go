// Package server is the HTTP front end: start a generation job, poll its
// status, download the result and reset the record.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"sync"

	"ai-video-pipeline/jobs"
	"ai-video-pipeline/pipeline"
	"ai-video-pipeline/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const downloadName = "ai_generated_video.mp4"

// Generator runs one pipeline for a topic.
type Generator interface {
	Run(ctx context.Context, topic string, rep pipeline.Reporter) (*types.PipelineState, error)
}

type Server struct {
	tracker   *jobs.Tracker
	generator Generator
	log       zerolog.Logger
	wg        sync.WaitGroup
}

func New(tracker *jobs.Tracker, generator Generator, log zerolog.Logger) *Server {
	return &Server{
		tracker:   tracker,
		generator: generator,
		log:       log.With().Str("component", "server").Logger(),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger(s.log),
	)

	r.Get("/healthz", s.health)
	r.Post("/generate", s.generate)
	r.Get("/status", s.status)
	r.Get("/download", s.download)
	r.Post("/reset", s.reset)
	r.Get("/reset", s.reset)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Wait blocks until the background job, if any, has finished.
func (s *Server) Wait() { s.wg.Wait() }

// Drain waits for the background job like Wait but gives up when ctx ends.
func (s *Server) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type generateRequest struct {
	Topic string `json:"topic"`
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.json(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	topic := strings.TrimSpace(req.Topic)

	jobID, err := s.tracker.Begin(topic)
	switch {
	case errors.Is(err, jobs.ErrEmptyTopic):
		s.json(w, http.StatusBadRequest, map[string]string{"error": "Please provide a topic"})
		return
	case errors.Is(err, jobs.ErrJobRunning):
		s.json(w, http.StatusConflict, map[string]string{"error": "Video generation already in progress"})
		return
	case err != nil:
		s.json(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.log.Info().Str("job_id", jobID).Str("topic", topic).Msg("generation started")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJob(jobID, topic)
	}()

	s.json(w, http.StatusAccepted, map[string]string{
		"message": "Video generation started",
		"status":  string(jobs.StatusRunning),
		"job_id":  jobID,
	})
}

// runJob outlives the request; only process exit stops it.
func (s *Server) runJob(jobID, topic string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("job_id", jobID).Msg("job panicked")
			s.tracker.Fail(jobID, errors.New("internal error"))
		}
	}()

	state, err := s.generator.Run(context.Background(), topic, s.tracker.Reporter(jobID))
	if err != nil {
		s.tracker.Fail(jobID, err)
		return
	}
	if state == nil || state.Video == nil {
		s.tracker.Fail(jobID, errors.New("video generation failed"))
		return
	}
	s.tracker.Complete(jobID, state.Video.Path)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.json(w, http.StatusOK, s.tracker.Snapshot())
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	if snap.Status != jobs.StatusCompleted || snap.VideoPath == "" {
		s.json(w, http.StatusNotFound, map[string]string{"error": "No video available"})
		return
	}
	if _, err := os.Stat(snap.VideoPath); err != nil {
		s.json(w, http.StatusNotFound, map[string]string{"error": "No video available"})
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName+`"`)
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, snap.VideoPath)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Reset(); err != nil {
		s.json(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	s.json(w, http.StatusOK, map[string]string{"message": "Status reset"})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
