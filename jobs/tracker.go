// Package jobs owns the status record of the single generation job the web
// front end allows at a time.
package jobs

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

var (
	ErrJobRunning = errors.New("a video generation job is already running")
	ErrEmptyTopic = errors.New("topic is required")
)

// Record is the polled job status.
type Record struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	Progress  int       `json:"progress"`
	VideoPath string    `json:"video_path"`
	Error     string    `json:"error"`
	JobID     string    `json:"job_id,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// MarshalJSON always emits video_path and error, as null when empty.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		plain
		VideoPath *string `json:"video_path"`
		Error     *string `json:"error"`
	}{plain(r), nullable(r.VideoPath), nullable(r.Error)})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func idle() Record {
	return Record{Status: StatusIdle, Message: "Ready to generate videos"}
}

// Tracker serialises every read and write of the record. Updates from a job
// that is no longer current are dropped.
type Tracker struct {
	mu  sync.RWMutex
	rec Record
	now func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{rec: idle(), now: time.Now}
}

// Begin starts a job for topic unless one is already running.
func (t *Tracker) Begin(topic string) (string, error) {
	if topic == "" {
		return "", ErrEmptyTopic
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rec.Status == StatusRunning {
		return "", ErrJobRunning
	}

	now := t.now()
	id := uuid.NewString()
	t.rec = Record{
		Status:    StatusRunning,
		Message:   "Initializing pipeline...",
		Progress:  10,
		JobID:     id,
		Topic:     topic,
		StartedAt: now,
		UpdatedAt: now,
	}
	return id, nil
}

// Progress records a step of a running job. Progress never moves backwards.
func (t *Tracker) Progress(jobID, message string, progress int) bool {
	return t.update(jobID, func(r *Record) {
		r.Message = message
		if progress > r.Progress {
			r.Progress = min(progress, 100)
		}
	})
}

func (t *Tracker) Complete(jobID, videoPath string) bool {
	return t.update(jobID, func(r *Record) {
		r.Status = StatusCompleted
		r.Message = "Video ready for download!"
		r.Progress = 100
		r.VideoPath = videoPath
	})
}

func (t *Tracker) Fail(jobID string, err error) bool {
	return t.update(jobID, func(r *Record) {
		r.Status = StatusError
		r.Progress = 0
		r.Message = "Video generation failed"
		if err != nil {
			r.Error = err.Error()
			r.Message = "Error: " + r.Error
		}
	})
}

func (t *Tracker) update(jobID string, fn func(*Record)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if jobID == "" || t.rec.JobID != jobID || t.rec.Status != StatusRunning {
		return false
	}
	fn(&t.rec)
	t.rec.UpdatedAt = t.now()
	return true
}

// Reset returns the record to idle. A running job cannot be reset.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rec.Status == StatusRunning {
		return ErrJobRunning
	}
	t.rec = idle()
	return nil
}

// Snapshot returns a copy of the current record.
func (t *Tracker) Snapshot() Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rec
}

// Reporter adapts one job to the pipeline's progress callback.
func (t *Tracker) Reporter(jobID string) *JobReporter {
	return &JobReporter{t: t, jobID: jobID}
}

type JobReporter struct {
	t     *Tracker
	jobID string
}

func (r *JobReporter) Report(message string, progress int) {
	r.t.Progress(r.jobID, message, progress)
}
