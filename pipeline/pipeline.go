// Package pipeline sequences script, voiceover, visuals and assembly for one topic.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"ai-video-pipeline/05_metadata"
	"ai-video-pipeline/config"
	"ai-video-pipeline/metrics"
	"ai-video-pipeline/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	ScriptFile = "script.json"
	StateFile  = "pipeline_state.json"
	AudioFile  = "voiceover.mp3"
)

var ErrEmptyTopic = errors.New("topic is required")

type ScriptGenerator interface {
	Generate(ctx context.Context, topic string) *types.Script
}

type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, script *types.Script, outPath string) (*types.AudioTrack, error)
}

type VisualFetcher interface {
	Fetch(ctx context.Context, script *types.Script, dir string) []types.VisualClip
}

type VideoAssembler interface {
	Assemble(ctx context.Context, script *types.Script, audio *types.AudioTrack, visuals []types.VisualClip, outPath string) (*types.FinalVideo, error)
}

type VideoUploader interface {
	Upload(ctx context.Context, videoFile string, meta *types.VideoMetadata) (*types.UploadResult, error)
}

// Reporter receives coarse progress for status polling.
type Reporter interface {
	Report(message string, progress int)
}

type ReporterFunc func(message string, progress int)

func (f ReporterFunc) Report(message string, progress int) { f(message, progress) }

type nopReporter struct{}

func (nopReporter) Report(string, int) {}

// Stages are the collaborators of one run. Uploader may be nil.
type Stages struct {
	Script    ScriptGenerator
	Voice     VoiceSynthesizer
	Visuals   VisualFetcher
	Assembler VideoAssembler
	Uploader  VideoUploader
}

type Pipeline struct {
	cfg    *config.Config
	stages Stages
	log    zerolog.Logger
	now    func() time.Time
}

func New(cfg *config.Config, stages Stages, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		stages: stages,
		log:    log.With().Str("component", "pipeline").Logger(),
		now:    time.Now,
	}
}

// Run executes the stages strictly in order inside a fresh run directory and
// returns the run state, whose Video holds the final file on success. The
// state is written to pipeline_state.json on every exit path. Nothing is
// retried; a retry is a new Run.
func (p *Pipeline) Run(ctx context.Context, topic string, rep Reporter) (state *types.PipelineState, err error) {
	if rep == nil {
		rep = nopReporter{}
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	runID := uuid.NewString()[:8]
	runDir := filepath.Join(p.cfg.Paths.Output, runID)
	log := p.log.With().Str("run_id", runID).Str("topic", topic).Logger()

	state = &types.PipelineState{
		RunID:     runID,
		Topic:     topic,
		StartedAt: p.now().UTC().Format(time.RFC3339),
	}

	metrics.ActiveRuns.Inc()
	start := p.now()
	defer func() {
		metrics.ActiveRuns.Dec()
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
			log.Error().Str("stack", string(debug.Stack())).Msg("recovered from panic")
		}
		if err != nil {
			state.Error = err.Error()
			metrics.RunsTotal.WithLabelValues("failed").Inc()
			log.Error().Err(err).Msg("pipeline failed")
		} else {
			metrics.RunsTotal.WithLabelValues("completed").Inc()
			log.Info().Str("video", state.Video.Path).Dur("elapsed", p.now().Sub(start)).Msg("pipeline complete")
		}
		state.CompletedAt = p.now().UTC().Format(time.RFC3339)
		if _, statErr := os.Stat(runDir); statErr == nil {
			saveJSON(log, filepath.Join(runDir, StateFile), state)
		}
	}()

	rep.Report("Initializing pipeline...", 10)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return state, fmt.Errorf("create run dir: %w", err)
	}
	log.Info().Str("dir", runDir).Msg("pipeline starting")

	// STAGE 1: Script
	rep.Report("Generating AI script...", 25)
	stageStart := p.now()
	script := p.stages.Script.Generate(ctx, topic)
	p.observe("script", stageStart)
	if script == nil || len(script.Scenes) == 0 {
		return state, errors.New("script stage returned no scenes")
	}
	state.Script = script
	saveJSON(log, filepath.Join(runDir, ScriptFile), script)

	// STAGE 2: Voiceover
	rep.Report("Creating voiceover...", 40)
	stageStart = p.now()
	audio, err := p.stages.Voice.Synthesize(ctx, script, filepath.Join(runDir, AudioFile))
	p.observe("voiceover", stageStart)
	if err != nil {
		return state, fmt.Errorf("voiceover: %w", err)
	}
	state.Audio = audio

	// STAGE 3: Visuals
	rep.Report("Fetching visuals...", 60)
	stageStart = p.now()
	visuals := p.stages.Visuals.Fetch(ctx, script, runDir)
	p.observe("visuals", stageStart)
	state.Visuals = visuals

	// STAGE 4: Assembly
	rep.Report("Assembling final video...", 80)
	stageStart = p.now()
	videoPath := filepath.Join(runDir, fmt.Sprintf("final_video_%d.mp4", p.now().Unix()))
	video, err := p.stages.Assembler.Assemble(ctx, script, audio, visuals, videoPath)
	p.observe("render", stageStart)
	if err != nil {
		return state, fmt.Errorf("assembly: %w", err)
	}
	if video == nil || video.Path == "" {
		return state, errors.New("assembly produced no video")
	}
	state.Video = video

	meta := metadata.Build(p.cfg.Metadata, script, video.Path)
	state.Metadata = meta
	if _, err := metadata.Save(meta, runDir); err != nil {
		log.Warn().Err(err).Msg("could not save metadata")
	}

	p.upload(ctx, log, state)
	return state, nil
}

// upload is best effort: a failure is recorded but never fails the run.
func (p *Pipeline) upload(ctx context.Context, log zerolog.Logger, state *types.PipelineState) {
	if p.stages.Uploader == nil {
		return
	}
	stageStart := p.now()
	res, err := p.stages.Uploader.Upload(ctx, state.Video.Path, state.Metadata)
	p.observe("upload", stageStart)
	if err != nil {
		state.UploadError = err.Error()
		log.Warn().Err(err).Msg("upload failed, keeping local video")
		return
	}
	state.YouTubeID = res.VideoID
	state.YouTubeURL = res.URL
}

func (p *Pipeline) observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(p.now().Sub(start).Seconds())
}

func saveJSON(log zerolog.Logger, path string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not marshal JSON")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not save JSON")
	}
}
