package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-video-pipeline/config"
	"ai-video-pipeline/media/mediatest"
	"ai-video-pipeline/types"
)

type recorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, s)
}

type fakeScript struct{ rec *recorder }

func (f fakeScript) Generate(_ context.Context, topic string) *types.Script {
	f.rec.add("script")
	return &types.Script{
		Title:  "About " + topic,
		Script: "one two",
		Scenes: []types.Scene{{Duration: 10, Description: "a", Text: "one"}, {Duration: 5, Description: "b", Text: "two"}},
	}
}

type fakeVoice struct {
	rec *recorder
	err error
}

func (f fakeVoice) Synthesize(_ context.Context, _ *types.Script, out string) (*types.AudioTrack, error) {
	f.rec.add("voice")
	if f.err != nil {
		return nil, f.err
	}
	return &types.AudioTrack{Path: out, Duration: 20, Provider: "fake"}, nil
}

type fakeVisuals struct {
	rec   *recorder
	panic bool
}

func (f fakeVisuals) Fetch(_ context.Context, s *types.Script, dir string) []types.VisualClip {
	f.rec.add("visuals")
	if f.panic {
		panic("visual provider exploded")
	}
	out := make([]types.VisualClip, len(s.Scenes))
	for i := range out {
		out[i] = types.VisualClip{SceneIndex: i, Path: filepath.Join(dir, "v.mp4"), Source: types.SourcePlaceholder}
	}
	return out
}

type fakeAssembler struct {
	rec *recorder
	err error
}

func (f fakeAssembler) Assemble(_ context.Context, _ *types.Script, audio *types.AudioTrack, _ []types.VisualClip, out string) (*types.FinalVideo, error) {
	f.rec.add("assemble")
	if f.err != nil {
		return nil, f.err
	}
	return &types.FinalVideo{Path: out, Duration: audio.Duration, ScenesUsed: 2}, nil
}

type fakeUploader struct {
	rec *recorder
	err error
}

func (f fakeUploader) Upload(_ context.Context, _ string, meta *types.VideoMetadata) (*types.UploadResult, error) {
	f.rec.add("upload:" + meta.Title)
	if f.err != nil {
		return nil, f.err
	}
	return &types.UploadResult{VideoID: "vid123", URL: "https://www.youtube.com/watch?v=vid123"}, nil
}

func newTestPipeline(t *testing.T, mutate func(*Stages)) (*Pipeline, *recorder) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.Output = t.TempDir()
	rec := &recorder{}
	st := Stages{
		Script:    fakeScript{rec},
		Voice:     fakeVoice{rec: rec},
		Visuals:   fakeVisuals{rec: rec},
		Assembler: fakeAssembler{rec: rec},
	}
	if mutate != nil {
		mutate(&st)
	}
	return New(cfg, st, zerolog.Nop()), rec
}

type progress struct {
	messages []string
	values   []int
}

func (p *progress) Report(m string, v int) {
	p.messages = append(p.messages, m)
	p.values = append(p.values, v)
}

func readState(t *testing.T, dir string) types.PipelineState {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, StateFile))
	require.NoError(t, err)
	var st types.PipelineState
	require.NoError(t, json.Unmarshal(data, &st))
	return st
}

func TestRunSequencesStagesAndPersistsArtifacts(t *testing.T) {
	p, rec := newTestPipeline(t, nil)
	prog := &progress{}

	state, err := p.Run(context.Background(), "  Photosynthesis ", prog)
	require.NoError(t, err)

	assert.Equal(t, []string{"script", "voice", "visuals", "assemble"}, rec.steps)
	assert.Equal(t, []int{10, 25, 40, 60, 80}, prog.values)
	assert.Equal(t, "Assembling final video...", prog.messages[4])

	assert.Equal(t, "Photosynthesis", state.Topic)
	assert.Len(t, state.RunID, 8)
	runDir := filepath.Join(p.cfg.Paths.Output, state.RunID)

	require.NotNil(t, state.Video)
	assert.Equal(t, runDir, filepath.Dir(state.Video.Path))
	assert.True(t, strings.HasPrefix(filepath.Base(state.Video.Path), "final_video_"))
	assert.Equal(t, filepath.Join(runDir, AudioFile), state.Audio.Path)

	assert.FileExists(t, filepath.Join(runDir, ScriptFile))
	assert.FileExists(t, filepath.Join(runDir, "youtube_metadata.json"))
	require.NotNil(t, state.Metadata)
	assert.Equal(t, 15.0, state.Metadata.DurationSeconds)
	assert.Equal(t, 2, state.Metadata.Scenes)
	assert.Equal(t, state.Video.Path, state.Metadata.VideoPath)

	saved := readState(t, runDir)
	assert.Empty(t, saved.Error)
	assert.NotEmpty(t, saved.CompletedAt)
	assert.Equal(t, state.Video.Path, saved.Video.Path)
}

func TestRunRejectsEmptyTopic(t *testing.T) {
	p, rec := newTestPipeline(t, nil)
	_, err := p.Run(context.Background(), "   ", nil)
	require.ErrorIs(t, err, ErrEmptyTopic)
	assert.Empty(t, rec.steps)
}

func TestRunStopsOnVoiceoverFailure(t *testing.T) {
	p, rec := newTestPipeline(t, func(s *Stages) {
		s.Voice = fakeVoice{rec: s.Script.(fakeScript).rec, err: errors.New("all providers failed")}
	})

	state, err := p.Run(context.Background(), "Tides", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voiceover")
	assert.Equal(t, []string{"script", "voice"}, rec.steps)
	assert.Nil(t, state.Video)

	saved := readState(t, filepath.Join(p.cfg.Paths.Output, state.RunID))
	assert.Contains(t, saved.Error, "all providers failed")
}

func TestRunReportsAssemblyFailureWithoutVideo(t *testing.T) {
	p, _ := newTestPipeline(t, func(s *Stages) {
		s.Assembler = fakeAssembler{rec: s.Script.(fakeScript).rec, err: errors.New("encode failed")}
	})

	state, err := p.Run(context.Background(), "Tides", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assembly: encode failed")
	assert.Nil(t, state.Video)
	assert.Nil(t, state.Metadata)
}

func TestRunRecoversPanics(t *testing.T) {
	p, _ := newTestPipeline(t, func(s *Stages) {
		s.Visuals = fakeVisuals{rec: s.Script.(fakeScript).rec, panic: true}
	})

	state, err := p.Run(context.Background(), "Tides", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "visual provider exploded")

	saved := readState(t, filepath.Join(p.cfg.Paths.Output, state.RunID))
	assert.Contains(t, saved.Error, "pipeline panic")
}

func TestRunUploadIsBestEffort(t *testing.T) {
	p, rec := newTestPipeline(t, func(s *Stages) {
		s.Uploader = fakeUploader{rec: s.Script.(fakeScript).rec, err: errors.New("quota exceeded")}
	})

	state, err := p.Run(context.Background(), "Tides", nil)
	require.NoError(t, err)
	assert.Contains(t, rec.steps, "upload:About Tides")
	assert.Equal(t, "quota exceeded", state.UploadError)
	assert.Empty(t, state.YouTubeID)

	p, _ = newTestPipeline(t, func(s *Stages) {
		s.Uploader = fakeUploader{rec: s.Script.(fakeScript).rec}
	})
	state, err = p.Run(context.Background(), "Tides", nil)
	require.NoError(t, err)
	assert.Equal(t, "vid123", state.YouTubeID)
	assert.Equal(t, "https://www.youtube.com/watch?v=vid123", state.YouTubeURL)
}

// Without any credentials the full fallback chain still yields a video whose
// length matches the 45s silent track.
func TestRunWithoutCredentialsProducesVideo(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Output = t.TempDir()
	runner := mediatest.New()
	runner.Fail = func(name string, _ []string) error {
		if name == "edge-tts" {
			return errors.New(`exec: "edge-tts": executable file not found in $PATH`)
		}
		return nil
	}

	state, err := FromConfig(cfg, runner, zerolog.Nop()).Run(context.Background(), "Photosynthesis", nil)
	require.NoError(t, err)

	require.Len(t, state.Script.Scenes, 3)
	assert.InDelta(t, 30.0, state.Script.TotalDuration(), 1e-9)

	assert.Equal(t, "silent", state.Audio.Provider)
	assert.InDelta(t, 45.0, state.Audio.Duration, 1e-6)

	require.Len(t, state.Visuals, 3)
	for _, v := range state.Visuals {
		assert.Equal(t, types.SourcePlaceholder, v.Source)
	}

	v := state.Video
	require.NotNil(t, v)
	assert.InDelta(t, 45.0, v.Duration, 1e-6)
	assert.InDelta(t, 30.0, v.VisualDuration, 1e-9)
	assert.Equal(t, 2, v.GlobalLoops)
	assert.Equal(t, 3, v.ScenesUsed)
	assert.False(t, v.UsedFallback)
	assert.FileExists(t, v.Path)

	for _, c := range runner.FFmpegWriting("scene_*.mp4") {
		assert.True(t, c.Has("-stream_loop", "1"))
		assert.True(t, c.Has("-t", "10.000"))
	}
	mux := runner.FFmpegWriting(filepath.Base(v.Path))
	require.Len(t, mux, 1)
	assert.True(t, mux[0].Has("-t", "45.000"))

	runDir := filepath.Dir(v.Path)
	entries, err := os.ReadDir(runDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".render-"), "work dir left behind: %s", e.Name())
	}
}
