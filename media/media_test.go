package media_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-video-pipeline/media"
	"ai-video-pipeline/media/mediatest"
)

func touch(t *testing.T, p string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(p, []byte("data"), 0o644))
	return p
}

func TestProbeDuration(t *testing.T) {
	dir := t.TempDir()
	r := mediatest.New()
	r.Durations["*.mp3"] = 45

	d, err := media.ProbeDuration(context.Background(), r, touch(t, filepath.Join(dir, "voice.mp3")))
	require.NoError(t, err)
	assert.InDelta(t, 45.0, d, 1e-6)

	_, err = media.ProbeDuration(context.Background(), r, touch(t, filepath.Join(dir, "clip.mp4")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected output")

	_, err = media.ProbeDuration(context.Background(), r, filepath.Join(dir, "missing.mp4"))
	require.Error(t, err)
}

func TestStreamCodec(t *testing.T) {
	p := touch(t, filepath.Join(t.TempDir(), "final.mp4"))
	r := mediatest.New()

	codec, err := media.StreamCodec(context.Background(), r, p, "a:0")
	require.NoError(t, err)
	assert.Equal(t, "aac", codec)

	codec, err = media.StreamCodec(context.Background(), r, p, "v:0")
	require.NoError(t, err)
	assert.Equal(t, "h264", codec)

	r.NoAudio = true
	_, err = media.StreamCodec(context.Background(), r, p, "a:0")
	require.ErrorIs(t, err, media.ErrNoStream)
}

func TestCheckTools(t *testing.T) {
	r := mediatest.New()
	r.Fail = func(name string, _ []string) error {
		if name == "ffprobe" {
			return errors.New("not found")
		}
		return nil
	}
	assert.Equal(t, []string{"ffprobe"}, media.CheckTools(context.Background(), r, "ffmpeg", "ffprobe"))
}

func TestFakeRemembersProducedDurations(t *testing.T) {
	dir := t.TempDir()
	r := mediatest.New()
	out := filepath.Join(dir, "silent.mp3")

	_, err := r.Run(context.Background(), "ffmpeg", "-y", "-f", "lavfi", "-i", "anullsrc", "-t", media.Seconds(45), out)
	require.NoError(t, err)

	d, err := media.ProbeDuration(context.Background(), r, out)
	require.NoError(t, err)
	assert.InDelta(t, 45.0, d, 1e-6)

	_, err = r.Run(context.Background(), "ffmpeg", "-y", "-i", filepath.Join(dir, "nope.mp4"), filepath.Join(dir, "x.mp4"))
	require.Error(t, err)
}

func TestExecRunnerIncludesStderr(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r := media.NewExecRunner(zerolog.Nop())

	out, err := r.Run(context.Background(), "sh", "-c", "printf ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))

	_, err = r.Run(context.Background(), "sh", "-c", "echo 'Invalid data found' >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data found")
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, "10.000", media.Seconds(10))
	assert.Equal(t, "2.346", media.Seconds(2.3456))
}
