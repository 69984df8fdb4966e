package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("OUTPUT_DIR", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "output", cfg.Paths.Output)
	assert.Equal(t, 45.0, cfg.Voiceover.SilentDurationSec)
	assert.Equal(t, int64(1000), cfg.Voiceover.MinBytes)
	assert.Equal(t, 1280, cfg.Visuals.MinWidth)
	assert.Equal(t, []string{"hd", "sd"}, cfg.Visuals.Qualities)
	assert.Len(t, cfg.Visuals.Palette, 7)
	assert.Equal(t, 80, cfg.Visuals.CaptionMaxChars)
	assert.Equal(t, 1080, cfg.Render.Height)
	assert.Equal(t, 24, cfg.Render.FPS)
	assert.Equal(t, "5000k", cfg.Render.VideoBitrate)
	assert.Equal(t, "192k", cfg.Render.AudioBitrate)
	assert.Equal(t, 5, cfg.Batch.PauseSec)
	assert.Len(t, cfg.Batch.DefaultTopics, 5)
	assert.Empty(t, cfg.Env.GroqAPIKey)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("OUTPUT_DIR", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
paths:
  output: /tmp/videos
render:
  fps: 30
  workers: 4
visuals:
  palette: ["#000000", "#FFFFFF"]
upload:
  enabled: true
  visibility: unlisted
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/videos", cfg.Paths.Output)
	assert.Equal(t, 30, cfg.Render.FPS)
	assert.Equal(t, 4, cfg.Render.Workers)
	assert.Equal(t, 1920, cfg.Render.Width)
	assert.Equal(t, []string{"#000000", "#FFFFFF"}, cfg.Visuals.Palette)
	assert.True(t, cfg.Upload.Enabled)
	assert.Equal(t, "unlisted", cfg.Upload.Visibility)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("PEXELS_API_KEY", "px")
	t.Setenv("PORT", "8081")
	t.Setenv("OUTPUT_DIR", "/data/out")
	t.Setenv("YOUTUBE_CLIENT_ID", "id")
	t.Setenv("YOUTUBE_CLIENT_SECRET", "secret")
	t.Setenv("YOUTUBE_REFRESH_TOKEN", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gsk_test", cfg.Env.GroqAPIKey)
	assert.Equal(t, "px", cfg.Env.PexelsAPIKey)
	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "/data/out", cfg.Paths.Output)
	assert.False(t, cfg.HasYouTubeCredentials())

	t.Setenv("YOUTUBE_REFRESH_TOKEN", "refresh")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.True(t, cfg.HasYouTubeCredentials())
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("render: [not, a, map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
