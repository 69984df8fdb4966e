package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Paths     PathsConfig     `yaml:"paths"`
	Script    ScriptConfig    `yaml:"script"`
	Voiceover VoiceoverConfig `yaml:"voiceover"`
	Visuals   VisualsConfig   `yaml:"visuals"`
	Render    RenderConfig    `yaml:"render"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Upload    UploadConfig    `yaml:"upload"`
	Batch     BatchConfig     `yaml:"batch"`

	// Env holds secrets and overrides read from the environment, never from YAML.
	Env EnvConfig `yaml:"-"`
}

type ServerConfig struct {
	Port            string `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	IdleTimeoutSec  int    `yaml:"idle_timeout_sec"`
}

type PathsConfig struct {
	Output string `yaml:"output"`
}

type ScriptConfig struct {
	BaseURL     string  `yaml:"base_url"`
	GroqModel   string  `yaml:"groq_model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

type VoiceoverConfig struct {
	ElevenLabsBaseURL string  `yaml:"elevenlabs_base_url"`
	ElevenLabsVoiceID string  `yaml:"elevenlabs_voice_id"`
	ElevenLabsModel   string  `yaml:"elevenlabs_model"`
	Stability         float64 `yaml:"stability"`
	SimilarityBoost   float64 `yaml:"similarity_boost"`
	EdgeBinary        string  `yaml:"edge_binary"`
	EdgeVoice         string  `yaml:"edge_voice"`
	SilentDurationSec float64 `yaml:"silent_duration_sec"`
	MinBytes          int64   `yaml:"min_bytes"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

type VisualsConfig struct {
	PexelsBaseURL          string   `yaml:"pexels_base_url"`
	PerPage                int      `yaml:"per_page"`
	MinWidth               int      `yaml:"min_width"`
	Qualities              []string `yaml:"qualities"`
	MaxDownloadMB          int64    `yaml:"max_download_mb"`
	PlaceholderDurationSec float64  `yaml:"placeholder_duration_sec"`
	PlaceholderFPS         int      `yaml:"placeholder_fps"`
	Palette                []string `yaml:"palette"`
	CaptionMaxChars        int      `yaml:"caption_max_chars"`
	FontFile               string   `yaml:"font_file"`
	FontSize               int      `yaml:"font_size"`
	Workers                int      `yaml:"workers"`
	TimeoutSec             int      `yaml:"timeout_sec"`
}

type RenderConfig struct {
	Width               int     `yaml:"width"`
	Height              int     `yaml:"height"`
	FPS                 int     `yaml:"fps"`
	VideoCodec          string  `yaml:"video_codec"`
	AudioCodec          string  `yaml:"audio_codec"`
	VideoBitrate        string  `yaml:"video_bitrate"`
	AudioBitrate        string  `yaml:"audio_bitrate"`
	Preset              string  `yaml:"preset"`
	FallbackColor       string  `yaml:"fallback_color"`
	FallbackDurationSec float64 `yaml:"fallback_duration_sec"`
	Workers             int     `yaml:"workers"`
}

type MetadataConfig struct {
	Tags                []string `yaml:"tags"`
	Category            string   `yaml:"category"`
	CategoryID          string   `yaml:"category_id"`
	ThumbnailSuggestion string   `yaml:"thumbnail_suggestion"`
}

type UploadConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Visibility        string `yaml:"visibility"`
	DefaultLanguage   string `yaml:"default_language"`
	MadeForKids       bool   `yaml:"made_for_kids"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
}

type BatchConfig struct {
	PauseSec        int      `yaml:"pause_sec"`
	DefaultTopics   []string `yaml:"default_topics"`
	RedditUserAgent string   `yaml:"reddit_user_agent"`
}

type EnvConfig struct {
	AppEnv              string `env:"APP_ENV" envDefault:"production"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
	Port                string `env:"PORT"`
	OutputDir           string `env:"OUTPUT_DIR"`
	GroqAPIKey          string `env:"GROQ_API_KEY"`
	ElevenLabsAPIKey    string `env:"ELEVENLABS_API_KEY"`
	PexelsAPIKey        string `env:"PEXELS_API_KEY"`
	YouTubeClientID     string `env:"YOUTUBE_CLIENT_ID"`
	YouTubeClientSecret string `env:"YOUTUBE_CLIENT_SECRET"`
	YouTubeRefreshToken string `env:"YOUTUBE_REFRESH_TOKEN"`
}

// Load reads config.yaml, fills unset fields with defaults and applies the
// environment on top. A missing file is not an error.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg.Env); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Env.Port != "" {
		cfg.Server.Port = cfg.Env.Port
	}
	if cfg.Env.OutputDir != "" {
		cfg.Paths.Output = cfg.Env.OutputDir
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the built-in configuration without reading a file or the environment.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// HasYouTubeCredentials reports whether all refresh-token upload secrets are present.
func (c *Config) HasYouTubeCredentials() bool {
	return c.Env.YouTubeClientID != "" && c.Env.YouTubeClientSecret != "" && c.Env.YouTubeRefreshToken != ""
}
