package config

var defaultPalette = []string{"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A", "#98D8C8", "#F38181", "#AA96DA"}

var defaultTags = []string{"AI Generated", "Educational", "Tutorial", "Automated Video"}

var defaultTopics = []string{
	"What is Machine Learning?",
	"How Neural Networks Work",
	"Introduction to Deep Learning",
	"Computer Vision Basics",
	"Natural Language Processing Explained",
}

func (c *Config) applyDefaults() {
	setString(&c.Server.Port, "5000")
	setInt(&c.Server.ReadTimeoutSec, 15)
	setInt(&c.Server.IdleTimeoutSec, 60)

	setString(&c.Paths.Output, "output")

	setString(&c.Script.BaseURL, "https://api.groq.com/openai/v1")
	setString(&c.Script.GroqModel, "llama-3.3-70b-versatile")
	setFloat(&c.Script.Temperature, 0.7)
	setInt(&c.Script.MaxTokens, 1500)
	setInt(&c.Script.TimeoutSec, 60)

	setString(&c.Voiceover.ElevenLabsBaseURL, "https://api.elevenlabs.io")
	setString(&c.Voiceover.ElevenLabsVoiceID, "21m00Tcm4TlvDq8ikWAM")
	setString(&c.Voiceover.ElevenLabsModel, "eleven_monolingual_v1")
	setFloat(&c.Voiceover.Stability, 0.5)
	setFloat(&c.Voiceover.SimilarityBoost, 0.5)
	setString(&c.Voiceover.EdgeBinary, "edge-tts")
	setString(&c.Voiceover.EdgeVoice, "en-US-GuyNeural")
	setFloat(&c.Voiceover.SilentDurationSec, 45)
	if c.Voiceover.MinBytes <= 0 {
		c.Voiceover.MinBytes = 1000
	}
	setInt(&c.Voiceover.TimeoutSec, 30)

	setString(&c.Visuals.PexelsBaseURL, "https://api.pexels.com")
	setInt(&c.Visuals.PerPage, 5)
	setInt(&c.Visuals.MinWidth, 1280)
	if len(c.Visuals.Qualities) == 0 {
		c.Visuals.Qualities = []string{"hd", "sd"}
	}
	if c.Visuals.MaxDownloadMB <= 0 {
		c.Visuals.MaxDownloadMB = 200
	}
	setFloat(&c.Visuals.PlaceholderDurationSec, 8)
	setInt(&c.Visuals.PlaceholderFPS, 24)
	if len(c.Visuals.Palette) == 0 {
		c.Visuals.Palette = append([]string(nil), defaultPalette...)
	}
	setInt(&c.Visuals.CaptionMaxChars, 80)
	setInt(&c.Visuals.FontSize, 48)
	setInt(&c.Visuals.Workers, 3)
	setInt(&c.Visuals.TimeoutSec, 30)

	setInt(&c.Render.Width, 1920)
	setInt(&c.Render.Height, 1080)
	setInt(&c.Render.FPS, 24)
	setString(&c.Render.VideoCodec, "libx264")
	setString(&c.Render.AudioCodec, "aac")
	setString(&c.Render.VideoBitrate, "5000k")
	setString(&c.Render.AudioBitrate, "192k")
	setString(&c.Render.Preset, "medium")
	setString(&c.Render.FallbackColor, "black")
	setFloat(&c.Render.FallbackDurationSec, 10)
	setInt(&c.Render.Workers, 2)

	if len(c.Metadata.Tags) == 0 {
		c.Metadata.Tags = append([]string(nil), defaultTags...)
	}
	setString(&c.Metadata.Category, "Education")
	setString(&c.Metadata.CategoryID, "27")
	setString(&c.Metadata.ThumbnailSuggestion, "Create custom thumbnail with title text")

	setString(&c.Upload.Visibility, "private")
	setString(&c.Upload.DefaultLanguage, "en")

	setInt(&c.Batch.PauseSec, 5)
	if len(c.Batch.DefaultTopics) == 0 {
		c.Batch.DefaultTopics = append([]string(nil), defaultTopics...)
	}
	setString(&c.Batch.RedditUserAgent, "ai-video-pipeline/1.0")

	setString(&c.Env.AppEnv, "production")
	setString(&c.Env.LogLevel, "info")
}

func setString(p *string, v string) {
	if *p == "" {
		*p = v
	}
}

func setInt(p *int, v int) {
	if *p <= 0 {
		*p = v
	}
}

func setFloat(p *float64, v float64) {
	if *p <= 0 {
		*p = v
	}
}
