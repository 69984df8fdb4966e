package types

import "github.com/samber/lo"

// Scene is one timed narration+visual segment of the script
type Scene struct {
	Duration    float64 `json:"duration"`
	Description string  `json:"description"`
	Text        string  `json:"text"`
}

// Script is the full structured script for one video
type Script struct {
	Title  string  `json:"title"`
	Script string  `json:"script"`
	Scenes []Scene `json:"scenes"`
}

// TotalDuration is the sum of the declared scene durations.
func (s *Script) TotalDuration() float64 {
	return lo.SumBy(s.Scenes, func(sc Scene) float64 { return sc.Duration })
}

// AudioTrack is the single narration track of a run
type AudioTrack struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`
	Bytes    int64   `json:"bytes"`
	Provider string  `json:"provider"`
}

// Visual sources
const (
	SourcePexels      = "pexels"
	SourcePlaceholder = "placeholder"
	SourcePlain       = "plain"
	SourceUnavailable = "unavailable"
)

// VisualClip is the clip acquired for one scene
type VisualClip struct {
	SceneIndex int     `json:"scene_index"`
	Path       string  `json:"path"`
	Source     string  `json:"source"`
	Duration   float64 `json:"duration,omitempty"`
}

// Usable reports whether the clip points at a file the assembler can load.
func (v VisualClip) Usable() bool {
	return v.Source != SourceUnavailable && v.Path != ""
}

// FinalVideo describes the assembled output
type FinalVideo struct {
	Path           string  `json:"path"`
	Duration       float64 `json:"duration"`
	ScenesUsed     int     `json:"scenes_used"`
	SkippedScenes  []int   `json:"skipped_scenes,omitempty"`
	VisualDuration float64 `json:"visual_duration"`
	GlobalLoops    int     `json:"global_loops"`
	UsedFallback   bool    `json:"used_fallback"`
}

// VideoMetadata is the derived youtube_metadata.json document
type VideoMetadata struct {
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Tags                []string `json:"tags"`
	Category            string   `json:"category"`
	CategoryID          string   `json:"category_id"`
	ThumbnailSuggestion string   `json:"thumbnail_suggestion"`
	VideoPath           string   `json:"video_path"`
	DurationSeconds     float64  `json:"duration_seconds"`
	Scenes              int      `json:"scenes"`
}

// UploadResult is what the video host returned for an upload
type UploadResult struct {
	VideoID string `json:"video_id"`
	URL     string `json:"url"`
}

// PipelineState tracks the full state of one pipeline run
type PipelineState struct {
	RunID       string         `json:"run_id"`
	Topic       string         `json:"topic"`
	StartedAt   string         `json:"started_at"`
	CompletedAt string         `json:"completed_at"`
	Script      *Script        `json:"script"`
	Audio       *AudioTrack    `json:"audio"`
	Visuals     []VisualClip   `json:"visuals"`
	Video       *FinalVideo    `json:"video"`
	Metadata    *VideoMetadata `json:"metadata"`
	YouTubeURL  string         `json:"youtube_url,omitempty"`
	YouTubeID   string         `json:"youtube_id,omitempty"`
	UploadError string         `json:"upload_error,omitempty"`
	Error       string         `json:"error,omitempty"`
}
