package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"ai-video-pipeline/config"
	"ai-video-pipeline/types"
)

// FileName is the metadata document written next to the final video.
const FileName = "youtube_metadata.json"

// YouTube rejects longer titles and descriptions
const (
	maxTitleRunes       = 100
	maxDescriptionRunes = 5000
)

// Build derives upload metadata from the script. Duration is the declared
// scene total, not the rendered length.
func Build(cfg config.MetadataConfig, script *types.Script, videoPath string) *types.VideoMetadata {
	return &types.VideoMetadata{
		Title:               truncateRunes(strings.TrimSpace(script.Title), maxTitleRunes),
		Description:         truncateRunes(strings.TrimSpace(script.Script), maxDescriptionRunes),
		Tags:                append([]string(nil), cfg.Tags...),
		Category:            cfg.Category,
		CategoryID:          cfg.CategoryID,
		ThumbnailSuggestion: cfg.ThumbnailSuggestion,
		VideoPath:           videoPath,
		DurationSeconds:     script.TotalDuration(),
		Scenes:              len(script.Scenes),
	}
}

// Save writes the document into dir and returns its path.
func Save(meta *types.VideoMetadata, dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}
	return path, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
