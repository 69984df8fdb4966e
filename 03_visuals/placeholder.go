package visuals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"ai-video-pipeline/config"
	"ai-video-pipeline/fallback"
	"ai-video-pipeline/media"
	"ai-video-pipeline/types"
)

// Placeholder renders a solid colour clip, optionally with the scene text burned in
type Placeholder struct {
	cfg     config.VisualsConfig
	width   int
	height  int
	caption bool
	runner  media.Runner
}

func NewPlaceholder(cfg *config.Config, runner media.Runner, caption bool) *Placeholder {
	return &Placeholder{
		cfg:     cfg.Visuals,
		width:   cfg.Render.Width,
		height:  cfg.Render.Height,
		caption: caption,
		runner:  runner,
	}
}

func (p *Placeholder) Name() string {
	if p.caption {
		return "placeholder"
	}
	return "plain"
}

func (p *Placeholder) Produce(ctx context.Context, job Job) (*types.VisualClip, error) {
	color := PaletteColor(p.cfg.Palette, job.Index)
	args := []string{"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", color, p.width, p.height, p.cfg.PlaceholderFPS),
	}

	source := types.SourcePlain
	if p.caption {
		text := SanitizeCaption(job.Scene.Text, p.cfg.CaptionMaxChars)
		if text == "" {
			return nil, fallback.Wrap(p.Name(), errors.New("nothing to caption"))
		}
		args = append(args, "-vf", p.drawtext(text))
		source = types.SourcePlaceholder
	}

	args = append(args,
		"-t", media.Seconds(p.cfg.PlaceholderDurationSec),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprint(p.cfg.PlaceholderFPS),
		job.OutPath,
	)

	if _, err := p.runner.Run(ctx, "ffmpeg", args...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fallback.Wrap(p.Name(), err)
	}
	return &types.VisualClip{Path: job.OutPath, Source: source, Duration: p.cfg.PlaceholderDurationSec}, nil
}

func (p *Placeholder) drawtext(text string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "drawtext=text='%s':fontcolor=white:fontsize=%d:x=(w-text_w)/2:y=(h-text_h)/2", text, p.cfg.FontSize)
	if p.cfg.FontFile != "" {
		fmt.Fprintf(&sb, ":fontfile=%s", p.cfg.FontFile)
	}
	return sb.String()
}

// PaletteColor cycles through the palette by scene index.
func PaletteColor(palette []string, index int) string {
	if len(palette) == 0 {
		return "black"
	}
	if index < 0 {
		index = -index
	}
	return palette[index%len(palette)]
}

// SanitizeCaption drops characters that break a drawtext filter argument and
// caps the result at maxRunes.
func SanitizeCaption(s string, maxRunes int) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\'', '"', '\\', '%':
			return -1
		case ':', '\n', '\r', '\t':
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")

	if maxRunes > 0 && utf8.RuneCountInString(s) > maxRunes {
		s = strings.TrimSpace(string([]rune(s)[:maxRunes]))
	}
	return s
}
