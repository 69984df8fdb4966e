// Package media is the boundary to the ffmpeg and ffprobe binaries.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const stderrTail = 600

// Runner executes an external tool and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs real binaries from PATH.
type ExecRunner struct {
	Log zerolog.Logger
}

func NewExecRunner(log zerolog.Logger) *ExecRunner {
	return &ExecRunner{Log: log.With().Str("component", "media").Logger()}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.Log.Debug().Str("cmd", name).Strs("args", args).Msg("exec")
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(tail(stderr.String(), stderrTail))
		if msg == "" {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return stdout.Bytes(), nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// ProbeDuration returns the container duration of a media file in seconds.
func ProbeDuration(ctx context.Context, r Runner, path string) (float64, error) {
	out, err := r.Run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probe duration %s: %w", path, err)
	}
	raw := strings.TrimSpace(string(out))
	dur, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("probe duration %s: unexpected output %q", path, raw)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("probe duration %s: non-positive duration %v", path, dur)
	}
	return dur, nil
}

// ErrNoStream is returned by StreamCodec when the selected stream is absent.
var ErrNoStream = errors.New("stream not present")

// StreamCodec returns the codec name of a stream selector such as "a:0" or "v:0".
func StreamCodec(ctx context.Context, r Runner, path, stream string) (string, error) {
	out, err := r.Run(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", stream,
		"-show_entries", "stream=codec_name",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return "", fmt.Errorf("probe stream %s of %s: %w", stream, path, err)
	}
	codec := strings.TrimSpace(string(out))
	if codec == "" {
		return "", fmt.Errorf("%s of %s: %w", stream, path, ErrNoStream)
	}
	// ffprobe prints one line per matching stream
	if i := strings.IndexByte(codec, '\n'); i >= 0 {
		codec = strings.TrimSpace(codec[:i])
	}
	return codec, nil
}

// CheckTools returns the subset of tools that fail to report a version.
func CheckTools(ctx context.Context, r Runner, tools ...string) []string {
	var missing []string
	for _, t := range tools {
		if _, err := r.Run(ctx, t, "-version"); err != nil {
			missing = append(missing, t)
		}
	}
	return missing
}

// Seconds formats a duration for ffmpeg's -t and -ss options.
func Seconds(d float64) string {
	return strconv.FormatFloat(d, 'f', 3, 64)
}
