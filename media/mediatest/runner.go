// Package mediatest provides a scripted stand-in for ffmpeg and ffprobe.
package mediatest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []string
}

// Has reports whether the call carries the given flag followed by value.
func (c Call) Has(flag, value string) bool {
	for i := 0; i+1 < len(c.Args); i++ {
		if c.Args[i] == flag && c.Args[i+1] == value {
			return true
		}
	}
	return false
}

// Flag returns the value following the last occurrence of flag.
func (c Call) Flag(flag string) (string, bool) {
	for i := len(c.Args) - 2; i >= 0; i-- {
		if c.Args[i] == flag {
			return c.Args[i+1], true
		}
	}
	return "", false
}

// Output is the last argument, which is the output file for ffmpeg.
func (c Call) Output() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[len(c.Args)-1]
}

// Runner fakes ffmpeg, ffprobe and command-line TTS tools.
//
// ffmpeg calls write their output file and remember the duration implied by
// -t, or for the concat demuxer the sum of the listed inputs. ffprobe answers
// duration queries from Durations (glob on the base name) first and from
// remembered durations second.
type Runner struct {
	Durations  map[string]float64
	AudioCodec string
	VideoCodec string
	NoAudio    bool
	OutputSize int

	// Fail lets a test reject a specific invocation.
	Fail func(name string, args []string) error

	mu       sync.Mutex
	calls    []Call
	produced map[string]float64
}

func New() *Runner {
	return &Runner{Durations: map[string]float64{}}
}

func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsTo filters the recorded calls by binary name.
func (r *Runner) CallsTo(name string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// FFmpegWriting returns the ffmpeg calls whose output base name matches pattern.
func (r *Runner) FFmpegWriting(pattern string) []Call {
	var out []Call
	for _, c := range r.CallsTo("ffmpeg") {
		if ok, _ := path.Match(pattern, filepath.Base(c.Output())); ok {
			out = append(out, c)
		}
	}
	return out
}

func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.calls = append(r.calls, Call{Name: name, Args: append([]string(nil), args...)})
	fail := r.Fail
	r.mu.Unlock()

	if fail != nil {
		if err := fail(name, args); err != nil {
			return nil, err
		}
	}

	if len(args) == 1 && args[0] == "-version" {
		return []byte(name + " version fake\n"), nil
	}

	switch name {
	case "ffprobe":
		return r.probe(args)
	case "ffmpeg":
		return nil, r.ffmpeg(args)
	default:
		return nil, r.writeFlag(args, "--write-media")
	}
}

func (r *Runner) probe(args []string) ([]byte, error) {
	file := args[len(args)-1]
	if _, err := os.Stat(file); err != nil {
		return nil, fmt.Errorf("ffprobe: %s: No such file or directory", file)
	}

	call := Call{Args: args}
	if stream, ok := call.Flag("-select_streams"); ok {
		switch {
		case strings.HasPrefix(stream, "a"):
			if r.NoAudio {
				return []byte(""), nil
			}
			return []byte(orDefault(r.AudioCodec, "aac") + "\n"), nil
		default:
			return []byte(orDefault(r.VideoCodec, "h264") + "\n"), nil
		}
	}

	d, ok := r.duration(file)
	if !ok {
		return []byte("N/A\n"), nil
	}
	return []byte(strconv.FormatFloat(d, 'f', 6, 64) + "\n"), nil
}

func (r *Runner) duration(file string) (float64, bool) {
	base := filepath.Base(file)
	patterns := make([]string, 0, len(r.Durations))
	for p := range r.Durations {
		patterns = append(patterns, p)
	}
	// longest pattern first so specific names win over wildcards
	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i]) != len(patterns[j]) {
			return len(patterns[i]) > len(patterns[j])
		}
		return patterns[i] < patterns[j]
	})
	for _, p := range patterns {
		if ok, _ := path.Match(p, base); ok {
			return r.Durations[p], true
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.produced[file]
	return d, ok
}

func (r *Runner) ffmpeg(args []string) error {
	var format string
	var inputs []string
	for i := 0; i < len(args)-1; i++ {
		switch args[i] {
		case "-f":
			format = args[i+1]
		case "-i":
			in := args[i+1]
			if format != "lavfi" {
				if _, err := os.Stat(in); err != nil {
					return fmt.Errorf("ffmpeg: %s: No such file or directory", in)
				}
			}
			if format == "concat" {
				inputs = append(inputs, in)
			}
			format = ""
		}
	}

	out := args[len(args)-1]
	if err := r.write(out); err != nil {
		return err
	}

	var dur float64
	var known bool
	if t, ok := (Call{Args: args}).Flag("-t"); ok {
		if v, err := strconv.ParseFloat(t, 64); err == nil {
			dur, known = v, true
		}
	} else if len(inputs) == 1 {
		dur, known = r.concatDuration(inputs[0])
	}
	if known {
		r.mu.Lock()
		if r.produced == nil {
			r.produced = map[string]float64{}
		}
		r.produced[out] = dur
		r.mu.Unlock()
	}
	return nil
}

func (r *Runner) concatDuration(list string) (float64, bool) {
	f, err := os.Open(list)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	var total float64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "file ") {
			continue
		}
		p := strings.Trim(strings.TrimPrefix(line, "file "), "'")
		d, ok := r.duration(p)
		if !ok {
			return 0, false
		}
		total += d
	}
	return total, true
}

func (r *Runner) writeFlag(args []string, flag string) error {
	out, ok := (Call{Args: args}).Flag(flag)
	if !ok {
		return errors.New("no output flag")
	}
	return r.write(out)
}

func (r *Runner) write(out string) error {
	size := r.OutputSize
	if size <= 0 {
		size = 4096
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	return os.WriteFile(out, make([]byte, size), 0o644)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
