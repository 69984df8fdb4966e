package render

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"ai-video-pipeline/media"
)

// ErrInvalidDuration is returned by Fit for non-positive inputs.
var ErrInvalidDuration = errors.New("durations must be positive")

// loop counts are rounded up, so ratios within this of an integer count as exact
const fitEpsilon = 1e-6

// FitPlan says how to stretch a stream of one length to exactly another:
// play it Loops times back to back, then cut at Duration.
type FitPlan struct {
	Loops    int
	Duration float64
}

// Fit loops first and trims second. A source at least as long as the target
// is only trimmed.
func Fit(source, target float64) (FitPlan, error) {
	if source <= 0 || target <= 0 || math.IsNaN(source) || math.IsNaN(target) || math.IsInf(source, 0) || math.IsInf(target, 0) {
		return FitPlan{}, fmt.Errorf("fit %v to %v: %w", source, target, ErrInvalidDuration)
	}
	loops := 1
	if source < target {
		loops = int(math.Ceil(target/source - fitEpsilon))
		if loops < 1 {
			loops = 1
		}
	}
	return FitPlan{Loops: loops, Duration: target}, nil
}

// Looped reports whether the source needs repeating.
func (p FitPlan) Looped() bool { return p.Loops > 1 }

// InputArgs renders the plan as ffmpeg input options for in, followed by the
// output duration cap.
func (p FitPlan) InputArgs(in string) []string {
	var args []string
	if p.Looped() {
		args = append(args, "-stream_loop", strconv.Itoa(p.Loops-1))
	}
	return append(args, "-i", in, "-t", media.Seconds(p.Duration))
}
