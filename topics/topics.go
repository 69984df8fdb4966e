// Package topics collects the topics a batch run works through.
package topics

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// FromArgs trims the arguments and drops empty and repeated entries.
func FromArgs(args []string) []string {
	return normalize(args)
}

// FromFile reads topics from a YAML list, a YAML document with a "topics"
// key, or plain text with one topic per line and '#' comments.
func FromFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topics: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	if list, ok := parseYAML(data); ok {
		return normalize(list), nil
	}

	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan topics: %w", err)
	}
	return normalize(out), nil
}

func parseYAML(data []byte) ([]string, bool) {
	var list []string
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return list, true
	}
	var doc struct {
		Topics []string `yaml:"topics"`
	}
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Topics) > 0 {
		return doc.Topics, true
	}
	return nil, false
}

var ErrNoTopics = errors.New("no topics")

// Resolve picks the first non-empty source in order.
func Resolve(sources ...[]string) ([]string, error) {
	for _, s := range sources {
		if n := normalize(s); len(n) > 0 {
			return n, nil
		}
	}
	return nil, ErrNoTopics
}

func normalize(in []string) []string {
	out := lo.FilterMap(in, func(s string, _ int) (string, bool) {
		s = strings.Join(strings.Fields(s), " ")
		return s, s != ""
	})
	return lo.Uniq(out)
}
