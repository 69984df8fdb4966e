package script

import (
	"context"
	"fmt"
	"strings"

	"ai-video-pipeline/types"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const fallbackSceneDuration = 10.0

// Template builds a script from the topic alone. It never fails.
type Template struct{}

func (Template) Name() string { return "template" }

func (Template) Produce(_ context.Context, topic string) (*types.Script, error) {
	return Fallback(topic), nil
}

// Fallback is the deterministic three-scene script used when no model is reachable.
func Fallback(topic string) *types.Script {
	topic = strings.TrimSpace(topic)
	scenes := []types.Scene{
		{
			Duration:    fallbackSceneDuration,
			Description: fmt.Sprintf("introduction to %s", topic),
			Text:        fmt.Sprintf("Welcome to our video about %s. This is a fascinating subject that many people want to learn about.", topic),
		},
		{
			Duration:    fallbackSceneDuration,
			Description: fmt.Sprintf("%s key concepts", topic),
			Text:        fmt.Sprintf("%s has a rich history. Let's explore the key concepts together.", topic),
		},
		{
			Duration:    fallbackSceneDuration,
			Description: fmt.Sprintf("%s conclusion", topic),
			Text:        fmt.Sprintf("Understanding %s can open up new possibilities. Thank you for watching.", topic),
		},
	}

	texts := make([]string, len(scenes))
	for i, sc := range scenes {
		texts[i] = sc.Text
	}

	return &types.Script{
		Title:  "Understanding " + cases.Title(language.English, cases.NoLower).String(topic),
		Script: strings.Join(texts, " "),
		Scenes: scenes,
	}
}
