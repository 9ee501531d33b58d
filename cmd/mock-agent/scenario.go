package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/deckforge/relay/clients/a2aClient/a2atest"
	a2aSchema "github.com/deckforge/relay/shared/a2a/schema"
	"go.uber.org/zap"
)

const defaultCards = 5

// scenario picks the agent behaviour from trigger words in the prompt, so the relay
// can be exercised end to end without a real model.
type scenario struct {
	stepDelay time.Duration
	logger    *zap.Logger
}

// pause waits stepDelay and reports false when the caller went away.
func (s *scenario) pause(w *a2atest.EventWriter) bool {
	if s.stepDelay <= 0 {
		return true
	}
	select {
	case <-w.Done():
		return false
	case <-time.After(s.stepDelay):
		return true
	}
}

// common handles the trigger words shared by both agents. It reports true when the
// request was fully answered.
func (s *scenario) common(w *a2atest.EventWriter, text string) bool {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "error_test"):
		s.logger.Info("Simulating agent error")
		_ = w.Status(a2aSchema.TaskStateWorking, false, nil, "Processing your request...")
		s.pause(w)
		_ = w.Error(a2aSchema.ErrorInternalError, "Simulated processing error occurred.")
		return true
	case strings.Contains(lower, "hang_test"):
		s.logger.Info("Simulating a silent agent")
		_ = w.Status(a2aSchema.TaskStateWorking, false, nil, "Processing your request...")
		<-w.Done()
		return true
	}
	return false
}

// outline answers with a working status and one numbered outline artifact.
func (s *scenario) outline(w *a2atest.EventWriter, req a2atest.Request) {
	text := strings.TrimSpace(req.Text())
	if s.common(w, text) {
		return
	}

	cards := defaultCards
	metadata := req.Metadata()
	if n, ok := metadata["numberOfCards"].(float64); ok && n >= 1 {
		cards = int(n)
	}
	language, _ := metadata["language"].(string)
	s.logger.Info("Generating outline", zap.Int("cards", cards), zap.String("language", language))

	_ = w.Task(a2aSchema.TaskStateSubmitted)
	_ = w.Status(a2aSchema.TaskStateWorking, false, nil, "Generating outline...")
	if !s.pause(w) {
		return
	}

	var outline strings.Builder
	for i := 1; i <= cards; i++ {
		if i > 1 {
			outline.WriteString("\n")
		}
		fmt.Fprintf(&outline, "%d. %s: part %d", i, text, i)
	}
	_ = w.Artifact("outline", map[string]any{"language": language}, outline.String())
	_ = w.Status(a2aSchema.TaskStateCompleted, true, nil)
}

// slides answers with one status and one markdown artifact per outline item.
func (s *scenario) slides(w *a2atest.EventWriter, req a2atest.Request) {
	text := req.Text()
	if s.common(w, text) {
		return
	}

	items := outlineItems(text)
	s.logger.Info("Generating slides", zap.Int("slides", len(items)))

	_ = w.Task(a2aSchema.TaskStateSubmitted)
	for i, item := range items {
		slide := map[string]any{"slide": i + 1, "total": len(items)}
		_ = w.Status(a2aSchema.TaskStateWorking, false, slide, fmt.Sprintf("Generating slide %d of %d...", i+1, len(items)))
		if !s.pause(w) {
			return
		}
		_ = w.Artifact(fmt.Sprintf("slide-%d", i+1), slide, fmt.Sprintf("# %s\n\n- Key point about %s", item, item))
	}
	_ = w.Status(a2aSchema.TaskStateCompleted, true, nil, "Presentation ready.")
}

// outlineItems extracts the numbered lines following "Outline:" in a composed slides prompt.
func outlineItems(text string) []string {
	_, after, found := strings.Cut(text, "Outline:")
	if !found {
		return nil
	}
	var items []string
	for _, line := range strings.Split(after, "\n") {
		line = strings.TrimSpace(line)
		number, item, ok := strings.Cut(line, ". ")
		if !ok || number == "" || strings.Trim(number, "0123456789") != "" {
			continue
		}
		items = append(items, item)
	}
	return items
}
