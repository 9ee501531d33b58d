package main

import (
	"context"
	"testing"

	"github.com/deckforge/relay/clients/a2aClient"
	"github.com/deckforge/relay/clients/a2aClient/a2atest"
	"github.com/deckforge/relay/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func collect(t *testing.T, handler a2atest.HandlerFunc, text string, metadata map[string]any) []shared.AgentEvent {
	t.Helper()
	_, srv := a2atest.NewServer("mock", handler)
	defer srv.Close()

	client, err := a2aClient.New(srv.URL)
	require.NoError(t, err)
	stream := client.SendMessageStream(context.Background(), text, metadata)
	defer stream.Close()

	var events []shared.AgentEvent
	for {
		event, ok := stream.Next(context.Background())
		if !ok {
			return events
		}
		events = append(events, event)
	}
}

func TestOutlineScenario(t *testing.T) {
	s := &scenario{logger: zap.NewNop()}
	events := collect(t, s.outline, "Graphs", map[string]any{"numberOfCards": 3, "language": "en"})

	require.Len(t, events, 4)
	assert.Equal(t, []string{"Generating outline..."}, events[1].TextFragments)
	assert.Equal(t, shared.EventKindArtifactUpdate, events[2].Kind)
	assert.Equal(t, []string{"1. Graphs: part 1\n2. Graphs: part 2\n3. Graphs: part 3"}, events[2].TextFragments)
	assert.JSONEq(t, `{"language":"en"}`, string(events[2].Metadata))
	assert.True(t, events[3].Final)
}

func TestSlidesScenario(t *testing.T) {
	s := &scenario{logger: zap.NewNop()}
	prompt := "Please generate a presentation with the following details:\nTitle: Graphs\nLanguage: en\nTone for images: calm\n\nOutline:\n1. Nodes\n2. Edges\n"
	events := collect(t, s.slides, prompt, nil)

	// task, then status+artifact per slide, then the final status
	require.Len(t, events, 6)
	assert.Equal(t, []string{"Generating slide 1 of 2..."}, events[1].TextFragments)
	assert.JSONEq(t, `{"slide":1,"total":2}`, string(events[1].Metadata))
	assert.Equal(t, []string{"# Nodes\n\n- Key point about Nodes"}, events[2].TextFragments)
	assert.Equal(t, []string{"# Edges\n\n- Key point about Edges"}, events[4].TextFragments)
	assert.Equal(t, []string{"Presentation ready."}, events[5].TextFragments)
	assert.True(t, events[5].Final)
}

func TestErrorTrigger(t *testing.T) {
	s := &scenario{logger: zap.NewNop()}
	events := collect(t, s.outline, "please error_test now", nil)

	require.Len(t, events, 2)
	assert.Equal(t, shared.EventKindError, events[1].Kind)
	assert.EqualError(t, events[1].Err, "JSON-RPC Error -32603: Simulated processing error occurred.")
}

func TestOutlineItems(t *testing.T) {
	assert.Nil(t, outlineItems("no outline here"))
	assert.Equal(t, []string{"A", "B. with dot"}, outlineItems("Title: x\nOutline:\n1. A\nnot an item\n10. B. with dot\n"))
}

func TestAdvertisedURL(t *testing.T) {
	assert.Equal(t, "http://localhost:10001", advertisedURL(":10001"))
	assert.Equal(t, "http://127.0.0.1:9", advertisedURL("127.0.0.1:9"))
	assert.Equal(t, "http://localhost:9", advertisedURL("0.0.0.0:9"))
}
