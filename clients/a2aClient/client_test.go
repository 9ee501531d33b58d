package a2aClient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deckforge/relay/clients/a2aClient/a2atest"
	"github.com/deckforge/relay/shared"
	a2aSchema "github.com/deckforge/relay/shared/a2a/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// collect drains the stream, failing the test if it does not end in time.
func collect(t *testing.T, stream *Stream) []shared.AgentEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var events []shared.AgentEvent
	for {
		event, ok := stream.Next(ctx)
		if !ok {
			require.NoError(t, ctx.Err(), "stream did not end in time")
			return events
		}
		events = append(events, event)
	}
}

func newTestClient(t *testing.T, url string, options ...ClientOption) *Client {
	t.Helper()
	client, err := New(url, append([]ClientOption{WithLogger(zap.NewNop())}, options...)...)
	require.NoError(t, err)
	return client
}

func TestNewValidatesURL(t *testing.T) {
	for _, url := range []string{"", "ftp://agent", "localhost:10001", "http://", "://bad"} {
		_, err := New(url)
		assert.Error(t, err, url)
	}
	client, err := New("http://localhost:10001")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:10001", client.BaseURL())
}

func TestSendMessageStream(t *testing.T) {
	agent, server := a2atest.NewServer("outline", func(w *a2atest.EventWriter, req a2atest.Request) {
		_ = w.Task(a2aSchema.TaskStateSubmitted)
		_ = w.Comment("keepalive")
		_ = w.Status(a2aSchema.TaskStateWorking, false, nil, "Thinking")
		_ = w.Artifact("outline", map[string]any{"cards": 2}, "1. A", "2. B")
		_ = w.Status(a2aSchema.TaskStateCompleted, true, nil)
	})
	defer server.Close()

	client := newTestClient(t, server.URL, WithHeaders(map[string]string{"X-Trace": "abc"}))
	events := collect(t, client.SendMessageStream(context.Background(), "Intro to graphs", map[string]any{"numberOfCards": 2}))

	require.Len(t, events, 4)
	assert.Equal(t, "task", events[0].Kind)
	assert.Equal(t, shared.EventKindStatusUpdate, events[1].Kind)
	assert.Equal(t, []string{"Thinking"}, events[1].TextFragments)
	assert.Nil(t, events[1].Metadata)
	assert.Equal(t, shared.EventKindArtifactUpdate, events[2].Kind)
	assert.Equal(t, []string{"1. A", "2. B"}, events[2].TextFragments)
	assert.JSONEq(t, `{"cards":2}`, string(events[2].Metadata))
	assert.True(t, events[3].Final)
	assert.Empty(t, events[3].TextFragments)

	requests := agent.Requests()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, a2aSchema.MethodMessageStream, req.Method)
	assert.Equal(t, "Intro to graphs", req.Text())
	assert.Equal(t, map[string]any{"numberOfCards": float64(2)}, req.Metadata())
	assert.Equal(t, a2aSchema.RoleUser, req.Message.Role)
	assert.NotEmpty(t, req.ID)
	assert.NotEmpty(t, req.Message.MessageID)
	assert.NotEqual(t, req.ID, req.Message.MessageID)
	assert.Equal(t, "text/event-stream", req.Header.Get("Accept"))
	assert.Equal(t, "abc", req.Header.Get("X-Trace"))
}

func TestSendMessageStreamFreshIdentifiers(t *testing.T) {
	agent, server := a2atest.NewServer("outline", func(w *a2atest.EventWriter, req a2atest.Request) {
		_ = w.Status(a2aSchema.TaskStateCompleted, true, nil)
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	collect(t, client.SendMessageStream(context.Background(), "one", nil))
	collect(t, client.SendMessageStream(context.Background(), "two", nil))

	requests := agent.Requests()
	require.Len(t, requests, 2)
	assert.NotEqual(t, requests[0].ID, requests[1].ID)
	assert.NotEqual(t, requests[0].Message.MessageID, requests[1].Message.MessageID)
	assert.Nil(t, requests[0].Metadata())
}

func TestSendMessageStreamResultKindError(t *testing.T) {
	_, server := a2atest.NewServer("outline", func(w *a2atest.EventWriter, req a2atest.Request) {
		_ = w.Status(a2aSchema.TaskStateWorking, false, nil, "one")
		_ = w.Raw(`{"jsonrpc":"2.0","id":"1","result":{"kind":"error","detail":"agent-defined"}}`)
		_ = w.Status(a2aSchema.TaskStateCompleted, true, nil, "two")
	})
	defer server.Close()

	events := collect(t, newTestClient(t, server.URL).SendMessageStream(context.Background(), "x", nil))
	require.Len(t, events, 3)
	assert.Equal(t, "error", events[1].Kind)
	assert.False(t, events[1].IsError(), "only transport and protocol failures are terminal")
	assert.Equal(t, []string{"two"}, events[2].TextFragments)
	assert.True(t, events[2].Final)
}

func TestSendMessageStreamMaxEventSize(t *testing.T) {
	large := strings.Repeat("x", 4096)
	_, server := a2atest.NewServer("slides", func(w *a2atest.EventWriter, req a2atest.Request) {
		_ = w.Artifact("slide-1", nil, large)
		_ = w.Status(a2aSchema.TaskStateCompleted, true, nil)
	})
	defer server.Close()

	events := collect(t, newTestClient(t, server.URL, WithMaxEventSize(1024)).SendMessageStream(context.Background(), "x", nil))
	require.Len(t, events, 1)
	assert.True(t, events[0].IsError())

	events = collect(t, newTestClient(t, server.URL, WithMaxEventSize(8192)).SendMessageStream(context.Background(), "x", nil))
	require.Len(t, events, 2)
	assert.Equal(t, []string{large}, events[0].TextFragments)
}

func TestSendMessageStreamLegacyPayloads(t *testing.T) {
	_, server := a2atest.NewServer("legacy", func(w *a2atest.EventWriter, req a2atest.Request) {
		_ = w.Raw(`{"jsonrpc":"2.0","id":"1","result":{"id":"t1","status":{"state":"working","message":{"role":"agent","parts":[{"type":"text","text":"legacy status"}],"metadata":{"step":1}}},"final":false}}`)
		_ = w.Raw(`{"jsonrpc":"2.0","id":"1","result":{"id":"t1","artifact":{"parts":[{"type":"text","text":"legacy artifact"},{"type":"file","file":{"uri":"x"}}],"metadata":null}}}`)
		_ = w.Raw(`{"jsonrpc":"2.0","id":"1","result":{"id":"t1","status":{"state":"completed"},"final":true}}`)
	})
	defer server.Close()

	events := collect(t, newTestClient(t, server.URL).SendMessageStream(context.Background(), "x", nil))
	require.Len(t, events, 3)
	assert.Equal(t, shared.EventKindStatusUpdate, events[0].Kind)
	assert.Equal(t, []string{"legacy status"}, events[0].TextFragments)
	assert.JSONEq(t, `{"step":1}`, string(events[0].Metadata))
	assert.Equal(t, shared.EventKindArtifactUpdate, events[1].Kind)
	assert.Equal(t, []string{"legacy artifact"}, events[1].TextFragments)
	assert.Nil(t, events[1].Metadata)
	assert.True(t, events[2].Final)
}

func TestSendMessageStreamStopsAfterFinal(t *testing.T) {
	_, server := a2atest.NewServer("outline", func(w *a2atest.EventWriter, req a2atest.Request) {
		_ = w.Status(a2aSchema.TaskStateCompleted, true, nil, "done")
		_ = w.Status(a2aSchema.TaskStateWorking, false, nil, "ignored")
	})
	defer server.Close()

	events := collect(t, newTestClient(t, server.URL).SendMessageStream(context.Background(), "x", nil))
	require.Len(t, events, 1)
	assert.Equal(t, []string{"done"}, events[0].TextFragments)
}

func TestSendMessageStreamFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
		before  int
	}{
		{
			name: "json-rpc error event",
			handler: a2atest.NewAgent("e", func(w *a2atest.EventWriter, req a2atest.Request) {
				_ = w.Status(a2aSchema.TaskStateWorking, false, nil, "one")
				_ = w.Error(a2aSchema.ErrorInternalError, "model overloaded")
				_ = w.Status(a2aSchema.TaskStateWorking, false, nil, "never")
			}, nil).ServeHTTP,
			wantErr: "JSON-RPC Error -32603: model overloaded",
			before:  1,
		},
		{
			name: "malformed event",
			handler: a2atest.NewAgent("e", func(w *a2atest.EventWriter, req a2atest.Request) {
				_ = w.Status(a2aSchema.TaskStateWorking, false, nil, "one")
				_ = w.Raw(`{not json`)
			}, nil).ServeHTTP,
			wantErr: "malformed agent event",
			before:  1,
		},
		{
			name: "event without result",
			handler: a2atest.NewAgent("e", func(w *a2atest.EventWriter, req a2atest.Request) {
				_ = w.Raw(`{"jsonrpc":"2.0","id":"1"}`)
			}, nil).ServeHTTP,
			wantErr: "no result",
		},
		{
			name: "status with wrong shape",
			handler: a2atest.NewAgent("e", func(w *a2atest.EventWriter, req a2atest.Request) {
				_ = w.Raw(`{"jsonrpc":"2.0","id":"1","result":{"kind":"status-update","status":{"state":"working","message":{"parts":"oops"}}}}`)
			}, nil).ServeHTTP,
			wantErr: "malformed status update",
		},
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "agent exploded", http.StatusBadGateway)
			},
			wantErr: "agent returned HTTP 502: agent exploded",
		},
		{
			name: "plain json-rpc error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"1","error":{"code":-32602,"message":"bad params"}}`))
			},
			wantErr: "JSON-RPC Error -32602: bad params",
		},
		{
			name: "unexpected content type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte(`<html></html>`))
			},
			wantErr: "unexpected agent response content type",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			events := collect(t, newTestClient(t, server.URL).SendMessageStream(context.Background(), "x", nil))
			require.Len(t, events, tc.before+1)
			last := events[len(events)-1]
			assert.Equal(t, shared.EventKindError, last.Kind)
			require.Error(t, last.Err)
			assert.Contains(t, last.Err.Error(), tc.wantErr)
			for _, event := range events[:tc.before] {
				assert.False(t, event.IsError())
			}
		})
	}
}

func TestSendMessageStreamConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	events := collect(t, newTestClient(t, url).SendMessageStream(context.Background(), "x", nil))
	require.Len(t, events, 1)
	assert.Equal(t, shared.EventKindError, events[0].Kind)
	assert.Contains(t, events[0].Err.Error(), "agent request failed")
}

func TestStreamIdleTimeout(t *testing.T) {
	released := make(chan struct{})
	_, server := a2atest.NewServer("slow", func(w *a2atest.EventWriter, req a2atest.Request) {
		_ = w.Status(a2aSchema.TaskStateWorking, false, nil, "started")
		<-w.Done()
		close(released)
	})
	defer server.Close()

	client := newTestClient(t, server.URL, WithIdleTimeout(100*time.Millisecond))
	events := collect(t, client.SendMessageStream(context.Background(), "x", nil))

	require.Len(t, events, 2)
	assert.Equal(t, []string{"started"}, events[0].TextFragments)
	assert.Equal(t, shared.EventKindError, events[1].Kind)
	assert.Contains(t, events[1].Err.Error(), "no event from agent within 100ms")

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream request was not cancelled after idle timeout")
	}
}

func TestStreamCloseCancelsUpstream(t *testing.T) {
	released := make(chan struct{})
	_, server := a2atest.NewServer("slow", func(w *a2atest.EventWriter, req a2atest.Request) {
		_ = w.Status(a2aSchema.TaskStateWorking, false, nil, "started")
		<-w.Done()
		close(released)
	})
	defer server.Close()

	stream := newTestClient(t, server.URL, WithIdleTimeout(0)).SendMessageStream(context.Background(), "x", nil)
	event, ok := stream.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, []string{"started"}, event.TextFragments)

	stream.Close()
	stream.Close()

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream request was not cancelled after Close")
	}
	_, ok = stream.Next(context.Background())
	assert.False(t, ok)
}

func TestStreamContextCancellation(t *testing.T) {
	released := make(chan struct{})
	_, server := a2atest.NewServer("slow", func(w *a2atest.EventWriter, req a2atest.Request) {
		<-w.Done()
		close(released)
	})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	stream := newTestClient(t, server.URL).SendMessageStream(ctx, "x", nil)
	time.AfterFunc(50*time.Millisecond, cancel)

	_, ok := stream.Next(context.Background())
	assert.False(t, ok, "a cancelled stream ends without an error event")

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream request was not cancelled with the context")
	}
}

func TestFetchAgentCard(t *testing.T) {
	agent, server := a2atest.NewServer("Outline Agent", nil)
	defer server.Close()
	agent.Card.DefaultOutputModes = nil

	info, err := FetchAgentCard(context.Background(), server.URL+"/some/path", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Outline Agent", info.Name)
	assert.Equal(t, server.URL, info.URL)
	assert.Equal(t, []string{"text"}, info.DefaultOutputModes)
}

func TestFetchAgentCardInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"no url"}`))
	}))
	defer server.Close()

	_, err := FetchAgentCard(context.Background(), server.URL, nil, nil)
	assert.ErrorContains(t, err, "missing required fields")
}

func TestProbeAgentRetriesUntilReady(t *testing.T) {
	agent := a2atest.NewAgent("Slides Agent", nil, nil)
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		agent.ServeHTTP(w, r)
	}))
	defer server.Close()
	agent.Card.URL = server.URL

	b := NewProbeBackOff(5*time.Millisecond, 20*time.Millisecond, 5*time.Second)
	info, err := ProbeAgent(context.Background(), server.URL, nil, b, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Slides Agent", info.Name)
	assert.Equal(t, int32(3), calls.Load())
}

func TestProbeAgentStopsWithContext(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	b := NewProbeBackOff(5*time.Millisecond, 10*time.Millisecond, 0)

	_, err := ProbeAgent(ctx, url, nil, b, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
