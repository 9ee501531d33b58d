package a2aClient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deckforge/relay/shared"
	a2aSchema "github.com/deckforge/relay/shared/a2a/schema"
	"github.com/google/uuid"
	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
)

const (
	// DefaultMaxEventSize is the largest SSE event accepted unless WithMaxEventSize says otherwise.
	DefaultMaxEventSize = 1 << 20
	// eventBufferSize bounds how far the reader may run ahead of the consumer.
	eventBufferSize = 8
	// maxErrorBodySize caps how much of a non-2xx body ends up in the error message.
	maxErrorBodySize = 4 << 10
)

// Client provides methods to interact with an A2A agent.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	logger       *zap.Logger
	headers      map[string]string
	idleTimeout  time.Duration
	maxEventSize int
}

// New creates a new A2A client instance. baseURL must be an absolute http(s) URL.
func New(baseURL string, options ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL cannot be empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid agent URL %q: %w", baseURL, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid agent URL %q: expected an absolute http or https URL", baseURL)
	}
	client := &Client{
		baseURL:      baseURL,
		httpClient:   http.DefaultClient,
		headers:      make(map[string]string),
		logger:       zap.NewNop(),
		idleTimeout:  5 * time.Minute,
		maxEventSize: DefaultMaxEventSize,
	}
	for _, option := range options {
		option(client)
	}
	client.logger.Debug("A2A client created")
	return client, nil
}

// BaseURL returns the URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SendMessageStream sends text as a user message via `message/stream` and returns the
// stream of decoded events. metadata, if not nil, travels as the message metadata.
//
// The request is issued on a background goroutine; failures surface as the single
// trailing error event of the stream, never as a return value. The caller must either
// drain the stream or Close it.
func (c *Client) SendMessageStream(ctx context.Context, text string, metadata map[string]any) *Stream {
	streamCtx, cancel := context.WithCancel(ctx)
	events := make(chan shared.AgentEvent, eventBufferSize)
	requestID := uuid.NewString()
	logger := c.logger.With(zap.String("requestID", requestID))

	stream := &Stream{
		events:      events,
		cancel:      cancel,
		idleTimeout: c.idleTimeout,
		logger:      logger,
	}

	body, err := c.buildStreamRequest(requestID, text, metadata)
	if err != nil {
		events <- shared.ErrorEvent(err)
		close(events)
		return stream
	}

	go c.readStream(streamCtx, body, events, logger)
	return stream
}

func (c *Client) buildStreamRequest(requestID, text string, metadata map[string]any) ([]byte, error) {
	message := a2aSchema.Message{
		Kind:      a2aSchema.KindMessage,
		Role:      a2aSchema.RoleUser,
		MessageID: uuid.NewString(),
		Parts:     []a2aSchema.Part{a2aSchema.NewTextPart(text)},
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal message metadata: %w", err)
		}
		message.Metadata = raw
	}
	rpcRequest := a2aSchema.JSONRPCRequest{
		JSONRPC: a2aSchema.JSONRPCVersion,
		ID:      requestID,
		Method:  a2aSchema.MethodMessageStream,
		Params:  a2aSchema.MessageSendParams{Message: message},
	}
	reqBytes, err := json.Marshal(rpcRequest)
	if err != nil {
		return nil, fmt.Errorf("marshal JSON-RPC streaming request: %w", err)
	}
	return reqBytes, nil
}

// readStream owns the HTTP exchange. It closes events when it returns, after at most one error event.
func (c *Client) readStream(ctx context.Context, body []byte, events chan<- shared.AgentEvent, logger *zap.Logger) {
	defer close(events)

	emit := func(event shared.AgentEvent) bool {
		select {
		case events <- event:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		if ctx.Err() != nil {
			logger.Debug("Stream cancelled", zap.Error(err))
			return
		}
		logger.Warn("Agent stream failed", zap.Error(err))
		emit(shared.ErrorEvent(err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL(), bytes.NewReader(body))
	if err != nil {
		fail(fmt.Errorf("create HTTP streaming request: %w", err))
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}

	logger.Debug("Sending streaming A2A request", zap.Int("headerCount", len(c.headers)))
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		fail(fmt.Errorf("agent request failed: %w", err))
		return
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBodySize))
		fail(fmt.Errorf("agent returned HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(bodyBytes))))
		return
	}

	mediaType, _, _ := mime.ParseMediaType(httpResp.Header.Get("Content-Type"))
	switch mediaType {
	case "text/event-stream":
		c.readSSE(ctx, httpResp.Body, emit, fail, logger)
	case "application/json":
		// Agents reject a request before streaming with a plain JSON-RPC response.
		var rpcResponse a2aSchema.JSONRPCResponse
		if err := json.NewDecoder(httpResp.Body).Decode(&rpcResponse); err != nil {
			fail(fmt.Errorf("decode agent response: %w", err))
			return
		}
		event, err := decodeResponse(rpcResponse)
		if err != nil {
			fail(err)
			return
		}
		emit(event)
	default:
		fail(fmt.Errorf("unexpected agent response content type %q", httpResp.Header.Get("Content-Type")))
	}
}

func (c *Client) readSSE(ctx context.Context, body io.Reader, emit func(shared.AgentEvent) bool, fail func(error), logger *zap.Logger) {
	reader := sse.NewEventStreamReader(body, c.maxEventSize)
	for {
		raw, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug("SSE stream closed (EOF)")
				return
			}
			fail(fmt.Errorf("read agent stream: %w", err))
			return
		}
		data, ok := eventData(raw)
		if !ok {
			continue // comment or keepalive
		}

		var rpcResponse a2aSchema.JSONRPCResponse
		if err := json.Unmarshal(data, &rpcResponse); err != nil {
			fail(fmt.Errorf("malformed agent event: %w", err))
			return
		}
		event, err := decodeResponse(rpcResponse)
		if err != nil {
			fail(err)
			return
		}
		if !emit(event) {
			logger.Debug("Ctx cancelled sending SSE event")
			return
		}
		if event.Final {
			logger.Debug("Final event received, closing SSE processing")
			return
		}
	}
}

// eventData joins the data lines of one raw SSE event. ok is false when the event has none.
func eventData(raw []byte) ([]byte, bool) {
	var data [][]byte
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		value := bytes.TrimPrefix(line, []byte("data:"))
		value = bytes.TrimPrefix(value, []byte(" "))
		data = append(data, value)
	}
	if len(data) == 0 {
		return nil, false
	}
	return bytes.Join(data, []byte("\n")), true
}

// decodeResponse turns one JSON-RPC response into an AgentEvent. JSON-RPC errors and
// payloads that do not match their declared kind are returned as errors.
func decodeResponse(rpcResponse a2aSchema.JSONRPCResponse) (shared.AgentEvent, error) {
	if rpcResponse.Error != nil {
		return shared.AgentEvent{}, rpcResponse.Error
	}
	if len(rpcResponse.Result) == 0 || string(rpcResponse.Result) == "null" {
		return shared.AgentEvent{}, fmt.Errorf("malformed agent event: no result")
	}
	return decodeResult(rpcResponse.Result)
}

func decodeResult(raw json.RawMessage) (shared.AgentEvent, error) {
	kind, err := a2aSchema.ResultKind(raw)
	if err != nil {
		return shared.AgentEvent{}, fmt.Errorf("malformed agent event: %w", err)
	}
	switch kind {
	case a2aSchema.KindStatusUpdate:
		var update a2aSchema.TaskStatusUpdateEvent
		if err := json.Unmarshal(raw, &update); err != nil {
			return shared.AgentEvent{}, fmt.Errorf("malformed status update: %w", err)
		}
		event := shared.AgentEvent{Kind: shared.EventKindStatusUpdate, Final: update.Final}
		if msg := update.Status.Message; msg != nil {
			event.TextFragments = a2aSchema.TextFragments(msg.Parts)
			event.Metadata = presentMetadata(msg.Metadata)
		}
		return event, nil
	case a2aSchema.KindArtifactUpdate:
		var update a2aSchema.TaskArtifactUpdateEvent
		if err := json.Unmarshal(raw, &update); err != nil {
			return shared.AgentEvent{}, fmt.Errorf("malformed artifact update: %w", err)
		}
		return shared.AgentEvent{
			Kind:          shared.EventKindArtifactUpdate,
			TextFragments: a2aSchema.TextFragments(update.Artifact.Parts),
			Metadata:      presentMetadata(update.Artifact.Metadata),
		}, nil
	case "":
		return shared.AgentEvent{Kind: "unknown"}, nil
	}
	return shared.AgentEvent{Kind: kind}, nil
}

func presentMetadata(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
