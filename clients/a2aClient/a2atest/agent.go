// Package a2atest provides a scripted A2A agent for tests and local development.
package a2atest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/deckforge/relay/shared"
	a2aSchema "github.com/deckforge/relay/shared/a2a/schema"
	"go.uber.org/zap"
)

// Request is one JSON-RPC call received by the Agent.
type Request struct {
	ID      string
	Method  string
	Message a2aSchema.Message
	Header  http.Header
}

// Text returns the concatenated text parts of the request message.
func (r Request) Text() string {
	var text string
	for _, fragment := range a2aSchema.TextFragments(r.Message.Parts) {
		text += fragment
	}
	return text
}

// Metadata decodes the request message metadata. It returns nil when there is none.
func (r Request) Metadata() map[string]any {
	if len(r.Message.Metadata) == 0 {
		return nil
	}
	var metadata map[string]any
	if err := json.Unmarshal(r.Message.Metadata, &metadata); err != nil {
		return nil
	}
	return metadata
}

// HandlerFunc answers one `message/stream` call by writing events to w.
type HandlerFunc func(w *EventWriter, req Request)

// Agent serves an agent card at /.well-known/agent.json and answers every POST with handler.
type Agent struct {
	Card    a2aSchema.AgentCard
	handler HandlerFunc
	logger  *zap.Logger

	mu       sync.Mutex
	requests []Request
}

// NewAgent creates an Agent. logger may be nil.
func NewAgent(name string, handler HandlerFunc, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		Card: a2aSchema.AgentCard{
			Name:               name,
			Version:            "1.0.0",
			Capabilities:       a2aSchema.AgentCapabilities{Streaming: true},
			DefaultInputModes:  []string{"text"},
			DefaultOutputModes: []string{"text"},
			Skills:             []a2aSchema.AgentSkill{},
		},
		handler: handler,
		logger:  logger.Named("a2atest").With(zap.String("agent", name)),
	}
}

// NewServer starts an httptest server for the agent and points the card URL at it.
func NewServer(name string, handler HandlerFunc) (*Agent, *httptest.Server) {
	agent := NewAgent(name, handler, nil)
	server := httptest.NewServer(agent)
	agent.Card.URL = server.URL
	return agent, server
}

// Requests returns a copy of every request received so far.
func (a *Agent) Requests() []Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Request(nil), a.requests...)
}

func (a *Agent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && r.URL.Path == "/.well-known/agent.json" {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.Card)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var rpcRequest struct {
		ID     string                      `json:"id"`
		Method string                      `json:"method"`
		Params a2aSchema.MessageSendParams `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&rpcRequest); err != nil {
		writeJSONRPCError(w, nil, a2aSchema.ErrorParseError, err.Error())
		return
	}
	req := Request{
		ID:      rpcRequest.ID,
		Method:  rpcRequest.Method,
		Message: rpcRequest.Params.Message,
		Header:  r.Header.Clone(),
	}
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.mu.Unlock()
	a.logger.Debug("Received request", zap.String("method", req.Method), zap.String("id", req.ID))

	if req.Method != a2aSchema.MethodMessageStream {
		writeJSONRPCError(w, req.ID, a2aSchema.ErrorMethodNotFound, "method not found: "+req.Method)
		return
	}
	a.handler(&EventWriter{w: w, r: r, requestID: req.ID, taskID: "task-" + req.ID}, req)
}

func writeJSONRPCError(w http.ResponseWriter, id any, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a2aSchema.JSONRPCResponse{
		JSONRPC: a2aSchema.JSONRPCVersion,
		ID:      id,
		Error:   &a2aSchema.JSONRPCError{Code: code, Message: message},
	})
}

// EventWriter writes SSE events of one streamed response. The first write sends the headers.
type EventWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	requestID string
	taskID    string
	started   bool
	eventID   int
}

// Done reports whether the relay went away.
func (e *EventWriter) Done() <-chan struct{} {
	return e.r.Context().Done()
}

func (e *EventWriter) start() {
	if e.started {
		return
	}
	e.started = true
	e.w.Header().Set("Content-Type", "text/event-stream")
	e.w.Header().Set("Cache-Control", "no-cache")
	e.w.WriteHeader(http.StatusOK)
}

// Raw writes data as one SSE event without validating it.
func (e *EventWriter) Raw(data string) error {
	e.start()
	e.eventID++
	if _, err := fmt.Fprintf(e.w, "id: %d\ndata: %s\n\n", e.eventID, data); err != nil {
		return err
	}
	if flusher, ok := e.w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// Comment writes an SSE comment line, as used for keepalives.
func (e *EventWriter) Comment(text string) error {
	e.start()
	if _, err := fmt.Fprintf(e.w, ": %s\n\n", text); err != nil {
		return err
	}
	if flusher, ok := e.w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// Result writes result wrapped in a JSON-RPC response.
func (e *EventWriter) Result(result any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	data, err := json.Marshal(a2aSchema.JSONRPCResponse{JSONRPC: a2aSchema.JSONRPCVersion, ID: e.requestID, Result: raw})
	if err != nil {
		return err
	}
	return e.Raw(string(data))
}

// Task writes the initial task snapshot.
func (e *EventWriter) Task(state a2aSchema.TaskState) error {
	return e.Result(a2aSchema.Task{Kind: a2aSchema.KindTask, ID: e.taskID, Status: a2aSchema.TaskStatus{State: state}})
}

// Status writes a status-update whose message carries one text part per text.
func (e *EventWriter) Status(state a2aSchema.TaskState, final bool, metadata any, texts ...string) error {
	status := a2aSchema.TaskStatus{State: state}
	if len(texts) > 0 || metadata != nil {
		msg, err := agentMessage(metadata, texts)
		if err != nil {
			return err
		}
		status.Message = msg
	}
	return e.Result(a2aSchema.TaskStatusUpdateEvent{
		Kind:   a2aSchema.KindStatusUpdate,
		TaskID: e.taskID,
		Status: status,
		Final:  final,
	})
}

// Artifact writes an artifact-update with one text part per text.
func (e *EventWriter) Artifact(name string, metadata any, texts ...string) error {
	artifact := a2aSchema.Artifact{ArtifactID: name, Name: shared.PointerTo(name), Parts: textParts(texts)}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		artifact.Metadata = raw
	}
	return e.Result(a2aSchema.TaskArtifactUpdateEvent{
		Kind:     a2aSchema.KindArtifactUpdate,
		TaskID:   e.taskID,
		Artifact: artifact,
	})
}

// Error writes a JSON-RPC error event.
func (e *EventWriter) Error(code int, message string) error {
	data, err := json.Marshal(a2aSchema.JSONRPCResponse{
		JSONRPC: a2aSchema.JSONRPCVersion,
		ID:      e.requestID,
		Error:   &a2aSchema.JSONRPCError{Code: code, Message: message},
	})
	if err != nil {
		return err
	}
	return e.Raw(string(data))
}

func agentMessage(metadata any, texts []string) (*a2aSchema.Message, error) {
	msg := &a2aSchema.Message{
		Kind:      a2aSchema.KindMessage,
		Role:      a2aSchema.RoleAgent,
		MessageID: fmt.Sprintf("agent-%d", len(texts)),
		Parts:     textParts(texts),
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
		msg.Metadata = raw
	}
	return msg, nil
}

func textParts(texts []string) []a2aSchema.Part {
	parts := make([]a2aSchema.Part, 0, len(texts))
	for _, text := range texts {
		parts = append(parts, a2aSchema.NewTextPart(text))
	}
	return parts
}
