package schema

import (
	"encoding/json"
	"fmt"
)

// JSONRPCVersion defines the JSON-RPC version used ("2.0").
const JSONRPCVersion = "2.0"

// MethodMessageStream is the A2A streaming method used by the relay.
const MethodMessageStream = "message/stream"

// JSONRPCRequest represents a JSON-RPC request object.
type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	// Request identifier. The relay always sends a string.
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC response object, either as a plain HTTP body or as
// the data of one SSE event.
type JSONRPCResponse struct {
	JSONRPC string `json:"jsonrpc"`
	// Must match the ID of the corresponding request. Null if it could not be determined.
	ID any `json:"id"`
	// The result of the method invocation. Mutually exclusive with Error.
	Result json.RawMessage `json:"result,omitempty"`
	// Error object if the request failed.
	Error *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the Go error interface for JSONRPCError.
func (e *JSONRPCError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("JSON-RPC Error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes
const (
	ErrorParseError     = -32700 // Invalid JSON received.
	ErrorInvalidRequest = -32600 // JSON is not a valid Request object.
	ErrorMethodNotFound = -32601 // Method does not exist/is not available.
	ErrorInvalidParams  = -32602 // Invalid method parameter(s).
	ErrorInternalError  = -32603 // Internal JSON-RPC error.
)

// A2A specific error codes
const (
	ErrorCodeTaskNotFound                 = -32001
	ErrorCodeTaskNotCancelable            = -32002
	ErrorCodePushNotificationNotSupported = -32003
	ErrorCodeUnsupportedOperation         = -32004
	ErrorCodeContentTypeNotSupported      = -32005
	ErrorCodeInvalidAgentResponse         = -32006
)

// MessageSendConfiguration configures how the agent should answer a message.
type MessageSendConfiguration struct {
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitempty"`
	HistoryLength       *int     `json:"historyLength,omitempty"`
	Blocking            *bool    `json:"blocking,omitempty"`
}

// MessageSendParams are the params of `message/send` and `message/stream`.
type MessageSendParams struct {
	// The message content being sent. (Required)
	Message       Message                   `json:"message"`
	Configuration *MessageSendConfiguration `json:"configuration,omitempty"`
	Metadata      json.RawMessage           `json:"metadata,omitempty"`
}
