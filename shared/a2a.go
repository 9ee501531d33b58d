package shared

import (
	"encoding/json"
	"errors"
)

// Event kinds produced by the agent client. Status and artifact kinds mirror the A2A
// result kinds. EventKindError is synthetic and only ever the last event of a stream;
// an upstream result that merely declares kind "error" is not one, see IsError.
const (
	EventKindStatusUpdate   = "status-update"
	EventKindArtifactUpdate = "artifact-update"
	EventKindError          = "error"
)

// AgentEvent is one decoded event of an agent stream.
type AgentEvent struct {
	// Kind is the upstream result kind, or EventKindError for a synthetic error.
	Kind string
	// TextFragments holds the text of every text part of the event, in order.
	TextFragments []string
	// Metadata is passed through opaquely. Nil when the upstream sent none.
	Metadata json.RawMessage
	// Final is set on the terminal status update.
	Final bool
	// Err is set only on the synthetic error event.
	Err error
}

var errUnknownAgent = errors.New("unknown agent error")

// ErrorEvent builds the synthetic terminal event for err.
func ErrorEvent(err error) AgentEvent {
	if err == nil {
		err = errUnknownAgent
	}
	return AgentEvent{Kind: EventKindError, Err: err}
}

// IsError reports whether e is the synthetic terminal error event.
func (e AgentEvent) IsError() bool {
	return e.Err != nil
}
