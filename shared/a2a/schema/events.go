package schema

import (
	"encoding/json"
	"fmt"
)

// Result kinds carried in a `message/stream` SSE stream.
const (
	KindTask           = "task"
	KindMessage        = "message"
	KindStatusUpdate   = "status-update"
	KindArtifactUpdate = "artifact-update"
)

// TaskStatusUpdateEvent signals a change in the task's status during streaming.
type TaskStatusUpdateEvent struct {
	Kind      string `json:"kind"`
	TaskID    string `json:"taskId,omitempty"`
	ContextID string `json:"contextId,omitempty"`
	// The new status of the task.
	Status TaskStatus `json:"status"`
	// If true, this is the terminal status update for the task.
	Final bool `json:"final,omitempty"`
	// Optional metadata associated with the event.
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// TaskArtifactUpdateEvent signals a new or updated artifact during streaming.
type TaskArtifactUpdateEvent struct {
	Kind      string   `json:"kind"`
	TaskID    string   `json:"taskId,omitempty"`
	ContextID string   `json:"contextId,omitempty"`
	Artifact  Artifact `json:"artifact"`
	// If true, the parts extend a previously sent artifact with the same ID.
	Append bool `json:"append,omitempty"`
	// If true, this is the last chunk of the artifact.
	LastChunk bool `json:"lastChunk,omitempty"`
	// Optional metadata associated with the event.
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// ResultKind returns the kind of a streamed result.
// Results from older protocol drafts carry no discriminator; for those the kind is inferred:
// a populated status.state means a status update, populated artifact parts an artifact update.
func ResultKind(raw json.RawMessage) (string, error) {
	var probe struct {
		Kind   string `json:"kind"`
		Status *struct {
			State TaskState `json:"state"`
		} `json:"status"`
		Artifact *struct {
			Parts []json.RawMessage `json:"parts"`
		} `json:"artifact"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", fmt.Errorf("failed to determine result kind: %w", err)
	}
	switch {
	case probe.Kind != "":
		return probe.Kind, nil
	case probe.Status != nil && probe.Status.State != "":
		return KindStatusUpdate, nil
	case probe.Artifact != nil && len(probe.Artifact.Parts) > 0:
		return KindArtifactUpdate, nil
	}
	return "", nil
}
