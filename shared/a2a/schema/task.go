package schema

import "encoding/json"

// TaskState represents the lifecycle state of a task.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateFailed        TaskState = "failed"
	TaskStateRejected      TaskState = "rejected"
	TaskStateAuthRequired  TaskState = "auth-required"
	TaskStateUnknown       TaskState = "unknown"
)

// IsTerminal reports whether no further updates are expected after this state.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed, TaskStateRejected:
		return true
	}
	return false
}

// TaskStatus represents the status of a task at a specific point in time.
type TaskStatus struct {
	// The current state of the task.
	State TaskState `json:"state"`
	// Optional message associated with this status (e.g., progress update).
	Message *Message `json:"message,omitempty"`
	// ISO 8601 timestamp of when this status was set.
	Timestamp *string `json:"timestamp,omitempty"`
}

// Artifact represents an output generated by a task.
type Artifact struct {
	ArtifactID  string  `json:"artifactId,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	// The content parts of the artifact.
	Parts []Part `json:"parts"`
	// Optional metadata associated with the artifact.
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Task represents a unit of work being processed by the agent.
type Task struct {
	Kind      string          `json:"kind"`
	ID        string          `json:"id"`
	ContextID string          `json:"contextId,omitempty"`
	Status    TaskStatus      `json:"status"`
	Artifacts []Artifact      `json:"artifacts,omitempty"`
	History   []Message       `json:"history,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}
