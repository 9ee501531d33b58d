package schema

import (
	"encoding/json"
	"fmt"
)

// Part kinds.
const (
	PartKindText = "text"
	PartKindFile = "file"
	PartKindData = "data"
)

// TextPart represents a textual part of a message or artifact.
type TextPart struct {
	// Kind identifier, always "text".
	Kind string `json:"kind,omitempty"`
	// Type is the discriminator used by older protocol drafts. Only read, never written.
	Type string `json:"type,omitempty"`
	// The actual text content.
	Text string `json:"text"`
	// Optional metadata specific to this part.
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Part represents a piece of content within a Message or Artifact.
// It's a union type; use PartKind to determine the actual structure before converting it.
type Part json.RawMessage

// MarshalJSON writes the raw part unchanged.
func (p Part) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

// UnmarshalJSON keeps a copy of the raw part.
func (p *Part) UnmarshalJSON(data []byte) error {
	if p == nil {
		return fmt.Errorf("schema.Part: UnmarshalJSON on nil pointer")
	}
	*p = append((*p)[0:0], data...)
	return nil
}

// NewTextPart builds a text part.
func NewTextPart(text string) Part {
	data, _ := json.Marshal(TextPart{Kind: PartKindText, Text: text})
	return Part(data)
}

// PartKind returns the part discriminator, falling back to the legacy "type" field.
func PartKind(p Part) (string, error) {
	var kindFinder struct {
		Kind string `json:"kind"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(p, &kindFinder); err != nil {
		return "", fmt.Errorf("failed to determine part kind: %w", err)
	}
	if kindFinder.Kind != "" {
		return kindFinder.Kind, nil
	}
	return kindFinder.Type, nil
}

// AsTextPart converts p to a TextPart, failing if p is not a text part.
func AsTextPart(p Part) (*TextPart, error) {
	var tp TextPart
	if err := json.Unmarshal(p, &tp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal as TextPart: %w", err)
	}
	if tp.Kind != PartKindText && (tp.Kind != "" || tp.Type != PartKindText) {
		return nil, fmt.Errorf("part is not of kind 'text'")
	}
	return &tp, nil
}

// TextFragments returns the text of every text part, in order. Other parts are skipped,
// as are parts that cannot be decoded.
func TextFragments(parts []Part) []string {
	var fragments []string
	for _, p := range parts {
		tp, err := AsTextPart(p)
		if err != nil {
			continue
		}
		fragments = append(fragments, tp.Text)
	}
	return fragments
}

// Message represents a unit of communication between a user/client and an agent.
type Message struct {
	// Kind identifier, always "message".
	Kind string `json:"kind"`
	// Role of the sender ("user" or "agent").
	Role string `json:"role"`
	// The content parts of the message.
	Parts []Part `json:"parts"`
	// Client generated identifier, unique per message.
	MessageID string `json:"messageId"`
	// Optional identifiers tying the message to an existing conversation.
	ContextID *string `json:"contextId,omitempty"`
	TaskID    *string `json:"taskId,omitempty"`
	// Optional metadata associated with the entire message.
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Message roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)
