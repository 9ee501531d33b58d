package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingFields is returned when a request body lacks a required field.
var ErrMissingFields = errors.New("missing required fields")

// maxRequestBodySize caps the JSON body of a generation request.
const maxRequestBodySize = 1 << 20

// OutlineRequest asks the outline agent for a deck outline.
type OutlineRequest struct {
	Prompt        string `json:"prompt"`
	NumberOfCards int    `json:"numberOfCards"`
	Language      string `json:"language"`
}

// SlideRequest asks the slides agent to generate a deck from an outline.
type SlideRequest struct {
	Title    string   `json:"title"`
	Outline  []string `json:"outline"`
	Language string   `json:"language"`
	Tone     string   `json:"tone"`
}

// DecodeOutlineRequest reads and validates an outline request body.
func DecodeOutlineRequest(body io.Reader) (OutlineRequest, error) {
	var req OutlineRequest
	if err := decodeBody(body, &req); err != nil {
		return OutlineRequest{}, err
	}
	if strings.TrimSpace(req.Prompt) == "" || req.NumberOfCards <= 0 || strings.TrimSpace(req.Language) == "" {
		return OutlineRequest{}, ErrMissingFields
	}
	return req, nil
}

// DecodeSlideRequest reads and validates a slide request body. Tone is optional.
func DecodeSlideRequest(body io.Reader) (SlideRequest, error) {
	var req SlideRequest
	if err := decodeBody(body, &req); err != nil {
		return SlideRequest{}, err
	}
	if strings.TrimSpace(req.Title) == "" || len(req.Outline) == 0 || strings.TrimSpace(req.Language) == "" {
		return SlideRequest{}, ErrMissingFields
	}
	return req, nil
}

// A body that is not a JSON object cannot carry the required fields, so it maps to ErrMissingFields.
func decodeBody(body io.Reader, v any) error {
	if err := json.NewDecoder(io.LimitReader(body, maxRequestBodySize)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingFields, err)
	}
	return nil
}

// GenerationRequest is what a handler sends to an agent.
type GenerationRequest interface {
	// AgentText is the user message text.
	AgentText() string
	// AgentMetadata travels as the message metadata. Nil means none.
	AgentMetadata() map[string]any
}

var (
	_ GenerationRequest = OutlineRequest{}
	_ GenerationRequest = SlideRequest{}
)

// AgentText returns the raw prompt; card count and language travel as metadata.
func (r OutlineRequest) AgentText() string {
	return r.Prompt
}

func (r OutlineRequest) AgentMetadata() map[string]any {
	return map[string]any{
		"numberOfCards": r.NumberOfCards,
		"language":      r.Language,
	}
}

// AgentText renders the slides prompt with a numbered outline.
func (r SlideRequest) AgentText() string {
	var b strings.Builder
	b.WriteString("Please generate a presentation with the following details:\n")
	fmt.Fprintf(&b, "Title: %s\n", r.Title)
	fmt.Fprintf(&b, "Language: %s\n", r.Language)
	fmt.Fprintf(&b, "Tone for images: %s\n", r.Tone)
	b.WriteString("\nOutline:\n")
	for i, item := range r.Outline {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return b.String()
}

func (r SlideRequest) AgentMetadata() map[string]any {
	return nil
}
