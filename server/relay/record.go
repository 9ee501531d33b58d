package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/deckforge/relay/shared"
)

// Record types written to the client.
const (
	RecordStatusUpdate   = shared.EventKindStatusUpdate
	RecordArtifactUpdate = shared.EventKindArtifactUpdate
	RecordError          = shared.EventKindError
)

// OutputRecord is one line of the response body.
type OutputRecord struct {
	Type     string          `json:"type"`
	Data     string          `json:"data"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// RecordWriter delivers records to the client one at a time.
type RecordWriter interface {
	WriteRecord(record OutputRecord) error
}

// NDJSONWriter writes each record as one newline-terminated JSON line and flushes it immediately.
type NDJSONWriter struct {
	w     io.Writer
	flush func() error
	buf   bytes.Buffer
}

// NewNDJSONWriter wraps w. When w is an http.ResponseWriter every record is flushed to the client.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	n := &NDJSONWriter{w: w}
	if rw, ok := w.(http.ResponseWriter); ok {
		n.flush = http.NewResponseController(rw).Flush
	}
	return n
}

// WriteRecord encodes record and writes the whole line with a single Write call.
func (n *NDJSONWriter) WriteRecord(record OutputRecord) error {
	n.buf.Reset()
	encoder := json.NewEncoder(&n.buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(record); err != nil { // Encode appends the newline
		return fmt.Errorf("encode record: %w", err)
	}
	if _, err := n.w.Write(n.buf.Bytes()); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if n.flush != nil {
		if err := n.flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return fmt.Errorf("flush record: %w", err)
		}
	}
	return nil
}
