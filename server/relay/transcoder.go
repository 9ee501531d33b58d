package relay

import (
	"context"

	"github.com/deckforge/relay/shared"
	"go.uber.org/zap"
)

// EventSource is a finite, pull-based sequence of agent events. *a2aClient.Stream implements it.
type EventSource interface {
	Next(ctx context.Context) (shared.AgentEvent, bool)
	Close()
}

// Options tunes a single Transcode call.
type Options struct {
	// SuppressArtifacts drops artifact-update text instead of forwarding it.
	SuppressArtifacts bool
	Logger            *zap.Logger
}

// Stats summarises one transcoded stream.
type Stats struct {
	Events  int
	Records int
	Ignored int
	// Failed is set when the stream ended with an error record.
	Failed bool
}

// Transcode pulls events from src until it ends and writes one record per text fragment to w,
// in upstream order. A synthetic error event becomes one final error record. Upstream
// failures are never returned; the only error returned is a failed write, after which src
// is closed so the upstream request is cancelled. src is always closed on return.
func Transcode(ctx context.Context, src EventSource, w RecordWriter, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defer src.Close()

	var stats Stats
	for {
		event, ok := src.Next(ctx)
		if !ok {
			logger.Debug("Stream closed", zap.Int("events", stats.Events), zap.Int("records", stats.Records))
			return stats, nil
		}
		stats.Events++
		logger.Debug("Event received", zap.String("kind", event.Kind), zap.Int("fragments", len(event.TextFragments)))

		if event.IsError() {
			message := event.Err.Error()
			stats.Failed = true
			if err := w.WriteRecord(OutputRecord{Type: RecordError, Data: message}); err != nil {
				logger.Debug("Writing error record failed", zap.Error(err))
				return stats, err
			}
			stats.Records++
			logger.Debug("Stream closed after agent error", zap.String("error", message))
			return stats, nil
		}

		switch event.Kind {
		case shared.EventKindStatusUpdate, shared.EventKindArtifactUpdate:
			if event.Kind == shared.EventKindArtifactUpdate && opts.SuppressArtifacts {
				stats.Ignored++
				logger.Debug("Artifact suppressed", zap.Int("fragments", len(event.TextFragments)))
				continue
			}
			for _, fragment := range event.TextFragments {
				record := OutputRecord{Type: event.Kind, Data: fragment, Metadata: event.Metadata}
				if err := w.WriteRecord(record); err != nil {
					logger.Debug("Client went away, closing upstream", zap.Error(err))
					return stats, err
				}
				stats.Records++
				logger.Debug("Record written", zap.String("type", record.Type), zap.Int("bytes", len(fragment)))
			}

		default:
			stats.Ignored++
			logger.Debug("Event ignored", zap.String("kind", event.Kind))
		}
	}
}
