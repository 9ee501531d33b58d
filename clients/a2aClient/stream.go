package a2aClient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/deckforge/relay/shared"
	"go.uber.org/zap"
)

// Stream is the finite, pull-based sequence of events of one `message/stream` call.
// It is not safe for concurrent use and cannot be restarted.
type Stream struct {
	events      <-chan shared.AgentEvent
	cancel      context.CancelFunc
	idleTimeout time.Duration
	logger      *zap.Logger
	closeOnce   sync.Once
	done        bool
}

// Next blocks until the next event is available. It returns false once the stream has
// ended, ctx is done, or the stream was closed. An error event is always the last event.
// When the agent stays silent longer than the idle timeout, Next yields an error event
// and releases the connection.
func (s *Stream) Next(ctx context.Context) (shared.AgentEvent, bool) {
	if s.done {
		return shared.AgentEvent{}, false
	}

	var idle <-chan time.Time
	if s.idleTimeout > 0 {
		timer := time.NewTimer(s.idleTimeout)
		defer timer.Stop()
		idle = timer.C
	}

	select {
	case event, ok := <-s.events:
		if !ok {
			s.finish()
			return shared.AgentEvent{}, false
		}
		if event.IsError() {
			s.finish()
		}
		return event, true
	case <-idle:
		s.logger.Warn("Agent stream idle timeout", zap.Duration("timeout", s.idleTimeout))
		s.finish()
		return shared.ErrorEvent(fmt.Errorf("no event from agent within %s", s.idleTimeout)), true
	case <-ctx.Done():
		s.finish()
		return shared.AgentEvent{}, false
	}
}

// Close cancels the upstream request. It is safe to call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
	})
}

func (s *Stream) finish() {
	s.done = true
	s.Close()
}
