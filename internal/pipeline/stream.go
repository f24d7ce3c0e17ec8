package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/foxseedlab/kikitorin/internal/audio"
	"github.com/foxseedlab/kikitorin/internal/transcribe"
)

// State tracks where one stream sits in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateBuffering
	StateTranscribing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuffering:
		return "buffering"
	case StateTranscribing:
		return "transcribing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stream is the per-connection pipeline instance: one buffer, one worker,
// nothing shared with other connections. Results for a single stream are
// delivered in the order its chunks were submitted.
type Stream struct {
	id       string
	pipeline *Pipeline
	segments chan []byte
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}

	mu    sync.Mutex
	buf   *audio.Buffer
	state State
}

// SubmitChunk feeds one chunk into the stream buffer. A nil return with no
// emitted result just means "not enough audio yet" - the segment, if any,
// flows to the deliver callback from the worker.
func (s *Stream) SubmitChunk(chunk audio.Chunk) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	decision, err := s.pipeline.segmenter.Accept(s.buf, chunk)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !decision.Ready {
		if s.buf.Len() > 0 {
			s.state = StateBuffering
		} else {
			// Silence-floor discard puts the stream back to idle.
			s.state = StateIdle
		}
		s.mu.Unlock()
		return nil
	}
	s.state = StateTranscribing
	s.mu.Unlock()

	select {
	case s.segments <- decision.Segment:
		return nil
	case <-s.ctx.Done():
		return ErrStreamClosed
	}
}

// Close tears the stream down: cancels any in-flight backend call, discards
// buffered audio, and removes the stream from the pipeline. Safe to call
// more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.buf.Reset()
	s.mu.Unlock()

	s.cancel()
	s.pipeline.removeStream(s.id)
	<-s.done
	slog.Info("pipeline stream closed", "stream_id", s.id)
}

func (s *Stream) ID() string {
	return s.id
}

func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Stream) run(deliver func(transcribe.Result)) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case segment := <-s.segments:
			res := s.pipeline.router.Route(s.ctx, segment)
			res.IsFinal = res.Text != ""
			if s.ctx.Err() != nil {
				// Connection severed mid-call: discard, never deliver to
				// a closed stream.
				return
			}
			deliver(res)
			s.mu.Lock()
			if s.state == StateTranscribing {
				s.state = StateIdle
			}
			s.mu.Unlock()
		}
	}
}
