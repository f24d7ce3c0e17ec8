package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/foxseedlab/kikitorin/internal/audio"
	"github.com/foxseedlab/kikitorin/internal/config"
	"github.com/foxseedlab/kikitorin/internal/transcribe"
)

var (
	// ErrNoAudioData is returned by SubmitBlob for an empty payload. No
	// backend is invoked in that case.
	ErrNoAudioData = errors.New("no audio data provided")

	// ErrStreamClosed is returned when a chunk arrives after Close.
	ErrStreamClosed = errors.New("stream is closed")
)

// segmentQueueDepth bounds how many ready segments may wait on a stream's
// worker. The connection's reader blocks once the queue is full, which
// backpressures a client that outruns its backend.
const segmentQueueDepth = 8

// Pipeline turns raw audio into transcription results. Per-connection state
// lives in a Stream; the only shared pieces are the read-only config, the
// segmenter (stateless), and the backend router.
type Pipeline struct {
	cfg       *config.Config
	segmenter *audio.Segmenter
	router    *transcribe.Router

	mu      sync.Mutex
	streams map[string]*Stream
}

// Status reports readiness of the transcription subsystem.
type Status struct {
	Ready bool `json:"ready"`
}

func New(cfg *config.Config, router *transcribe.Router) *Pipeline {
	format := audio.Format{
		SampleRate: cfg.AudioSampleRate,
		Channels:   cfg.AudioChannels,
		BitDepth:   cfg.AudioBitDepth,
	}
	return &Pipeline{
		cfg:       cfg,
		segmenter: audio.NewSegmenter(format, cfg.MinSegmentDuration(), cfg.SilenceFloorDBFS),
		router:    router,
		streams:   make(map[string]*Stream),
	}
}

// Format is the PCM layout streaming clients must send.
func (p *Pipeline) Format() audio.Format {
	return audio.Format{
		SampleRate: p.cfg.AudioSampleRate,
		Channels:   p.cfg.AudioChannels,
		BitDepth:   p.cfg.AudioBitDepth,
	}
}

// OpenStream creates the per-connection pipeline state and starts its worker.
// Results are handed to deliver in chunk-submission order; deliver is never
// called after Close returns the stream's context to done.
func (p *Pipeline) OpenStream(id string, deliver func(transcribe.Result)) *Stream {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Stream{
		id:       id,
		pipeline: p,
		buf:      audio.NewBuffer(),
		segments: make(chan []byte, segmentQueueDepth),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    StateIdle,
	}
	p.mu.Lock()
	p.streams[id] = s
	p.mu.Unlock()

	go s.run(deliver)
	slog.Info("pipeline stream opened", "stream_id", id)
	return s
}

// SubmitBlob transcribes a one-shot payload without segmentation.
func (p *Pipeline) SubmitBlob(ctx context.Context, audioData []byte) (transcribe.Result, error) {
	if len(audioData) == 0 {
		return transcribe.Result{}, ErrNoAudioData
	}
	res := p.router.Route(ctx, audioData)
	res.IsFinal = res.Text != ""
	return res, nil
}

func (p *Pipeline) Status() Status {
	return Status{Ready: p.router.Ready()}
}

func (p *Pipeline) StreamCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.streams)
}

// Shutdown closes every live stream. Buffered-but-unemitted audio is
// discarded; there is no flush-on-close.
func (p *Pipeline) Shutdown() {
	p.mu.Lock()
	streams := make([]*Stream, 0, len(p.streams))
	for _, s := range p.streams {
		streams = append(streams, s)
	}
	p.mu.Unlock()
	for _, s := range streams {
		s.Close()
	}
}

func (p *Pipeline) removeStream(id string) {
	p.mu.Lock()
	delete(p.streams, id)
	p.mu.Unlock()
}
