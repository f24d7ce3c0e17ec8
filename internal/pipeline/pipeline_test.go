package pipeline

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foxseedlab/kikitorin/internal/audio"
	"github.com/foxseedlab/kikitorin/internal/config"
	"github.com/foxseedlab/kikitorin/internal/transcribe"
)

// echoBackend derives its text from the first sample of the segment, which
// lets tests pin results to the chunk that produced them.
type echoBackend struct {
	calls int64
}

func (e *echoBackend) Kind() transcribe.Kind { return transcribe.KindLocal }
func (e *echoBackend) Available() bool       { return true }
func (e *echoBackend) Transcribe(_ context.Context, pcm []byte) transcribe.Result {
	atomic.AddInt64(&e.calls, 1)
	first := int16(binary.LittleEndian.Uint16(pcm))
	return transcribe.Result{
		Text:       fmt.Sprintf("seg-%d", first),
		Confidence: 0.85,
		Language:   "en",
	}
}

// blockingBackend parks until its context is cancelled.
type blockingBackend struct {
	started chan struct{}
}

func (b *blockingBackend) Kind() transcribe.Kind { return transcribe.KindLocal }
func (b *blockingBackend) Available() bool       { return true }
func (b *blockingBackend) Transcribe(ctx context.Context, _ []byte) transcribe.Result {
	close(b.started)
	<-ctx.Done()
	return transcribe.ErrorResult(ctx.Err())
}

func newTestPipeline(t *testing.T, backend transcribe.Backend) *Pipeline {
	t.Helper()
	cfg := &config.Config{
		Env:               "test",
		ListenAddr:        ":0",
		Engine:            "local",
		DefaultLanguage:   "en-GB",
		AudioSampleRate:   16000,
		AudioChannels:     1,
		AudioBitDepth:     16,
		MinSegmentMS:      500,
		SilenceFloorDBFS:  -40,
		BackendTimeoutSec: 5,
	}
	router, err := transcribe.NewRouter(cfg.Engine, []transcribe.Backend{backend})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}
	return New(cfg, router)
}

func testChunk(t *testing.T, durationMS int, amplitude int16) audio.Chunk {
	t.Helper()
	format := audio.Format{SampleRate: 16000, Channels: 1, BitDepth: 16}
	sampleCount := format.SampleRate * durationMS / 1000
	data := make([]byte, sampleCount*2)
	for i := 0; i < sampleCount; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(amplitude))
	}
	return audio.Chunk{Data: data, Format: format}
}

func TestStream_DeliversResultsInSubmissionOrder(t *testing.T) {
	p := newTestPipeline(t, &echoBackend{})
	results := make(chan transcribe.Result, 3)

	stream := p.OpenStream("conn-1", func(res transcribe.Result) {
		results <- res
	})
	defer stream.Close()

	for _, amplitude := range []int16{1000, 2000, 3000} {
		if err := stream.SubmitChunk(testChunk(t, 600, amplitude)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	for _, want := range []string{"seg-1000", "seg-2000", "seg-3000"} {
		select {
		case res := <-results:
			if res.Text != want {
				t.Fatalf("out-of-order delivery: got %q, want %q", res.Text, want)
			}
			if !res.IsFinal {
				t.Fatalf("expected is_final=true for non-empty text, got %+v", res)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestStream_ShortAudibleChunkProducesNothing(t *testing.T) {
	backend := &echoBackend{}
	p := newTestPipeline(t, backend)

	stream := p.OpenStream("conn-1", func(transcribe.Result) {
		t.Error("unexpected delivery for sub-threshold audio")
	})
	defer stream.Close()

	if err := stream.SubmitChunk(testChunk(t, 300, 4000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stream.State(); got != StateBuffering {
		t.Fatalf("expected buffering state, got %v", got)
	}
	if atomic.LoadInt64(&backend.calls) != 0 {
		t.Fatal("expected no backend invocation")
	}
}

func TestStream_SilentChunkDiscardsBuffer(t *testing.T) {
	p := newTestPipeline(t, &echoBackend{})

	stream := p.OpenStream("conn-1", func(transcribe.Result) {
		t.Error("unexpected delivery for silent audio")
	})
	defer stream.Close()

	quiet := int16(math.Round(32768 * math.Pow(10, -50.0/20)))
	if err := stream.SubmitChunk(testChunk(t, 300, quiet)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stream.State(); got != StateIdle {
		t.Fatalf("expected idle state after silence discard, got %v", got)
	}
}

func TestStream_CloseIsIdempotentAndRejectsChunks(t *testing.T) {
	p := newTestPipeline(t, &echoBackend{})
	stream := p.OpenStream("conn-1", func(transcribe.Result) {})

	stream.Close()
	stream.Close()

	if err := stream.SubmitChunk(testChunk(t, 100, 4000)); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("expected ErrStreamClosed, got %v", err)
	}
	if p.StreamCount() != 0 {
		t.Fatalf("expected no live streams, got %d", p.StreamCount())
	}
}

func TestStream_InFlightResultDiscardedAfterClose(t *testing.T) {
	backend := &blockingBackend{started: make(chan struct{})}
	p := newTestPipeline(t, backend)

	var delivered int64
	stream := p.OpenStream("conn-1", func(transcribe.Result) {
		atomic.AddInt64(&delivered, 1)
	})

	if err := stream.SubmitChunk(testChunk(t, 600, 4000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-backend.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for backend call to start")
	}

	stream.Close()

	if atomic.LoadInt64(&delivered) != 0 {
		t.Fatal("expected in-flight result to be discarded, not delivered")
	}
}

func TestSubmitBlob_EmptyPayload(t *testing.T) {
	backend := &echoBackend{}
	p := newTestPipeline(t, backend)

	_, err := p.SubmitBlob(context.Background(), nil)
	if !errors.Is(err, ErrNoAudioData) {
		t.Fatalf("expected ErrNoAudioData, got %v", err)
	}
	if atomic.LoadInt64(&backend.calls) != 0 {
		t.Fatal("expected no backend invocation for empty payload")
	}
}

func TestSubmitBlob_RoutesWithoutSegmentation(t *testing.T) {
	p := newTestPipeline(t, &echoBackend{})

	// 100ms is far below the streaming minimum; the one-shot path must
	// transcribe it anyway.
	chunk := testChunk(t, 100, 1234)
	res, err := p.SubmitBlob(context.Background(), chunk.Data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "seg-1234" {
		t.Fatalf("unexpected result text: %q", res.Text)
	}
	if !res.IsFinal {
		t.Fatal("expected is_final=true for non-empty one-shot text")
	}
}

func TestStatus(t *testing.T) {
	p := newTestPipeline(t, &echoBackend{})
	if !p.Status().Ready {
		t.Fatal("expected pipeline ready with an available backend")
	}
}
