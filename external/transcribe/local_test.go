package transcribe

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestLocalAvailable(t *testing.T) {
	if NewLocalBackend(LocalConfig{}).Available() {
		t.Fatal("expected backend without a command to be unavailable")
	}
	if !NewLocalBackend(LocalConfig{Command: "whisper-cli"}).Available() {
		t.Fatal("expected configured backend to be available")
	}
}

func TestLocalTranscribe_MissingBinaryBecomesErrorResult(t *testing.T) {
	backend := NewLocalBackend(LocalConfig{
		Command:    "kikitorin-nonexistent-whisper-binary",
		SampleRate: 16000,
		Channels:   1,
		Timeout:    time.Second,
	})

	res := backend.Transcribe(context.Background(), make([]byte, 3200))
	if res.Err == "" {
		t.Fatal("expected error result for a missing binary")
	}
	if res.Text != "" || res.Confidence != 0 {
		t.Fatalf("expected empty failure shape, got %+v", res)
	}
}

func TestLocalTranscribe_EmptyCommandBecomesErrorResult(t *testing.T) {
	backend := NewLocalBackend(LocalConfig{
		Command:    "   ",
		SampleRate: 16000,
		Channels:   1,
		Timeout:    time.Second,
	})
	res := backend.Transcribe(context.Background(), make([]byte, 3200))
	if res.Err == "" {
		t.Fatal("expected error result for empty command")
	}
}

func TestPCMToWavBytes_ProducesRIFFContainer(t *testing.T) {
	wavBytes, err := pcmToWavBytes(make([]byte, 3200), 16000, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(wavBytes, []byte("RIFF")) {
		t.Fatalf("expected RIFF header, got %q", wavBytes[:4])
	}
	if !bytes.Contains(wavBytes[:12], []byte("WAVE")) {
		t.Fatal("expected WAVE format marker")
	}
	if len(wavBytes) <= 3200 {
		t.Fatalf("expected container overhead on top of samples, got %d bytes", len(wavBytes))
	}
}

func TestPCMToWavBytes_RejectsUnalignedPayload(t *testing.T) {
	if _, err := pcmToWavBytes([]byte{0x01}, 16000, 1); err == nil {
		t.Fatal("expected error for unaligned pcm payload")
	}
}
