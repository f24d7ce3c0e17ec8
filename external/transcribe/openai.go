package transcribe

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/kikitorin/internal/transcribe"
	openai "github.com/sashabaranov/go-openai"
)

// openAIConfidence is a fixed heuristic, not a calibrated probability; the
// Whisper API does not report one.
const openAIConfidence = 0.9

type OpenAIConfig struct {
	APIKey   string
	Model    string
	Language string

	SampleRate int
	Channels   int
	Timeout    time.Duration

	// BaseURL overrides the API host, for proxies and tests.
	BaseURL string
}

type OpenAIBackend struct {
	cfg OpenAIConfig

	clientOnce sync.Once
	client     *openai.Client
}

func NewOpenAIBackend(cfg OpenAIConfig) transcribe.Backend {
	return &OpenAIBackend{cfg: cfg}
}

func (b *OpenAIBackend) Kind() transcribe.Kind {
	return transcribe.KindOpenAI
}

func (b *OpenAIBackend) Available() bool {
	return b.cfg.APIKey != ""
}

func (b *OpenAIBackend) Transcribe(ctx context.Context, pcm []byte) transcribe.Result {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	wavBytes, err := pcmToWavBytes(pcm, b.cfg.SampleRate, b.cfg.Channels)
	if err != nil {
		slog.Error("openai backend failed to encode segment", "error", err)
		return transcribe.ErrorResult(err)
	}

	resp, err := b.getClient().CreateTranscription(ctx, openai.AudioRequest{
		Model:    b.cfg.Model,
		Reader:   bytes.NewReader(wavBytes),
		FilePath: "segment.wav",
		Language: b.cfg.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		slog.Error("openai transcription failed", "error", err, "segment_bytes", len(pcm))
		return transcribe.ErrorResult(err)
	}

	language := resp.Language
	if language == "" {
		language = b.cfg.Language
	}
	return transcribe.Result{
		Text:       resp.Text,
		Confidence: openAIConfidence,
		Language:   language,
	}
}

func (b *OpenAIBackend) getClient() *openai.Client {
	b.clientOnce.Do(func() {
		clientCfg := openai.DefaultConfig(b.cfg.APIKey)
		if b.cfg.BaseURL != "" {
			clientCfg.BaseURL = b.cfg.BaseURL
		}
		b.client = openai.NewClientWithConfig(clientCfg)
	})
	return b.client
}
