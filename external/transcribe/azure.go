package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/kikitorin/internal/transcribe"
)

const azureConfidence = 0.9

type AzureConfig struct {
	Key      string
	Region   string
	Language string

	SampleRate int
	Channels   int
	Timeout    time.Duration
}

// AzureBackend calls the Azure Speech short-audio REST endpoint. There is no
// official Go SDK, so this speaks HTTP directly.
type AzureBackend struct {
	cfg      AzureConfig
	endpoint string
	client   *http.Client
}

func NewAzureBackend(cfg AzureConfig) transcribe.Backend {
	return &AzureBackend{
		cfg: cfg,
		endpoint: fmt.Sprintf(
			"https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1",
			cfg.Region),
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (b *AzureBackend) Kind() transcribe.Kind {
	return transcribe.KindAzure
}

func (b *AzureBackend) Available() bool {
	return b.cfg.Key != "" && b.cfg.Region != ""
}

type azureRecognitionResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
}

func (b *AzureBackend) Transcribe(ctx context.Context, pcm []byte) transcribe.Result {
	wavBytes, err := pcmToWavBytes(pcm, b.cfg.SampleRate, b.cfg.Channels)
	if err != nil {
		slog.Error("azure backend failed to encode segment", "error", err)
		return transcribe.ErrorResult(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s?language=%s", b.endpoint, b.cfg.Language),
		bytes.NewReader(wavBytes))
	if err != nil {
		return transcribe.ErrorResult(err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", b.cfg.Key)
	req.Header.Set("Content-Type",
		fmt.Sprintf("audio/wav; codecs=audio/pcm; samplerate=%d", b.cfg.SampleRate))
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		slog.Error("azure transcription request failed", "error", err, "segment_bytes", len(pcm))
		return transcribe.ErrorResult(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if !isHTTPSuccessStatus(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("azure speech returned status %d: %s", resp.StatusCode, string(body))
		slog.Error("azure transcription rejected", "status", resp.StatusCode)
		return transcribe.ErrorResult(err)
	}

	var parsed azureRecognitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return transcribe.ErrorResult(fmt.Errorf("decode azure response: %w", err))
	}
	if parsed.RecognitionStatus != "Success" {
		return transcribe.ErrorResult(fmt.Errorf("no speech recognized (status %s)", parsed.RecognitionStatus))
	}

	return transcribe.Result{
		Text:       parsed.DisplayText,
		Confidence: azureConfidence,
		Language:   b.cfg.Language,
	}
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
