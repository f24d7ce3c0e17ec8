package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/kikitorin/internal/transcribe"
	"google.golang.org/api/option"
)

const (
	speechAPIEndpointPort = 443
	// Fallback when the API does not attach a per-alternative confidence.
	googleDefaultConfidence = 0.9
)

type GoogleConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string

	SampleRate int
	Channels   int
	Timeout    time.Duration
}

type GoogleBackend struct {
	cfg GoogleConfig
}

func NewGoogleBackend(cfg GoogleConfig) transcribe.Backend {
	cfg.Location = strings.TrimSpace(cfg.Location)
	cfg.Model = strings.TrimSpace(cfg.Model)
	return &GoogleBackend{cfg: cfg}
}

func (b *GoogleBackend) Kind() transcribe.Kind {
	return transcribe.KindGoogle
}

func (b *GoogleBackend) Available() bool {
	return b.cfg.ProjectID != "" && b.cfg.CredentialsJSON != ""
}

func (b *GoogleBackend) Transcribe(ctx context.Context, pcm []byte) transcribe.Result {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(b.cfg.CredentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return transcribe.ErrorResult(fmt.Errorf("detect credentials: %w", err))
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if b.cfg.Location != "global" {
		opts = append(opts, option.WithEndpoint(
			fmt.Sprintf("%s-speech.googleapis.com:%d", b.cfg.Location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		slog.Error("google speech client init failed", "error", err)
		return transcribe.ErrorResult(err)
	}
	defer func() {
		_ = client.Close()
	}()

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", b.cfg.ProjectID, b.cfg.Location),
		Config: &speechpb.RecognitionConfig{
			Model:         b.cfg.Model,
			LanguageCodes: []string{b.cfg.Language},
			DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
				ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
					Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
					SampleRateHertz:   int32(b.cfg.SampleRate),
					AudioChannelCount: int32(b.cfg.Channels),
				},
			},
			Features: &speechpb.RecognitionFeatures{},
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: pcm},
	})
	if err != nil {
		slog.Error("google transcription failed", "error", err, "segment_bytes", len(pcm))
		return transcribe.ErrorResult(err)
	}

	var (
		parts      []string
		confidence float64
		language   string
	)
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		parts = append(parts, alts[0].GetTranscript())
		if c := float64(alts[0].GetConfidence()); c > confidence {
			confidence = c
		}
		if language == "" {
			language = result.GetLanguageCode()
		}
	}
	if confidence == 0 {
		confidence = googleDefaultConfidence
	}
	if language == "" {
		language = b.cfg.Language
	}
	return transcribe.Result{
		Text:       strings.TrimSpace(strings.Join(parts, " ")),
		Confidence: confidence,
		Language:   language,
	}
}
