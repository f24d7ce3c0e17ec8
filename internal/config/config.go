package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the immutable process-wide configuration. It is loaded once at
// startup, validated, and shared read-only by every connection.
type Config struct {
	Env        string
	ListenAddr string

	Engine          string
	DefaultLanguage string

	AudioSampleRate  int
	AudioChannels    int
	AudioBitDepth    int
	MinSegmentMS     int
	SilenceFloorDBFS float64

	ConfidenceThreshold float64
	BackendTimeoutSec   int

	OpenAIAPIKey string
	OpenAIModel  string

	AzureSpeechKey    string
	AzureSpeechRegion string

	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string

	LocalCommand string
	LocalModel   string
}

var knownEngines = map[string]struct{}{
	"openai": {},
	"azure":  {},
	"google": {},
	"local":  {},
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	engine := strings.ToLower(strings.TrimSpace(c.Engine))
	if _, ok := knownEngines[engine]; !ok {
		return fmt.Errorf("SPEECH_RECOGNITION_ENGINE must be one of openai, azure, google, local; got %q", c.Engine)
	}
	if c.AudioSampleRate <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive, got %d", c.AudioSampleRate)
	}
	if c.AudioChannels <= 0 {
		return fmt.Errorf("AUDIO_CHANNELS must be positive, got %d", c.AudioChannels)
	}
	if c.AudioBitDepth != 16 {
		return fmt.Errorf("AUDIO_BIT_DEPTH must be 16, got %d", c.AudioBitDepth)
	}
	if c.MinSegmentMS <= 0 {
		return fmt.Errorf("MIN_SEGMENT_MS must be positive, got %d", c.MinSegmentMS)
	}
	if c.SilenceFloorDBFS >= 0 {
		return fmt.Errorf("SILENCE_FLOOR_DBFS must be negative, got %g", c.SilenceFloorDBFS)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("TRANSCRIPTION_CONFIDENCE_THRESHOLD must be in [0,1], got %g", c.ConfidenceThreshold)
	}
	if c.BackendTimeoutSec <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT_SEC must be positive, got %d", c.BackendTimeoutSec)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "LISTEN_ADDR", value: c.ListenAddr},
		{name: "SPEECH_RECOGNITION_ENGINE", value: c.Engine},
		{name: "DEFAULT_LANGUAGE", value: c.DefaultLanguage},
	}
}

func (c *Config) MinSegmentDuration() time.Duration {
	return time.Duration(c.MinSegmentMS) * time.Millisecond
}

func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutSec) * time.Second
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
