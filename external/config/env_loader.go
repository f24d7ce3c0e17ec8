package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/kikitorin/internal/config"
)

type envConfig struct {
	Env        string `env:"ENV" envDefault:"production"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8000"`

	Engine          string `env:"SPEECH_RECOGNITION_ENGINE" envDefault:"openai"`
	DefaultLanguage string `env:"DEFAULT_LANGUAGE" envDefault:"en-GB"`

	AudioSampleRate  int     `env:"AUDIO_SAMPLE_RATE" envDefault:"16000"`
	AudioChannels    int     `env:"AUDIO_CHANNELS" envDefault:"1"`
	AudioBitDepth    int     `env:"AUDIO_BIT_DEPTH" envDefault:"16"`
	MinSegmentMS     int     `env:"MIN_SEGMENT_MS" envDefault:"500"`
	SilenceFloorDBFS float64 `env:"SILENCE_FLOOR_DBFS" envDefault:"-40"`

	ConfidenceThreshold float64 `env:"TRANSCRIPTION_CONFIDENCE_THRESHOLD" envDefault:"0.7"`
	BackendTimeoutSec   int     `env:"BACKEND_TIMEOUT_SEC" envDefault:"30"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" envDefault:"whisper-1"`

	AzureSpeechKey    string `env:"AZURE_SPEECH_KEY"`
	AzureSpeechRegion string `env:"AZURE_SPEECH_REGION"`

	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`

	LocalCommand string `env:"LOCAL_WHISPER_COMMAND" envDefault:"whisper-cli"`
	LocalModel   string `env:"LOCAL_WHISPER_MODEL" envDefault:"base"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		ListenAddr:                 raw.ListenAddr,
		Engine:                     raw.Engine,
		DefaultLanguage:            raw.DefaultLanguage,
		AudioSampleRate:            raw.AudioSampleRate,
		AudioChannels:              raw.AudioChannels,
		AudioBitDepth:              raw.AudioBitDepth,
		MinSegmentMS:               raw.MinSegmentMS,
		SilenceFloorDBFS:           raw.SilenceFloorDBFS,
		ConfidenceThreshold:        raw.ConfidenceThreshold,
		BackendTimeoutSec:          raw.BackendTimeoutSec,
		OpenAIAPIKey:               raw.OpenAIAPIKey,
		OpenAIModel:                raw.OpenAIModel,
		AzureSpeechKey:             raw.AzureSpeechKey,
		AzureSpeechRegion:          raw.AzureSpeechRegion,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		LocalCommand:               raw.LocalCommand,
		LocalModel:                 raw.LocalModel,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
