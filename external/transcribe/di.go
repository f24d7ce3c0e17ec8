package transcribe

import (
	"github.com/foxseedlab/kikitorin/internal/config"
	"github.com/foxseedlab/kikitorin/internal/transcribe"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*transcribe.Router, error) {
		c := do.MustInvoke[*config.Config](i)
		backends := []transcribe.Backend{
			NewOpenAIBackend(OpenAIConfig{
				APIKey:     c.OpenAIAPIKey,
				Model:      c.OpenAIModel,
				Language:   c.DefaultLanguage,
				SampleRate: c.AudioSampleRate,
				Channels:   c.AudioChannels,
				Timeout:    c.BackendTimeout(),
			}),
			NewAzureBackend(AzureConfig{
				Key:        c.AzureSpeechKey,
				Region:     c.AzureSpeechRegion,
				Language:   c.DefaultLanguage,
				SampleRate: c.AudioSampleRate,
				Channels:   c.AudioChannels,
				Timeout:    c.BackendTimeout(),
			}),
			NewGoogleBackend(GoogleConfig{
				ProjectID:       c.GoogleCloudProjectID,
				CredentialsJSON: c.GoogleCloudCredentialsJSON,
				Language:        c.DefaultLanguage,
				Location:        c.GoogleCloudSpeechLocation,
				Model:           c.GoogleCloudSpeechModel,
				SampleRate:      c.AudioSampleRate,
				Channels:        c.AudioChannels,
				Timeout:         c.BackendTimeout(),
			}),
			NewLocalBackend(LocalConfig{
				Command:    c.LocalCommand,
				Model:      c.LocalModel,
				Language:   c.DefaultLanguage,
				SampleRate: c.AudioSampleRate,
				Channels:   c.AudioChannels,
				Timeout:    c.BackendTimeout(),
			}),
		}
		return transcribe.NewRouter(c.Engine, backends)
	})
}
