package server

import "github.com/foxseedlab/kikitorin/internal/transcribe"

const (
	serviceName    = "Kikitorin Speech Gateway"
	serviceVersion = "0.1.0"

	messageTypeTranscription = "transcription"

	detailNoAudioData  = "no audio data provided"
	detailBadAudioData = "audio payload is not valid base64"
)

// transcriptionMessage is the frame streamed back to websocket clients.
// Backend failures ride inside the same frame shape with empty text; clients
// never see a protocol-level error for them.
type transcriptionMessage struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	IsFinal    bool    `json:"is_final"`
	Language   string  `json:"language"`
	Error      string  `json:"error,omitempty"`
}

func newTranscriptionMessage(res transcribe.Result) transcriptionMessage {
	return transcriptionMessage{
		Type:       messageTypeTranscription,
		Text:       res.Text,
		Confidence: res.Confidence,
		IsFinal:    res.IsFinal,
		Language:   res.Language,
		Error:      res.Err,
	}
}

type transcribeRequest struct {
	Audio string `json:"audio"`
}

type transcribeResponse struct {
	Transcription transcribe.Result `json:"transcription"`
	Timestamp     string            `json:"timestamp"`
	Confidence    float64           `json:"confidence"`
	Language      string            `json:"language"`
}
