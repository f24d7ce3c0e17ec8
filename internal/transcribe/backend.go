package transcribe

import (
	"context"
	"fmt"
	"strings"
)

// Result is the normalized output of one backend invocation. Backends never
// fail with a Go error; failures travel as data in Err with Confidence 0 and
// empty Text, so a dropped cloud call can never take a connection down.
//
// Confidence values are fixed per-backend heuristics, not calibrated
// probabilities. Callers must not compare them across backends.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	IsFinal    bool    `json:"is_final"`
	Err        string  `json:"error,omitempty"`
}

// ErrorResult builds the canonical failure shape.
func ErrorResult(err error) Result {
	return Result{Text: "", Confidence: 0, Err: err.Error()}
}

// Kind identifies one transcription engine. The set is closed; selection is
// by configuration, never by probing which SDK happens to be importable.
type Kind string

const (
	KindOpenAI Kind = "openai"
	KindAzure  Kind = "azure"
	KindGoogle Kind = "google"
	KindLocal  Kind = "local"
)

func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return KindOpenAI, nil
	case "azure":
		return KindAzure, nil
	case "google":
		return KindGoogle, nil
	case "local":
		return KindLocal, nil
	default:
		return "", fmt.Errorf("unknown transcription engine %q", name)
	}
}

// Backend wraps exactly one transcription provider.
type Backend interface {
	Kind() Kind
	// Available reports whether the backend's credentials or local tooling
	// are present. An unavailable backend triggers router fallback.
	Available() bool
	// Transcribe converts one PCM segment to text. It must honor ctx
	// cancellation and apply its own bounded timeout; it never panics and
	// never returns a Go error.
	Transcribe(ctx context.Context, pcm []byte) Result
}
