package transcribe

import (
	"context"
	"fmt"
	"log/slog"
)

// Router selects the configured backend and falls back to the local variant
// when the preferred one is unusable. The fallback ordering is static: there
// is exactly one substitute, and if it fails too the error result is returned
// as-is rather than retrying the remaining variants.
type Router struct {
	preferred Kind
	backends  map[Kind]Backend
}

func NewRouter(engine string, backends []Backend) (*Router, error) {
	preferred, err := ParseKind(engine)
	if err != nil {
		return nil, err
	}
	byKind := make(map[Kind]Backend, len(backends))
	for _, b := range backends {
		byKind[b.Kind()] = b
	}
	if _, ok := byKind[preferred]; !ok {
		return nil, fmt.Errorf("no backend registered for engine %q", engine)
	}
	if _, ok := byKind[KindLocal]; !ok {
		return nil, fmt.Errorf("local fallback backend is not registered")
	}
	return &Router{preferred: preferred, backends: byKind}, nil
}

func (r *Router) Route(ctx context.Context, pcm []byte) Result {
	backend := r.backends[r.preferred]
	if !backend.Available() {
		slog.Warn("preferred backend unavailable; falling back to local",
			"preferred", string(r.preferred))
		backend = r.backends[KindLocal]
	}
	return normalize(backend.Transcribe(ctx, pcm))
}

// Ready reports whether at least one registered backend can serve requests.
func (r *Router) Ready() bool {
	for _, b := range r.backends {
		if b.Available() {
			return true
		}
	}
	return false
}

// normalize guarantees every result carries all four wire fields even when a
// backend left some unset.
func normalize(res Result) Result {
	if res.Language == "" {
		res.Language = "en"
	}
	if res.Confidence < 0 {
		res.Confidence = 0
	}
	if res.Confidence > 1 {
		res.Confidence = 1
	}
	return res
}
