package server

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/websocket/v2"

	"github.com/foxseedlab/kikitorin/internal/audio"
	"github.com/foxseedlab/kikitorin/internal/pipeline"
	"github.com/foxseedlab/kikitorin/internal/registry"
	"github.com/foxseedlab/kikitorin/internal/transcribe"
)

// wsTransport adapts a fiber websocket conn to the registry's Transport.
// All writes are serialized by the registry mutex.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) Write(payload []byte) error {
	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// handleLiveTranscription runs one streaming connection: register, open the
// per-connection pipeline stream, then pump binary frames until the client
// goes away. Results flow back on the stream's worker via the registry.
func (s *Server) handleLiveTranscription(c *websocket.Conn) {
	transport := &wsTransport{conn: c}
	handle := s.registry.Register(transport, registry.Metadata{
		SessionID:  c.Query("session_id"),
		ClientType: c.Query("client_type"),
	})

	stream := s.pipeline.OpenStream(handle.ID, func(res transcribe.Result) {
		payload, err := json.Marshal(newTranscriptionMessage(res))
		if err != nil {
			slog.Error("failed to marshal transcription message", "error", err, "handle_id", handle.ID)
			return
		}
		s.registry.Send(handle, payload)
	})
	defer func() {
		stream.Close()
		s.registry.Unregister(handle)
	}()

	format := s.pipeline.Format()
	for {
		messageType, data, err := c.ReadMessage()
		if err != nil {
			slog.Info("websocket read ended", "reason", err.Error(), "handle_id", handle.ID)
			return
		}
		if messageType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}
		if err := stream.SubmitChunk(audio.Chunk{Data: data, Format: format}); err != nil {
			if errors.Is(err, audio.ErrInvalidAudioFormat) {
				// Bad chunk, healthy connection: skip it.
				slog.Warn("rejected audio chunk", "error", err, "handle_id", handle.ID)
				continue
			}
			if errors.Is(err, pipeline.ErrStreamClosed) {
				return
			}
			slog.Error("failed to submit chunk", "error", err, "handle_id", handle.ID)
		}
	}
}
