package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidAudioFormat is returned when a chunk does not match the format the
// segmenter was configured with. The chunk is rejected; the stream stays open.
var ErrInvalidAudioFormat = errors.New("invalid audio format")

// SegmentDecision is the outcome of feeding one chunk into a stream buffer.
// When Ready is true, Segment holds the entire buffered audio and the buffer
// has been reset.
type SegmentDecision struct {
	Ready   bool
	Segment []byte
}

// Segmenter decides when buffered audio is worth transcribing. It knows
// nothing about backends; it only looks at duration and signal energy.
type Segmenter struct {
	format           Format
	minDuration      time.Duration
	silenceFloorDBFS float64
}

func NewSegmenter(format Format, minDuration time.Duration, silenceFloorDBFS float64) *Segmenter {
	return &Segmenter{
		format:           format,
		minDuration:      minDuration,
		silenceFloorDBFS: silenceFloorDBFS,
	}
}

// Accept appends chunk to buf and decides whether a segment is ready.
// Buffers whose average energy sits below the silence floor are dropped
// outright to bound memory on idle streams. Otherwise the buffer is retained
// until it covers the minimum duration, then emitted verbatim and cleared.
func (s *Segmenter) Accept(buf *Buffer, chunk Chunk) (SegmentDecision, error) {
	if chunk.Format != s.format {
		return SegmentDecision{}, fmt.Errorf("%w: got %dHz/%dch/%dbit, want %dHz/%dch/%dbit",
			ErrInvalidAudioFormat,
			chunk.Format.SampleRate, chunk.Format.Channels, chunk.Format.BitDepth,
			s.format.SampleRate, s.format.Channels, s.format.BitDepth)
	}
	if len(chunk.Data)%2 != 0 {
		return SegmentDecision{}, fmt.Errorf("%w: payload is not 16-bit aligned (%d bytes)", ErrInvalidAudioFormat, len(chunk.Data))
	}

	buf.append(chunk.Data)

	if dbFS(buf.data) < s.silenceFloorDBFS {
		buf.Reset()
		return SegmentDecision{}, nil
	}
	if buf.Duration(s.format) < s.minDuration {
		return SegmentDecision{}, nil
	}
	return SegmentDecision{Ready: true, Segment: buf.take()}, nil
}

// dbFS computes the average signal level of little-endian 16-bit PCM in
// decibels relative to full scale. An empty or all-zero buffer yields -Inf,
// which always compares below any configured floor.
func dbFS(pcm []byte) float64 {
	sampleCount := len(pcm) / 2
	if sampleCount == 0 {
		return math.Inf(-1)
	}
	var sumSquares float64
	for i := 0; i < sampleCount; i++ {
		sample := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sumSquares += sample * sample
	}
	rms := math.Sqrt(sumSquares / float64(sampleCount))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/32768)
}
