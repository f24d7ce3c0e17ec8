package audio

import "time"

// Format describes the PCM layout a stream was negotiated with.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Chunk is one raw PCM payload received from a client. It is immutable once
// constructed; the segmenter copies its bytes into the stream buffer.
type Chunk struct {
	Data   []byte
	Format Format
}

func (f Format) bytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitDepth / 8
}

// Buffer accumulates PCM for exactly one connection. It is owned by that
// connection's pipeline stream and is never shared.
type Buffer struct {
	data []byte
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) append(data []byte) {
	b.data = append(b.data, data...)
}

func (b *Buffer) Len() int {
	return len(b.data)
}

func (b *Buffer) Duration(f Format) time.Duration {
	bps := f.bytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(len(b.data)) * time.Second / time.Duration(bps)
}

// take returns the buffered bytes and resets the buffer in one step, so a
// sample is never both emitted and retained.
func (b *Buffer) take() []byte {
	data := b.data
	b.data = nil
	return data
}

// Reset drops all buffered audio without emitting it.
func (b *Buffer) Reset() {
	b.data = nil
}
