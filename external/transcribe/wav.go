package transcribe

import (
	"encoding/binary"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writePCMToWav wraps raw little-endian 16-bit PCM in a WAV container. The
// cloud APIs and the local whisper CLI both want a self-describing file, not
// bare samples.
func writePCMToWav(file *os.File, pcm []byte, sampleRate, channels int) error {
	if len(pcm)%2 != 0 {
		return fmt.Errorf("pcm payload not aligned")
	}
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buffer := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   samples,
	}

	enc := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// pcmToWavFile writes pcm to a temp WAV file and returns its path with a
// cleanup func. Callers must invoke cleanup regardless of outcome.
func pcmToWavFile(pcm []byte, sampleRate, channels int) (string, func(), error) {
	file, err := os.CreateTemp("", "kikitorin_segment_*.wav")
	if err != nil {
		return "", func() {}, fmt.Errorf("temp file: %w", err)
	}
	cleanup := func() {
		_ = os.Remove(file.Name())
	}
	if err := writePCMToWav(file, pcm, sampleRate, channels); err != nil {
		_ = file.Close()
		return "", cleanup, err
	}
	if err := file.Close(); err != nil {
		return "", cleanup, fmt.Errorf("close temp file: %w", err)
	}
	return file.Name(), cleanup, nil
}

// pcmToWavBytes is pcmToWavFile for callers that need an in-memory payload.
func pcmToWavBytes(pcm []byte, sampleRate, channels int) ([]byte, error) {
	path, cleanup, err := pcmToWavFile(pcm, sampleRate, channels)
	defer cleanup()
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}
