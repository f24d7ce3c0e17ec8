package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/kikitorin/internal/transcribe"
	shellwords "github.com/mattn/go-shellwords"
)

const localConfidence = 0.85

type LocalConfig struct {
	Command  string
	Model    string
	Language string

	SampleRate int
	Channels   int
	Timeout    time.Duration
}

// LocalBackend shells out to a whisper-style CLI that accepts a WAV file and
// prints a JSON result on stdout. Command resolution happens at most once per
// process; the resolved binary is shared by every connection after that.
type LocalBackend struct {
	cfg LocalConfig

	initOnce sync.Once
	argv     []string
	binPath  string
	initErr  error
}

type localResult struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func NewLocalBackend(cfg LocalConfig) transcribe.Backend {
	return &LocalBackend{cfg: cfg}
}

func (b *LocalBackend) Kind() transcribe.Kind {
	return transcribe.KindLocal
}

func (b *LocalBackend) Available() bool {
	return strings.TrimSpace(b.cfg.Command) != ""
}

func (b *LocalBackend) Transcribe(ctx context.Context, pcm []byte) transcribe.Result {
	if err := b.ensureInit(); err != nil {
		return transcribe.ErrorResult(err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	wavPath, cleanup, err := pcmToWavFile(pcm, b.cfg.SampleRate, b.cfg.Channels)
	defer cleanup()
	if err != nil {
		return transcribe.ErrorResult(err)
	}

	args := append([]string{}, b.argv[1:]...)
	args = append(args, "--audio", wavPath)
	if b.cfg.Model != "" {
		args = append(args, "--model", b.cfg.Model)
	}
	if b.cfg.Language != "" {
		args = append(args, "--language", b.cfg.Language)
	}

	command := exec.CommandContext(ctx, b.binPath, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		slog.Error("local whisper command failed", "error", err, "stderr", strings.TrimSpace(stderr.String()))
		return transcribe.ErrorResult(fmt.Errorf("whisper command failed: %w", err))
	}

	var parsed localResult
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		return transcribe.ErrorResult(fmt.Errorf("decode whisper output: %w", err))
	}

	language := parsed.Language
	if language == "" {
		language = b.cfg.Language
	}
	return transcribe.Result{
		Text:       strings.TrimSpace(parsed.Text),
		Confidence: localConfidence,
		Language:   language,
	}
}

// ensureInit parses the configured command line and resolves the binary.
// Concurrent first use from many connections must not resolve twice.
func (b *LocalBackend) ensureInit() error {
	b.initOnce.Do(func() {
		parser := shellwords.NewParser()
		argv, err := parser.Parse(b.cfg.Command)
		if err != nil {
			b.initErr = fmt.Errorf("parse whisper command: %w", err)
			return
		}
		if len(argv) == 0 {
			b.initErr = fmt.Errorf("whisper command is empty")
			return
		}
		path, err := exec.LookPath(argv[0])
		if err != nil {
			b.initErr = fmt.Errorf("whisper binary not found: %w", err)
			return
		}
		b.argv = argv
		b.binPath = path
		slog.Info("local whisper backend initialized", "binary", path, "model", b.cfg.Model)
	})
	return b.initErr
}
