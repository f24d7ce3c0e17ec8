package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/foxseedlab/kikitorin/internal/config"
	"github.com/foxseedlab/kikitorin/internal/pipeline"
	"github.com/foxseedlab/kikitorin/internal/registry"
)

// Server is the HTTP/streaming front end. It owns no transcription logic; it
// forwards bytes into the pipeline and results back out through the registry.
type Server struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	registry *registry.Registry
	app      *fiber.App
}

func NewServer(cfg *config.Config, p *pipeline.Pipeline, reg *registry.Registry) *Server {
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	s := &Server{cfg: cfg, pipeline: p, registry: reg, app: app}

	app.Get("/", s.handleRoot)
	app.Get("/health", s.handleHealth)
	app.Post("/transcribe", s.handleTranscribe)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/live-transcription", websocket.New(s.handleLiveTranscription))

	return s
}

func (s *Server) Listen() error {
	slog.Info("http server listening", "addr", s.cfg.ListenAddr)
	return s.app.Listen(s.cfg.ListenAddr)
}

// Shutdown stops accepting connections, then tears down every live stream.
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	s.pipeline.Shutdown()
	return err
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("%s is running", serviceName),
		"version": serviceVersion,
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	status := s.pipeline.Status()
	speech := "ready"
	overall := "healthy"
	if !status.Ready {
		speech = "degraded"
		overall = "degraded"
	}
	return c.JSON(fiber.Map{
		"status": overall,
		"services": fiber.Map{
			"speech_processing": speech,
		},
		"connections": s.registry.Count(),
	})
}

func (s *Server) handleTranscribe(c *fiber.Ctx) error {
	var req transcribeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": detailNoAudioData})
	}
	if req.Audio == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": detailNoAudioData})
	}
	audioData, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": detailBadAudioData})
	}

	res, err := s.pipeline.SubmitBlob(c.UserContext(), audioData)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoAudioData) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": detailNoAudioData})
		}
		slog.Error("one-shot transcription failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "transcription failed"})
	}

	return c.JSON(transcribeResponse{
		Transcription: res,
		Timestamp:     strconv.FormatInt(time.Now().UnixMilli(), 10),
		Confidence:    res.Confidence,
		Language:      res.Language,
	})
}
