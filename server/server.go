// Package server exposes the mailbox and generation primitives over HTTP for
// manual use: list recent messages, fetch one, generate a reply candidate,
// and send an approved reply. Every request is independent; no state is kept
// between calls, so the handlers can run concurrently with the responder.
package server

import (
	"context"

	"ragmail/config"
	"ragmail/gmail"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
)

// Mailbox is the subset of mailbox operations the HTTP surface needs.
type Mailbox interface {
	ListRecent(ctx context.Context, max int64) ([]gmail.Summary, error)
	Fetch(ctx context.Context, id string) (gmail.Details, error)
	Send(ctx context.Context, to, subject, body, threadID string) (string, error)
}

// Generator produces a reply candidate for caller-supplied email content.
type Generator interface {
	Answer(ctx context.Context, contextText string) (string, error)
}

type Server struct {
	app       *fiber.App
	mailbox   Mailbox
	generator Generator
}

func New(mailbox Mailbox, generator Generator, cfg *config.Config) *Server {
	engine := html.New(cfg.TemplatesDir, ".html")

	app := fiber.New(fiber.Config{
		Views: engine,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		app:       app,
		mailbox:   mailbox,
		generator: generator,
	}

	app.Get("/", s.handleIndex)
	app.Get("/health", s.handleHealth)
	app.Get("/emails", s.handleListEmails)
	app.Get("/email/:id", s.handleGetEmail)
	app.Post("/generate_response", s.handleGenerateResponse)
	app.Post("/send_reply", s.handleSendReply)

	return s
}

// Listen serves HTTP until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
