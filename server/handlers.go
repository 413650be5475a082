package server

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
)

// maxListedEmails caps the /emails listing.
const maxListedEmails = 10

type emailSummary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Snippet string `json:"snippet"`
}

type emailDetails struct {
	Subject  string `json:"subject"`
	Sender   string `json:"sender"`
	Body     string `json:"body"`
	ThreadID string `json:"thread_id"`
}

type generateRequest struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Body    string `json:"body"`
}

type generateResponse struct {
	Content string `json:"content"`
}

type sendReplyRequest struct {
	Subject  string `json:"subject"`
	Sender   string `json:"sender"`
	Response string `json:"response"`
	ThreadID string `json:"thread_id"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleListEmails(c *fiber.Ctx) error {
	summaries, err := s.mailbox.ListRecent(c.Context(), maxListedEmails)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to list emails: %v", err),
		})
	}
	out := make([]emailSummary, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, emailSummary{
			ID:      sum.ID,
			Subject: sum.Subject,
			Sender:  sum.Sender,
			Snippet: sum.Snippet,
		})
	}
	return c.JSON(out)
}

func (s *Server) handleGetEmail(c *fiber.Ctx) error {
	details, err := s.mailbox.Fetch(c.Context(), c.Params("id"))
	if err != nil {
		// Fetch degrades to placeholder values; serve them like the
		// responder would see them.
		log.Printf("server: degraded fetch for message %s: %v", c.Params("id"), err)
	}
	return c.JSON(emailDetails{
		Subject:  details.Subject,
		Sender:   details.Sender,
		Body:     details.Body,
		ThreadID: details.ThreadID,
	})
}

func (s *Server) handleGenerateResponse(c *fiber.Ctx) error {
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	contextText := fmt.Sprintf("Subject: %s\nFrom: %s\nBody: %s",
		req.Subject, req.Sender, req.Body)
	answer, err := s.generator.Answer(c.Context(), contextText)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to generate response: %v", err),
		})
	}
	return c.JSON(generateResponse{Content: answer})
}

func (s *Server) handleSendReply(c *fiber.Ctx) error {
	var req sendReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if _, err := s.mailbox.Send(c.Context(), req.Sender, req.Subject, req.Response, req.ThreadID); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to send reply: %v", err),
		})
	}
	return c.JSON(fiber.Map{"status": "success"})
}
