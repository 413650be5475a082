// Package responder drives the inbound processing pipeline: poll the inbox
// for unread messages, generate a reply for each, send it, and mark the
// source message read.
//
// Processing is at-least-once. A crash between a successful send and a
// successful mark-read leaves the message unread, so the next cycle replies
// to it again; there is no sent-message log to dedupe against.
package responder

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"ragmail/config"
	"ragmail/gmail"
)

// Mailbox is the subset of mailbox operations the pipeline needs.
type Mailbox interface {
	ListUnread(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, id string) (gmail.Details, error)
	Send(ctx context.Context, to, subject, body, threadID string) (string, error)
	MarkRead(ctx context.Context, id string) error
}

// Generator produces a reply for the given email context.
type Generator interface {
	Answer(ctx context.Context, contextText string) (string, error)
}

// Outcome is the terminal processing state of one message within a cycle.
type Outcome int

const (
	OutcomeReplied Outcome = iota
	OutcomeSkippedEmpty
	OutcomeSkippedFiltered
	OutcomeFailed
)

const replyTemplate = "In response to your email:\n\n%s\n\nThis is an automated response generated by an AI assistant."

type Responder struct {
	mailbox       Mailbox
	generator     Generator
	pollInterval  time.Duration
	errorCooldown time.Duration
	ignoreSenders []string
}

func New(mailbox Mailbox, generator Generator, cfg *config.Config) *Responder {
	return &Responder{
		mailbox:       mailbox,
		generator:     generator,
		pollInterval:  cfg.PollInterval,
		errorCooldown: cfg.ErrorCooldown,
		ignoreSenders: cfg.IgnoreSenders,
	}
}

// Run polls the inbox until ctx is cancelled. A completed cycle (including
// one that found nothing) is followed by the short poll interval; a cycle
// that escaped with an error is followed by the longer cooldown.
func (r *Responder) Run(ctx context.Context) {
	log.Println("responder: starting email monitoring...")
	for {
		delay := r.pollInterval
		if err := r.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				log.Println("responder: stopping")
				return
			}
			log.Printf("responder: cycle failed: %v", err)
			log.Printf("responder: retrying in %v...", r.errorCooldown)
			delay = r.errorCooldown
		}
		select {
		case <-ctx.Done():
			log.Println("responder: stopping")
			return
		case <-time.After(delay):
		}
	}
}

// runCycle processes every currently unread message in listing order. A
// listing failure or a generation-backend failure aborts the cycle; all
// other per-message failures are logged and the cycle moves on.
func (r *Responder) runCycle(ctx context.Context) error {
	ids, err := r.mailbox.ListUnread(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		log.Println("responder: no new messages found, waiting...")
		return nil
	}

	log.Printf("responder: processing %d new message(s)", len(ids))
	for _, id := range ids {
		if _, err := r.processMessage(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// processMessage runs one message through fetch, generate, send, and
// acknowledge. Only a generation failure returns an error; it is not
// specific to this message, so the whole cycle backs off.
func (r *Responder) processMessage(ctx context.Context, id string) (Outcome, error) {
	details, err := r.mailbox.Fetch(ctx, id)
	if err != nil {
		// Fetch degrades to placeholder values; the error is informational.
		log.Printf("responder: degraded fetch for message %s: %v", id, err)
	}

	if details.Body == "" || details.Body == gmail.MissingBodySentinel {
		// Left unread so a human notices the unreadable message.
		log.Printf("responder: no readable content in message %s, leaving unread", id)
		return OutcomeSkippedEmpty, nil
	}

	if r.isIgnoredSender(details.Sender) {
		log.Printf("responder: ignoring message %s from %s", id, details.Sender)
		if err := r.mailbox.MarkRead(ctx, id); err != nil {
			log.Printf("responder: failed to mark ignored message %s read: %v", id, err)
		}
		return OutcomeSkippedFiltered, nil
	}

	log.Printf("responder: generating reply for message %s (subject %q, from %s)",
		id, details.Subject, details.Sender)
	contextText := fmt.Sprintf("Subject: %s\nFrom: %s\nBody: %s",
		details.Subject, details.Sender, details.Body)
	answer, err := r.generator.Answer(ctx, contextText)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("generating reply for message %s: %w", id, err)
	}

	replyBody := fmt.Sprintf(replyTemplate, answer)
	sentID, err := r.mailbox.Send(ctx, details.Sender, details.Subject, replyBody, details.ThreadID)
	if err != nil {
		log.Printf("responder: failed to send reply for message %s, leaving unread: %v", id, err)
		return OutcomeFailed, nil
	}
	log.Printf("responder: sent reply %s for message %s", sentID, id)

	if err := r.mailbox.MarkRead(ctx, id); err != nil {
		// The reply is already out; the message will likely be answered
		// again when the next cycle sees it still unread.
		log.Printf("responder: failed to mark message %s read: %v", id, err)
	}
	return OutcomeReplied, nil
}

func (r *Responder) isIgnoredSender(sender string) bool {
	for _, ignored := range r.ignoreSenders {
		if ignored != "" && strings.Contains(strings.ToLower(sender), strings.ToLower(ignored)) {
			return true
		}
	}
	return false
}
