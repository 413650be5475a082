package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"ragmail/config"
	"ragmail/gmail"
)

type fakeMailbox struct {
	summaries  []gmail.Summary
	details    gmail.Details
	listMax    int64
	sendTo     string
	sendSubj   string
	sendBody   string
	sendThread string
	sendErr    error
}

func (m *fakeMailbox) ListRecent(ctx context.Context, max int64) ([]gmail.Summary, error) {
	m.listMax = max
	return m.summaries, nil
}

func (m *fakeMailbox) Fetch(ctx context.Context, id string) (gmail.Details, error) {
	return m.details, nil
}

func (m *fakeMailbox) Send(ctx context.Context, to, subject, body, threadID string) (string, error) {
	m.sendTo, m.sendSubj, m.sendBody, m.sendThread = to, subject, body, threadID
	return "sent-id", m.sendErr
}

type fakeGenerator struct {
	answer  string
	err     error
	lastCtx string
}

func (g *fakeGenerator) Answer(ctx context.Context, contextText string) (string, error) {
	g.lastCtx = contextText
	return g.answer, g.err
}

func newTestServer(t *testing.T, mailbox Mailbox, generator Generator) *Server {
	t.Helper()
	dir := t.TempDir()
	page := []byte("<html><body>Inbox Assistant</body></html>")
	if err := os.WriteFile(filepath.Join(dir, "index.html"), page, 0644); err != nil {
		t.Fatal(err)
	}
	return New(mailbox, generator, &config.Config{TemplatesDir: dir})
}

func doRequest(t *testing.T, s *Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, payload
}

func TestIndexPage(t *testing.T) {
	s := newTestServer(t, &fakeMailbox{}, &fakeGenerator{})
	resp, body := doRequest(t, s, http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte("Inbox Assistant")) {
		t.Errorf("index page body = %s", body)
	}
}

func TestListEmails(t *testing.T) {
	mailbox := &fakeMailbox{
		summaries: []gmail.Summary{
			{ID: "m1", Subject: "Hours", Sender: "Alice <a@example.com>", Snippet: "When do..."},
			{ID: "m2", Subject: "No Subject", Sender: "b@example.com", Snippet: ""},
		},
	}
	s := newTestServer(t, mailbox, &fakeGenerator{})

	resp, body := doRequest(t, s, http.MethodGet, "/emails", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if mailbox.listMax != 10 {
		t.Errorf("listing cap = %d, want 10", mailbox.listMax)
	}
	var out []emailSummary
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 2 || out[0].ID != "m1" || out[0].Snippet != "When do..." {
		t.Errorf("out = %+v", out)
	}
}

func TestGetEmail(t *testing.T) {
	mailbox := &fakeMailbox{
		details: gmail.Details{
			Subject:  "Hours",
			Sender:   "a@example.com",
			Body:     "When do you open?",
			ThreadID: "t1",
		},
	}
	s := newTestServer(t, mailbox, &fakeGenerator{})

	resp, body := doRequest(t, s, http.MethodGet, "/email/m1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out emailDetails
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ThreadID != "t1" || out.Body != "When do you open?" {
		t.Errorf("out = %+v", out)
	}
}

func TestGenerateResponse(t *testing.T) {
	generator := &fakeGenerator{answer: "We open at 9am."}
	s := newTestServer(t, &fakeMailbox{}, generator)

	resp, body := doRequest(t, s, http.MethodPost, "/generate_response", generateRequest{
		Subject: "Hours",
		Sender:  "a@example.com",
		Body:    "When do you open?",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	want := "Subject: Hours\nFrom: a@example.com\nBody: When do you open?"
	if generator.lastCtx != want {
		t.Errorf("generator context = %q, want %q", generator.lastCtx, want)
	}
	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Content != "We open at 9am." {
		t.Errorf("content = %q", out.Content)
	}
}

func TestGenerateResponseBackendError(t *testing.T) {
	generator := &fakeGenerator{err: errors.New("backend down")}
	s := newTestServer(t, &fakeMailbox{}, generator)

	resp, _ := doRequest(t, s, http.MethodPost, "/generate_response", generateRequest{Body: "q"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestSendReply(t *testing.T) {
	mailbox := &fakeMailbox{}
	s := newTestServer(t, mailbox, &fakeGenerator{})

	resp, body := doRequest(t, s, http.MethodPost, "/send_reply", sendReplyRequest{
		Subject:  "Hours",
		Sender:   "a@example.com",
		Response: "We open at 9am.",
		ThreadID: "t1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if mailbox.sendTo != "a@example.com" || mailbox.sendSubj != "Hours" ||
		mailbox.sendBody != "We open at 9am." || mailbox.sendThread != "t1" {
		t.Errorf("send args = %q %q %q %q", mailbox.sendTo, mailbox.sendSubj, mailbox.sendBody, mailbox.sendThread)
	}
	var out map[string]string
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["status"] != "success" {
		t.Errorf("status field = %q", out["status"])
	}
}

func TestSendReplyFailure(t *testing.T) {
	mailbox := &fakeMailbox{sendErr: errors.New("send failed")}
	s := newTestServer(t, mailbox, &fakeGenerator{})

	resp, _ := doRequest(t, s, http.MethodPost, "/send_reply", sendReplyRequest{Sender: "a@example.com"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}
