// Package gmail wraps the Gmail REST API behind the four operations the
// responder needs: list unread, fetch, send, mark read. All transport
// details (OAuth, base64url raw encoding, label mutation) stay in here.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"os"
	"strings"

	"ragmail/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	user         = "me"
	unreadQuery  = "is:unread"
	inboxLabelID = "INBOX"

	defaultSubject = "No Subject"
	defaultSender  = "Unknown Sender"
)

type Client struct {
	srv *gmail.Service
}

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(b,
		gmail.GmailReadonlyScope, gmail.GmailSendScope, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	httpClient := getOAuthClient(oauthConfig, cfg.TokenFile)
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return &Client{srv: srv}, nil
}

func getOAuthClient(config *oauth2.Config, tokenFile string) *http.Client {
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		tok = getTokenFromWeb(config)
		saveToken(tokenFile, tok)
	}
	return config.Client(context.Background(), tok)
}

func getTokenFromWeb(config *oauth2.Config) *oauth2.Token {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the "+
		"authorization code: \n%v\n", authURL)
	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		log.Fatalf("Unable to read authorization code: %v", err)
	}
	tok, err := config.Exchange(context.TODO(), authCode)
	if err != nil {
		log.Fatalf("Unable to retrieve token from web: %v", err)
	}
	return tok
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) {
	fmt.Printf("Saving credential file to: %s\n", path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		log.Fatalf("Unable to save oauth token: %v", err)
	}
	defer f.Close()
	json.NewEncoder(f).Encode(token)
}

// ListUnread returns the ids of all unread inbox messages. An empty slice is
// a normal outcome, not an error.
func (c *Client) ListUnread(ctx context.Context) ([]string, error) {
	res, err := c.srv.Users.Messages.List(user).
		LabelIds(inboxLabelID).
		Q(unreadQuery).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing unread messages: %w", err)
	}
	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// Fetch retrieves one message and normalizes it. It degrades rather than
// aborts: on any failure the returned Details carry the placeholder subject
// and sender with an empty body, and the error is returned for logging only.
func (c *Client) Fetch(ctx context.Context, id string) (Details, error) {
	msg, err := c.srv.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return Details{Subject: defaultSubject, Sender: defaultSender},
			fmt.Errorf("fetching message %s: %w", id, err)
	}
	if msg.Payload == nil {
		return Details{Subject: defaultSubject, Sender: defaultSender, ThreadID: msg.ThreadId},
			fmt.Errorf("message %s has no payload", id)
	}
	return Details{
		Subject:  headerValue(msg.Payload.Headers, "Subject", defaultSubject),
		Sender:   bareAddress(headerValue(msg.Payload.Headers, "From", defaultSender)),
		Body:     ExtractBody(msg.Payload),
		ThreadID: msg.ThreadId,
	}, nil
}

// ListRecent returns headers-only summaries of the most recent inbox
// messages, newest first. Messages that fail to fetch are skipped.
func (c *Client) ListRecent(ctx context.Context, max int64) ([]Summary, error) {
	res, err := c.srv.Users.Messages.List(user).
		LabelIds(inboxLabelID).
		MaxResults(max).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing recent messages: %w", err)
	}
	summaries := make([]Summary, 0, len(res.Messages))
	for _, m := range res.Messages {
		msg, err := c.srv.Users.Messages.Get(user, m.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From").
			Context(ctx).Do()
		if err != nil {
			log.Printf("gmail: unable to retrieve metadata for message %s: %v", m.Id, err)
			continue
		}
		var headers []*gmail.MessagePartHeader
		if msg.Payload != nil {
			headers = msg.Payload.Headers
		}
		summaries = append(summaries, Summary{
			ID:      m.Id,
			Subject: headerValue(headers, "Subject", defaultSubject),
			Sender:  headerValue(headers, "From", defaultSender),
			Snippet: msg.Snippet,
		})
	}
	return summaries, nil
}

// Send composes a threaded reply and sends it. The subject is prefixed with
// "Re: " unconditionally. Returns the id of the sent message.
func (c *Client) Send(ctx context.Context, to, subject, body, threadID string) (string, error) {
	msg := composeReply(to, subject, body, threadID)
	sent, err := c.srv.Users.Messages.Send(user, msg).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("sending reply to %s: %w", to, err)
	}
	return sent.Id, nil
}

// MarkRead clears the UNREAD label on a message.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	req := &gmail.ModifyMessageRequest{RemoveLabelIds: []string{"UNREAD"}}
	if _, err := c.srv.Users.Messages.Modify(user, id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("marking message %s read: %w", id, err)
	}
	return nil
}

// headerValue returns the first header matching name (case-insensitive), or
// fallback if the header is absent.
func headerValue(headers []*gmail.MessagePartHeader, name, fallback string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return fallback
}

// bareAddress extracts the address from a possibly decorated
// "Display Name <addr>" header value. Unparseable values pass through as-is.
func bareAddress(from string) string {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return strings.TrimSpace(from)
	}
	return addr.Address
}
