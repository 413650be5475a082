package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/gmail/v1"
)

// composeReply builds a transport-ready reply message: an RFC 2822 plain-text
// body, base64url-encoded, tagged with the original thread id so Gmail
// threads it with the message being answered. The "Re: " prefix is applied
// unconditionally, even if the subject already carries one.
func composeReply(to, subject, body, threadID string) *gmail.Message {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "From: %s\r\n", user)
	fmt.Fprintf(&buf, "Subject: Re: %s\r\n", subject)
	buf.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)

	return &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString(buf.Bytes()),
		ThreadId: threadID,
	}
}
