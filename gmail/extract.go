package gmail

import (
	"encoding/base64"
	"html"
	"log"
	"regexp"
	"strings"

	"google.golang.org/api/gmail/v1"
)

// MissingBodySentinel is returned by ExtractBody when a message carries no
// body parts at all. It is distinct from an empty string, which means the
// message had content that normalized to nothing.
const MissingBodySentinel = "Unable to find email body"

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	imagePattern      = regexp.MustCompile(`\[image:[^\]]*\]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// ExtractBody walks a message payload depth-first and produces a single
// normalized plain-text string. Plain-text parts always accumulate; an HTML
// part is used only while nothing has accumulated yet, so the first HTML part
// serves as a fallback for HTML-only messages.
func ExtractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return MissingBodySentinel
	}
	var acc strings.Builder
	switch {
	case len(payload.Parts) > 0:
		collectParts(payload.Parts, &acc)
	case payload.Body != nil && payload.Body.Data != "":
		acc.WriteString(decodePart(payload.Body.Data))
	default:
		return MissingBodySentinel
	}
	return normalize(acc.String())
}

func collectParts(parts []*gmail.MessagePart, acc *strings.Builder) {
	for _, part := range parts {
		if len(part.Parts) > 0 {
			collectParts(part.Parts, acc)
		}
		var data string
		if part.Body != nil {
			data = part.Body.Data
		}
		if data == "" {
			continue
		}
		switch part.MimeType {
		case "text/plain":
			acc.WriteString(decodePart(data))
		case "text/html":
			if acc.Len() == 0 {
				acc.WriteString(decodePart(data))
			}
		}
	}
}

// decodePart decodes a base64url payload, tolerating missing padding. Decode
// failures are logged and contribute nothing.
func decodePart(data string) string {
	if rem := len(data) % 4; rem != 0 {
		data += strings.Repeat("=", 4-rem)
	}
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		log.Printf("gmail: error decoding body part: %v", err)
		return ""
	}
	return string(decoded)
}

// normalize unescapes HTML entities, strips markup tags and inline-image
// placeholders, and collapses runs of whitespace to single spaces.
func normalize(body string) string {
	body = html.UnescapeString(body)
	body = tagPattern.ReplaceAllString(body, "")
	body = imagePattern.ReplaceAllString(body, "")
	body = whitespacePattern.ReplaceAllString(body, " ")
	return strings.TrimSpace(body)
}
