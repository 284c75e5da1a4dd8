package gmail

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxpilot/internal/mailbox"
)

const (
	mimeTextPlain = "text/plain"
	mimeTextHTML  = "text/html"
)

// toMessage converts a full-format Gmail message.
func toMessage(m *gmail.Message) mailbox.Message {
	text, html := extractBodies(m.Payload)
	if strings.TrimSpace(text) == "" && html != "" {
		text = htmlToText(html)
	}

	msg := mailbox.Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Subject:  HeaderValue(m, "Subject"),
		From:     HeaderValue(m, "From"),
		Snippet:  m.Snippet,
		Body:     text,
		HTML:     html,
		LabelIDs: m.LabelIds,
	}
	if m.InternalDate > 0 {
		msg.ReceivedAt = time.UnixMilli(m.InternalDate).UTC()
	}
	return msg
}

// HeaderValue returns the first top-level header named header, compared
// without regard to case.
func HeaderValue(m *gmail.Message, header string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}

// extractBodies returns the first text/plain and text/html bodies found in
// the MIME tree. Attachment parts are ignored.
func extractBodies(payload *gmail.MessagePart) (text, html string) {
	walkParts(payload, func(part *gmail.MessagePart) {
		if part.Filename != "" || part.Body == nil || part.Body.Data == "" {
			return
		}
		mimeType := strings.ToLower(part.MimeType)
		switch {
		case text == "" && mimeType == mimeTextPlain:
			text = decodeBody(part.Body.Data)
		case html == "" && mimeType == mimeTextHTML:
			html = decodeBody(part.Body.Data)
		}
	})
	return text, html
}

func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, sub := range part.Parts {
		walkParts(sub, fn)
	}
}

// decodeBody decodes base64url part data, tolerating missing padding and
// standard-alphabet input.
func decodeBody(data string) string {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		if decoded, err := enc.DecodeString(data); err == nil {
			return string(decoded)
		}
	}
	return ""
}

// htmlToText renders the visible text of an HTML document, one block per
// line.
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, head, noscript").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
