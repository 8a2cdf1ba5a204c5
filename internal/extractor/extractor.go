// Package extractor derives a normalized, analyzable representation
// from raw mail messages. All decode and parse faults are absorbed by
// a fallback cascade; extraction never returns an error, only an
// absent record for fully undecodable payloads.
package extractor

import (
	"bytes"
	"fmt"
	"io"
	netmail "net/mail"
	"net/textproto"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/mikey/newsletter-sieve/internal/core"
	"github.com/mikey/newsletter-sieve/internal/utils"
)

// Minimum stripped lengths for each body tier.
const (
	plainTextMinLen  = 50
	htmlTextMinLen   = 50
	rawPayloadMinLen = 20
)

var unsubscribeKeywords = []string{
	"unsubscribe",
	"opt-out",
	"opt out",
	"remove me",
	"manage preferences",
}

// Extractor converts raw messages into core.NormalizedEmail records.
type Extractor struct {
	logger      *zap.Logger
	text        *utils.TextProcessor
	maxBodySize int
}

// New creates an extractor. maxBodySize caps the cleaned body length
// in bytes; zero disables the cap.
func New(logger *zap.Logger, maxBodySize int) *Extractor {
	return &Extractor{
		logger:      logger,
		text:        utils.NewTextProcessor(logger),
		maxBodySize: maxBodySize,
	}
}

// parsedMessage is the intermediate MIME walk result the body tiers
// draw from.
type parsedMessage struct {
	headers    map[string]string
	plainParts []string
	htmlParts  []string
	firstPart  string
	partTypes  []string
	multipart  bool
	mediaType  string
}

// Extract converts one raw message. A nil result means the payload was
// entirely undecodable; all other faults degrade through the cascade.
func (e *Extractor) Extract(msg core.RawMessage) *core.NormalizedEmail {
	if len(bytes.TrimSpace(msg.Data)) == 0 {
		return nil
	}

	parsed := e.parseMessage(msg.Data)
	if parsed == nil {
		return nil
	}

	subject := decodeHeader(parsed.headers["Subject"])
	sender := decodeHeader(parsed.headers["From"])
	date := decodeHeader(parsed.headers["Date"])
	messageID := strings.TrimSpace(decodeHeader(parsed.headers["Message-Id"]))

	htmlBody := ""
	if len(parsed.htmlParts) > 0 {
		htmlBody = parsed.htmlParts[0]
	}

	body := e.extractBody(parsed, sender, subject)
	if e.maxBodySize > 0 {
		body = e.text.TruncateText(body, e.maxBodySize)
	}

	id := msg.ID
	if id == "" {
		id = messageID
	}

	return &core.NormalizedEmail{
		ID:             id,
		MessageID:      messageID,
		Subject:        subject,
		Sender:         sender,
		Date:           date,
		Body:           body,
		HTMLBody:       htmlBody,
		Headers:        parsed.headers,
		HasUnsubscribe: hasUnsubscribe(parsed.headers, body),
		ContentType:    resolveContentType(parsed),
		Size:           len(msg.Data),
	}
}

// bodyTier is one step of the extraction cascade: the first tier whose
// stripped output exceeds its minimum length wins.
type bodyTier struct {
	name    string
	minLen  int
	extract func() string
}

// extractBody runs the tier cascade. The minimal fallback tier never
// fails, so the cascade always yields a body.
func (e *Extractor) extractBody(parsed *parsedMessage, sender, subject string) string {
	tiers := []bodyTier{
		{
			name:   "plain_text",
			minLen: plainTextMinLen,
			extract: func() string {
				return strings.Join(parsed.plainParts, "\n\n")
			},
		},
		{
			name:   "html",
			minLen: htmlTextMinLen,
			extract: func() string {
				if len(parsed.htmlParts) == 0 {
					return ""
				}
				return e.htmlToText(parsed.htmlParts[0])
			},
		},
		{
			name:   "raw_payload",
			minLen: rawPayloadMinLen,
			extract: func() string {
				return parsed.firstPart
			},
		},
	}

	for _, tier := range tiers {
		candidate := tier.extract()
		if len(strings.TrimSpace(candidate)) > tier.minLen {
			e.logger.Debug("Body tier accepted", zap.String("tier", tier.name))
			return cleanText(candidate)
		}
	}

	e.logger.Warn("No substantial body content found, using minimal fallback")
	return fmt.Sprintf("Email from %s with subject: %s", sender, subject)
}

// parseMessage walks the MIME tree once, collecting headers, text and
// HTML parts and the first payload of any type. Attachments are
// skipped. Returns nil only when the payload cannot be interpreted as
// a message at all and carries no text.
func (e *Extractor) parseMessage(data []byte) *parsedMessage {
	parsed := &parsedMessage{headers: make(map[string]string)}

	mr, err := gomail.CreateReader(bytes.NewReader(data))
	if err != nil && !message.IsUnknownCharset(err) {
		return e.parseMessageFallback(data)
	}
	if mr == nil {
		return e.parseMessageFallback(data)
	}
	defer mr.Close()

	fields := mr.Header.Fields()
	for fields.Next() {
		key := textproto.CanonicalMIMEHeaderKey(fields.Key())
		if _, exists := parsed.headers[key]; !exists {
			parsed.headers[key] = fields.Value()
		}
	}

	parsed.mediaType, _, _ = mr.Header.ContentType()
	parsed.multipart = strings.HasPrefix(parsed.mediaType, "multipart/")

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			// Malformed part boundary or encoding; keep what we have.
			break
		}
		if part == nil {
			break
		}

		header, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			// Attachment part, skip.
			continue
		}

		contentType, _, _ := header.ContentType()
		parsed.partTypes = append(parsed.partTypes, contentType)

		raw, err := io.ReadAll(part.Body)
		if err != nil {
			e.logger.Debug("Failed to read message part",
				zap.String("content_type", contentType), zap.Error(err))
			continue
		}
		text := e.text.SanitizeUTF8(string(raw))

		if parsed.firstPart == "" {
			parsed.firstPart = text
		}
		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			parsed.plainParts = append(parsed.plainParts, text)
		case strings.HasPrefix(contentType, "text/html"):
			parsed.htmlParts = append(parsed.htmlParts, text)
		}
	}

	return parsed
}

// parseMessageFallback handles payloads go-message rejects: parse the
// header block with net/mail, or failing that treat the whole payload
// as an untyped body.
func (e *Extractor) parseMessageFallback(data []byte) *parsedMessage {
	parsed := &parsedMessage{headers: make(map[string]string)}

	msg, err := netmail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		text := e.text.SanitizeUTF8(string(data))
		if len(strings.TrimSpace(text)) == 0 {
			return nil
		}
		parsed.firstPart = text
		parsed.mediaType = "text/plain"
		parsed.partTypes = []string{"text/plain"}
		return parsed
	}

	for key, values := range msg.Header {
		parsed.headers[textproto.CanonicalMIMEHeaderKey(key)] = strings.Join(values, ", ")
	}

	raw, err := io.ReadAll(msg.Body)
	if err == nil {
		text := e.text.SanitizeUTF8(string(raw))
		parsed.firstPart = text
		contentType := strings.ToLower(parsed.headers["Content-Type"])
		parsed.mediaType = contentType
		switch {
		case strings.Contains(contentType, "text/html"):
			parsed.htmlParts = append(parsed.htmlParts, text)
			parsed.partTypes = []string{"text/html"}
		default:
			parsed.plainParts = append(parsed.plainParts, text)
			parsed.partTypes = []string{"text/plain"}
		}
	}

	return parsed
}

// resolveContentType reports html over text for multipart messages;
// single-part messages report their own type.
func resolveContentType(parsed *parsedMessage) core.ContentType {
	if parsed.multipart {
		for _, t := range parsed.partTypes {
			if strings.HasPrefix(t, "text/html") {
				return core.ContentTypeHTML
			}
		}
		for _, t := range parsed.partTypes {
			if strings.HasPrefix(t, "text/plain") {
				return core.ContentTypeText
			}
		}
		return core.ContentTypeMultipart
	}

	switch {
	case strings.HasPrefix(parsed.mediaType, "text/html"):
		return core.ContentTypeHTML
	case strings.HasPrefix(parsed.mediaType, "text/plain"), parsed.mediaType == "":
		return core.ContentTypeText
	default:
		return core.ContentType(parsed.mediaType)
	}
}

// hasUnsubscribe checks the fixed keyword set against the serialized
// headers and the cleaned body.
func hasUnsubscribe(headers map[string]string, body string) bool {
	var sb strings.Builder
	for key, value := range headers {
		sb.WriteString(strings.ToLower(key))
		sb.WriteString(": ")
		sb.WriteString(strings.ToLower(value))
		sb.WriteString("\n")
	}
	serialized := sb.String()
	lowerBody := strings.ToLower(body)

	for _, keyword := range unsubscribeKeywords {
		if strings.Contains(serialized, keyword) || strings.Contains(lowerBody, keyword) {
			return true
		}
	}
	return false
}
