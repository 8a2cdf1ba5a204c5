package extractor

import (
	"io"
	"mime"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// wordDecoder decodes RFC 2047 encoded words, resolving declared
// charsets through the WHATWG index. Undecodable bytes are replaced
// rather than failing.
var wordDecoder = &mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			// Unknown charset: pass bytes through and let UTF-8
			// sanitization replace what it must.
			return input, nil
		}
		return transform.NewReader(input, enc.NewDecoder()), nil
	},
}

// decodeHeader decodes a possibly RFC 2047 encoded header value,
// concatenating decoded fragments. Decoding faults fall back to the
// raw value.
func decodeHeader(value string) string {
	if value == "" {
		return ""
	}
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}

// Elements stripped before visible-text extraction.
var strippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
	"title":  true,
	"meta":   true,
	"link":   true,
	"iframe": true,
	"nav":    true,
	"footer": true,
}

var tagStripRe = regexp.MustCompile(`<[^>]+>`)

// htmlToText extracts visible text from HTML with line-break
// preserving separators and blank lines collapsed. On parse failure it
// falls back to simple tag stripping.
func (e *Extractor) htmlToText(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		e.logger.Debug("HTML parse failed, falling back to tag stripping", zap.Error(err))
		return tagStripRe.ReplaceAllString(markup, "")
	}

	var sb strings.Builder
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && strippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)

	lines := strings.Split(sb.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Footer and signature boilerplate, stripped in order after whitespace
// normalization so the patterns see single-spaced text.
var footerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)--\s*$`),
	regexp.MustCompile(`(?im)Best regards,.*`),
	regexp.MustCompile(`(?im)Sincerely,.*`),
	regexp.MustCompile(`(?im)Thanks,.*`),
	regexp.MustCompile(`(?im)Kind regards,.*`),
	regexp.MustCompile(`(?im)Sent from my.*`),
	regexp.MustCompile(`(?im)Proudly powered by.*`),
	regexp.MustCompile(`(?im)Unsubscribe.*`),
	regexp.MustCompile(`(?im)View this email in your browser.*`),
	regexp.MustCompile(`(?im)This email was sent to.*`),
}

var (
	collapseWhitespaceRe = regexp.MustCompile(`\s+`)
	urlRe                = regexp.MustCompile(`https?://\S+`)
	emailAddressRe       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

// cleanText normalizes an accepted body tier. Order matters:
// whitespace collapse first, footer stripping second, URL and address
// stripping last.
func cleanText(text string) string {
	if text == "" {
		return ""
	}

	text = collapseWhitespaceRe.ReplaceAllString(text, " ")

	for _, pattern := range footerPatterns {
		text = pattern.ReplaceAllString(text, "")
	}

	text = urlRe.ReplaceAllString(text, "")
	text = emailAddressRe.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}
