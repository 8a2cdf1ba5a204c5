package core

import (
	"bytes"
	"math"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	unsubscribeAnchorRe = regexp.MustCompile(`(?i)unsubscribe|opt[-\s]?out|remove me`)
	footerClassRe       = regexp.MustCompile(`(?i)footer|foot`)
	sectionClassRe      = regexp.MustCompile(`(?i)section|article|story|feature|highlight`)
	headerTitleRe       = regexp.MustCompile(`(?i)newsletter|digest|update|edition|issue`)
	readMoreRe          = regexp.MustCompile(`(?i)read\s+(?:more|full|article|story)`)
	socialHrefRe        = regexp.MustCompile(`(?i)facebook|twitter|linkedin|instagram|youtube`)
)

// parseHTML parses markup tolerantly. Returns nil only when the
// tokenizer itself fails; malformed markup still yields a tree.
func parseHTML(markup string) *html.Node {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	return doc
}

// scoreStructure rates newsletter-typical HTML layout: table-based
// design, named sections, titled headers, read-more links, a social
// footer and image density. Parse faults floor the score at 0.
func scoreStructure(htmlBody string) float64 {
	if htmlBody == "" {
		return 0.0
	}
	doc := parseHTML(htmlBody)
	if doc == nil {
		return 0.0
	}

	score := 0.0

	if tables := countElements(doc, "table"); tables >= 3 {
		score += math.Min(0.1*float64(tables), 0.5)
	}

	if sections := countSectionBlocks(doc); sections >= 2 {
		score += math.Min(0.2*float64(sections), 0.8)
	}

	if header := findFirstElement(doc, "h1", "h2"); header != nil {
		if headerTitleRe.MatchString(nodeText(header)) {
			score += 0.6
		}
	}

	if readMore := countAnchorsMatching(doc, readMoreRe); readMore > 0 {
		score += math.Min(0.2*float64(readMore), 0.6)
	}

	if footer := findFooter(doc); footer != nil {
		if social := countSocialAnchors(footer); social > 0 {
			score += math.Min(0.1*float64(social), 0.4)
		}
	}

	images := countElements(doc, "img")
	switch {
	case images >= 2 && images <= 10:
		score += 0.3
	case images > 10:
		score += 0.5
	}

	return clamp(score, 0, 2)
}

// countUnsubscribeAnchors counts anchor elements whose visible text
// looks like an unsubscribe action.
func countUnsubscribeAnchors(doc *html.Node) int {
	return countAnchorsMatching(doc, unsubscribeAnchorRe)
}

// footerMentionsUnsubscribe reports whether a footer-like block
// contains unsubscribe or opt-out phrasing anywhere in its markup.
func footerMentionsUnsubscribe(doc *html.Node) bool {
	footer := findFooter(doc)
	if footer == nil {
		return false
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, footer); err != nil {
		return false
	}
	return unsubscribeAnchorRe.MatchString(buf.String())
}

func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func isElement(n *html.Node, names ...string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, name := range names {
		if n.Data == name {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

func countElements(doc *html.Node, names ...string) int {
	count := 0
	walk(doc, func(n *html.Node) bool {
		if isElement(n, names...) {
			count++
		}
		return true
	})
	return count
}

// countSectionBlocks counts section and div elements whose class names
// mark editorial content blocks.
func countSectionBlocks(doc *html.Node) int {
	count := 0
	walk(doc, func(n *html.Node) bool {
		if isElement(n, "section", "div") && sectionClassRe.MatchString(attrValue(n, "class")) {
			count++
		}
		return true
	})
	return count
}

func findFirstElement(doc *html.Node, names ...string) *html.Node {
	var found *html.Node
	walk(doc, func(n *html.Node) bool {
		if isElement(n, names...) {
			found = n
			return false
		}
		return true
	})
	return found
}

// findFooter locates a <footer> element or the first <div> with a
// footer-like class.
func findFooter(doc *html.Node) *html.Node {
	var footer *html.Node
	walk(doc, func(n *html.Node) bool {
		if isElement(n, "footer") {
			footer = n
			return false
		}
		if footer == nil && isElement(n, "div") && footerClassRe.MatchString(attrValue(n, "class")) {
			footer = n
		}
		return true
	})
	return footer
}

func countAnchorsMatching(root *html.Node, re *regexp.Regexp) int {
	count := 0
	walk(root, func(n *html.Node) bool {
		if isElement(n, "a") && re.MatchString(nodeText(n)) {
			count++
		}
		return true
	})
	return count
}

func countSocialAnchors(root *html.Node) int {
	count := 0
	walk(root, func(n *html.Node) bool {
		if isElement(n, "a") && socialHrefRe.MatchString(attrValue(n, "href")) {
			count++
		}
		return true
	})
	return count
}
