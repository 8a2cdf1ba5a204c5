package core

import (
	"html"
	"math"
	"net/mail"
	"regexp"
	"strings"
)

// Classify scores a normalized email across the seven signal
// dimensions and derives a keep/reject decision. It is a pure function
// of its two inputs: no I/O, no mutation of the tables, identical
// inputs always yield identical decisions.
func Classify(email *NormalizedEmail, tables PatternTables) ClassificationDecision {
	if email == nil {
		email = &NormalizedEmail{}
	}

	subject := normalizeText(email.Subject)
	sender := normalizeText(email.Sender)
	body := normalizeText(email.Body)
	htmlBody := email.HTMLBody

	address, displayName := parseSender(email.Sender)
	domain := senderDomain(address)

	analysis := SignalScores{
		Unsubscribe:      scoreUnsubscribe(email, body, htmlBody, tables),
		Sender:           scoreSender(sender, address, displayName, domain, tables),
		Content:          scoreContent(subject, body, tables),
		Structural:       scoreStructure(htmlBody),
		Transactional:    scoreTransactional(subject, body, tables),
		DomainReputation: domainReputation(domain, tables),
		Engagement:       scoreEngagement(body, htmlBody),
	}

	total := 0.0
	for _, dim := range signalDimensions {
		total += dimensionWeight(dim) * analysis.dimension(dim)
	}

	threshold := adaptiveThreshold(analysis)
	keep := total >= threshold

	return ClassificationDecision{
		EmailID:        email.ID,
		Subject:        subject,
		Sender:         sender,
		TotalScore:     total,
		Threshold:      threshold,
		ShouldKeep:     keep,
		PrimaryPattern: primaryPattern(analysis, keep),
		Analysis:       analysis,
	}
}

// dimension returns the raw score for a dimension.
func (s SignalScores) dimension(d SignalDimension) float64 {
	switch d {
	case DimUnsubscribe:
		return s.Unsubscribe
	case DimSender:
		return s.Sender
	case DimContent:
		return s.Content
	case DimStructural:
		return s.Structural
	case DimTransactional:
		return s.Transactional
	case DimDomainReputation:
		return s.DomainReputation
	case DimEngagement:
		return s.Engagement
	}
	return 0
}

func dimensionWeight(d SignalDimension) float64 {
	switch d {
	case DimUnsubscribe:
		return WeightUnsubscribe
	case DimSender:
		return WeightSender
	case DimContent:
		return WeightContent
	case DimStructural:
		return WeightStructural
	case DimTransactional:
		return WeightTransactional
	case DimDomainReputation:
		return WeightDomainReputation
	case DimEngagement:
		return WeightEngagement
	}
	return 0
}

// adaptiveThreshold picks the keep/reject cutoff from the rule ladder.
// Rule order is significant; the first matching rule wins.
func adaptiveThreshold(analysis SignalScores) float64 {
	if analysis.Unsubscribe >= 1.5 {
		return math.Max(BaseThreshold-0.5, 0.3)
	}
	if analysis.Transactional >= 2.0 {
		return BaseThreshold + 0.7
	}
	if analysis.Sender >= 1.0 && analysis.Content >= 1.0 {
		return math.Max(BaseThreshold-0.3, 0.5)
	}
	return BaseThreshold
}

// primaryPattern labels the dominant reason behind a decision. The
// label is diagnostic only and never feeds back into the decision.
func primaryPattern(analysis SignalScores, kept bool) string {
	if kept {
		best := signalDimensions[0]
		bestAbs := math.Abs(dimensionWeight(best) * analysis.dimension(best))
		for _, dim := range signalDimensions[1:] {
			abs := math.Abs(dimensionWeight(dim) * analysis.dimension(dim))
			if abs > bestAbs {
				best, bestAbs = dim, abs
			}
		}
		return "newsletter_" + best.Label()
	}
	if analysis.Transactional > 1.0 {
		return "transactional_high"
	}
	if analysis.Unsubscribe < 0.5 {
		return "no_unsubscribe"
	}
	return "mixed_signals"
}

var (
	postalAddressPattern = regexp.MustCompile(`\b\d{1,5}\s+\w+(?:\s+\w+){1,3},\s*(?:[A-Z]{2}|[a-z]{2,})\s+\d{5}`)
	preferenceCenterRe   = regexp.MustCompile(`(?i)preference[s\-]?center|manage\s+preferences|email\s+preferences`)
	noReplyRe            = regexp.MustCompile(`no[-\s]?reply|noreply|donotreply`)
	personalNameRe       = regexp.MustCompile(`^[A-Z][a-z]+ (?:[A-Z][a-z]+\.? )?[A-Z][a-z]+$`)
	oneTimeCodeRe        = regexp.MustCompile(`\b\d{4,6}\b`)
	orderNumberRe        = regexp.MustCompile(`(?i)(?:order|invoice|receipt)[\s#:]*[A-Z0-9]{6,12}`)
	displayNameRe        = regexp.MustCompile(`^"?([^"<]+)"?\s*<[^>]+>`)
)

// scoreUnsubscribe gathers additive unsubscribe evidence from headers,
// body text and HTML. Capped at 2.0.
func scoreUnsubscribe(email *NormalizedEmail, body, htmlBody string, tables PatternTables) float64 {
	score := 0.0

	for _, header := range tables.UnsubscribeHeaders {
		if email.Header(header) != "" {
			score += 0.8
		}
	}

	// CAN-SPAM postal address requirement.
	if postalAddressPattern.MatchString(body) {
		score += 0.3
	}

	if htmlBody != "" {
		if doc := parseHTML(htmlBody); doc != nil {
			if n := countUnsubscribeAnchors(doc); n > 0 {
				score += math.Min(0.3*float64(n), 0.9)
			}
			if footerMentionsUnsubscribe(doc) {
				score += 0.5
			}
		}
	}

	for _, pattern := range tables.UnsubscribePatterns {
		if pattern.MatchString(body) {
			score += 0.7
			break
		}
	}

	// RFC 8058 machine-actionable unsubscribe.
	if listUnsub := email.Header("List-Unsubscribe"); listUnsub != "" {
		if strings.Contains(listUnsub, "mailto:") {
			score += 1.0
		} else {
			score += 0.8
		}
	}

	if preferenceCenterRe.MatchString(body) {
		score += 0.6
	}

	return clamp(score, 0, 2)
}

// scoreSender weighs platform, pattern and display-name evidence about
// the sending identity. Clamped to [0, 2].
func scoreSender(sender, address, displayName, domain string, tables PatternTables) float64 {
	score := 0.0

	for _, platform := range tables.NewsletterPlatforms {
		if strings.Contains(domain, platform) {
			score += 1.2
			break
		}
	}

	for _, pattern := range tables.SenderPatterns {
		if pattern.MatchString(sender) {
			score += 0.8
			break
		}
	}

	lowerName := strings.ToLower(displayName)
	for _, word := range tables.NewsletterNameWords {
		if strings.Contains(lowerName, word) {
			score += 0.6
			break
		}
	}

	if personalNameRe.MatchString(displayName) {
		score -= 0.5
	}

	if noReplyRe.MatchString(strings.ToLower(address)) {
		score -= 0.7
	}

	if reputation := domainReputation(domain, tables); reputation > 0.5 {
		score += reputation
	}

	return clamp(score, 0, 2)
}

// scoreContent looks for newsletter lexical indicators in subject and
// body. Subject matches carry a 1.2x premium over body matches.
func scoreContent(subject, body string, tables PatternTables) float64 {
	score := 0.0

	for _, ind := range tables.NewsletterIndicators {
		if strings.Contains(subject, ind.Keyword) {
			score += ind.Weight * 1.2
		}
	}
	for _, ind := range tables.NewsletterIndicators {
		if strings.Contains(body, ind.Keyword) {
			score += ind.Weight
		}
	}

	wordCount := len(strings.Fields(body))
	switch {
	case wordCount >= 300 && wordCount <= 2000:
		score += 0.4
	case wordCount > 2000:
		score += 0.6
	}

	// Subscription-confirmation phrasing reads transactional but is a
	// positive newsletter signal.
	for _, pattern := range tables.FalsePositives {
		if pattern.MatchString(body) {
			score += 0.5
		}
	}

	for _, pattern := range tables.DatePatterns {
		if pattern.MatchString(body) {
			score += 0.2
			break
		}
	}

	return clamp(score, 0, 2)
}

// scoreTransactional is the penalty signal: keyword hits per category,
// scaled by the category factor, plus one-time-code and order-number
// bonuses. Capped at 3.0.
func scoreTransactional(subject, body string, tables PatternTables) float64 {
	score := 0.0

	for _, category := range transactionalCategories {
		subtotal := 0.0
		for _, pattern := range tables.Transactional[category] {
			if pattern.MatchString(subject) {
				subtotal += 1.5
			}
			if pattern.MatchString(body) {
				subtotal += 1.0
			}
		}
		if subtotal > 0 {
			score += subtotal * category.Scale()
		}
	}

	if oneTimeCodeRe.MatchString(subject) || oneTimeCodeRe.MatchString(body) {
		score += 1.0
	}

	if orderNumberRe.MatchString(body) {
		score += 1.2
	}

	return clamp(score, 0, 3)
}

// domainReputation resolves a domain's newsletter prior: exact match,
// then the longest stored suffix, then a TLD default band.
func domainReputation(domain string, tables PatternTables) float64 {
	if domain == "" {
		return 0.0
	}

	if score, ok := tables.DomainReputation[domain]; ok {
		return score
	}

	parts := strings.Split(domain, ".")
	for i := 1; i < len(parts); i++ {
		suffix := strings.Join(parts[i:], ".")
		if score, ok := tables.DomainReputation[suffix]; ok {
			return score
		}
	}

	switch {
	case hasAnySuffix(domain, "edu", "gov", "org"):
		return 0.4
	case hasAnySuffix(domain, "com", "io", "co"):
		return 0.3
	case hasAnySuffix(domain, "info", "xyz", "top"):
		return 0.1
	}
	return 0.2
}

var (
	ctaPatterns = compileAll(
		`>\s*read\s+(?:more|now|full article)\s*<`,
		`>\s*learn\s+more\s*<`,
		`>\s*subscribe\s*<`,
		`>\s*sign\s+up\s*<`,
		`>\s*watch\s+now\s*<`,
		`>\s*listen\s+now\s*<`,
	)
	socialSharePatterns = compileAll(
		`facebook\.com/share`,
		`twitter\.com/intent`,
		`linkedin\.com/share`,
		`pinterest\.com/pin`,
		`whatsapp\.com`,
	)
	forwardToFriendRe = regexp.MustCompile(`(?i)forward\s+to\s+a\s+friend|share\s+this\s+newsletter`)
	viewInBrowserRe   = regexp.MustCompile(`(?i)view\s+in\s+browser|view\s+online|newsletter\s+archive`)
)

// scoreEngagement detects reader-engagement affordances typical of
// newsletters. Capped at 1.0.
func scoreEngagement(body, htmlBody string) float64 {
	score := 0.0

	for _, pattern := range ctaPatterns {
		if pattern.MatchString(htmlBody) {
			score += 0.3
			break
		}
	}

	for _, pattern := range socialSharePatterns {
		if pattern.MatchString(htmlBody) {
			score += 0.2
			break
		}
	}

	if forwardToFriendRe.MatchString(body) {
		score += 0.4
	}

	if viewInBrowserRe.MatchString(body) {
		score += 0.5
	}

	return clamp(score, 0, 1)
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// normalizeText unescapes HTML entities, collapses whitespace runs and
// case-folds. Applied once per field and reused by all signal
// functions.
func normalizeText(text string) string {
	if text == "" {
		return ""
	}
	text = html.UnescapeString(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.ToLower(strings.TrimSpace(text))
}

// parseSender splits a raw "display name <address>" sender string into
// its address and display name. Malformed input degrades to best
// effort rather than failing.
func parseSender(sender string) (address, displayName string) {
	if sender == "" {
		return "", ""
	}

	if parsed, err := mail.ParseAddress(sender); err == nil {
		return parsed.Address, parsed.Name
	}

	if m := displayNameRe.FindStringSubmatch(sender); m != nil {
		displayName = strings.TrimSpace(m[1])
	}
	if start := strings.IndexByte(sender, '<'); start >= 0 {
		if end := strings.IndexByte(sender[start:], '>'); end > 0 {
			address = sender[start+1 : start+end]
			return address, displayName
		}
	}
	if strings.Contains(sender, "@") {
		address = strings.TrimSpace(sender)
	}
	return address, displayName
}

func senderDomain(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return normalizeDomain(address[at+1:])
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
