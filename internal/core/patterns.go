package core

import (
	"regexp"
)

// SignalDimension identifies one heuristic scoring dimension.
type SignalDimension int

const (
	DimUnsubscribe SignalDimension = iota
	DimSender
	DimContent
	DimStructural
	DimTransactional
	DimDomainReputation
	DimEngagement
)

// signalDimensions lists every dimension in a fixed order so weight
// application and primary-pattern selection stay deterministic.
var signalDimensions = []SignalDimension{
	DimUnsubscribe,
	DimSender,
	DimContent,
	DimStructural,
	DimTransactional,
	DimDomainReputation,
	DimEngagement,
}

// Label returns the diagnostic name of the dimension as it appears in
// exported decision logs.
func (d SignalDimension) Label() string {
	switch d {
	case DimUnsubscribe:
		return "unsubscribe_score"
	case DimSender:
		return "sender_score"
	case DimContent:
		return "content_score"
	case DimStructural:
		return "structural_score"
	case DimTransactional:
		return "transactional_score"
	case DimDomainReputation:
		return "domain_reputation"
	case DimEngagement:
		return "engagement_signals"
	}
	return "unknown"
}

// TransactionalCategory is a closed enumeration of transactional
// keyword groups, each with its own scale factor.
type TransactionalCategory int

const (
	CategorySecurity TransactionalCategory = iota
	CategoryTransaction
	CategorySystem
)

var transactionalCategories = []TransactionalCategory{
	CategorySecurity,
	CategoryTransaction,
	CategorySystem,
}

// Scale returns the category-specific multiplier applied to the raw
// keyword subtotal.
func (c TransactionalCategory) Scale() float64 {
	switch c {
	case CategorySecurity:
		return 0.7
	case CategoryTransaction:
		return 1.2
	case CategorySystem:
		return 0.8
	}
	return 1.0
}

// Signal weights for the total score. Empirically hand-tuned; kept
// exactly as configured, do not re-derive.
const (
	WeightUnsubscribe      = 2.5
	WeightSender           = 1.5
	WeightContent          = 1.8
	WeightStructural       = 1.2
	WeightTransactional    = -2.0
	WeightDomainReputation = 1.0
	WeightEngagement       = 0.8
)

// Adaptive threshold ladder constants.
const (
	BaseThreshold              = 1.0
	StrongUnsubscribeThreshold = 0.5
	StrongTransactionalRaise   = 1.7
	StrongPositiveThreshold    = 0.7
)

// WeightedIndicator pairs a lexical indicator with its weight.
type WeightedIndicator struct {
	Keyword string
	Weight  float64
}

// PatternTables is the immutable configuration snapshot consumed by
// Classify. Construct with DefaultPatternTables and derive variants via
// WithDomainReputation; never mutate a table while a batch is in
// flight.
type PatternTables struct {
	Transactional        map[TransactionalCategory][]*regexp.Regexp
	NewsletterIndicators []WeightedIndicator
	NewsletterPlatforms  []string
	SenderPatterns       []*regexp.Regexp
	NewsletterNameWords  []string
	UnsubscribePatterns  []*regexp.Regexp
	UnsubscribeHeaders   []string
	FalsePositives       []*regexp.Regexp
	DatePatterns         []*regexp.Regexp
	DomainReputation     map[string]float64
}

// WithDomainReputation returns a copy of the tables with the domain
// reputation map replaced by the given snapshot. Scores are clamped to
// [0, 1]. The receiver is not modified.
func (t PatternTables) WithDomainReputation(scores map[string]float64) PatternTables {
	merged := make(map[string]float64, len(scores))
	for domain, score := range scores {
		merged[normalizeDomain(domain)] = clamp(score, 0, 1)
	}
	t.DomainReputation = merged
	return t
}

// DefaultPatternTables returns the built-in configuration tables.
func DefaultPatternTables() PatternTables {
	return PatternTables{
		Transactional: map[TransactionalCategory][]*regexp.Regexp{
			CategorySecurity: compileAll(
				`verification\s+code`,
				`confirm\s+your\s+email`,
				`reset\s+your\s+password`,
				`account\s+verification`,
				`please\s+verify`,
				`login\s+attempt`,
				`security\s+alert`,
				`suspicious\s+activity`,
				`account\s+locked`,
				`password\s+expired`,
				`verify\s+your\s+identity`,
				`two[-\s]?factor`,
			),
			CategoryTransaction: compileAll(
				`invoice\s*#`,
				`receipt\s*#`,
				`payment\s+confirmation\b`,
				`order\s+confirmation\b`,
				`transaction\s+completed`,
				`payment\s+failed\b`,
				`card\s+declined`,
				`your\s+order\b`,
				`order\s+status\b`,
				`purchase\b`,
				`billing\b`,
				`shipping\b`,
				`delivery\s+notification\b`,
			),
			CategorySystem: compileAll(
				`account\s+created`,
				`welcome\s+to`,
				`password\s+changed`,
				`email\s+address\s+updated`,
				`profile\s+updated`,
				`subscription\s+changed`,
			),
		},
		NewsletterIndicators: []WeightedIndicator{
			{"weekly", 0.4},
			{"monthly", 0.4},
			{"daily", 0.3},
			{"newsletter", 0.5},
			{"update", 0.3},
			{"digest", 0.5},
			{"curated", 0.4},
			{"roundup", 0.4},
			{"recap", 0.4},
			{"trending", 0.3},
			{"featured", 0.3},
			{"highlight", 0.3},
			{"in this edition", 0.5},
			{"table of contents", 0.6},
			{"issue #", 0.5},
			{"edition #", 0.5},
			{"this week in", 0.4},
			{"top stories", 0.4},
		},
		NewsletterPlatforms: []string{
			"substack.com",
			"beehiiv.com",
			"convertkit.com",
			"mailchimp.com",
			"buttondown.email",
			"revue.co",
			"tinyletter.com",
			"ghost.io",
			"newsletter.com",
			"sendinblue.com",
			"constantcontact.com",
			"campaignmonitor.com",
			"activecampaign.com",
			"getbee.io",
			"mailerlite.com",
		},
		SenderPatterns: compileAll(
			`^(newsletter|digest|updates?|news|hello|team|editor|bot)@`,
			`@.*(?:daily|weekly|monthly|newsletter|digest|bulletin|update|roundup)\.`,
			`^(?:[\w\s]+)\s*<[\w._%+-]+@(?:[\w-]+\.)+(?:com|org|io|co|net)>$`,
			`\b(?:team|editor|founder|ceo|community)\b.*<.*>`,
		),
		NewsletterNameWords: []string{
			"newsletter", "digest", "update", "bulletin", "brief", "report",
		},
		UnsubscribePatterns: compileAll(
			`\b(unsubscribe|opt[-\s]?out|remove\s+me|stop\s+emails|manage\s+preferences|email\s+preferences|subscription\s+preferences)\b`,
			`<a[^>]+?href=["'][^"']*?(?:unsubscribe|opt[-_]?out)[^"']*?["'][^>]*?>`,
			`class=["'][^"']*?(?:unsubscribe|opt[-_]?out)[^"']*?["']`,
			`id=["'][^"']*?(?:unsubscribe|opt[-_]?out)[^"']*?["']`,
		),
		UnsubscribeHeaders: []string{
			"List-Unsubscribe",
			"List-Unsubscribe-Post",
			"List-Manage",
		},
		FalsePositives: compileAll(
			`\b(thanks|thank you)\b\s*for\s+subscribing`,
			`\bconfirm\b.*\bsubscription\b`,
			`\bwelcome\b.*\bnewsletter\b`,
			`you'?re (?:in|all set|subscribed)`,
		),
		DatePatterns: compileAll(
			`\b(?:today|yesterday|tomorrow)\b`,
			`\b(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`,
			`\b\d{1,2}\s+(?:january|february|march|april|may|june|july|august|september|october|november|december)\b`,
		),
		DomainReputation: map[string]float64{
			// Major tech press
			"techcrunch.com":  0.9,
			"wired.com":       0.9,
			"theverge.com":    0.9,
			"arstechnica.com": 0.9,
			"axios.com":       0.9,
			"bloomberg.com":   0.9,
			"reuters.com":     0.9,
			"ft.com":          0.9,
			// Finance newsletters
			"morningbrew.com": 0.9,
			"finimize.com":    0.9,
			"thestreet.com":   0.8,
			// Industry newsletters
			"sifted.eu":        0.8,
			"mc.ben-evans.com": 0.9,
			"stratechery.com":  0.9,
			// Common ESPs
			"mailchimp.com":   0.7,
			"sendgrid.net":    0.6,
			"mandrillapp.com": 0.6,
			// Mostly transactional senders
			"paypal.com": 0.1,
			"amazon.com": 0.1,
			"ebay.com":   0.1,
			"apple.com":  0.2,
		},
	}
}

// compileAll compiles case-insensitive patterns.
func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
