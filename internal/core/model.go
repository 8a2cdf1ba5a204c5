package core

import (
	"net/textproto"
	"time"
)

// ContentType describes the dominant content type of a message.
type ContentType string

const (
	ContentTypeText      ContentType = "text"
	ContentTypeHTML      ContentType = "html"
	ContentTypeMultipart ContentType = "multipart"
)

// RawMessage is an already-fetched mail message as handed over by a
// mailbox source. Data is the full RFC 2822 byte stream.
type RawMessage struct {
	ID   string
	Data []byte
}

// NormalizedEmail is the analyzable representation of a message produced
// by the extractor. It is created once per message and never mutated.
type NormalizedEmail struct {
	ID             string
	MessageID      string
	Subject        string
	Sender         string
	Date           string
	Body           string
	HTMLBody       string
	Headers        map[string]string
	HasUnsubscribe bool
	ContentType    ContentType
	Size           int
}

// Header returns a header value with case-insensitive lookup.
func (e *NormalizedEmail) Header(name string) string {
	if e.Headers == nil {
		return ""
	}
	return e.Headers[textproto.CanonicalMIMEHeaderKey(name)]
}

// SignalScores holds the seven bounded signal dimensions computed for a
// message. Each value stays within its documented closed interval.
type SignalScores struct {
	Unsubscribe      float64 `json:"unsubscribe_score"`
	Sender           float64 `json:"sender_score"`
	Content          float64 `json:"content_score"`
	Structural       float64 `json:"structural_score"`
	Transactional    float64 `json:"transactional_score"`
	DomainReputation float64 `json:"domain_reputation"`
	Engagement       float64 `json:"engagement_signals"`
}

// ClassificationDecision is the immutable outcome of classifying one
// message.
type ClassificationDecision struct {
	EmailID        string       `json:"email_id"`
	Subject        string       `json:"subject"`
	Sender         string       `json:"sender"`
	TotalScore     float64      `json:"total_score"`
	Threshold      float64      `json:"threshold"`
	ShouldKeep     bool         `json:"should_keep"`
	PrimaryPattern string       `json:"primary_pattern"`
	Analysis       SignalScores `json:"analysis"`
}

// AggregateStats accumulates per-run counters across a batch of
// decisions.
type AggregateStats struct {
	TotalProcessed        int            `json:"total_processed"`
	NewslettersDetected   int            `json:"newsletters_detected"`
	TransactionalDetected int            `json:"transactional_detected"`
	PatternCounts         map[string]int `json:"detection_pattern_counts"`
}

// DecisionLog is the exported audit document for a batch run.
type DecisionLog struct {
	GeneratedAt         time.Time                `json:"generated_at"`
	TotalProcessed      int                      `json:"total_processed"`
	NewslettersDetected int                      `json:"newsletters_detected"`
	Decisions           []ClassificationDecision `json:"decisions"`
	Stats               AggregateStats           `json:"stats"`
}

// BatchResult is what a batch run hands to downstream consumers: the
// kept messages in input order plus the aggregate statistics.
type BatchResult struct {
	RunID     string
	Kept      []*NormalizedEmail
	Decisions []ClassificationDecision
	Stats     AggregateStats
}
