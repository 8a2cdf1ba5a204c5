package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newsletterEmail() *NormalizedEmail {
	return &NormalizedEmail{
		ID:      "msg-1",
		Subject: "Weekly Newsletter #42: Top Stories",
		Sender:  "editor@morningbrew.com",
		Body:    "Here is what happened this week. Unsubscribe at any time using the link below.",
		Headers: map[string]string{
			"List-Unsubscribe": "<mailto:x@y.com>",
		},
		HasUnsubscribe: true,
		ContentType:    ContentTypeText,
	}
}

func transactionalEmail() *NormalizedEmail {
	return &NormalizedEmail{
		ID:          "msg-2",
		Subject:     "Your order confirmation #12345",
		Sender:      "no-reply@amazon.com",
		Body:        "Your package will arrive soon. Thank you for shopping with us.",
		Headers:     map[string]string{},
		ContentType: ContentTypeText,
	}
}

func TestSignalScoresWithinBounds(t *testing.T) {
	tables := DefaultPatternTables()

	inputs := []*NormalizedEmail{
		newsletterEmail(),
		transactionalEmail(),
		{},
		{
			ID:      "msg-overload",
			Subject: "newsletter digest weekly monthly daily roundup recap",
			Sender:  "Newsletter Digest <newsletter@substack.com>",
			Body: strings.Repeat("unsubscribe opt-out remove me manage preferences ", 200) +
				"verification code order confirmation invoice # receipt # 123456",
			HTMLBody: strings.Repeat("<table><tr><td><img src=x></td></tr></table>", 20),
			Headers: map[string]string{
				"List-Unsubscribe":      "<https://example.com/u>, <mailto:u@example.com>",
				"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
				"List-Manage":           "<https://example.com/manage>",
			},
		},
	}

	for _, email := range inputs {
		decision := Classify(email, tables)
		a := decision.Analysis
		assert.GreaterOrEqual(t, a.Unsubscribe, 0.0)
		assert.LessOrEqual(t, a.Unsubscribe, 2.0)
		assert.GreaterOrEqual(t, a.Sender, 0.0)
		assert.LessOrEqual(t, a.Sender, 2.0)
		assert.GreaterOrEqual(t, a.Content, 0.0)
		assert.LessOrEqual(t, a.Content, 2.0)
		assert.GreaterOrEqual(t, a.Structural, 0.0)
		assert.LessOrEqual(t, a.Structural, 2.0)
		assert.GreaterOrEqual(t, a.Transactional, 0.0)
		assert.LessOrEqual(t, a.Transactional, 3.0)
		assert.GreaterOrEqual(t, a.DomainReputation, 0.0)
		assert.LessOrEqual(t, a.DomainReputation, 1.0)
		assert.GreaterOrEqual(t, a.Engagement, 0.0)
		assert.LessOrEqual(t, a.Engagement, 1.0)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	tables := DefaultPatternTables()
	email := newsletterEmail()

	first := Classify(email, tables)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(email, tables))
	}
}

func TestClassifyNeverPanicsOnPartialInput(t *testing.T) {
	tables := DefaultPatternTables()

	assert.NotPanics(t, func() { Classify(nil, tables) })
	assert.NotPanics(t, func() { Classify(&NormalizedEmail{}, tables) })
	assert.NotPanics(t, func() {
		Classify(&NormalizedEmail{Sender: "not an address", HTMLBody: "<<<"}, tables)
	})

	decision := Classify(&NormalizedEmail{}, tables)
	assert.False(t, decision.ShouldKeep)
	assert.Equal(t, "no_unsubscribe", decision.PrimaryPattern)
}

func TestAdaptiveThresholdLadder(t *testing.T) {
	cases := []struct {
		name     string
		analysis SignalScores
		want     float64
	}{
		{"strong unsubscribe lowers", SignalScores{Unsubscribe: 1.5}, 0.5},
		{"strong transactional raises", SignalScores{Transactional: 2.0}, 1.7},
		{"strong positives lower", SignalScores{Sender: 1.0, Content: 1.0}, 0.7},
		{"default", SignalScores{}, 1.0},
		{"sender alone is not enough", SignalScores{Sender: 1.9}, 1.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, adaptiveThreshold(tc.analysis))
		})
	}
}

func TestThresholdRuleOrderUnsubscribeWins(t *testing.T) {
	// Would satisfy both rule 1 and rule 2; rule 1 must win.
	analysis := SignalScores{Unsubscribe: 1.8, Transactional: 3.0}
	assert.Equal(t, 0.5, adaptiveThreshold(analysis))

	tables := DefaultPatternTables()
	email := &NormalizedEmail{
		ID:      "msg-both",
		Subject: "Your order confirmation #12345",
		Sender:  "orders@shop.example.com",
		Body:    "Unsubscribe at any time. Payment confirmation attached.",
		Headers: map[string]string{
			"List-Unsubscribe": "<mailto:u@shop.example.com>",
			"List-Manage":      "<https://shop.example.com/manage>",
		},
	}
	decision := Classify(email, tables)
	require.GreaterOrEqual(t, decision.Analysis.Unsubscribe, 1.5)
	require.GreaterOrEqual(t, decision.Analysis.Transactional, 2.0)
	assert.Equal(t, 0.5, decision.Threshold)
}

func TestTransactionalSubjectOutweighsBody(t *testing.T) {
	tables := DefaultPatternTables()
	filler := "just a note about nothing in particular"

	inSubject := Classify(&NormalizedEmail{
		Subject: "payment confirmation",
		Sender:  "a@example.net",
		Body:    filler,
	}, tables)
	inBody := Classify(&NormalizedEmail{
		Subject: "a note",
		Sender:  "a@example.net",
		Body:    "payment confirmation " + filler,
	}, tables)

	// 1.5 vs 1.0 base contribution, both scaled by the transaction
	// category factor.
	assert.InDelta(t, 1.5*1.2, inSubject.Analysis.Transactional, 1e-9)
	assert.InDelta(t, 1.0*1.2, inBody.Analysis.Transactional, 1e-9)
	assert.Greater(t, inSubject.Analysis.Transactional, inBody.Analysis.Transactional)
}

func TestDomainReputationPrecedence(t *testing.T) {
	tables := DefaultPatternTables().WithDomainReputation(map[string]float64{
		"mail.example.com": 0.9,
		"example.com":      0.6,
	})

	// Exact match beats the shorter suffix.
	assert.Equal(t, 0.9, domainReputation("mail.example.com", tables))
	// Longest stored suffix wins.
	assert.Equal(t, 0.9, domainReputation("news.mail.example.com", tables))
	assert.Equal(t, 0.6, domainReputation("foo.example.com", tables))
	// TLD default bands.
	assert.Equal(t, 0.4, domainReputation("cs.stanford.edu", tables))
	assert.Equal(t, 0.3, domainReputation("unknown.io", tables))
	assert.Equal(t, 0.1, domainReputation("spam.xyz", tables))
	assert.Equal(t, 0.2, domainReputation("weird.tld", tables))
	// Missing domain.
	assert.Equal(t, 0.0, domainReputation("", tables))
}

func TestUnsubscribeMailtoContribution(t *testing.T) {
	tables := DefaultPatternTables()

	mailto := Classify(&NormalizedEmail{
		Sender:  "a@example.net",
		Headers: map[string]string{"List-Unsubscribe": "<mailto:u@example.net>"},
	}, tables)
	plain := Classify(&NormalizedEmail{
		Sender:  "a@example.net",
		Headers: map[string]string{"List-Unsubscribe": "<https://example.net/u>"},
	}, tables)

	// Header presence (0.8) plus the mailto (1.0) or URL (0.8) value.
	assert.InDelta(t, 1.8, mailto.Analysis.Unsubscribe, 1e-9)
	assert.InDelta(t, 1.6, plain.Analysis.Unsubscribe, 1e-9)

	// Strong unsubscribe evidence selects the lowered threshold.
	assert.Equal(t, 0.5, mailto.Threshold)
	assert.Equal(t, 0.5, plain.Threshold)
}

func TestNewsletterScenarioKept(t *testing.T) {
	decision := Classify(newsletterEmail(), DefaultPatternTables())

	assert.True(t, decision.ShouldKeep)
	assert.Equal(t, 0.5, decision.Threshold)
	assert.True(t, strings.HasPrefix(decision.PrimaryPattern, "newsletter_"))
}

func TestOrderConfirmationScenarioFiltered(t *testing.T) {
	decision := Classify(transactionalEmail(), DefaultPatternTables())

	assert.False(t, decision.ShouldKeep)
	assert.Contains(t, []string{"transactional_high", "no_unsubscribe"}, decision.PrimaryPattern)
}

func TestStructuralScoreFromNewsletterLayout(t *testing.T) {
	htmlBody := `
<html><body>
  <h1>The Weekly Digest</h1>
  <table><tr><td>one</td></tr></table>
  <table><tr><td>two</td></tr></table>
  <table><tr><td>three</td></tr></table>
  <div class="story"><p>First story</p><a href="#">Read more</a></div>
  <div class="story"><p>Second story</p><a href="#">Read more</a></div>
  <img src="a.png"><img src="b.png"><img src="c.png">
  <div class="footer">
    <a href="https://twitter.com/acme">Twitter</a>
    <a href="https://facebook.com/acme">Facebook</a>
  </div>
</body></html>`

	score := scoreStructure(htmlBody)
	assert.Greater(t, score, 1.0)
	assert.LessOrEqual(t, score, 2.0)

	assert.Equal(t, 0.0, scoreStructure(""))
}

func TestEngagementSignals(t *testing.T) {
	htmlBody := `<a href="https://twitter.com/intent/tweet?x=1">share</a><a>read more</a>`
	body := "forward to a friend or view in browser"

	score := scoreEngagement(body, htmlBody)
	// CTA (0.3) + social share (0.2) + forward (0.4) + view in
	// browser (0.5), clamped to the dimension cap.
	assert.Equal(t, 1.0, score)

	assert.Equal(t, 0.0, scoreEngagement("plain note", ""))
}

func TestSenderSignals(t *testing.T) {
	tables := DefaultPatternTables()

	platform := Classify(&NormalizedEmail{
		Sender: "Author Newsletter <hello@writer.substack.com>",
	}, tables)
	assert.Greater(t, platform.Analysis.Sender, 1.0)

	personal := Classify(&NormalizedEmail{
		Sender: "Jane Doe <jane.doe@gmail.com>",
		Body:   "see you at lunch tomorrow",
	}, tables)
	noReply := Classify(&NormalizedEmail{
		Sender: "no-reply@service.example.com",
		Body:   "see you at lunch tomorrow",
	}, tables)
	assert.LessOrEqual(t, personal.Analysis.Sender, noReply.Analysis.Sender+1.0)
	assert.GreaterOrEqual(t, personal.Analysis.Sender, 0.0)
	assert.GreaterOrEqual(t, noReply.Analysis.Sender, 0.0)
}

func TestContentWordCountBands(t *testing.T) {
	tables := DefaultPatternTables()
	word := "lorem "

	short := Classify(&NormalizedEmail{Sender: "a@example.net", Body: strings.Repeat(word, 50)}, tables)
	medium := Classify(&NormalizedEmail{Sender: "a@example.net", Body: strings.Repeat(word, 500)}, tables)
	long := Classify(&NormalizedEmail{Sender: "a@example.net", Body: strings.Repeat(word, 2500)}, tables)

	assert.InDelta(t, 0.0, short.Analysis.Content, 1e-9)
	assert.InDelta(t, 0.4, medium.Analysis.Content, 1e-9)
	assert.InDelta(t, 0.6, long.Analysis.Content, 1e-9)
}

func TestParseSender(t *testing.T) {
	address, name := parseSender(`"Morning Brew" <crew@morningbrew.com>`)
	assert.Equal(t, "crew@morningbrew.com", address)
	assert.Equal(t, "Morning Brew", name)

	address, name = parseSender("crew@morningbrew.com")
	assert.Equal(t, "crew@morningbrew.com", address)
	assert.Equal(t, "", name)

	address, _ = parseSender("Broken <unclosed@example.com")
	assert.NotEqual(t, "nonsense", address)

	assert.Equal(t, "morningbrew.com", senderDomain("crew@morningbrew.com"))
	assert.Equal(t, "", senderDomain("not-an-address"))
}

func TestWithDomainReputationClampsAndCopies(t *testing.T) {
	base := DefaultPatternTables()
	derived := base.WithDomainReputation(map[string]float64{
		"Example.COM": 1.7,
		"low.net":     -0.3,
	})

	assert.Equal(t, 1.0, derived.DomainReputation["example.com"])
	assert.Equal(t, 0.0, derived.DomainReputation["low.net"])

	// The base snapshot is untouched.
	_, ok := base.DomainReputation["example.com"]
	assert.False(t, ok)
	assert.Equal(t, 0.9, base.DomainReputation["morningbrew.com"])
}
