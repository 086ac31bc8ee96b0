package answer

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/navseva/fundfaq/internal/domain/corpus"
	"github.com/navseva/fundfaq/internal/domain/query"
)

const eduLink = "https://www.amfiindia.com/investor-corner"

func newService(t *testing.T) *Service {
	t.Helper()
	return New(eduLink, 3, zap.NewNop())
}

func scoredChunk(url string, retrievedAt time.Time, score float64) corpus.Scored {
	return corpus.Scored{
		Chunk: &corpus.IndexedChunk{
			Chunk: corpus.Chunk{
				ID: "c", Text: "t", FundName: "HDFC Flexi Cap Fund",
				Type: corpus.TypeFeesCharges, SourceURL: url, RetrievedAt: retrievedAt,
			},
		},
		Score: score,
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"plain", "First. Second. Third.", 3},
		{"decimal survives", "The expense ratio is 0.75% for Direct Plan.", 1},
		{"rupee abbreviation", "Minimum SIP is Rs. 500 per month.", 1},
		{"ie abbreviation", "The cheaper option, i.e. the Direct Plan, has no distributor fee.", 1},
		{"mixed terminators", "Really? Yes! It is.", 3},
		{"danda", "यह एक वाक्य है। यह दूसरा है।", 2},
		{"trailing fragment", "Complete sentence. trailing words", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			if len(got) != tt.want {
				t.Errorf("splitSentences(%q) = %d sentences %v, want %d", tt.text, len(got), got, tt.want)
			}
		})
	}
}

func TestFormat_LimitsToThreeSentences(t *testing.T) {
	svc := newService(t)
	draft := "One. Two. Three. Four. Five."

	got := svc.Format(draft, []corpus.Scored{scoredChunk("https://x", time.Now(), 0.9)}, false)
	if n := len(splitSentences(got.Answer)); n > 3 {
		t.Errorf("answer has %d sentences, want at most 3: %q", n, got.Answer)
	}
	if !strings.Contains(got.Answer, "Three.") || strings.Contains(got.Answer, "Four.") {
		t.Errorf("expected first three sentences kept, got %q", got.Answer)
	}
}

func TestFormat_StripsPerformanceSentences(t *testing.T) {
	svc := newService(t)
	draft := "The expense ratio is 0.75%. Returns of 12% were delivered last year. The exit load is 1%."

	got := svc.Format(draft, []corpus.Scored{scoredChunk("https://x", time.Now(), 0.9)}, false)
	if strings.Contains(got.Answer, "12%") {
		t.Errorf("performance claim survived: %q", got.Answer)
	}
	if !strings.Contains(got.Answer, "0.75%") || !strings.Contains(got.Answer, "exit load") {
		t.Errorf("factual content lost: %q", got.Answer)
	}
}

func TestFormat_AllPerformanceRedirectsToFactsheet(t *testing.T) {
	svc := newService(t)
	draft := "This fund outperforms its peers. It is better than the category average."

	got := svc.Format(draft, []corpus.Scored{scoredChunk("https://x", time.Now(), 0.9)}, false)
	if got.Answer != factsheetRedirectText {
		t.Errorf("expected factsheet redirect, got %q", got.Answer)
	}
}

func TestFormat_NoInformationDraft(t *testing.T) {
	svc := newService(t)
	draft := "I apologize, but the context does not contain details about the fund manager."

	got := svc.Format(draft, nil, false)
	if got.Answer != noInformationText {
		t.Errorf("expected no-information message, got %q", got.Answer)
	}
	if got.CitationLink != eduLink {
		t.Errorf("citation = %q, want educational fallback", got.CitationLink)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp must still be set")
	}
}

func TestFormat_CitationFromTopChunk(t *testing.T) {
	svc := newService(t)
	older := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	got := svc.Format("The exit load is 1%.", []corpus.Scored{
		scoredChunk("https://www.hdfcfund.com/top", older, 0.9),
		scoredChunk("https://www.hdfcfund.com/second", newer, 0.5),
	}, false)

	if got.CitationLink != "https://www.hdfcfund.com/top" {
		t.Errorf("citation = %q, want the highest-similarity chunk's URL", got.CitationLink)
	}
	if !got.Timestamp.Equal(newer) {
		t.Errorf("timestamp = %v, want the most recent retrieval date %v", got.Timestamp, newer)
	}
	if len(got.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(got.Sources))
	}
	if got.Sources[0].Similarity != 0.9 || got.Sources[0].FundName != "HDFC Flexi Cap Fund" {
		t.Errorf("unexpected top source: %+v", got.Sources[0])
	}
}

func TestFormat_EmptyRetrievalFallsBackToEducationalLink(t *testing.T) {
	svc := newService(t)

	got := svc.Format("A mutual fund pools investor money.", nil, false)
	if got.CitationLink != eduLink {
		t.Errorf("citation = %q, want educational fallback", got.CitationLink)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp must be set without chunks")
	}
}

func TestFormat_LowConfidenceCaveat(t *testing.T) {
	svc := newService(t)
	draft := "The expense ratio is 0.75%. The exit load is 1%. Lock-in does not apply."

	got := svc.Format(draft, []corpus.Scored{scoredChunk("https://x", time.Now(), 0.2)}, true)
	if !strings.Contains(got.Answer, "verify this with the official factsheet") {
		t.Errorf("expected caveat, got %q", got.Answer)
	}
	if n := len(splitSentences(got.Answer)); n > 3 {
		t.Errorf("caveat must fit the sentence limit, got %d sentences", n)
	}
}

func TestRejection_Messages(t *testing.T) {
	svc := newService(t)

	tests := []struct {
		category query.Category
		wantText string
		wantWhy  string
	}{
		{query.CategoryPII, "personal information", "personal information detected"},
		{query.CategoryOpinion, "investment advice", "investment advice or opinion requested"},
		{query.CategoryOutOfScope, "expense ratios", "question outside factual mutual fund topics"},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			got := svc.Rejection(tt.category)
			if !got.Rejected {
				t.Fatal("rejection must set Rejected")
			}
			if got.RejectionReason != tt.wantWhy {
				t.Errorf("reason = %q, want %q", got.RejectionReason, tt.wantWhy)
			}
			if !strings.Contains(got.Answer, tt.wantText) {
				t.Errorf("answer %q does not mention %q", got.Answer, tt.wantText)
			}
			if got.CitationLink == "" || got.Timestamp.IsZero() {
				t.Error("rejections still carry citation and timestamp")
			}
			if err := got.Validate(); err != nil {
				t.Errorf("rejection violates output contract: %v", err)
			}
		})
	}
}

func TestGreeting(t *testing.T) {
	svc := newService(t)

	got := svc.Greeting("Hi there! Ask me about mutual funds anytime.")
	if got.Rejected {
		t.Error("greeting must not be rejected")
	}
	if got.CitationLink != eduLink {
		t.Errorf("citation = %q, want educational link", got.CitationLink)
	}
	if got.Confidence != 0.5 {
		t.Errorf("confidence = %f, want 0.5", got.Confidence)
	}

	empty := svc.Greeting("   ")
	if empty.Answer != greetingFallbackText {
		t.Errorf("empty draft must fall back to the fixed greeting, got %q", empty.Answer)
	}
}
