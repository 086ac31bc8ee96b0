package prompt

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/navseva/fundfaq/internal/domain/corpus"
)

func scored(id, text string, score float64) corpus.Scored {
	return corpus.Scored{
		Chunk: &corpus.IndexedChunk{
			Chunk: corpus.Chunk{
				ID: id, Text: text, FundName: "HDFC Flexi Cap Fund",
				Type: corpus.TypeFeesCharges, SourceURL: "https://www.hdfcfund.com/" + id,
				RetrievedAt: time.Now(),
			},
		},
		Score: score,
	}
}

func TestBuild_IncludesContextAndQuestion(t *testing.T) {
	b := New(6000)
	question := "What is the expense ratio of HDFC Flexi Cap Fund?"

	p := b.Build(question, []corpus.Scored{
		scored("c1", "Direct Plan expense ratio is 0.75%.", 0.9),
		scored("c2", "Regular Plan expense ratio is 1.55%.", 0.8),
	})

	if !strings.Contains(p, question) {
		t.Error("prompt must carry the question verbatim")
	}
	if !strings.Contains(p, "Direct Plan expense ratio is 0.75%.") {
		t.Error("prompt must carry retrieved context")
	}
	if !strings.Contains(p, "DO NOT provide investment advice") {
		t.Error("prompt must carry the constraint preamble")
	}
	if strings.Index(p, "0.75%") > strings.Index(p, question) {
		t.Error("context must precede the question")
	}
}

func TestBuild_DropsLowestSimilarityFirst(t *testing.T) {
	top := "TOP " + strings.Repeat("exit load details ", 40)
	low := "LOW " + strings.Repeat("unrelated filler text ", 40)
	question := "What is the exit load?"

	// Budget fits the preamble, the question and roughly one long chunk.
	budget := utf8.RuneCountInString(assemble(question, []corpus.Scored{scored("c1", top, 0.9)}))
	b := New(budget)

	p := b.Build(question, []corpus.Scored{
		scored("c1", top, 0.9),
		scored("c2", low, 0.5),
	})

	if !strings.Contains(p, top) {
		t.Error("highest-similarity chunk must survive")
	}
	if strings.Contains(p, low) {
		t.Error("lowest-similarity chunk must be dropped first")
	}
	if utf8.RuneCountInString(p) > budget {
		t.Errorf("prompt is %d runes, budget %d", utf8.RuneCountInString(p), budget)
	}
}

func TestBuild_NeverDropsQuestion(t *testing.T) {
	question := "What is the lock-in period of HDFC ELSS Tax Saver Fund?"
	b := New(10) // far below any realistic assembly

	p := b.Build(question, []corpus.Scored{scored("c1", "Lock-in is 3 years.", 0.9)})

	if !strings.Contains(p, question) {
		t.Error("question must be kept whole even over budget")
	}
	if !strings.Contains(p, "CRITICAL CONSTRAINTS") {
		t.Error("preamble must be kept whole even over budget")
	}
}

func TestBuild_EmptyRetrieval(t *testing.T) {
	b := New(6000)
	p := b.Build("What is a mutual fund?", nil)

	if !strings.Contains(p, noContextLine) {
		t.Error("empty retrieval must state that no source information exists")
	}
}

func TestBuildGreeting(t *testing.T) {
	b := New(6000)
	p := b.BuildGreeting("Good morning!")

	if !strings.Contains(p, "Good morning!") {
		t.Error("greeting prompt must carry the user text")
	}
	if strings.Contains(p, "CRITICAL CONSTRAINTS") {
		t.Error("greeting prompt must not use the factual preamble")
	}
}
