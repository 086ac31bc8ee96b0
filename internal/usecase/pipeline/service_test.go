package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/navseva/fundfaq/internal/domain"
	domanswer "github.com/navseva/fundfaq/internal/domain/answer"
	"github.com/navseva/fundfaq/internal/domain/corpus"
	"github.com/navseva/fundfaq/internal/domain/query"
	"github.com/navseva/fundfaq/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

type stubClassifier struct {
	result query.Classified
}

func (s *stubClassifier) Classify(rawText string, _ []string) query.Classified {
	out := s.result
	out.RawText = rawText
	return out
}

type stubRetriever struct {
	scored  []corpus.Scored
	errs    []error // per call; nil past the end
	calls   int
	topK    int
	hint    string
	rawText string
}

func (s *stubRetriever) Retrieve(_ context.Context, queryText, fundHint string, topK int) ([]corpus.Scored, error) {
	s.calls++
	s.topK = topK
	s.hint = fundHint
	s.rawText = queryText
	if s.calls <= len(s.errs) && s.errs[s.calls-1] != nil {
		return nil, s.errs[s.calls-1]
	}
	return s.scored, nil
}

type stubBuilder struct{}

func (stubBuilder) Build(question string, _ []corpus.Scored) string {
	return "FACTUAL:" + question
}

func (stubBuilder) BuildGreeting(question string) string {
	return "GREETING:" + question
}

type stubGenerator struct {
	text   string
	errs   []error
	calls  int
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (domain.GenerationResult, error) {
	s.calls++
	s.prompt = prompt
	if s.calls <= len(s.errs) && s.errs[s.calls-1] != nil {
		return domain.GenerationResult{}, s.errs[s.calls-1]
	}
	return domain.GenerationResult{Text: s.text}, nil
}

type stubFormatter struct {
	lastLow     bool
	lastDraft   string
	rejectedFor query.Category
}

func valid(answer string) domanswer.FinalAnswer {
	return domanswer.FinalAnswer{
		Answer:       answer,
		CitationLink: "https://www.amfiindia.com/investor-corner",
		Timestamp:    time.Now(),
	}
}

func (s *stubFormatter) Rejection(category query.Category) domanswer.FinalAnswer {
	s.rejectedFor = category
	out := valid("rejected")
	out.Rejected = true
	out.RejectionReason = string(category)
	return out
}

func (s *stubFormatter) Greeting(draft string) domanswer.FinalAnswer {
	s.lastDraft = draft
	if draft == "" {
		return valid("fallback greeting")
	}
	return valid(draft)
}

func (s *stubFormatter) Format(draft string, _ []corpus.Scored, lowConfidence bool) domanswer.FinalAnswer {
	s.lastDraft = draft
	s.lastLow = lowConfidence
	return valid(draft)
}

func (s *stubFormatter) Unavailable() domanswer.FinalAnswer {
	return valid("try again later")
}

type stubScorer struct {
	threshold float64
}

func (s *stubScorer) Score(retrieved []corpus.Scored) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	return retrieved[0].Score
}

func (s *stubScorer) Low(score float64) bool { return score < s.threshold }

type stubIndex struct {
	snap *corpus.Snapshot
}

func (s *stubIndex) Snapshot() (*corpus.Snapshot, error) {
	if s.snap == nil {
		return nil, domain.ErrCorpusNotReady
	}
	return s.snap, nil
}

func testConfig() Config {
	return Config{
		DefaultTopK:     3,
		MaxTopK:         10,
		MaxRetries:      2,
		RetryBackoff:    time.Millisecond,
		RetrieveTimeout: time.Second,
		GenerateTimeout: time.Second,
	}
}

type fixture struct {
	svc       *Service
	retriever *stubRetriever
	generator *stubGenerator
	formatter *stubFormatter
}

func newFixture(category query.Category, fundHint string, scored []corpus.Scored) *fixture {
	f := &fixture{
		retriever: &stubRetriever{scored: scored},
		generator: &stubGenerator{text: "generated answer"},
		formatter: &stubFormatter{},
	}
	f.svc = New(
		testConfig(),
		&stubClassifier{result: query.Classified{Category: category, FundHint: fundHint}},
		f.retriever,
		stubBuilder{},
		f.generator,
		f.formatter,
		&stubScorer{threshold: 0.45},
		&stubIndex{},
		zap.NewNop(),
	)
	return f
}

func TestAsk_FactualHappyPath(t *testing.T) {
	f := newFixture(query.CategoryFactual, "HDFC Flexi Cap Fund", []corpus.Scored{{Score: 0.9}})

	ans, err := f.svc.Ask(context.Background(), "What is the expense ratio?", "", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Answer != "generated answer" {
		t.Errorf("answer = %q", ans.Answer)
	}
	if ans.Confidence != 0.9 {
		t.Errorf("confidence = %f, want 0.9", ans.Confidence)
	}
	if f.retriever.topK != 5 || f.retriever.hint != "HDFC Flexi Cap Fund" {
		t.Errorf("retriever got topK=%d hint=%q", f.retriever.topK, f.retriever.hint)
	}
	if !strings.HasPrefix(f.generator.prompt, "FACTUAL:") {
		t.Errorf("generator prompt = %q", f.generator.prompt)
	}
	if f.formatter.lastLow {
		t.Error("0.9 must not be flagged low confidence")
	}
}

func TestAsk_RejectionShortCircuits(t *testing.T) {
	f := newFixture(query.CategoryPII, "", nil)

	ans, err := f.svc.Ask(context.Background(), "My PAN is ABCDE1234F", "", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ans.Rejected {
		t.Error("PII must be rejected")
	}
	if ans.Confidence != 0 {
		t.Errorf("confidence = %f, want 0", ans.Confidence)
	}
	if f.retriever.calls != 0 {
		t.Error("rejected query must not reach retrieval")
	}
	if f.generator.calls != 0 {
		t.Error("rejected query must not reach generation; no retry may echo PII")
	}
}

func TestAsk_LowConfidenceFlag(t *testing.T) {
	f := newFixture(query.CategoryFactual, "", []corpus.Scored{{Score: 0.2}})

	ans, err := f.svc.Ask(context.Background(), "q", "", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.formatter.lastLow {
		t.Error("0.2 must be flagged low confidence")
	}
	if ans.Confidence != 0.2 {
		t.Errorf("confidence = %f, want 0.2", ans.Confidence)
	}
}

func TestAsk_RetrievalFailureMapsToUnavailable(t *testing.T) {
	f := newFixture(query.CategoryFactual, "", nil)
	f.retriever.errs = []error{
		domain.ErrRetrievalUnavailable,
		domain.ErrRetrievalUnavailable,
		domain.ErrRetrievalUnavailable,
	}

	ans, err := f.svc.Ask(context.Background(), "q", "", 3)
	if err != nil {
		t.Fatalf("internal failures must not propagate: %v", err)
	}
	if ans.Answer != "try again later" {
		t.Errorf("answer = %q, want the generic unavailable text", ans.Answer)
	}
	if ans.Rejected {
		t.Error("an error answer is not a rejection")
	}
	if ans.Confidence != 0 {
		t.Errorf("confidence = %f, want 0", ans.Confidence)
	}
	if f.retriever.calls != 3 {
		t.Errorf("retriever calls = %d, want 3 (1 + 2 retries)", f.retriever.calls)
	}
	if f.generator.calls != 0 {
		t.Error("generation must not run after retrieval failed")
	}
}

func TestAsk_RetryRecovers(t *testing.T) {
	f := newFixture(query.CategoryFactual, "", []corpus.Scored{{Score: 0.8}})
	f.generator.errs = []error{domain.ErrGenerationUnavailable, nil}

	ans, err := f.svc.Ask(context.Background(), "q", "", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Answer != "generated answer" {
		t.Errorf("answer = %q, want recovery on retry", ans.Answer)
	}
	if f.generator.calls != 2 {
		t.Errorf("generator calls = %d, want 2", f.generator.calls)
	}
}

func TestAsk_GenerationExhaustsRetries(t *testing.T) {
	f := newFixture(query.CategoryFactual, "", []corpus.Scored{{Score: 0.8}})
	f.generator.errs = []error{
		domain.ErrGenerationUnavailable,
		domain.ErrGenerationUnavailable,
		domain.ErrGenerationUnavailable,
	}

	ans, err := f.svc.Ask(context.Background(), "q", "", 3)
	if err != nil {
		t.Fatalf("internal failures must not propagate: %v", err)
	}
	if ans.Answer != "try again later" {
		t.Errorf("answer = %q", ans.Answer)
	}
	if f.generator.calls != 3 {
		t.Errorf("generator calls = %d, want 3", f.generator.calls)
	}
}

func TestAsk_GreetingSkipsRetrieval(t *testing.T) {
	f := newFixture(query.CategoryGreeting, "", nil)
	f.generator.text = "Hello! How can I help?"

	ans, err := f.svc.Ask(context.Background(), "Hi!", "", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.retriever.calls != 0 {
		t.Error("greetings must not reach retrieval")
	}
	if !strings.HasPrefix(f.generator.prompt, "GREETING:") {
		t.Errorf("generator prompt = %q", f.generator.prompt)
	}
	if ans.Answer != "Hello! How can I help?" {
		t.Errorf("answer = %q", ans.Answer)
	}
}

func TestAsk_GreetingGenerationFailureFallsBack(t *testing.T) {
	f := newFixture(query.CategoryGreeting, "", nil)
	f.generator.errs = []error{
		domain.ErrGenerationUnavailable,
		domain.ErrGenerationUnavailable,
		domain.ErrGenerationUnavailable,
	}

	ans, err := f.svc.Ask(context.Background(), "Hi!", "", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Answer != "fallback greeting" {
		t.Errorf("answer = %q, want the fixed greeting", ans.Answer)
	}
}

func TestAsk_FundNameOverridesHint(t *testing.T) {
	f := newFixture(query.CategoryFactual, "HDFC Flexi Cap Fund", []corpus.Scored{{Score: 0.8}})

	_, err := f.svc.Ask(context.Background(), "What is the exit load?", "HDFC ELSS Tax Saver Fund", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.retriever.hint != "HDFC ELSS Tax Saver Fund" {
		t.Errorf("hint = %q, explicit fund name must win over the extracted one", f.retriever.hint)
	}
}

func TestAsk_TopKClamped(t *testing.T) {
	f := newFixture(query.CategoryFactual, "", []corpus.Scored{{Score: 0.8}})

	if _, err := f.svc.Ask(context.Background(), "q", "", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.retriever.topK != 3 {
		t.Errorf("topK = %d, want default 3", f.retriever.topK)
	}

	if _, err := f.svc.Ask(context.Background(), "q", "", 99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.retriever.topK != 10 {
		t.Errorf("topK = %d, want max 10", f.retriever.topK)
	}
}

func TestAsk_CancelledContextStopsRetries(t *testing.T) {
	f := newFixture(query.CategoryFactual, "", nil)
	f.retriever.errs = []error{domain.ErrRetrievalUnavailable}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ans, err := f.svc.Ask(ctx, "q", "", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Answer != "try again later" {
		t.Errorf("answer = %q", ans.Answer)
	}
	if f.retriever.calls > 1 {
		t.Errorf("retriever calls = %d, cancelled context must stop retrying", f.retriever.calls)
	}
}

func TestAsk_ErrorCausesAreNotSurfaced(t *testing.T) {
	f := newFixture(query.CategoryFactual, "", nil)
	f.retriever.errs = []error{errors.New("connection reset by provider 10.0.3.7")}
	f.retriever.scored = nil
	f.svc.cfg.MaxRetries = 0

	ans, err := f.svc.Ask(context.Background(), "q", "", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(ans.Answer, "10.0.3.7") {
		t.Error("raw internal errors must never reach the caller")
	}
}
