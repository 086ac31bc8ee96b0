// Package prompt assembles bounded generation prompts from retrieved
// context.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/navseva/fundfaq/internal/domain/corpus"
)

// preamble states the hard answering constraints. It is never truncated.
const preamble = `You are a polite and helpful assistant for mutual funds in India. Your role is to provide factual information and assist users with a friendly, professional tone.

CRITICAL CONSTRAINTS:
1. Answer ONLY factual queries (expense ratios, exit loads, minimum SIP, lock-in periods, riskometer, benchmark, statement downloads)
2. DO NOT provide investment advice, recommendations, or opinions
3. DO NOT make performance claims or compute/compare returns
4. DO NOT refer to third-party blogs or external sources
5. Keep answer to maximum 3 sentences
6. Be precise with numbers and percentages and include all values mentioned in the context
7. If information is not in context, state that clearly
8. Do not repeat any personal information back to the user`

const greetingPreamble = `You are a friendly and helpful assistant for mutual funds in India. A user has greeted you. Respond politely and warmly to the greeting and offer to help with information about mutual funds. Keep your response to 1-2 sentences.`

const noContextLine = "No information from official sources is available for this question."

// Builder concatenates the preamble, retrieved chunks and the question
// within a rune budget. When the assembly would exceed the budget the
// lowest-similarity chunks are dropped first; the preamble and the
// question are always kept whole.
type Builder struct {
	budgetRunes int
}

// New creates a builder with the given rune budget.
func New(budgetRunes int) *Builder {
	return &Builder{budgetRunes: budgetRunes}
}

// Build assembles the generation prompt. retrieved must be sorted by
// similarity descending, which is what the retriever produces.
func (b *Builder) Build(question string, retrieved []corpus.Scored) string {
	kept := len(retrieved)
	for kept > 0 {
		p := assemble(question, retrieved[:kept])
		if utf8.RuneCountInString(p) <= b.budgetRunes {
			return p
		}
		kept--
	}
	return assemble(question, nil)
}

// BuildGreeting assembles the short salutation prompt. Greetings carry no
// retrieved context.
func (b *Builder) BuildGreeting(question string) string {
	return fmt.Sprintf("%s\n\nUser said: %s\n\nYour response:", greetingPreamble, question)
}

func assemble(question string, retrieved []corpus.Scored) string {
	var ctx strings.Builder
	if len(retrieved) == 0 {
		ctx.WriteString(noContextLine)
	} else {
		for i, sc := range retrieved {
			if i > 0 {
				ctx.WriteString("\n\n")
			}
			fmt.Fprintf(&ctx, "[%s | %s]\n%s", sc.Chunk.FundName, sc.Chunk.Type, sc.Chunk.Text)
		}
	}

	return fmt.Sprintf("%s\n\nContext (from official sources only):\n%s\n\nQuestion: %s\n\nAnswer:",
		preamble, ctx.String(), question)
}
