// Package query holds the per-request classification model.
package query

// Category is the safety/scope bucket a question falls into.
type Category string

const (
	// CategoryPII marks questions carrying personal identifiers. Takes
	// priority over every other category.
	CategoryPII Category = "pii"
	// CategoryOpinion marks advice or recommendation requests.
	CategoryOpinion Category = "opinion"
	// CategoryPerformance marks return and comparison requests.
	CategoryPerformance Category = "performance"
	// CategoryFactual marks questions on the recognized factual topics.
	CategoryFactual Category = "factual"
	// CategoryGreeting marks salutations and thanks.
	CategoryGreeting Category = "greeting"
	// CategoryOutOfScope is the default when no rule matches.
	CategoryOutOfScope Category = "out_of_scope"
)

// Classified is the result of classifying a raw question.
// Derived per request, never persisted.
type Classified struct {
	RawText  string
	Category Category
	FundHint string
}

// Rejected reports whether the category short-circuits to a refusal
// without touching retrieval or generation.
func (c Classified) Rejected() bool {
	switch c.Category {
	case CategoryPII, CategoryOpinion, CategoryOutOfScope:
		return true
	default:
		return false
	}
}
