package evaluation

import "fmt"

// Category names the three fixed evaluation dimensions.
type Category string

const (
	CategoryAmbiguity    Category = "ambiguity"
	CategoryTestability  Category = "testability"
	CategoryCompleteness Category = "completeness"
)

// Categories lists every category in response order.
var Categories = []Category{CategoryAmbiguity, CategoryTestability, CategoryCompleteness}

const (
	MinScore       = 1
	MaxScore       = 10
	NeutralScore   = 5
	MaxSuggestions = 5
)

// FallbackSuggestion is the single suggestion returned when the model reply could not be parsed.
const FallbackSuggestion = "Unable to parse the evaluation response. Please try again."

type CategoryScore struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// Result is the normalized evaluation returned to clients. It is never persisted.
type Result struct {
	Ambiguity    CategoryScore `json:"ambiguity"`
	Testability  CategoryScore `json:"testability"`
	Completeness CategoryScore `json:"completeness"`
	Suggestions  []string      `json:"suggestions"`
}

// Score returns the category score for c.
func (r *Result) Score(c Category) CategoryScore {
	switch c {
	case CategoryAmbiguity:
		return r.Ambiguity
	case CategoryTestability:
		return r.Testability
	default:
		return r.Completeness
	}
}

// SetScore stores s under category c.
func (r *Result) SetScore(c Category, s CategoryScore) {
	switch c {
	case CategoryAmbiguity:
		r.Ambiguity = s
	case CategoryTestability:
		r.Testability = s
	case CategoryCompleteness:
		r.Completeness = s
	}
}

// UnableToEvaluate is the default feedback for a category the model did not cover.
func UnableToEvaluate(c Category) string {
	return fmt.Sprintf("Unable to evaluate %s.", c)
}

// Fallback builds the deterministic result used when the model output is unusable.
func Fallback() *Result {
	r := &Result{Suggestions: []string{FallbackSuggestion}}
	for _, c := range Categories {
		r.SetScore(c, CategoryScore{Score: NeutralScore, Feedback: UnableToEvaluate(c)})
	}
	return r
}

// Request is one evaluation call: who is asking and what to evaluate.
type Request struct {
	ClientID        string
	RequirementText string
}

// Outcome labels how an evaluation request ended, for audit and metrics.
type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeDegraded        Outcome = "degraded"
	OutcomeValidationError Outcome = "validation_error"
	OutcomeRateLimited     Outcome = "rate_limited"
	OutcomeUpstreamError   Outcome = "upstream_error"
)
