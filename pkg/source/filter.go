package source

import "strings"

// DefaultReviewKeywords mark a video title or description as review content.
var DefaultReviewKeywords = []string{
	"review", "reviewed", " vs ", " vs.", "versus", "comparison", "compared",
	"hands-on", "hands on", "unboxing", "worth it", "buying guide",
	"best ", "top ", "tested", "long-term", "long term", "should you buy",
}

// Filter holds keyword lists for review matching.
type Filter struct {
	keywords []string
	exclude  []string
}

// NewFilter creates a filter with default review keywords plus extras.
func NewFilter(extraKeywords, excludeKeywords []string) *Filter {
	keywords := make([]string, len(DefaultReviewKeywords))
	copy(keywords, DefaultReviewKeywords)
	keywords = append(keywords, extraKeywords...)

	for i, kw := range keywords {
		keywords[i] = strings.ToLower(kw)
	}

	exclude := make([]string, len(excludeKeywords))
	for i, kw := range excludeKeywords {
		exclude[i] = strings.ToLower(kw)
	}

	return &Filter{keywords: keywords, exclude: exclude}
}

// MatchesReview returns true if text looks like product review content.
func (f *Filter) MatchesReview(text string) bool {
	// Pad so keywords with edge spaces match at the ends.
	lower := " " + strings.ToLower(text) + " "

	for _, ex := range f.exclude {
		if strings.Contains(lower, ex) {
			return false
		}
	}

	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
