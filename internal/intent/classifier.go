// Package intent maps a raw query to an Intent with ordered keyword rules and
// derives the search topic sent to the matching source.
package intent

import (
	"regexp"
	"strings"

	"github.com/kitbuilder587/orbe-search/internal/domain"
)

type rule struct {
	intent   domain.Intent
	keywords []string
}

// Order is priority: the first rule with a matching keyword wins.
// WEATHER has patterns below but no rule until a weather source exists.
var rules = []rule{
	{domain.IntentNews, []string{
		"news about", "latest news on", "headlines for", "articles about",
		"what is the news on", "recent developments", "updates on", "newsapi", "/v2/",
	}},
	{domain.IntentBooks, []string{
		"book about", "books about", "find book", "find books", "books on", "search books for",
		"author of book", "author of the book", "about the book", "book title", "reading list for",
		"recommend book", "recommend books", "novel about", "novels about", "story about",
		"stories about", "sci-fi book", "science fiction book", "book called", "book named",
	}},
}

var (
	newsPatterns = mustCompileAll(
		`(?i)news about\s+`,
		`(?i)latest news on\s+`,
		`(?i)headlines for\s+`,
		`(?i)articles about\s+`,
		`(?i)what is the news on\s+`,
		`(?i)recent developments\s+`,
		`(?i)updates on\s+`,
		`(?i)newsapi\s+`,
		`(?i)/v2/.*/`,
	)
	bookPatterns = mustCompileAll(
		`(?i)^find\s*`,
		`(?i)^search\s*`,
		`(?i)^look for\s*`,
		`(?i)^recommend\s*`,
		`(?i)^tell me about\s*`,
		`(?i)^(the\s*)?books?\s+about\s+`,
		`(?i)^(a\s*)?books?\s+on\s+`,
		`(?i)^(the\s*)?books?\s+called\s+`,
		`(?i)^(the\s*)?books?\s+named\s+`,
		`(?i)^search\s+books\s+for\s+`,
		`(?i)^(the\s*)?author\s+of\s*`,
		`(?i)\s+books?$`,
		`(?i)\s+novels?$`,
	)
	weatherPatterns = mustCompileAll(
		`(?i)weather in\s+`,
		`(?i)forecast for\s+`,
		`(?i)temperature in\s+`,
		`(?i)is it raining in\s+`,
	)

	genericPrefix = regexp.MustCompile(`(?i)^(what is|what's|tell me about)\s+`)
	trailingQMark = regexp.MustCompile(`\?$`)
)

func mustCompileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Classify never fails: no match means GENERAL_INFO, an empty query means UNKNOWN.
func Classify(query string) domain.Intent {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return domain.IntentUnknown
	}

	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(q, kw) {
				return r.intent
			}
		}
	}
	return domain.IntentGeneralInfo
}

// ExtractTopic strips the intent's boilerplate from the query.
// The result is never empty for a non-empty query.
func ExtractTopic(query string, in domain.Intent) string {
	original := strings.TrimSpace(query)

	var patterns []*regexp.Regexp
	switch in {
	case domain.IntentNews:
		patterns = newsPatterns
	case domain.IntentBooks:
		patterns = bookPatterns
	case domain.IntentWeather:
		patterns = weatherPatterns
	default:
		return original
	}

	term := query
	for _, p := range patterns {
		term = replaceFirst(p, term)
	}
	term = replaceFirst(genericPrefix, term)
	term = replaceFirst(trailingQMark, term)
	term = strings.TrimSpace(term)

	if term == "" {
		return original
	}
	return term
}

func replaceFirst(re *regexp.Regexp, s string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}
