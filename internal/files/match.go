package files

import (
	"path"
	"strings"
	"unicode"

	"github.com/kitbuilder587/orbe-search/internal/domain"
)

const DefaultMatchThreshold = 0.5

var stopwords = map[string]struct{}{
	"download": {}, "find": {}, "get": {}, "for": {}, "the": {}, "and": {},
	"with": {}, "pdf": {}, "zip": {}, "doc": {}, "file": {},
}

var filenameSeparators = strings.NewReplacer("-", " ", "_", " ", "/", " ", `\`, " ")

// FindMatch returns the first candidate whose filename covers more than
// threshold of the query's significant tokens.
func FindMatch(query string, candidates []domain.FileCandidate, threshold float64) (domain.FileCandidate, bool) {
	if strings.TrimSpace(query) == "" {
		return domain.FileCandidate{}, false
	}
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}

	tokens := queryTokens(query)
	for _, c := range candidates {
		if c.Filename == "" {
			continue
		}
		if matches(query, tokens, c.Filename, threshold) {
			return c, true
		}
	}
	return domain.FileCandidate{}, false
}

func matches(query string, tokens []string, filename string, threshold float64) bool {
	lower := strings.ToLower(filename)

	// запрос из одних стоп-слов: достаточно любого слова запроса в имени файла
	if len(tokens) == 0 {
		for _, w := range strings.Fields(strings.ToLower(query)) {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	base := normalizeFilename(lower)
	matched := 0
	for _, t := range tokens {
		if strings.Contains(base, t) {
			matched++
		}
	}
	return float64(matched)/float64(len(tokens)) > threshold
}

func normalizeFilename(lower string) string {
	name := strings.TrimSuffix(lower, path.Ext(lower))
	return strings.TrimSpace(filenameSeparators.Replace(name))
}

// queryTokens splits on anything that is not a letter or digit.
func queryTokens(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var out []string
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}
