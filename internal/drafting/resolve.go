package drafting

import (
	"strings"
	"unicode"
)

var languageAliases = map[string]string{
	"en": "english",
	"hi": "hindi",
	"mr": "marathi",
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func normalizeLanguage(s string) string {
	n := normalize(s)
	if full, ok := languageAliases[n]; ok {
		return full
	}
	return n
}

// resolve picks one template for (docType, language): an exact match on the
// normalized type or an alias, then the best token-containment match within
// the language. templates must be sorted by file name.
func resolve(templates []Template, docType, language string) (Template, bool) {
	wantType := normalize(docType)
	wantLang := normalizeLanguage(language)

	var sameLang []Template
	for _, t := range templates {
		if normalizeLanguage(t.Language) == wantLang {
			sameLang = append(sameLang, t)
		}
	}
	for _, t := range sameLang {
		if normalize(t.DocumentType) == wantType {
			return t, true
		}
	}
	for _, t := range sameLang {
		for _, alias := range t.Aliases {
			if normalize(alias) == wantType {
				return t, true
			}
		}
	}

	wantTokens := strings.Fields(wantType)
	if len(wantTokens) == 0 {
		return Template{}, false
	}
	var (
		best      Template
		bestScore int
	)
	for _, t := range sameLang {
		score := containment(wantTokens, strings.Fields(normalize(t.DocumentType)))
		for _, alias := range t.Aliases {
			if s := containment(wantTokens, strings.Fields(normalize(alias))); s > score {
				score = s
			}
		}
		if score > bestScore {
			best, bestScore = t, score
		}
	}
	return best, bestScore > 0
}

// containment scores two token sets when one contains the other, by the size
// of the smaller set. Unrelated sets score zero.
func containment(a, b []string) int {
	if len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	set := make(map[string]bool, len(large))
	for _, tok := range large {
		set[tok] = true
	}
	for _, tok := range small {
		if !set[tok] {
			return 0
		}
	}
	return len(small)
}
