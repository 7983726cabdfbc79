package retrieval

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StopWords are never returned by ExtractKeywords
var StopWords = []string{"the", "a", "an", "to", "for", "in", "on", "at", "of", "by"}

var stopWordSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(StopWords))
	for _, w := range StopWords {
		set[w] = struct{}{}
	}
	return set
}()

// Fold lower-cases s and strips diacritics, so "Café" and "cafe" compare equal
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// ExtractKeywords returns the distinct folded words of texts in first-seen order.
// Words are split on anything that is not a letter or digit; stop words are removed.
func ExtractKeywords(texts []string) []string {
	seen := make(map[string]struct{})
	keywords := make([]string, 0)

	for _, text := range texts {
		words := strings.FieldsFunc(Fold(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			if _, stop := stopWordSet[w]; stop {
				continue
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			keywords = append(keywords, w)
		}
	}

	return keywords
}

// PrioritizeKeywords orders keywords for display against query: words containing the
// folded query come first, then longer words before shorter ones. Equal keys keep
// their extraction order. The input is not modified.
func PrioritizeKeywords(keywords []string, query string) []string {
	q := Fold(strings.TrimSpace(query))
	out := append([]string(nil), keywords...)

	contains := func(w string) bool {
		return q != "" && strings.Contains(w, q)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := contains(out[i]), contains(out[j])
		if ci != cj {
			return ci
		}
		return len([]rune(out[i])) > len([]rune(out[j]))
	})
	return out
}
