package catalog

import (
	"strings"
	"unicode"
)

// Slug normalizes free text into an item key: lowercase, words joined by
// underscores, punctuation trimmed at the edges. "2% Milk" becomes "2%_milk".
func Slug(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.TrimFunc(w, isEdgePunct)
	}
	ret := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			ret = append(ret, w)
		}
	}
	s := strings.Join(ret, "_")
	return strings.TrimFunc(s, isEdgePunct)
}

func isEdgePunct(r rune) bool {
	if r == '%' || r == '#' || r == '&' || r == '+' {
		return false
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
