package openapi

import (
	"regexp"
	"strings"
	"unicode"
)

var wordSeparators = regexp.MustCompile(`[_\-\s.]+`)

// Label turns a property name into a sentence-case label:
// "contact_method" and "contactMethod" both become "Contact method".
func Label(name string) string {
	var words []string
	for _, part := range wordSeparators.Split(name, -1) {
		words = append(words, splitCamel(part)...)
	}
	if len(words) == 0 {
		return ""
	}
	for i, word := range words {
		words[i] = strings.ToLower(word)
	}
	first := []rune(words[0])
	first[0] = unicode.ToUpper(first[0])
	words[0] = string(first)
	return strings.Join(words, " ")
}

func splitCamel(word string) []string {
	if word == "" {
		return nil
	}
	var (
		out   []string
		start int
		runes = []rune(word)
	)
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		if (unicode.IsLower(prev) && unicode.IsUpper(cur)) ||
			(unicode.IsLetter(prev) && unicode.IsDigit(cur)) ||
			(unicode.IsDigit(prev) && unicode.IsLetter(cur)) {
			out = append(out, string(runes[start:i]))
			start = i
		}
	}
	return append(out, string(runes[start:]))
}
