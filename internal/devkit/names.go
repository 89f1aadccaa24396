package devkit

import (
	"strings"
	"unicode"

	"github.com/fatih/camelcase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NameVariants holds the spellings of a name that templates need.
type NameVariants struct {
	Name      string // as given, e.g. "my-api"
	ClassName string // "MyApi"
	FileName  string // "my-api"
}

// Names derives identifier spellings from name. Words are split on
// separators and on case changes, so "MyTestStack", "my_test-stack" and
// "my test stack" all yield the same variants.
func Names(name string) NameVariants {
	words := splitWords(name)
	title := cases.Title(language.English)

	var class strings.Builder
	lower := make([]string, len(words))
	for i, w := range words {
		lw := strings.ToLower(w)
		lower[i] = lw
		class.WriteString(title.String(lw))
	}

	return NameVariants{
		Name:      name,
		ClassName: class.String(),
		FileName:  strings.Join(lower, "-"),
	}
}

func splitWords(s string) []string {
	chunks := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var words []string
	for _, chunk := range chunks {
		start := len(words)
		for _, part := range camelcase.Split(chunk) {
			// Keep digits attached to the word they follow ("s3", "v2").
			if len(words) > start && isDigits(part) {
				words[len(words)-1] += part
				continue
			}
			words = append(words, part)
		}
	}
	return words
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
