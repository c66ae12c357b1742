package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func trimAndLower(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return s
}

func collapseSpaces(s string) string {
	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return strings.TrimSpace(result.String())
}

// NormalizeEmail lowercases and trims an address. Member identity is keyed by
// email across properties, so every comparison and write goes through this.
func NormalizeEmail(email string) string {
	return trimAndLower(email)
}

// NormalizeName trims and collapses internal whitespace, preserving case.
func NormalizeName(name string) string {
	p := Pipeline{
		strings.TrimSpace,
		collapseSpaces,
	}
	return p.Apply(name)
}

// NormalizeLabel is for tag and fixed-cost names shown in lists.
func NormalizeLabel(label string) string {
	return collapseSpaces(label)
}
