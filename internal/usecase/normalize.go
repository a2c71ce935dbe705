package usecase

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Package-level compiled regex patterns for performance
var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	tokenSplitRegex = regexp.MustCompile(`[\s\-_,./]+`)
)

// finalForms maps Hebrew final letter forms to their regular forms so that
// e.g. "חלבון" and a name ending in "ן" compare consistently.
var finalForms = map[rune]rune{
	'ך': 'כ',
	'ם': 'מ',
	'ן': 'נ',
	'ף': 'פ',
	'ץ': 'צ',
}

// NormalizeText normalizes Hebrew (or mixed Hebrew/English) text for
// comparison and cache keying:
//   - removes niqqud and cantillation marks (U+0591..U+05C7)
//   - folds final letter forms to regular forms
//   - applies Unicode NFKC normalization
//   - lowercases any Latin text
//   - collapses whitespace
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r >= 0x0591 && r <= 0x05C7 {
			continue
		}
		if normal, ok := finalForms[r]; ok {
			r = normal
		}
		b.WriteRune(r)
	}

	result := norm.NFKC.String(b.String())
	result = strings.ToLower(result)
	result = whitespaceRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// Tokenize splits text into normalized tokens, dropping tokens shorter than
// two characters.
func Tokenize(text string) []string {
	normalized := NormalizeText(text)
	if normalized == "" {
		return nil
	}

	parts := tokenSplitRegex.Split(normalized, -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if len([]rune(p)) >= 2 {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
