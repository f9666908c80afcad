package redaction

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Compare orders words longest first; words of equal rune length are ordered
// by ordinal (byte) comparison ascending. It returns 0 only for identical
// strings, so sorting with it yields a single, reproducible order.
func Compare(a, b string) int {
	if c := cmp.Compare(utf8.RuneCountInString(b), utf8.RuneCountInString(a)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Order returns a sorted copy of words with exact duplicates removed.
// The input slice is not modified.
func Order(words []string) []string {
	out := slices.Clone(words)
	slices.SortFunc(out, Compare)
	return slices.Compact(out)
}
