// Package util provides string helpers for host protocol arguments.
package util

import (
	"slices"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// Unquote trims surrounding whitespace and quotes from a host argument and
// collapses its escaped quotes.
func Unquote(s string) string {
	return FixEscapeQuotes(TrimQuotes(strings.TrimSpace(s)))
}

// UnquoteAll applies Unquote to every argument.
func UnquoteAll(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = Unquote(a)
	}
	return out
}

// IsNil reports whether a host argument is the literal nil the host sends
// for an absent value.
func IsNil(s string) bool {
	return strings.EqualFold(Unquote(s), "nil")
}

// Contains reports whether str is in slice.
func Contains(slice []string, str string) bool {
	return slices.Contains(slice, str)
}
