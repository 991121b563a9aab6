// Package canon cleans up display names and produces the comparison keys
// used to keep location names unique regardless of case or spacing.
package canon

import "strings"

// Display trims the name and collapses internal whitespace runs to a single
// space. Case is preserved. Person names, task titles and zip codes are
// stored in this form too.
func Display(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// Key returns the canonical comparison key for name: Display form, lowercased.
// Whitespace-only input yields "" and callers must reject it before persisting.
func Key(name string) string {
	return strings.ToLower(Display(name))
}

// Empty reports whether name has no canonical content.
func Empty(name string) bool {
	return Key(name) == ""
}
