// internal/app/system/normalize/normalize.go
package normalize

import "strings"

// Keyword trims and lowercases an enumerated value such as a role or a
// status filter.
func Keyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Email trims and lowercases an email address.
func Email(s string) string {
	return Keyword(s)
}

// ZipCodes trims each zip code, drops blanks and duplicates, and keeps order.
// A nil input returns nil so callers can tell "not provided" from "empty".
func ZipCodes(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, z := range in {
		z = strings.TrimSpace(z)
		if z == "" {
			continue
		}
		if _, dup := seen[z]; dup {
			continue
		}
		seen[z] = struct{}{}
		out = append(out, z)
	}
	return out
}
