package source

import "strings"

// NormalizeHandle canonicalizes an account handle: whitespace and a
// leading @ are stripped, and the rest is lowercased. Handles are
// case-insensitive upstream, so the canonical form keeps the database
// unique constraint meaningful.
func NormalizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	handle = strings.TrimPrefix(handle, "@")
	return strings.ToLower(handle)
}

// ValidHandle reports whether a normalized handle is plausible: 1 to 15
// characters of letters, digits or underscores.
func ValidHandle(handle string) bool {
	if len(handle) == 0 || len(handle) > 15 {
		return false
	}
	for _, r := range handle {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}
