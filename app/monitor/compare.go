package monitor

import (
	"strings"
)

// ComparePostIDs compares two post ids as arbitrary-precision decimal
// integers. Ids can exceed 64 bits, so they are never parsed into machine
// integers; after stripping leading zeros a longer id is the larger one,
// and equal-length ids compare lexicographically.
func ComparePostIDs(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")

	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}

	return strings.Compare(a, b)
}
