package crosstab

import (
	"strconv"
	"strings"
)

// RenderSeparator joins tuple elements in rendered output only
const RenderSeparator = "^"

// Key encodes a tuple so that distinct tuples never share a key: every
// element is written as its byte length, a colon and the label.
func Key(categories []string) string {
	var b strings.Builder
	for _, c := range categories {
		b.WriteString(strconv.Itoa(len(c)))
		b.WriteByte(':')
		b.WriteString(c)
	}
	return b.String()
}

// CompareTuples orders tuples element-wise lexicographically
func CompareTuples(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}
