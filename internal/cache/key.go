package cache

import (
	"strconv"
	"strings"
)

// Key identifies a cache entry, e.g. Key{"searchResults", id}.
type Key []string

// HasPrefix reports whether the leading elements of k equal prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	return "[" + strings.Join(k, " ") + "]"
}

// id encodes k as length-prefixed elements, so no element content can
// collide with a different split.
func (k Key) id() string {
	var b strings.Builder
	for _, e := range k {
		b.WriteString(strconv.Itoa(len(e)))
		b.WriteByte(':')
		b.WriteString(e)
	}
	return b.String()
}
