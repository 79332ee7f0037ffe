package configuration

import (
	"slices"
	"strconv"
	"strings"
)

// CompareKeys orders keys segment by segment. Segments that parse as
// integers sort numerically and before non-numeric segments; other segments
// compare case-insensitively.
func CompareKeys(a, b string) int {
	as := strings.Split(a, KeyDelimiter)
	bs := strings.Split(b, KeyDelimiter)

	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}

func compareSegment(a, b string) int {
	an, aErr := strconv.Atoi(a)
	bn, bErr := strconv.Atoi(b)

	switch {
	case aErr == nil && bErr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// SortKeys sorts keys in place with CompareKeys.
func SortKeys(keys []string) {
	slices.SortStableFunc(keys, CompareKeys)
}
