package utils

import (
	"strconv"
	"strings"
)

// RowLabel converts a zero-based row index to an alphabetical label like
// A, B, ..., Z, AA, AB.  Negative indices yield "".
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		rem := i % 26
		res = append(res, rune('A'+rem))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// RowIndex is the inverse of RowLabel.  It reports false for labels that
// contain anything but ASCII letters.
func RowIndex(label string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if s == "" {
		return -1, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < 'A' || ch > 'Z' {
			return -1, false
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, true
}

// SeatLabel joins a row index and a one-based column into "C7".
func SeatLabel(row, col int) string {
	return RowLabel(row) + strconv.Itoa(col)
}
