package utils

import (
	"fmt"
	"strings"
)

var mdEscaper = strings.NewReplacer("*", "\\*", "_", "\\_", "`", "\\`", "~", "\\~", "|", "\\|")

func EscapeMd(s string) string {
	return mdEscaper.Replace(s)
}

// Truncate cuts s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// PageBounds returns the [begin, end) slice bounds of a 1-based page and
// the page count. Out of range pages report ok=false.
func PageBounds(total, page, pageSize int) (begin, end, pages int, ok bool) {
	if pageSize <= 0 {
		pageSize = 10
	}
	pages = max(1, (total+pageSize-1)/pageSize)
	if page < 1 || page > pages {
		return 0, 0, pages, false
	}
	begin = (page - 1) * pageSize
	end = min(total, begin+pageSize)
	return begin, end, pages, true
}

// Plural formats n with the singular or plural noun.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
