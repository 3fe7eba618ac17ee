// Package nameres resolves free-text user input to sounds, members and
// voice channels using Levenshtein distance with a prefix fallback.
package nameres

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Threshold is the largest distance/length ratio, exclusive, that counts
// as a match.
const Threshold = 0.3

var lower = cases.Lower(language.Und)

// Normalize folds s to lower case for comparison.
func Normalize(s string) string {
	return lower.String(s)
}

func NormalizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Normalize(s)
	}
	return out
}

// Distance is the Levenshtein edit distance between a and b, counted in
// runes.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n, m := len(ra), len(rb)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}

	d := make([][]int, n+1)
	for i := range d {
		d[i] = make([]int, m+1)
		d[i][0] = i
	}
	for j := 0; j <= m; j++ {
		d[0][j] = j
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
		}
	}
	return d[n][m]
}

// ratio is Distance(target, candidate) relative to the candidate length.
// ok is false for an empty candidate.
func ratio(target, candidate string) (float64, bool) {
	l := utf8.RuneCountInString(candidate)
	if l == 0 {
		return 0, false
	}
	return float64(Distance(target, candidate)) / float64(l), true
}

type matcher struct {
	result    string
	found     bool
	potential string
	prefixed  bool
	best      float64
}

func newMatcher() *matcher {
	return &matcher{best: 1.0}
}

// consider scores one pair. Any prefix hit replaces the fallback, while a
// distance hit must be strictly better than the best so far.
func (m *matcher) consider(target, candidate string) {
	if strings.HasPrefix(candidate, target) {
		m.potential = candidate
		m.prefixed = true
	}
	r, ok := ratio(target, candidate)
	if ok && r < Threshold && r < m.best {
		m.best = r
		m.result = candidate
		m.found = true
	}
}

func (m *matcher) match() (string, bool) {
	if m.found {
		return m.result, true
	}
	if m.prefixed {
		return m.potential, true
	}
	return "", false
}

// BestMatch picks the candidate closest to target. Callers normalize both
// sides.
func BestMatch(target string, candidates []string) (string, bool) {
	m := newMatcher()
	for _, c := range candidates {
		m.consider(target, c)
	}
	return m.match()
}

// BestMatchOfArray runs BestMatch over every target with one shared
// running best.
func BestMatchOfArray(targets, candidates []string) (string, bool) {
	m := newMatcher()
	for _, t := range targets {
		for _, c := range candidates {
			m.consider(t, c)
		}
	}
	return m.match()
}

// CompareNames reports whether a names b closely enough.
func CompareNames(a, b string) bool {
	if a == b {
		return true
	}
	if r, ok := ratio(a, b); ok && r < Threshold {
		return true
	}
	return strings.HasPrefix(b, a)
}

// ParseArgs splits command text into arguments. Text between double quotes
// is one argument. When nothing was quoted and the text holds several
// words, the whole text is appended as a last argument so multi-word names
// still resolve. It returns nil when there are no arguments.
func ParseArgs(text string) []string {
	text = strings.TrimSpace(text)

	var (
		args    []string
		cur     strings.Builder
		quoted  bool
		quoting bool
	)
	flush := func() {
		if cur.Len() > 0 {
			args = append(args, cur.String())
			cur.Reset()
		}
	}

	for _, r := range text {
		switch {
		case r == '"':
			if quoting {
				flush()
			}
			quoting = !quoting
			quoted = true
		case unicode.IsSpace(r) && !quoting:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	if !quoted && len(args) > 1 {
		args = append(args, text)
	}
	if len(args) == 0 {
		return nil
	}
	return args
}
