package extraction

import (
	"math"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	unbaseScale = 0.95
	partialBase = 0.90
	partialWide = 0.60
)

// WRatio scores the similarity of a and b on a 0..100 scale. Both inputs
// are processed first (non-ASCII dropped, non-word characters blanked,
// lowercased). Inputs of similar length use the plain and token-order
// insensitive ratios; otherwise partial (best aligned window) variants are
// tried, weighted down as the length difference grows.
func WRatio(a, b string) int {
	p1, p2 := process(a), process(b)
	if p1 == "" || p2 == "" {
		return 0
	}

	base := float64(ratio(p1, p2))
	l1, l2 := float64(len(p1)), float64(len(p2))
	lenRatio := math.Max(l1, l2) / math.Min(l1, l2)

	if lenRatio < 1.5 {
		best := math.Max(base, float64(tokenSortRatio(p1, p2, false))*unbaseScale)
		best = math.Max(best, float64(tokenSetRatio(p1, p2, false))*unbaseScale)
		return roundHalfEven(best)
	}

	scale := partialBase
	if lenRatio > 8 {
		scale = partialWide
	}
	best := math.Max(base, float64(partialRatio(p1, p2))*scale)
	best = math.Max(best, float64(tokenSortRatio(p1, p2, true))*unbaseScale*scale)
	best = math.Max(best, float64(tokenSetRatio(p1, p2, true))*unbaseScale*scale)
	return roundHalfEven(best)
}

// ExtractOne returns the choice scoring highest against query. Ties keep
// the earlier choice. An empty choice list yields ("", 0).
func ExtractOne(query string, choices []string) (string, int) {
	best, bestScore := "", -1
	for _, c := range choices {
		if score := WRatio(query, c); score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore < 0 {
		return "", 0
	}
	return best, bestScore
}

// process keeps ASCII only, turns every non-word character into a space,
// lowercases and trims. Inner whitespace runs are kept as they are.
func process(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 0x80:
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

// chars splits an ASCII string into one-character elements for difflib
func chars(s string) []string {
	out := make([]string, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = s[i : i+1]
	}
	return out
}

// ratio is 100 * 2M/T over the difflib matching blocks of a and b
func ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	return roundHalfEven(100 * difflib.NewMatcher(chars(a), chars(b)).Ratio())
}

// partialRatio scores the shorter string against windows of the longer one
// aligned on each matching block.
func partialRatio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	shorter, longer := a, b
	if len(a) > len(b) {
		shorter, longer = b, a
	}

	short := chars(shorter)
	best := 0.0
	for _, block := range difflib.NewMatcher(short, chars(longer)).GetMatchingBlocks() {
		start := block.B - block.A
		if start < 0 {
			start = 0
		}
		end := start + len(shorter)
		if end > len(longer) {
			end = len(longer)
		}
		r := difflib.NewMatcher(short, chars(longer[start:end])).Ratio()
		if r > 0.995 {
			return 100
		}
		best = math.Max(best, r)
	}
	return roundHalfEven(100 * best)
}

func tokenSortRatio(a, b string, partial bool) int {
	sa, sb := sortedTokens(a), sortedTokens(b)
	if partial {
		return partialRatio(sa, sb)
	}
	return ratio(sa, sb)
}

func tokenSetRatio(a, b string, partial bool) int {
	setA, setB := tokenSet(a), tokenSet(b)

	var sect, onlyA, onlyB []string
	for t := range setA {
		if setB[t] {
			sect = append(sect, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range setB {
		if !setA[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(sect)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	t0 := strings.Join(sect, " ")
	t1 := strings.TrimSpace(t0 + " " + strings.Join(onlyA, " "))
	t2 := strings.TrimSpace(t0 + " " + strings.Join(onlyB, " "))

	score := ratio
	if partial {
		score = partialRatio
	}
	best := score(t0, t1)
	if s := score(t0, t2); s > best {
		best = s
	}
	if s := score(t1, t2); s > best {
		best = s
	}
	return best
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

func roundHalfEven(x float64) int {
	return int(math.RoundToEven(x))
}
