// Package similarity scores how alike two bank descriptions are.
//
// Scores are integers in [0,100]. The matcher only depends on the Func type,
// so any edit-distance or token based scorer can be plugged in.
package similarity

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Func scores the similarity of two strings in [0,100].
type Func func(a, b string) int

// bankNoise lists label fragments banks add to card operations.
var bankNoise = []string{
	"PAIEMENT PAR CARTE",
	"AVOIR CARTE",
	"PRLV SEPA",
}

// trailingDate matches the "dd/mm" suffix some banks append to labels.
var trailingDate = regexp.MustCompile(`\s*\d{2}/\d{2}$`)

// Clean upper-cases a description, strips bank noise and the trailing
// posting date, and collapses whitespace.
func Clean(s string) string {
	s = strings.ToUpper(strings.Join(strings.Fields(s), " "))
	for _, noise := range bankNoise {
		s = strings.ReplaceAll(s, noise, "")
	}
	s = trailingDate.ReplaceAllString(strings.TrimSpace(s), "")
	return strings.Join(strings.Fields(s), " ")
}

// Default cleans both descriptions and returns the best of Ratio,
// PartialRatio and TokenSortRatio.
func Default(a, b string) int {
	a, b = Clean(a), Clean(b)
	return max(Ratio(a, b), PartialRatio(a, b), TokenSortRatio(a, b))
}

// Ratio is the normalized edit-distance similarity of a and b.
func Ratio(a, b string) int {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 && lb == 0 {
		return 100
	}
	if la == 0 || lb == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return score(1 - float64(dist)/float64(max(la, lb)))
}

// PartialRatio is the best Ratio of the shorter string against every window
// of the same length in the longer one.
func PartialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return Ratio(a, b)
	}

	best := 0
	s := string(short)
	for i := 0; i+len(short) <= len(long); i++ {
		r := Ratio(s, string(long[i:i+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio is the Ratio of both strings after sorting their words.
func TokenSortRatio(a, b string) int {
	return Ratio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func score(f float64) int {
	return int(math.Round(math.Max(0, math.Min(1, f)) * 100))
}
