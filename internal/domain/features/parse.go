package features

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Imperial race distances in metres.
const (
	metresPerMile    = 1609.344
	metresPerFurlong = 201.168
)

var imperialRe = regexp.MustCompile(`^(?:(\d+)\s*m(?:iles?)?)?\s*(?:(\d+(?:\.\d+)?)\s*f(?:urlongs?)?)?$`)

// ParseDistance reads a distance in metres such as "1400m", "1,600 m" or
// "2000", or an imperial one such as "6f" or "1m2f" converted to metres. A
// bare "<n>m" is metres; miles need a furlong part to be recognised.
func ParseDistance(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, ok := parseImperial(s); ok {
		return v, true
	}
	s = strings.TrimRightFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func parseImperial(s string) (float64, bool) {
	m := imperialRe.FindStringSubmatch(s)
	if m == nil || m[2] == "" {
		return 0, false
	}
	var miles float64
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		miles = float64(n)
	}
	furlongs, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, false
	}
	return math.Round(miles*metresPerMile + furlongs*metresPerFurlong), true
}

type classTier struct {
	score    int
	keywords []string
}

// classLadder is checked top-down; the first tier with a matching keyword wins.
var classLadder = []classTier{
	{5, []string{"group 1", "grp 1", "g1"}},
	{4, []string{"group 2", "grp 2", "g2"}},
	{3, []string{"group 3", "grp 3", "g3"}},
	{2, []string{"listed"}},
	{1, []string{"cup", "classic", "guineas", "stakes", "trophy"}},
}

// RaceClassScore grades a race from its free-text descriptors: 5 for Group 1
// down to 1 for named cups and stakes, 0 otherwise. Matching ignores case.
func RaceClassScore(details, stakes string) int {
	text := cases.Fold().String(details + " " + stakes)
	for _, tier := range classLadder {
		for _, kw := range tier.keywords {
			if strings.Contains(text, kw) {
				return tier.score
			}
		}
	}
	return 0
}

// AgeFactorFor peaks for horses aged 4 to 6.
func AgeFactorFor(age float64) float64 {
	switch {
	case age >= 4 && age <= 6:
		return 1.0
	case age >= 3 && age <= 7:
		return 0.8
	default:
		return 0.6
	}
}

// RestFactorFor rewards 14 to 30 days between runs.
func RestFactorFor(days float64) float64 {
	switch {
	case days >= 14 && days <= 30:
		return 1.0
	case days >= 7 && days <= 42:
		return 0.8
	default:
		return 0.5
	}
}
