package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	costPattern   = regexp.MustCompile(`will cost ([\d,]+) coins`)
	leadingDigits = regexp.MustCompile(`^[+-]?\d+`)
)

// ParseCoins reads a price out of a shop appraisal line such as
// "You get the feeling it will cost 12,500 coins."
func ParseCoins(line string) (int, bool) {
	if !strings.Contains(line, "will cost") || !strings.Contains(line, "coins") {
		return 0, false
	}
	m := costPattern.FindStringSubmatch(line)
	if len(m) < 2 {
		return 0, false
	}
	return ParseLooseInt(m[1])
}

// ParseLooseInt parses the leading integer of input after removing thousands
// separators; trailing garbage is ignored ("1,200gp" -> 1200).
func ParseLooseInt(input string) (int, bool) {
	compact := strings.ReplaceAll(strings.TrimSpace(input), ",", "")
	token := leadingDigits.FindString(compact)
	if token == "" {
		return 0, false
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseRange parses "min-max" bands; a missing or zero bound is open.
func ParseRange(input string) (min int, max int, unbounded bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, 0, true
	}
	lo, hi, _ := strings.Cut(input, "-")
	min, _ = ParseLooseInt(lo)
	max, ok := ParseLooseInt(hi)
	if !ok || max == 0 {
		return min, 0, true
	}
	return min, max, false
}
