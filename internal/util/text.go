package util

import (
	"regexp"
	"strings"
)

var (
	reTrailingComma = regexp.MustCompile(`,\s*$`)
	reWrittenOn     = regexp.MustCompile(`^Written on`)
	reLocatedIn     = regexp.MustCompile(`is located in \[([^\]]+)\]`)
)

// CleanTown strips the trailing comma some exporters leave on town names.
func CleanTown(input string) string {
	return reTrailingComma.ReplaceAllString(input, "")
}

// SignText joins sign lines with single spaces, dropping the "Written on ..."
// header line.
func SignText(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if reWrittenOn.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

// LocatedIn pulls "East Row, Ebonwood Way" out of a shop preamble.
func LocatedIn(preamble string) string {
	m := reLocatedIn.FindStringSubmatch(preamble)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func ContainsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
