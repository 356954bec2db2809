package search

import (
	"regexp"
	"strings"
)

var (
	reQuoted    = regexp.MustCompile(`"([^"]+)"`)
	reEnhancive = regexp.MustCompile(`^(\d+)\s+(to\s+)?(.+)$`)
)

type queryMode int

const (
	modeEmpty queryMode = iota
	modeGlob
	modeEnhancive
	modeTerms
)

// Query is a parsed free-text query. Corpora passed to Match are expected to
// be lowercase already.
type Query struct {
	phrases []string
	mode    queryMode

	glob *regexp.Regexp

	enhanciveTo    string
	enhanciveShort string

	terms []string
}

// ParseQuery understands, in order: "quoted phrases" that must all appear,
// a * wildcard glob, the enhancive shorthand "<n> [to] <ability>", and plain
// whitespace separated terms that must all appear.
func ParseQuery(input string) Query {
	q := Query{}
	s := strings.ToLower(strings.TrimSpace(input))

	for _, m := range reQuoted.FindAllStringSubmatch(s, -1) {
		q.phrases = append(q.phrases, m[1])
	}
	if len(q.phrases) > 0 {
		s = strings.TrimSpace(reQuoted.ReplaceAllString(s, ""))
	}

	switch {
	case s == "":
		q.mode = modeEmpty
	case strings.Contains(s, "*"):
		q.mode = modeGlob
		parts := strings.Split(s, "*")
		for i, part := range parts {
			parts[i] = regexp.QuoteMeta(part)
		}
		q.glob = regexp.MustCompile(`(?i)` + strings.Join(parts, ".*?"))
	case reEnhancive.MatchString(s):
		m := reEnhancive.FindStringSubmatch(s)
		q.mode = modeEnhancive
		q.enhanciveTo = m[1] + " to " + m[3]
		q.enhanciveShort = m[1] + " " + m[3]
	default:
		q.mode = modeTerms
		q.terms = strings.Fields(s)
	}
	return q
}

func (q Query) IsZero() bool {
	return len(q.phrases) == 0 && q.mode == modeEmpty
}

func (q Query) Match(corpus string) bool {
	for _, phrase := range q.phrases {
		if !strings.Contains(corpus, phrase) {
			return false
		}
	}

	switch q.mode {
	case modeGlob:
		return q.glob.MatchString(corpus)
	case modeEnhancive:
		return strings.Contains(corpus, q.enhanciveTo) || strings.Contains(corpus, q.enhanciveShort)
	case modeTerms:
		for _, term := range q.terms {
			if !strings.Contains(corpus, term) {
				return false
			}
		}
	}
	return true
}
