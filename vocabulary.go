package jaat

import (
	"regexp"
	"strings"
	"sync"
)

// Vocabulary validates captured candidates against a known term list.
type Vocabulary struct {
	Terms         []string
	MinLength     int      // minimum free-text length; also gates reverse containment
	StopWords     []string // candidates never accepted as free text
	AllowFreeText bool

	once     sync.Once
	mentions []*regexp.Regexp
	stops    map[string]bool
}

// NewVocabulary creates a vocabulary with MinLength 3 and free text allowed.
func NewVocabulary(terms []string, stopWords ...string) *Vocabulary {
	return &Vocabulary{Terms: terms, MinLength: 3, StopWords: stopWords, AllowFreeText: true}
}

func (v *Vocabulary) init() {
	v.once.Do(func() {
		v.stops = make(map[string]bool, len(v.StopWords))
		for _, s := range v.StopWords {
			v.stops[strings.ToLower(s)] = true
		}
		v.mentions = make([]*regexp.Regexp, len(v.Terms))
		for i, t := range v.Terms {
			v.mentions[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t) + `\b`)
		}
	})
}

// Resolve maps a candidate to a tag:
//  1. exact term
//  2. containment in either direction (candidate inside term needs MinLength)
//  3. the candidate itself, when free text is allowed and it is long enough
//     and not a stop word
//
// Excluded terms never resolve.
func (v *Vocabulary) Resolve(candidate string, excluded []string) (string, bool) {
	v.init()
	c := strings.ToLower(strings.TrimSpace(candidate))
	if c == "" {
		return "", false
	}
	if containsString(excluded, c) {
		return "", false
	}
	for _, t := range v.Terms {
		if c == t {
			return t, true
		}
	}
	for _, t := range v.Terms {
		if containsString(excluded, t) {
			continue
		}
		if strings.Contains(c, t) {
			return t, true
		}
		if len(c) >= v.MinLength && strings.Contains(t, c) {
			return t, true
		}
	}
	if v.AllowFreeText && len(c) >= v.MinLength && !v.stops[c] {
		return c, true
	}
	return "", false
}

// Mentioned returns the first term that appears as a whole word in text and
// is not excluded.
func (v *Vocabulary) Mentioned(text string, excluded []string) string {
	v.init()
	for i, re := range v.mentions {
		if re.MatchString(text) && !containsString(excluded, v.Terms[i]) {
			return v.Terms[i]
		}
	}
	return ""
}

// Contains reports whether term is part of the vocabulary.
func (v *Vocabulary) Contains(term string) bool {
	return containsString(v.Terms, strings.ToLower(term))
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
