package jaat

import (
	"log"
	"regexp"
	"strings"
)

// ──────────────────────────────────────────────
// Lexical classifier: ordered predicate rules, first match wins
// ──────────────────────────────────────────────

// Input is one user utterance as seen by predicates and extractors.
type Input struct {
	Raw  string         // original text
	Text string         // lower-cased and trimmed
	Tag  string         // secondary tag, set once extracted
	Data map[string]any // caller-supplied context (mode state snapshot, extras)
}

// NewInput normalizes raw text for classification.
func NewInput(raw string) Input {
	return Input{Raw: raw, Text: strings.ToLower(strings.TrimSpace(raw))}
}

// Predicate reports whether an input satisfies a rule.
type Predicate func(Input) bool

// Rule pairs a tag with its predicate.
type Rule struct {
	Tag   string
	Match Predicate
}

// RuleTable is an ordered rule list with a default tag.
// Order is semantic: earlier rules shadow later ones.
type RuleTable struct {
	Rules   []Rule
	Default string
}

// NewRuleTable creates a table with the given default.
func NewRuleTable(def string, rules ...Rule) *RuleTable {
	return &RuleTable{Rules: rules, Default: def}
}

// Add appends a rule and returns the table for chaining.
func (t *RuleTable) Add(tag string, match Predicate) *RuleTable {
	t.Rules = append(t.Rules, Rule{Tag: tag, Match: match})
	return t
}

// Classify returns the tag of the first matching rule, or Default.
func (t *RuleTable) Classify(in Input) string {
	tag, _ := t.Match(in)
	return tag
}

// Match is Classify plus the index of the winning rule (-1 for the default).
func (t *RuleTable) Match(in Input) (string, int) {
	for i, r := range t.Rules {
		if r.Match != nil && r.Match(in) {
			return r.Tag, i
		}
	}
	return t.Default, -1
}

// Tags lists every tag the table can produce, in rule order, default last.
func (t *RuleTable) Tags() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Rules {
		if !seen[r.Tag] {
			seen[r.Tag] = true
			out = append(out, r.Tag)
		}
	}
	if t.Default != "" && !seen[t.Default] {
		out = append(out, t.Default)
	}
	return out
}

// ──────────────────────────────────────────────
// Predicate constructors
// ──────────────────────────────────────────────

// Regexp matches the normalized text against pattern (case-insensitive).
// It panics on an invalid pattern, like regexp.MustCompile.
func Regexp(pattern string) Predicate {
	re := regexp.MustCompile("(?i)" + pattern)
	return func(in Input) bool { return re.MatchString(in.Text) }
}

// ContainsAny matches when the normalized text contains any of the substrings.
func ContainsAny(subs ...string) Predicate {
	lowered := lowerAll(subs)
	return func(in Input) bool {
		for _, s := range lowered {
			if s != "" && strings.Contains(in.Text, s) {
				return true
			}
		}
		return false
	}
}

// WordsAny matches when any of the phrases appears on word boundaries.
func WordsAny(words ...string) Predicate {
	if len(words) == 0 {
		return func(Input) bool { return false }
	}
	return Regexp(WordsPattern(words...))
}

// WordsPattern builds `\b(?:w1|w2|...)\b` with each word quoted.
func WordsPattern(words ...string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(w))
	}
	return `\b(?:` + strings.Join(quoted, "|") + `)\b`
}

// AllOf matches when every predicate matches.
func AllOf(ps ...Predicate) Predicate {
	return func(in Input) bool {
		for _, p := range ps {
			if !p(in) {
				return false
			}
		}
		return len(ps) > 0
	}
}

// AnyOf matches when at least one predicate matches.
func AnyOf(ps ...Predicate) Predicate {
	return func(in Input) bool {
		for _, p := range ps {
			if p(in) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(in Input) bool { return !p(in) }
}

// TagIn matches when the already extracted secondary tag is one of tags.
func TagIn(tags ...string) Predicate {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return func(in Input) bool { return in.Tag != "" && set[in.Tag] }
}

// Always matches every input.
func Always() Predicate { return func(Input) bool { return true } }

// ──────────────────────────────────────────────
// Secondary tag extraction
// ──────────────────────────────────────────────

// TagExtractor pulls an optional secondary tag (topic, emotion, language...)
// out of an input. An empty result means no tag.
type TagExtractor interface {
	Extract(in Input, excluded []string) string
}

// TagTable is an ordered rule list whose default is "no tag".
type TagTable struct {
	Rules []Rule
}

func (t *TagTable) Extract(in Input, _ []string) string {
	for _, r := range t.Rules {
		if r.Match != nil && r.Match(in) {
			return r.Tag
		}
	}
	return ""
}

// CaptureExtractor runs capture patterns in order and resolves the first
// capture through a Vocabulary. When no capture resolves, it falls back to
// a direct word-boundary mention of any vocabulary term.
type CaptureExtractor struct {
	Patterns      []*regexp.Regexp
	Vocabulary    *Vocabulary
	DirectMention bool
}

// NewCaptureExtractor compiles the patterns case-insensitively.
func NewCaptureExtractor(vocab *Vocabulary, directMention bool, patterns ...string) *CaptureExtractor {
	ce := &CaptureExtractor{Vocabulary: vocab, DirectMention: directMention}
	for _, p := range patterns {
		ce.Patterns = append(ce.Patterns, regexp.MustCompile("(?i)"+p))
	}
	return ce
}

func (c *CaptureExtractor) Extract(in Input, excluded []string) string {
	for _, re := range c.Patterns {
		m := re.FindStringSubmatch(in.Text)
		if len(m) < 2 || m[1] == "" {
			continue
		}
		if c.Vocabulary == nil {
			return strings.TrimSpace(m[1])
		}
		if tag, ok := c.Vocabulary.Resolve(m[1], excluded); ok {
			return tag
		}
	}
	if c.DirectMention && c.Vocabulary != nil {
		return c.Vocabulary.Mentioned(in.Text, excluded)
	}
	return ""
}

// LookupExtractor maps a captured word to a tag through an exact lookup table,
// e.g. "i feel sad" -> sadness.
type LookupExtractor struct {
	Pattern *regexp.Regexp
	Table   map[string]string
}

// NewLookupExtractor compiles pattern case-insensitively.
func NewLookupExtractor(pattern string, table map[string]string) *LookupExtractor {
	return &LookupExtractor{Pattern: regexp.MustCompile("(?i)" + pattern), Table: table}
}

func (l *LookupExtractor) Extract(in Input, _ []string) string {
	m := l.Pattern.FindStringSubmatch(in.Text)
	if len(m) < 2 {
		return ""
	}
	return l.Table[strings.TrimSpace(m[len(m)-1])]
}

// ChainExtractor returns the first non-empty tag of its members.
type ChainExtractor []TagExtractor

func (c ChainExtractor) Extract(in Input, excluded []string) string {
	for _, e := range c {
		if e == nil {
			continue
		}
		if tag := e.Extract(in, excluded); tag != "" {
			return tag
		}
	}
	return ""
}

// ExtractorFunc adapts a function to TagExtractor.
type ExtractorFunc func(in Input, excluded []string) string

func (f ExtractorFunc) Extract(in Input, excluded []string) string { return f(in, excluded) }

var (
	_ TagExtractor = (*TagTable)(nil)
	_ TagExtractor = (*CaptureExtractor)(nil)
	_ TagExtractor = (*LookupExtractor)(nil)
	_ TagExtractor = ChainExtractor(nil)
	_ TagExtractor = ExtractorFunc(nil)
)

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func logClassifierf(format string, args ...any) {
	log.Printf("[Classifier] "+format, args...)
}
