package jaat

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"text/template"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GenerationFailedText replaces the response when the Generator fails.
const GenerationFailedText = "I couldn't generate a response right now. Please try again."

// ──────────────────────────────────────────────
// TurnContext: everything a template sees for one turn
// ──────────────────────────────────────────────

// TurnContext carries one turn through hooks, templates and suggestions.
// It is only valid during ProcessInput; the owning Mode holds its lock, so
// the maps below may be read and written directly.
type TurnContext struct {
	Ctx         context.Context
	PersonaID   string
	PersonaName string
	Input       Input
	RequestType string
	Tag         string
	Rand        Rand
	Now         time.Time
	Extra       map[string]any // caller-supplied context
	Settings    map[string]any // merged mode settings
	Prefs       map[string]any // live preferences, persisted after the turn
	State       map[string]any // session-only mode state
	Meta        map[string]any // copied into Response.Meta
	Vars        map[string]any // scratch values shared by hooks and templates

	ResponseCount int
	History       []Turn
	Reply         string // set by the builder or a short-circuiting middleware

	dirty map[string]any
}

// SetPref updates a preference and schedules it for write-through.
func (tc *TurnContext) SetPref(key string, v any) {
	if tc.Prefs == nil {
		tc.Prefs = map[string]any{}
	}
	if tc.dirty == nil {
		tc.dirty = map[string]any{}
	}
	tc.Prefs[key] = v
	tc.dirty[key] = v
}

// Pref returns a preference value.
func (tc *TurnContext) Pref(key string) any { return tc.Prefs[key] }

// PrefString returns a preference as a string ("" if absent or not a string).
func (tc *TurnContext) PrefString(key string) string {
	s, _ := tc.Prefs[key].(string)
	return s
}

// PrefStrings returns a preference as a string slice, accepting decoded JSON arrays.
func (tc *TurnContext) PrefStrings(key string) []string {
	return AsStrings(tc.Prefs[key])
}

// Setting returns a boolean setting, false when unset.
func (tc *TurnContext) Setting(key string) bool {
	b, _ := tc.Settings[key].(bool)
	return b
}

// StateString returns a session state value as a string.
func (tc *TurnContext) StateString(key string) string {
	s, _ := tc.State[key].(string)
	return s
}

// Pick returns one of options uniformly at random.
func (tc *TurnContext) Pick(options ...string) string { return Pick(tc.Rand, options) }

// Chance reports true with probability p.
func (tc *TurnContext) Chance(p float64) bool { return tc.Rand.Float64() < p }

// Sample returns up to n distinct options in random order.
func (tc *TurnContext) Sample(n int, options ...string) []string { return Sample(tc.Rand, options, n) }

// OneOf returns a when Chance(p) holds, b otherwise.
func (tc *TurnContext) OneOf(p float64, a, b string) string {
	if tc.Chance(p) {
		return a
	}
	return b
}

// Capitalize upper-cases the first letter of s.
func (tc *TurnContext) Capitalize(s string) string { return Capitalize(s) }

// TopicOr returns the capitalized tag, or fallback when there is none.
func (tc *TurnContext) TopicOr(fallback string) string {
	if tc.Tag == "" {
		return fallback
	}
	return Capitalize(tc.Tag)
}

func (tc *TurnContext) dirtyPrefs() map[string]any { return tc.dirty }

// ──────────────────────────────────────────────
// Template lookup
// ──────────────────────────────────────────────

// TemplateFunc produces the draft response for a turn.
type TemplateFunc func(tc *TurnContext) string

// TemplateSet maps (request type, tag) to a template. A tag of "" matches
// any tag of that request type.
type TemplateSet struct {
	byKey    map[string]TemplateFunc
	fallback TemplateFunc
}

// NewTemplateSet creates an empty set.
func NewTemplateSet() *TemplateSet {
	return &TemplateSet{byKey: make(map[string]TemplateFunc)}
}

func templateKey(requestType, tag string) string { return requestType + "\x00" + tag }

// Handle registers fn for requestType narrowed by tag.
func (s *TemplateSet) Handle(requestType, tag string, fn TemplateFunc) *TemplateSet {
	s.byKey[templateKey(requestType, tag)] = fn
	return s
}

// Fallback sets the generic template used when nothing else matches.
func (s *TemplateSet) Fallback(fn TemplateFunc) *TemplateSet {
	s.fallback = fn
	return s
}

// Lookup narrows by tag first, then request type, then the fallback.
func (s *TemplateSet) Lookup(requestType, tag string) TemplateFunc {
	if tag != "" {
		if fn, ok := s.byKey[templateKey(requestType, tag)]; ok {
			return fn
		}
	}
	if fn, ok := s.byKey[templateKey(requestType, "")]; ok {
		return fn
	}
	return s.fallback
}

// Has reports whether requestType has any non-fallback template.
func (s *TemplateSet) Has(requestType string) bool {
	prefix := requestType + "\x00"
	for k := range s.byKey {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// Pool returns a template that picks uniformly from options and expands
// {tag}, {Tag} and {nickname} placeholders.
func Pool(options ...string) TemplateFunc {
	return func(tc *TurnContext) string {
		return ExpandPlaceholders(tc.Pick(options...), tc)
	}
}

// Static returns a template that always yields text.
func Static(text string) TemplateFunc {
	return func(*TurnContext) string { return text }
}

// ExpandPlaceholders fills {tag}, {Tag} and {nickname}.
func ExpandPlaceholders(s string, tc *TurnContext) string {
	if !strings.Contains(s, "{") {
		return s
	}
	return strings.NewReplacer(
		"{tag}", tc.Tag,
		"{Tag}", Capitalize(tc.Tag),
		"{nickname}", tc.PrefString("nickname"),
	).Replace(s)
}

// CompileTemplate parses a text/template. Templates execute against the
// TurnContext, so methods such as .Pick, .Chance and .TopicOr are available
// alongside the helper funcs title, capitalize, lower, upper, join and default.
func CompileTemplate(name, src string) (TemplateFunc, error) {
	t, err := template.New(name).Funcs(templateFuncs).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return func(tc *TurnContext) string {
		var buf bytes.Buffer
		if err := t.Execute(&buf, tc); err != nil {
			log.Printf("[Builder] template %s failed: %v", name, err)
			return ""
		}
		return strings.TrimSpace(buf.String())
	}, nil
}

var templateFuncs = template.FuncMap{
	"title":      Title,
	"capitalize": Capitalize,
	"lower":      strings.ToLower,
	"upper":      strings.ToUpper,
	"join":       func(sep string, items []string) string { return strings.Join(items, sep) },
	"default": func(def string, v string) string {
		if v == "" {
			return def
		}
		return v
	},
}

// Title title-cases every word of s. Casers keep state, so each call gets
// its own.
func Title(s string) string { return cases.Title(language.English).String(s) }

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// LowerFirst lower-cases the first rune of s.
func LowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// ──────────────────────────────────────────────
// Builder
// ──────────────────────────────────────────────

// Builder turns a classified input into response text: template lookup,
// generation through the Generator, then the disclaimer.
type Builder struct {
	SystemPrompt  string
	Disclaimer    string
	Templates     *TemplateSet
	Generator     Generator
	HistoryWindow int // turns passed to the generator, default 10
}

// Build returns the final response text. On generation failure it returns
// the retry text (with disclaimer) together with a generation error.
func (b *Builder) Build(tc *TurnContext) (string, error) {
	draft := ""
	if b.Templates != nil {
		if fn := b.Templates.Lookup(tc.RequestType, tc.Tag); fn != nil {
			draft = fn(tc)
		}
	}

	gen := b.Generator
	if gen == nil {
		gen = DraftGenerator{}
	}
	window := b.HistoryWindow
	if window <= 0 {
		window = 10
	}
	history := tc.History
	if len(history) > window {
		history = history[len(history)-window:]
	}
	ctx := tc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	text, err := gen.Generate(ctx, Prompt{
		PersonaID:    tc.PersonaID,
		PersonaName:  tc.PersonaName,
		SystemPrompt: b.SystemPrompt,
		RequestType:  tc.RequestType,
		Tag:          tc.Tag,
		Input:        tc.Input.Raw,
		History:      history,
		Draft:        draft,
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("empty response")
	}
	if err != nil {
		return AppendDisclaimer(GenerationFailedText, b.Disclaimer),
			NewError(KindGeneration, "generate", tc.RequestType, err)
	}
	return AppendDisclaimer(text, b.Disclaimer), nil
}

// AppendDisclaimer appends "\n\n*disclaimer*" unless text already ends with it.
func AppendDisclaimer(text, disclaimer string) string {
	if disclaimer == "" {
		return text
	}
	suffix := "\n\n*" + disclaimer + "*"
	if strings.HasSuffix(text, suffix) {
		return text
	}
	return text + suffix
}

// AsStrings converts []string or a decoded JSON array to []string.
func AsStrings(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
