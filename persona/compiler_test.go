package persona

import (
	"context"
	"strings"
	"testing"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

const testYAML = `
id: "42"
name: Test Comic
icon: ri-emotion-laugh-line
max_memory_items: 6
disclaimer: Jokes are generated.
empty_input_text: Ask me for a joke.
greetings: ["Hey!"]
starters: ["Tell me a joke"]
tag_name: topic
excluded_tags_pref: avoidedTopics
request_types:
  default: general_comedy
  rules:
    - tag: knock_knock
      lua: return text:find("knock knock", 1, true) ~= nil
    - tag: joke_request
      words: [joke, jokes]
    - tag: roast
      all:
        - contains: [roast]
        - not: {words: [me]}
    - tag: custom
      ref: starts_with_hey
tags:
  capture:
    patterns: ['\babout\s+([a-z]+)']
    direct_mention: true
  vocabulary:
    terms: [technology, food]
    stop_words: [stuff]
templates:
  - request_type: joke_request
    text: 'Here is a joke about {{.TopicOr "life"}}.'
  - request_type: joke_request
    tag: food
    pool: ["Food joke about {tag}."]
  - request_type: knock_knock
    pool: ["Who's there?"]
fallback: 'Comedy time.'
suggestions:
  by_type:
    joke_request:
      - text: Another one
        with_tag: Another {tag} joke
  general: [a, b, c]
preferences:
  comedyStyle: observational
extra:
  styles: [observational, deadpan]
`

func compileTest(t *testing.T, opts ...Option) *Persona {
	t.Helper()
	def, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	opts = append(opts, WithPredicate("starts_with_hey", func(in jaat.Input) bool {
		return strings.HasPrefix(in.Text, "hey ")
	}))
	p, err := NewCompiler(opts...).Compile(def)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestCompile_RequestTypes(t *testing.T) {
	p := compileTest(t)
	cases := map[string]string{
		"knock knock, joke time": "knock_knock",
		"tell me a joke":         "joke_request",
		"roast my code":          "roast",
		"roast me":               "general_comedy",
		"hey there":              "custom",
		"what's up":              "general_comedy",
	}
	for in, want := range cases {
		if got := p.Config.RequestTypes.Classify(jaat.NewInput(in)); got != want {
			t.Errorf("%q: expected %s, got %s", in, want, got)
		}
	}
	tags := p.Config.RequestTypes.Tags()
	if tags[len(tags)-1] != "general_comedy" {
		t.Fatalf("expected default last, got %v", tags)
	}
}

func TestCompile_Defaults(t *testing.T) {
	p := compileTest(t)
	cfg := p.Config
	if cfg.Key != "jaat-mode42" || cfg.Version != "1.0.0" || cfg.MaxMemoryItems != 6 {
		t.Fatalf("unexpected defaults: key=%s version=%s max=%d", cfg.Key, cfg.Version, cfg.MaxMemoryItems)
	}
	if cfg.DefaultPreferences["comedyStyle"] != "observational" {
		t.Fatalf("preferences not carried: %v", cfg.DefaultPreferences)
	}
	var extra struct {
		Styles []string `yaml:"styles"`
	}
	if err := p.Definition.DecodeExtra(&extra); err != nil {
		t.Fatalf("decode extra: %v", err)
	}
	if len(extra.Styles) != 2 {
		t.Fatalf("expected 2 styles, got %v", extra.Styles)
	}
	if p.Hash == "" {
		t.Fatal("expected a content hash")
	}
}

func TestCompile_ModeEndToEnd(t *testing.T) {
	p := compileTest(t)
	m := jaat.NewMode(p.Config, nil)
	m.Initialize(jaat.Options{})

	resp := m.ProcessInput(context.Background(), "Tell me a joke about technology", nil)
	if resp.RequestType != "joke_request" || resp.Tag != "technology" {
		t.Fatalf("unexpected classification %s/%s", resp.RequestType, resp.Tag)
	}
	want := "Here is a joke about Technology.\n\n*Jokes are generated.*"
	if resp.Text != want {
		t.Fatalf("expected %q, got %q", want, resp.Text)
	}
	if resp.Suggestions[0] != "Another technology joke" {
		t.Fatalf("unexpected suggestions %v", resp.Suggestions)
	}
	if resp.Meta["topic"] != "technology" {
		t.Fatalf("expected topic meta, got %v", resp.Meta)
	}

	resp = m.ProcessInput(context.Background(), "a joke about food please", nil)
	if !strings.HasPrefix(resp.Text, "Food joke about food.") {
		t.Fatalf("expected tag-specific template, got %q", resp.Text)
	}

	resp = m.ProcessInput(context.Background(), "hmm", nil)
	if !strings.HasPrefix(resp.Text, "Comedy time.") {
		t.Fatalf("expected fallback, got %q", resp.Text)
	}
}

func TestCompile_GoTemplateOverridesYAML(t *testing.T) {
	p := compileTest(t, WithTemplate("joke_request", "", jaat.Static("from go")))
	fn := p.Config.Templates.Lookup("joke_request", "")
	if got := fn(&jaat.TurnContext{}); got != "from go" {
		t.Fatalf("expected Go template, got %q", got)
	}
}

func TestCompile_Errors(t *testing.T) {
	cases := map[string]string{
		"missing id":      "name: x\nrequest_types: {default: a}",
		"bad id":          "id: Bad Id\nname: x",
		"missing name":    "id: x",
		"empty predicate": "id: x\nname: x\nrequest_types:\n  rules:\n    - tag: a",
		"bad regex":       "id: x\nname: x\nrequest_types:\n  rules:\n    - tag: a\n      regex: '('",
		"unknown ref":     "id: x\nname: x\nrequest_types:\n  rules:\n    - tag: a\n      ref: nope",
		"bad lua":         "id: x\nname: x\nrequest_types:\n  rules:\n    - tag: a\n      lua: 'return ((('",
		"text and pool":   "id: x\nname: x\ntemplates:\n  - request_type: a\n    text: t\n    pool: [p]",
	}
	for name, src := range cases {
		def, err := Parse([]byte(src))
		if err != nil {
			if name == "bad id" {
				t.Fatalf("%s: unexpected parse error %v", name, err)
			}
			continue
		}
		if _, err := NewCompiler().Compile(def); err == nil {
			t.Errorf("%s: expected compile error", name)
		}
	}
}

func TestNormalize_Warnings(t *testing.T) {
	def := &Definition{
		ID:             "x",
		Name:           "X",
		MaxMemoryItems: 10000,
		Templates:      []TemplateSpec{{RequestType: "never", Text: "t"}},
	}
	got, warnings, err := Normalize(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MaxMemoryItems != maxMemoryItemsCap {
		t.Fatalf("expected cap, got %d", got.MaxMemoryItems)
	}
	if got.RequestTypes.Default != "general_conversation" {
		t.Fatalf("expected default request type, got %q", got.RequestTypes.Default)
	}
	if def.MaxMemoryItems != 10000 {
		t.Fatal("input was mutated")
	}
	fields := map[string]bool{}
	for _, w := range warnings {
		fields[w.Field] = true
	}
	for _, f := range []string{"max_memory_items", "request_types.default", "greetings", "disclaimer", "templates[0]"} {
		if !fields[f] {
			t.Errorf("expected warning for %s, got %v", f, warnings)
		}
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	if _, err := Parse([]byte("id: x\nname: x\nbogus: 1\n")); err == nil {
		t.Fatal("expected error for unknown field")
	}
	if _, err := Parse(nil); err == nil {
		t.Fatal("expected error for empty document")
	}
}
