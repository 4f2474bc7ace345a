package jaat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ══════════════════════════════════════════════
// RuleTable
// ══════════════════════════════════════════════

func TestRuleTable_FirstMatchWins(t *testing.T) {
	table := NewRuleTable("other",
		Rule{Tag: "greeting", Match: WordsAny("hello", "hi")},
		Rule{Tag: "question", Match: ContainsAny("?")},
	)
	cases := map[string]string{
		"Hello there":   "greeting",
		"hi, why?":      "greeting",
		"why is that?":  "question",
		"nothing here":  "other",
		"this is hippo": "other",
	}
	for input, want := range cases {
		if got := table.Classify(NewInput(input)); got != want {
			t.Fatalf("%q: expected %s, got %s", input, want, got)
		}
	}
}

func TestRuleTable_NonOverlappingReorderIsStable(t *testing.T) {
	a := Rule{Tag: "a", Match: WordsAny("apple")}
	b := Rule{Tag: "b", Match: WordsAny("banana")}
	t1 := NewRuleTable("none", a, b)
	t2 := NewRuleTable("none", b, a)
	for _, in := range []string{"an apple", "a banana", "cherry"} {
		if t1.Classify(NewInput(in)) != t2.Classify(NewInput(in)) {
			t.Fatalf("reordering disjoint rules changed %q", in)
		}
	}
}

func TestRuleTable_OverlappingReorderChangesResult(t *testing.T) {
	specific := Rule{Tag: "joke_request", Match: Regexp(`\btell\s+(?:me\s+)?a\s+joke\b`)}
	general := Rule{Tag: "chat", Match: WordsAny("tell")}
	in := NewInput("Tell me a joke")
	if got := NewRuleTable("x", specific, general).Classify(in); got != "joke_request" {
		t.Fatalf("expected joke_request, got %s", got)
	}
	if got := NewRuleTable("x", general, specific).Classify(in); got != "chat" {
		t.Fatalf("expected chat once the general rule comes first, got %s", got)
	}
}

func TestRuleTable_MatchIndexAndTags(t *testing.T) {
	table := NewRuleTable("def").Add("a", ContainsAny("x")).Add("b", ContainsAny("y")).Add("a", ContainsAny("z"))
	if tag, idx := table.Match(NewInput("y")); tag != "b" || idx != 1 {
		t.Fatalf("expected b@1, got %s@%d", tag, idx)
	}
	if _, idx := table.Match(NewInput("q")); idx != -1 {
		t.Fatalf("expected default index -1, got %d", idx)
	}
	tags := table.Tags()
	if strings.Join(tags, ",") != "a,b,def" {
		t.Fatalf("unexpected tags %v", tags)
	}
}

func TestPredicates_Combinators(t *testing.T) {
	routine := AllOf(WordsAny("routine", "set"), WordsAny("develop", "build"))
	if !routine(NewInput("Help me BUILD a routine")) {
		t.Fatal("expected AllOf to match")
	}
	if routine(NewInput("a routine")) {
		t.Fatal("AllOf should need both")
	}
	if AllOf()(NewInput("x")) {
		t.Fatal("empty AllOf should not match")
	}
	if !AnyOf(ContainsAny("q"), ContainsAny("x"))(NewInput("x")) {
		t.Fatal("expected AnyOf to match")
	}
	if Not(Always())(NewInput("x")) {
		t.Fatal("Not(Always) matched")
	}
	in := NewInput("anything")
	in.Tag = "stress"
	if !TagIn("stress", "sadness")(in) || TagIn("joy")(in) {
		t.Fatal("TagIn mismatch")
	}
}

func TestWordsAny_RespectsBoundaries(t *testing.T) {
	p := WordsAny("set", "one-liner")
	if p(NewInput("a settlement")) {
		t.Fatal("matched inside a word")
	}
	if !p(NewInput("give me a one-liner")) {
		t.Fatal("expected hyphenated phrase to match")
	}
}

// ══════════════════════════════════════════════
// Tag extraction
// ══════════════════════════════════════════════

func topicExtractor() *CaptureExtractor {
	vocab := NewVocabulary([]string{"technology", "food", "pets", "work"},
		"joke", "jokes", "funny", "humor", "comedy", "about", "something", "anything", "nothing", "stuff", "thing")
	return NewCaptureExtractor(vocab, true,
		`\b(?:about|on|regarding)\s+([a-z]+(?:\s+[a-z]+)?)`)
}

func TestCaptureExtractor_Vocabulary(t *testing.T) {
	e := topicExtractor()
	cases := map[string]string{
		"Tell me a joke about technology": "technology",
		"something about my pets please":  "pets",
		"jokes about gardening":           "gardening",
		"a joke about stuff":              "",
		"I love food":                     "food",
		"no topic here":                   "",
		"tell me something about zoo":     "zoo",
		"jokes about foo":                 "food",
		"joke about ai":                   "",
	}
	for in, want := range cases {
		if got := e.Extract(NewInput(in), nil); got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestCaptureExtractor_Excluded(t *testing.T) {
	e := topicExtractor()
	if got := e.Extract(NewInput("a joke about gardening"), []string{"gardening"}); got != "" {
		t.Fatalf("excluded free text accepted: %q", got)
	}
	if got := e.Extract(NewInput("work is funny"), []string{"work"}); got != "" {
		t.Fatalf("excluded direct mention accepted: %q", got)
	}
}

func TestVocabulary_ReverseContainmentNeedsMinLength(t *testing.T) {
	v := NewVocabulary([]string{"technology"})
	v.AllowFreeText = false
	if got, ok := v.Resolve("te", nil); ok {
		t.Fatalf("short candidate resolved to %q", got)
	}
	if got, _ := v.Resolve("tech", nil); got != "technology" {
		t.Fatalf("expected technology, got %q", got)
	}
	if got, _ := v.Resolve("technology stocks", nil); got != "technology" {
		t.Fatalf("expected technology, got %q", got)
	}
}

func TestVocabulary_ExcludedTermsNeverResolve(t *testing.T) {
	v := NewVocabulary([]string{"technology", "food"})
	if got, ok := v.Resolve("food", []string{"food"}); ok {
		t.Fatalf("excluded term resolved to %q", got)
	}
	if got, _ := v.Resolve("fast food", []string{"food"}); got == "food" {
		t.Fatal("excluded containment resolved to food")
	}
	if got, _ := v.Resolve("food", []string{"technology"}); got != "food" {
		t.Fatalf("expected food, got %q", got)
	}
}

func TestLookupAndChainExtractor(t *testing.T) {
	lookup := NewLookupExtractor(`\bi (?:feel|am|am feeling) (\w+)`, map[string]string{"sad": "sadness"})
	keywords := &TagTable{Rules: []Rule{{Tag: "stress", Match: WordsAny("stressed", "overwhelmed")}}}
	chain := ChainExtractor{keywords, lookup}

	if got := chain.Extract(NewInput("I'm really stressed about work"), nil); got != "stress" {
		t.Fatalf("expected stress, got %q", got)
	}
	if got := chain.Extract(NewInput("I feel sad today"), nil); got != "sadness" {
		t.Fatalf("expected sadness, got %q", got)
	}
	if got := chain.Extract(NewInput("I feel purple"), nil); got != "" {
		t.Fatalf("expected no tag, got %q", got)
	}
}

// ══════════════════════════════════════════════
// Lua rules
// ══════════════════════════════════════════════

func TestLuaRule_BodyAndFunction(t *testing.T) {
	body, err := NewLuaRule("knock", `return string.find(text, "knock knock", 1, true) ~= nil`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer body.Close()
	if !body.Predicate()(NewInput("Knock Knock, who's there")) {
		t.Fatal("expected match")
	}
	if body.Predicate()(NewInput("hello")) {
		t.Fatal("unexpected match")
	}

	fn, err := NewLuaRule("tagged", "function match(text, raw, tag)\n  return tag == 'food'\nend")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer fn.Close()
	in := NewInput("anything")
	in.Tag = "food"
	if !fn.Predicate()(in) {
		t.Fatal("expected tag match")
	}
}

func TestLuaRule_Sandbox(t *testing.T) {
	r, err := NewLuaRule("env", `return os == nil and io == nil and dofile == nil and loadfile == nil and load == nil and require == nil`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer r.Close()
	if !r.Predicate()(NewInput("x")) {
		t.Fatal("os, io and code loading must not be reachable")
	}

	marker := filepath.Join(t.TempDir(), "touched")
	script := "function match(text) return false end\nos.execute('touch " + marker + "')"
	if _, err := NewLuaRule("upload", script); err == nil {
		t.Fatal("top-level os.execute should fail to compile")
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Fatalf("script reached the shell: %v", err)
	}
}

func TestLuaRule_RunawayLoop(t *testing.T) {
	prev := LuaTimeout
	LuaTimeout = 20 * time.Millisecond
	defer func() { LuaTimeout = prev }()

	r, err := NewLuaRule("spin", `while true do end`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer r.Close()

	start := time.Now()
	if r.Predicate()(NewInput("x")) {
		t.Fatal("runaway script should count as no match")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("evaluation was not stopped, took %s", elapsed)
	}

	if _, err := NewLuaRule("spin-init", "function match() return true end\nwhile true do end"); err == nil {
		t.Fatal("runaway top-level code should fail to compile")
	}
}

func TestLuaRule_Errors(t *testing.T) {
	if _, err := NewLuaRule("bad", "return ((("); err == nil {
		t.Fatal("expected syntax error")
	}
	r, err := NewLuaRule("boom", `error("boom")`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer r.Close()
	if r.Predicate()(NewInput("x")) {
		t.Fatal("runtime error should count as no match")
	}
	r.Close()
	if _, err := r.Eval(NewInput("x")); err == nil {
		t.Fatal("expected closed error")
	}
}
