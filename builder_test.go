package jaat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTC(requestType, tag string) *TurnContext {
	return &TurnContext{
		Ctx:         context.Background(),
		Input:       NewInput("input"),
		RequestType: requestType,
		Tag:         tag,
		Rand:        &seqRand{ints: []int{1}, floats: []float64{0.9}},
		Prefs:       map[string]any{"nickname": "Sam"},
		State:       map[string]any{},
		Meta:        map[string]any{},
	}
}

func TestTemplateSet_LookupNarrowing(t *testing.T) {
	set := NewTemplateSet().
		Handle("joke", "", Static("generic joke")).
		Handle("joke", "food", Static("food joke")).
		Fallback(Static("fallback"))

	assert.Equal(t, "food joke", set.Lookup("joke", "food")(newTC("joke", "food")))
	assert.Equal(t, "generic joke", set.Lookup("joke", "pets")(newTC("joke", "pets")))
	assert.Equal(t, "generic joke", set.Lookup("joke", "")(newTC("joke", "")))
	assert.Equal(t, "fallback", set.Lookup("advice", "")(newTC("advice", "")))
	assert.True(t, set.Has("joke"))
	assert.False(t, set.Has("advice"))
}

func TestPool_UsesInjectedRandAndPlaceholders(t *testing.T) {
	tpl := Pool("zero {tag}", "one {Tag} for {nickname}")
	assert.Equal(t, "one Food for Sam", tpl(newTC("x", "food")))
}

func TestPool_ResultIsFromKnownSet(t *testing.T) {
	options := []string{"a", "b", "c"}
	tpl := Pool(options...)
	tc := newTC("x", "")
	tc.Rand = NewRand(42)
	for i := 0; i < 20; i++ {
		assert.Contains(t, options, tpl(tc))
	}
}

func TestCompileTemplate(t *testing.T) {
	tpl, err := CompileTemplate("joke", `# {{.TopicOr "Joke"}}{{if .Chance 0.5}} (callback){{end}}
{{title "stand up comedy"}} for {{.PrefString "nickname" | default "friend"}}`)
	require.NoError(t, err)
	out := tpl(newTC("joke_request", "technology"))
	assert.Equal(t, "# Technology\nStand Up Comedy for Sam", out)

	tc := newTC("joke_request", "")
	tc.Rand = &seqRand{floats: []float64{0.1}}
	assert.Equal(t, "# Joke (callback)\nStand Up Comedy for Sam", tpl(tc))

	_, err = CompileTemplate("bad", "{{.Nope")
	assert.Error(t, err)
}

func TestBuilder_AppendsDisclaimerOnce(t *testing.T) {
	b := Builder{Disclaimer: "Just for fun.", Templates: NewTemplateSet().Fallback(Static("hello"))}
	out, err := b.Build(newTC("any", ""))
	require.NoError(t, err)
	assert.Equal(t, "hello\n\n*Just for fun.*", out)
	assert.Equal(t, out, AppendDisclaimer(out, "Just for fun."))
}

func TestBuilder_GenerationFailureFallsBack(t *testing.T) {
	failing := GeneratorFunc(func(ctx context.Context, p Prompt) (string, error) {
		return "", errors.New("backend down")
	})
	b := Builder{Disclaimer: "D", Templates: NewTemplateSet().Fallback(Static("draft")), Generator: failing}
	out, err := b.Build(newTC("any", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeneration))
	assert.True(t, strings.HasPrefix(out, GenerationFailedText))
	assert.True(t, strings.HasSuffix(out, "*D*"))
}

func TestBuilder_EmptyDraftIsAGenerationError(t *testing.T) {
	b := Builder{Disclaimer: "D", Templates: NewTemplateSet()}
	out, err := b.Build(newTC("unknown", ""))
	require.Error(t, err)
	assert.Contains(t, out, GenerationFailedText)
}

func TestBuilder_PassesContextToGenerator(t *testing.T) {
	var got Prompt
	gen := GeneratorFunc(func(ctx context.Context, p Prompt) (string, error) {
		got = p
		return "generated", nil
	})
	tc := newTC("joke_request", "food")
	tc.PersonaID = "12"
	for i := 0; i < 15; i++ {
		tc.History = append(tc.History, Turn{Role: RoleUser, Content: "t"})
	}
	b := Builder{SystemPrompt: "You are funny.", Templates: NewTemplateSet().Fallback(Static("draft")), Generator: gen, HistoryWindow: 4}
	out, err := b.Build(tc)
	require.NoError(t, err)
	assert.Equal(t, "generated", out)
	assert.Equal(t, "12", got.PersonaID)
	assert.Equal(t, "You are funny.", got.SystemPrompt)
	assert.Equal(t, "joke_request", got.RequestType)
	assert.Equal(t, "food", got.Tag)
	assert.Equal(t, "draft", got.Draft)
	assert.Len(t, got.History, 4)
	assert.Contains(t, got.Instruction(), "Focus: food")
}

func TestBuildChatMessages(t *testing.T) {
	msgs := BuildChatMessages(Prompt{
		SystemPrompt: "sys",
		History:      []Turn{{Role: RoleUser, Content: "u"}, {Role: RoleAssistant, Content: "a"}},
		Input:        "now",
		RequestType:  "joke_request",
	})
	require.Len(t, msgs, 5)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "now", msgs[4].Content)
}

func TestCapitalizeHelpers(t *testing.T) {
	assert.Equal(t, "Technology", Capitalize("technology"))
	assert.Equal(t, "", Capitalize(""))
	assert.Equal(t, "you look great", LowerFirst("You look great"))
	assert.Equal(t, "Office Life", Title("office life"))
}

func TestTurnContext_SampleAndOneOf(t *testing.T) {
	tc := &TurnContext{Rand: &seqRand{floats: []float64{0.2, 0.8}}}
	if got := tc.OneOf(0.5, "a", "b"); got != "a" {
		t.Fatalf("expected a, got %q", got)
	}
	if got := tc.OneOf(0.5, "a", "b"); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	got := tc.Sample(2, "x", "y", "z")
	if len(got) != 2 || got[0] == got[1] {
		t.Fatalf("expected 2 distinct items, got %v", got)
	}
}
