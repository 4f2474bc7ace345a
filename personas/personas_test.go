package personas

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/persona"
)

// fixedRand always picks index i (mod n) and draws f.
type fixedRand struct {
	i int
	f float64
}

func (r fixedRand) Intn(n int) int   { return r.i % n }
func (r fixedRand) Float64() float64 { return r.f }

func builtins(t *testing.T, opts ...jaat.ModeOption) (*jaat.Registry, *persona.Library) {
	t.Helper()
	reg := jaat.NewRegistry(jaat.NewInMemoryKVStore(), opts...)
	lib := persona.NewLibrary(reg, nil)
	require.NoError(t, Register(lib))
	t.Cleanup(lib.Close)
	return reg, lib
}

func modeFor(t *testing.T, reg *jaat.Registry, id string) *jaat.Mode {
	t.Helper()
	m, err := reg.Mode("user-1", id)
	require.NoError(t, err)
	return m
}

func definition(t *testing.T, id string) *persona.Definition {
	t.Helper()
	defs, err := Definitions()
	require.NoError(t, err)
	for _, d := range defs {
		if d.ID == id {
			return d
		}
	}
	t.Fatalf("no built-in definition %s", id)
	return nil
}

func TestDefinitions_AllCompile(t *testing.T) {
	defs, err := Definitions()
	require.NoError(t, err)
	require.Len(t, defs, 3)

	reg, lib := builtins(t)
	assert.Equal(t, []string{"12", "16", "17"}, reg.IDs())
	assert.Equal(t, []string{"12", "16", "17"}, lib.IDs())
	for _, id := range lib.IDs() {
		p, ok := lib.Get(id)
		require.True(t, ok)
		assert.Empty(t, p.Warnings, "persona %s", id)
	}
}

// ──────────────────────────────────────────────
// Standup comic
// ──────────────────────────────────────────────

const comicDisclaimer = "\n\n*Humor is subjective. These jokes and comedy suggestions are offered as creative starting points rather than guaranteed laugh generators.*"

func TestComic_JokeAboutTechnology(t *testing.T) {
	reg, _ := builtins(t)
	m := modeFor(t, reg, ComicID)

	resp := m.ProcessInput(context.Background(), "Tell me a joke about technology", nil)
	assert.Equal(t, "joke_request", resp.RequestType)
	assert.Equal(t, "technology", resp.Tag)
	assert.Equal(t, "technology", resp.Meta["topic"])
	assert.Equal(t, "observational", resp.Meta["comedyStyle"])
	assert.Contains(t, resp.Text, "technology")
	assert.Contains(t, resp.Text, "# Comedy Creation: Technology Joke in Observational Comedy Style")
	assert.True(t, strings.HasSuffix(resp.Text, comicDisclaimer))
	assert.Contains(t, resp.Suggestions, "Tell me another joke about technology")
	assert.Len(t, resp.Suggestions, 3)

	assert.Equal(t, []string{"technology"}, jaat.AsStrings(m.Preference("comedyTopics")))
	m.ProcessInput(context.Background(), "Another joke about technology please", nil)
	assert.Equal(t, []string{"technology"}, jaat.AsStrings(m.Preference("comedyTopics")))
}

func TestComic_RequestTypes(t *testing.T) {
	reg, _ := builtins(t)
	m := modeFor(t, reg, ComicID)

	cases := []struct {
		in, want, marker string
	}{
		{"Give me some absurdist humor", "style_specific_request", "# Absurdist Humor Comedy"},
		{"Help me build a standup routine about travel", "routine_development", "# Standup Comedy Routine Development"},
		{"How do I write better jokes?", "comedy_writing_advice", "# Comedy Writing Guide"},
		{"Why is this funny?", "humor_analysis", ""},
		{"Who is the greatest comedian ever?", "comedian_information", ""},
		{"Give me your best one-liner", "joke_request", "One-Liners Style"},
	}
	for _, tc := range cases {
		resp := m.ProcessInput(context.Background(), tc.in, nil)
		assert.Equal(t, tc.want, resp.RequestType, tc.in)
		if tc.marker != "" {
			assert.Contains(t, resp.Text, tc.marker, tc.in)
		}
		assert.True(t, strings.HasSuffix(resp.Text, comicDisclaimer), tc.in)
	}
}

func TestComic_StyleRequestPersists(t *testing.T) {
	reg, _ := builtins(t)
	m := modeFor(t, reg, ComicID)

	resp := m.ProcessInput(context.Background(), "I want some satirical comedy", nil)
	assert.Equal(t, "style_specific_request", resp.RequestType)
	assert.Equal(t, "satirical", m.Preference("comedyStyle"))
	assert.Equal(t, "satirical", resp.Meta["comedyStyle"])
	assert.Contains(t, resp.Text, "George Carlin, Jon Stewart, John Oliver")

	resp = m.ProcessInput(context.Background(), "tell me a joke", nil)
	assert.Contains(t, resp.Text, "in Satirical Comedy Style")
}

func TestComic_RoutineUsesTopicAndStyle(t *testing.T) {
	reg, _ := builtins(t)
	m := modeFor(t, reg, ComicID)

	resp := m.ProcessInput(context.Background(), "Help me build a standup routine about travel", nil)
	assert.Equal(t, "travel", resp.Tag)
	assert.Contains(t, resp.Text, "focused on travel in the Observational Comedy style")
	assert.Contains(t, resp.Text, "**Segment 1**: Travel introduction")
	assert.NotContains(t, resp.Text, "<no value>")
}

func TestComic_CallbackAfterThirdResponse(t *testing.T) {
	reg, _ := builtins(t, jaat.WithRand(fixedRand{f: 0.9}))
	m := modeFor(t, reg, ComicID)

	var texts []string
	for i := 0; i < 4; i++ {
		texts = append(texts, m.ProcessInput(context.Background(), "tell me a joke", nil).Text)
	}
	assert.NotContains(t, texts[0], "[Tag/Callback]")
	assert.NotContains(t, texts[2], "[Tag/Callback]")
	assert.Contains(t, texts[3], "[Tag/Callback]")
	assert.Contains(t, texts[3], "Callback to previous joke/conversation")
}

func TestComic_NoCallbackWhenDisabled(t *testing.T) {
	reg, _ := builtins(t, jaat.WithRand(fixedRand{f: 0.9}))
	reg.SetInitOptions(jaat.Options{Settings: map[string]any{"callbacksEnabled": false}})
	m := modeFor(t, reg, ComicID)
	for i := 0; i < 4; i++ {
		resp := m.ProcessInput(context.Background(), "tell me a joke", nil)
		assert.NotContains(t, resp.Text, "[Tag/Callback]")
	}
}

func TestComic_Setters(t *testing.T) {
	reg, _ := builtins(t)
	m := modeFor(t, reg, ComicID)

	assert.True(t, AddAvoidedTopic(m, "Food"))
	assert.False(t, AddAvoidedTopic(m, "food"))
	assert.False(t, AddAvoidedTopic(m, " "))
	resp := m.ProcessInput(context.Background(), "Tell me a joke about food", nil)
	assert.Empty(t, resp.Tag)

	assert.True(t, SaveJoke(m, SavedJoke{Text: "The rotation of Earth really makes my day."}))
	assert.False(t, SaveJoke(m, SavedJoke{}))
	assert.True(t, SetTonePreference(m, "edgy"))
	assert.False(t, SetComedyStyle(m, ""))
	assert.True(t, SetComedyStyle(m, "one_liner"))

	info := m.ModeInfo()
	assert.Equal(t, 1, info.Details["jokeCount"])
	assert.Equal(t, "edgy", info.Details["tonePreference"])
	assert.Equal(t, "one_liner", info.Details["comedyStyle"])
	assert.Len(t, info.Suggestions, 10)
}

func TestComic_MentionedStyle(t *testing.T) {
	c, err := NewComic(definition(t, ComicID))
	require.NoError(t, err)
	assert.Equal(t, "one_liner", c.MentionedStyle("write a ONE LINER"))
	assert.Equal(t, "self_deprecating", c.MentionedStyle("some self deprecating stuff"))
	assert.Equal(t, "character", c.MentionedStyle("character comedy please"))
	assert.Empty(t, c.MentionedStyle("a joke about cats"))
	assert.Equal(t, "observational", c.Style("unknown").Key)
}

// ──────────────────────────────────────────────
// Companions
// ──────────────────────────────────────────────

func TestCompanion_StressedGetsSupport(t *testing.T) {
	c, err := NewCompanion(definition(t, GirlfriendID))
	require.NoError(t, err)
	reg, _ := builtins(t)
	m := modeFor(t, reg, GirlfriendID)

	resp := m.ProcessInput(context.Background(), "I'm really stressed about work", nil)
	assert.Equal(t, "emotional_support", resp.RequestType)
	assert.Equal(t, "stress", resp.Tag)
	assert.Equal(t, "stress", resp.Meta["emotion"])

	fromPool := false
	for _, line := range c.tables.Support["stress"] {
		if strings.HasPrefix(resp.Text, line) {
			fromPool = true
		}
	}
	assert.True(t, fromPool, resp.Text)
	assert.True(t, strings.HasSuffix(resp.Text, "designed to provide supportive, friendship-like interactions.*"))
	assert.Contains(t, resp.Suggestions, "I need to talk about something difficult")
}

func TestCompanion_EmotionDetection(t *testing.T) {
	reg, _ := builtins(t)
	m := modeFor(t, reg, BoyfriendID)

	cases := []struct {
		in, emotion, requestType string
	}{
		{"i feel lonely", "sadness", "emotional_support"},
		{"I am feeling on edge", "anxiety", "emotional_support"},
		{"I'm ecstatic!", "excitement", "emotional_response"},
		{"This is awesome news", "excitement", "emotional_response"},
		{"how are you?", "", "companion_check_in"},
		{"what should i do about my job", "", "advice_request"},
		{"let's play a game", "", "activity_request"},
		{"cheer me up", "", "affirmation_request"},
		{"I was thinking of you", "", "affection_expression"},
		{"the weather is nice", "", "casual_conversation"},
	}
	for _, tc := range cases {
		resp := m.ProcessInput(context.Background(), tc.in, nil)
		assert.Equal(t, tc.emotion, resp.Tag, tc.in)
		assert.Equal(t, tc.requestType, resp.RequestType, tc.in)
		assert.NotEmpty(t, strings.TrimSpace(strings.SplitN(resp.Text, "\n\n*", 2)[0]), tc.in)
	}
}

func TestCompanion_InterestsAccumulate(t *testing.T) {
	c, err := NewCompanion(definition(t, GirlfriendID))
	require.NoError(t, err)
	assert.Equal(t, []string{"hiking"}, c.ExtractInterests("i love hiking a lot."))
	assert.Equal(t, []string{"piano"}, c.ExtractInterests("i play the piano"))
	assert.Empty(t, c.ExtractInterests("i like it"))

	reg, _ := builtins(t)
	m := modeFor(t, reg, GirlfriendID)
	m.ProcessInput(context.Background(), "I love hiking a lot.", nil)
	m.ProcessInput(context.Background(), "I love hiking", nil)
	m.ProcessInput(context.Background(), "My hobby is painting", nil)
	assert.Equal(t, []string{"hiking", "painting"}, jaat.AsStrings(m.Preference("userInterests")))
	assert.Equal(t, []string{"hiking", "painting"}, m.ModeInfo().Details["userInterests"])
}

func TestCompanion_CasualReferencesInterest(t *testing.T) {
	reg, _ := builtins(t, jaat.WithRand(fixedRand{f: 0.9}))
	reg.SetInitOptions(jaat.Options{Preferences: map[string]any{"userInterests": []any{"chess"}}})
	m := modeFor(t, reg, GirlfriendID)
	resp := m.ProcessInput(context.Background(), "the weather is nice", nil)
	assert.Contains(t, resp.Text, "chess")
}

func TestCompanion_NicknameGreetingAndSeason(t *testing.T) {
	july := time.Date(2024, 7, 10, 9, 0, 0, 0, time.UTC)
	_, lib := builtins(t)
	p, _ := lib.Get(GirlfriendID)
	m := jaat.NewMode(p.Config, jaat.NewPreferenceStore(jaat.NewInMemoryKVStore(), "u"),
		jaat.WithRand(fixedRand{i: 2}), jaat.WithClock(func() time.Time { return july }))
	require.True(t, m.Initialize(jaat.Options{}))

	assert.False(t, SetUserNickname(m, ""))
	require.True(t, SetUserNickname(m, "Sam"))
	assert.Equal(t, "Hey, Sam! So good to see you. What's been happening in your world?", m.GetGreeting())

	resp := m.ProcessInput(context.Background(), "how are you", nil)
	assert.True(t, strings.HasPrefix(resp.Text, "I'm great! If I were real, I imagine I'd be enjoying summer right now."), resp.Text)
}

func TestCompanion_SharingAndMemories(t *testing.T) {
	reg, _ := builtins(t)
	m := modeFor(t, reg, GirlfriendID)

	resp := m.ProcessInput(context.Background(), "I finished my first marathon today!", nil)
	assert.Equal(t, "user_sharing", resp.RequestType)
	assert.Equal(t, 1, m.ModeInfo().Details["sharedMemoriesCount"])

	long := "I want to tell you " + strings.Repeat("x", 120)
	for i := 0; i < MaxSharedMemories+5; i++ {
		m.ProcessInput(context.Background(), long, nil)
	}
	memories, _ := m.Preference("sharedMemories").([]any)
	require.Len(t, memories, MaxSharedMemories)
	last, ok := memories[len(memories)-1].(SharedMemory)
	require.True(t, ok)
	assert.Len(t, last.Content, memoryPreviewLen+3)
	assert.True(t, strings.HasSuffix(last.Content, "..."))
	assert.Equal(t, "information", last.Type)
}

func TestCompanion_RelationshipDuration(t *testing.T) {
	_, lib := builtins(t)
	p, _ := lib.Get(BoyfriendID)
	kv := jaat.NewInMemoryKVStore()
	day1 := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

	m1 := jaat.NewMode(p.Config, jaat.NewPreferenceStore(kv, "u"), jaat.WithClock(func() time.Time { return day1 }))
	m1.Initialize(jaat.Options{})
	assert.Equal(t, 1, m1.ModeInfo().Details["relationshipDuration"])

	later := day1.AddDate(0, 0, 10)
	m2 := jaat.NewMode(p.Config, jaat.NewPreferenceStore(kv, "u"),
		jaat.WithClock(func() time.Time { return later }), jaat.WithRand(fixedRand{}))
	m2.Initialize(jaat.Options{})
	assert.Equal(t, 11, m2.ModeInfo().Details["relationshipDuration"])

	resp := m2.ProcessInput(context.Background(), "I miss you", nil)
	assert.Equal(t, "affection_expression", resp.RequestType)
	assert.Contains(t, resp.Text, "Even though it hasn't been long, I've enjoyed our time together.")
}

func TestCompanion_Setters(t *testing.T) {
	reg, _ := builtins(t)
	m := modeFor(t, reg, BoyfriendID)

	assert.False(t, SetUserBirthday(m, "03/01/1990"))
	assert.True(t, SetUserBirthday(m, "1990-03-01"))
	assert.Equal(t, "1990-03-01", m.Preference("userBirthday"))

	assert.True(t, AddSpecialDate(m, SpecialDate{Date: "2024-02-14", Description: "First chat", Type: "milestone"}))
	assert.True(t, AddSpecialDate(m, SpecialDate{Date: "2024-06-01", Description: "Graduation", Type: "user"}))
	assert.False(t, AddSpecialDate(m, SpecialDate{Date: "2024-06-01", Description: "x", Type: "other"}))
	assert.False(t, AddSpecialDate(m, SpecialDate{Type: "user"}))
	dates, ok := m.Preference("specialDates").(map[string]any)
	require.True(t, ok)
	assert.Len(t, dates["relationship_milestones"], 1)
	assert.Len(t, dates["user_important_dates"], 1)

	assert.False(t, UpdateMood(m, ""))
	assert.True(t, UpdateMood(m, "playful"))
	assert.Equal(t, "playful", m.ModeInfo().Details["moodCurrent"])
}

func TestSeason(t *testing.T) {
	assert.Equal(t, "winter", Season(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "spring", Season(time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "summer", Season(time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "fall", Season(time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "winter", Season(time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC)))
}
