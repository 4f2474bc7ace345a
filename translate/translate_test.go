package translate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/panel"
)

type capture struct {
	reply string
	err   error

	mu      sync.Mutex
	prompts []string
}

func (c *capture) Send(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	return c.reply, c.err
}

var fixed = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newSession(t *testing.T, kv jaat.KVStore, sender Sender) *Session {
	t.Helper()
	return New(jaat.NewPreferenceStore(kv, "u1"), sender, WithClock(func() time.Time { return fixed }))
}

func TestLanguages(t *testing.T) {
	assert.Len(t, Languages, 30)
	seen := map[string]bool{}
	for _, l := range Languages {
		assert.False(t, seen[l.Code], "duplicate %s", l.Code)
		seen[l.Code] = true
	}
	assert.Equal(t, "Japanese (日本語)", Languages[9].Label())
}

func TestLookupLanguage(t *testing.T) {
	cases := []struct {
		code string
		want string
		ok   bool
	}{
		{"fr", "fr", true},
		{"FR", "fr", true},
		{"pt-BR", "pt", true},
		{"de-AT", "de", true},
		{"xx", "", false},
		{"", "", false},
		{"not a tag", "", false},
	}
	for _, c := range cases {
		l, ok := LookupLanguage(c.code)
		assert.Equal(t, c.ok, ok, c.code)
		assert.Equal(t, c.want, l.Code, c.code)
	}

	assert.Equal(t, "Auto-detected language", LanguageName(Auto))
	assert.Equal(t, "German", LanguageName("de"))
	assert.Equal(t, "zz", LanguageName("zz"))
}

func TestRequestPrompt(t *testing.T) {
	got, err := Request{SourceLanguage: "en", TargetLanguage: "es", Text: "It's raining cats and dogs."}.Prompt()
	require.NoError(t, err)
	assert.Equal(t, "Please translate the following text from English to Spanish:\n\n"+
		"It's raining cats and dogs.\n\n"+
		"\nPlease provide the translation followed by any necessary notes about cultural nuances, idioms, or translation choices if relevant.", got)

	got, err = Request{TargetLanguage: "ja", Text: "I look forward to it", Type: "business", Formality: FormalityFormal}.Prompt()
	require.NoError(t, err)
	assert.Equal(t, "Please translate the following text from the detected language to Japanese:\n\n"+
		"I look forward to it\n\n"+
		"This is business & professional text. Please use a formal tone. "+
		"\nPlease provide the translation followed by any necessary notes about cultural nuances, idioms, or translation choices if relevant.", got)
}

func TestRequestPromptErrors(t *testing.T) {
	_, err := Request{Text: "  "}.Prompt()
	assert.ErrorIs(t, err, ErrEmptyText)
	_, err = Request{Text: "hi", TargetLanguage: "xx"}.Prompt()
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	_, err = Request{Text: "hi", Type: "legal"}.Prompt()
	assert.ErrorIs(t, err, ErrUnknownType)
	_, err = Request{Text: "hi", Formality: "casual"}.Prompt()
	assert.ErrorIs(t, err, ErrInvalidFormality)
}

func TestTranslateSendsPrompt(t *testing.T) {
	sender := &capture{reply: "Está lloviendo a cántaros."}
	s := newSession(t, nil, sender)
	require.NoError(t, s.SetLanguages("en", "es"))
	require.NoError(t, s.SetType("idioms"))
	s.SetSourceText("It's raining cats and dogs.")

	res, err := s.Translate(context.Background())
	require.NoError(t, err)
	require.Len(t, sender.prompts, 1)
	assert.Equal(t, sender.prompts[0], res.Prompt)
	assert.Contains(t, res.Prompt, "from English to Spanish")
	assert.Contains(t, res.Prompt, "This is idioms & expressions text. ")
	assert.Equal(t, "Está lloviendo a cántaros.", s.TargetText())
	assert.Equal(t, StatusSent, s.Status())
}

func TestTranslateFailures(t *testing.T) {
	s := newSession(t, nil, nil)
	_, err := s.Translate(context.Background())
	assert.ErrorIs(t, err, ErrEmptyText)

	s.SetSourceText("hello")
	res, err := s.Translate(context.Background())
	assert.ErrorIs(t, err, ErrNoSender)
	assert.NotEmpty(t, res.Prompt)

	boom := errors.New("chat offline")
	s = newSession(t, nil, &capture{err: boom})
	s.SetSourceText("hello")
	_, err = s.Translate(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.TargetText())
	assert.Empty(t, s.Status())
}

func TestGeneratorSender(t *testing.T) {
	var got jaat.Prompt
	gen := jaat.GeneratorFunc(func(_ context.Context, p jaat.Prompt) (string, error) {
		got = p
		return "Bonjour", nil
	})
	s := newSession(t, nil, GeneratorSender{Generator: gen})
	require.NoError(t, s.SetLanguages(Auto, "fr"))
	s.SetSourceText("Hello")

	res, err := s.Translate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", res.Reply)
	assert.Equal(t, SystemPrompt, got.SystemPrompt)
	assert.Equal(t, ModeID, got.PersonaID)
	assert.Equal(t, res.Prompt, got.Input)
}

func TestSwap(t *testing.T) {
	s := newSession(t, nil, nil)
	s.SetSourceText("hello")
	s.SetTargetText("hola")
	assert.False(t, s.Swap(), "auto-detected source cannot be swapped")
	assert.Equal(t, "hello", s.SourceText())

	require.NoError(t, s.SetLanguages("en", "es"))
	assert.True(t, s.Swap())
	st := s.Settings()
	assert.Equal(t, "es", st.SourceLanguage)
	assert.Equal(t, "en", st.TargetLanguage)
	assert.Equal(t, "hola", s.SourceText())
	assert.Empty(t, s.TargetText())

	// Without a translation only the languages move.
	assert.True(t, s.Swap())
	assert.Equal(t, "hola", s.SourceText())
	assert.Equal(t, "en", s.Settings().SourceLanguage)
}

func TestSetLanguagesValidates(t *testing.T) {
	s := newSession(t, nil, nil)
	assert.ErrorIs(t, s.SetLanguages("en", Auto), ErrUnsupportedLanguage)
	assert.ErrorIs(t, s.SetLanguages("tlh", "en"), ErrUnsupportedLanguage)
	require.NoError(t, s.SetLanguages("pt-BR", "zh"))
	assert.Equal(t, "pt", s.Settings().SourceLanguage)
	assert.ErrorIs(t, s.SetType("legal"), ErrUnknownType)
	assert.ErrorIs(t, s.SetFormality("casual"), ErrInvalidFormality)
}

func TestSavedTranslations(t *testing.T) {
	kv := jaat.NewInMemoryKVStore()
	s := newSession(t, kv, nil)

	_, err := s.Save()
	assert.ErrorIs(t, err, ErrNothingToSave)

	require.NoError(t, s.SetLanguages("en", "de"))
	for i := 0; i < MaxSaved+2; i++ {
		s.SetSourceText("text")
		s.SetTargetText("Text")
		_, err := s.Save()
		require.NoError(t, err)
	}
	list := s.SavedList()
	require.Len(t, list, MaxSaved)
	assert.Equal(t, fixed.UnixMilli()+int64(MaxSaved+1), list[0].ID, "newest first with unique ids")
	assert.Equal(t, fixed.UnixMilli()+2, list[MaxSaved-1].ID, "oldest two dropped")
	assert.Equal(t, "de", list[0].TargetLanguage)

	reloaded := newSession(t, kv, nil)
	assert.Equal(t, list, reloaded.SavedList())
	assert.Equal(t, "de", reloaded.Settings().TargetLanguage)

	require.NoError(t, reloaded.SetLanguages("fr", "it"))
	require.NoError(t, reloaded.LoadSaved(list[3].ID))
	assert.Equal(t, "en", reloaded.Settings().SourceLanguage)
	assert.Equal(t, "text", reloaded.SourceText())
	assert.Equal(t, "Text", reloaded.TargetText())
	assert.Equal(t, StatusLoaded, reloaded.Status())
	assert.ErrorIs(t, reloaded.LoadSaved(42), ErrNotFound)

	assert.True(t, reloaded.DeleteSaved(list[0].ID))
	assert.False(t, reloaded.DeleteSaved(list[0].ID))
	assert.Len(t, newSession(t, kv, nil).SavedList(), MaxSaved-1)

	reloaded.ClearSaved()
	assert.Empty(t, newSession(t, kv, nil).SavedList())
}

func TestStorageFailureKeepsSessionUsable(t *testing.T) {
	kv := &jaat.FailingKVStore{
		KVStore: jaat.NewInMemoryKVStore(),
		Fail:    func(op, key string) error { return errors.New("disk full") },
	}
	s := newSession(t, kv, nil)
	assert.Equal(t, Auto, s.Settings().SourceLanguage)

	require.NoError(t, s.SetLanguages("en", "ko"))
	assert.Equal(t, "ko", s.Settings().TargetLanguage)

	s.SetSourceText("thank you")
	s.SetTargetText("감사합니다")
	_, err := s.Save()
	require.NoError(t, err)
	assert.Len(t, s.SavedList(), 1)
}

func TestPanel(t *testing.T) {
	sender := &capture{}
	s := newSession(t, nil, sender)
	p := s.Panel()

	view := p.Render()
	langs, ok := view.Section("languages")
	require.True(t, ok)
	require.Len(t, langs.Controls, 3)
	assert.Len(t, langs.Controls[0].Options, len(Languages)+1)
	assert.Equal(t, Auto, langs.Controls[0].Value)

	assert.ErrorIs(t, p.Change("formalityLevel", "casual"), panel.ErrInvalidOption)
	assert.ErrorIs(t, p.Change("targetLanguage", Auto), panel.ErrInvalidOption)
	require.NoError(t, p.Change("formalityLevel", FormalityInformal))
	require.NoError(t, p.Change("sourceLanguage", "ru"))
	require.NoError(t, p.Change("swap", ""))
	st := s.Settings()
	assert.Equal(t, "en", st.SourceLanguage)
	assert.Equal(t, "ru", st.TargetLanguage)
	assert.Equal(t, FormalityInformal, st.FormalityLevel)

	assert.ErrorIs(t, p.Change("translate", ""), ErrEmptyText)
	s.SetSourceText("Let's meet up for coffee sometime")
	require.NoError(t, p.Change("translate", ""))
	require.Len(t, sender.prompts, 1)
	assert.Contains(t, sender.prompts[0], "from English to Russian")
	assert.Contains(t, sender.prompts[0], "Please use a informal tone. ")
}
