// Package translate builds translation requests for the chat backend.
//
// Nothing is translated locally: a Session turns the selected languages,
// register and formality into a prompt and hands it to a Sender, which
// usually forwards it to the same chat the personas talk through.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/panel"
)

const (
	// SettingsKey holds the language and option choices.
	SettingsKey = "jaat-translation-settings"
	// SavedKey holds the saved translations, newest first.
	SavedKey = "jaat_saved_translations"
	// MaxSaved caps the saved translations list.
	MaxSaved = 10
)

var (
	ErrEmptyText           = errors.New("translate: no source text")
	ErrUnsupportedLanguage = errors.New("translate: unsupported language")
	ErrUnknownType         = errors.New("translate: unknown translation type")
	ErrInvalidFormality    = errors.New("translate: invalid formality level")
	ErrNothingToSave       = errors.New("translate: source and translation are both required")
	ErrNotFound            = errors.New("translate: saved translation not found")
	ErrNoSender            = errors.New("translate: no sender configured")
)

// ──────────────────────────────────────────────
// Sender
// ──────────────────────────────────────────────

// Sender delivers a prompt to the chat. The reply may be empty when the chat
// shows the answer on its own.
type Sender interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, prompt string) (string, error)

func (f SenderFunc) Send(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }

// GeneratorSender sends prompts through a generation backend with the
// translation system prompt.
type GeneratorSender struct {
	Generator jaat.Generator
}

func (s GeneratorSender) Send(ctx context.Context, prompt string) (string, error) {
	return s.Generator.Generate(ctx, jaat.Prompt{
		PersonaID:    ModeID,
		PersonaName:  ModeName,
		SystemPrompt: SystemPrompt,
		RequestType:  "translation",
		Input:        prompt,
	})
}

// ──────────────────────────────────────────────
// Request
// ──────────────────────────────────────────────

// Request is one translation to ask for.
type Request struct {
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
	Text           string `json:"text"`
	Type           string `json:"translationType"`
	Formality      string `json:"formalityLevel"`
}

// Normalize fills defaults and canonicalizes language codes.
func (r Request) Normalize() (Request, error) {
	if r.SourceLanguage == "" {
		r.SourceLanguage = Auto
	}
	if r.TargetLanguage == "" {
		r.TargetLanguage = "en"
	}
	if r.Type == "" {
		r.Type = DefaultType
	}
	if r.Formality == "" {
		r.Formality = FormalityAuto
	}
	if r.SourceLanguage != Auto {
		l, ok := LookupLanguage(r.SourceLanguage)
		if !ok {
			return r, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, r.SourceLanguage)
		}
		r.SourceLanguage = l.Code
	}
	l, ok := LookupLanguage(r.TargetLanguage)
	if !ok {
		return r, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, r.TargetLanguage)
	}
	r.TargetLanguage = l.Code
	if _, ok := LookupType(r.Type); !ok {
		return r, fmt.Errorf("%w: %q", ErrUnknownType, r.Type)
	}
	if !validFormality(r.Formality) {
		return r, fmt.Errorf("%w: %q", ErrInvalidFormality, r.Formality)
	}
	return r, nil
}

// Prompt renders the request as chat text.
func (r Request) Prompt() (string, error) {
	r, err := r.Normalize()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(r.Text) == "" {
		return "", ErrEmptyText
	}
	from := "the detected language"
	if r.SourceLanguage != Auto {
		from = LanguageName(r.SourceLanguage)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Please translate the following text from %s to %s:\n\n%s\n\n", from, LanguageName(r.TargetLanguage), r.Text)
	b.WriteString(typePhrase(r.Type))
	if r.Formality != FormalityAuto {
		fmt.Fprintf(&b, "Please use a %s tone. ", r.Formality)
	}
	b.WriteString("\nPlease provide the translation followed by any necessary notes about cultural nuances, idioms, or translation choices if relevant.")
	return b.String(), nil
}

// ──────────────────────────────────────────────
// Session
// ──────────────────────────────────────────────

// Settings are the persisted picker choices.
type Settings struct {
	SourceLanguage  string `json:"sourceLanguage"`
	TargetLanguage  string `json:"targetLanguage"`
	TranslationType string `json:"translationType"`
	FormalityLevel  string `json:"formalityLevel"`
}

// DefaultSettings returns the factory choices as a model map.
func DefaultSettings() map[string]any {
	return map[string]any{
		"sourceLanguage":  Auto,
		"targetLanguage":  "en",
		"translationType": DefaultType,
		"formalityLevel":  FormalityAuto,
	}
}

// Saved is a kept source/translation pair.
type Saved struct {
	ID             int64     `json:"id"`
	SourceLanguage string    `json:"sourceLanguage"`
	TargetLanguage string    `json:"targetLanguage"`
	SourceText     string    `json:"sourceText"`
	TargetText     string    `json:"targetText"`
	Timestamp      time.Time `json:"timestamp"`
}

// Result reports what Translate sent and what came back.
type Result struct {
	Prompt string `json:"prompt"`
	Reply  string `json:"reply,omitempty"`
}

// Statuses shown next to the translation box.
const (
	StatusTranslating = "Translating..."
	StatusSent        = "Translation sent to JAAT-AI"
	StatusLoaded      = "Loaded from saved translations"
)

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the clock used for saved translation ids.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// Session is one user's translation state. It is safe for concurrent use.
type Session struct {
	model  *panel.Model
	store  *jaat.PreferenceStore
	sender Sender
	now    func() time.Time

	mu         sync.Mutex
	sourceText string
	targetText string
	status     string
	saved      []Saved
}

// New restores the persisted choices and saved translations. A nil sender
// is allowed; Translate then fails with ErrNoSender.
func New(store *jaat.PreferenceStore, sender Sender, opts ...Option) *Session {
	if store == nil {
		store = jaat.NewPreferenceStore(nil, "")
	}
	s := &Session{
		model:  panel.NewModel(store, SettingsKey, DefaultSettings()),
		store:  store,
		sender: sender,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if _, err := store.Load(SavedKey, &s.saved); err != nil {
		log.Printf("[Translate] load saved translations: %v", err)
		s.saved = nil
	}
	if len(s.saved) > MaxSaved {
		s.saved = s.saved[:MaxSaved]
	}
	return s
}

// Model exposes the settings model.
func (s *Session) Model() *panel.Model { return s.model }

// Settings returns the current choices.
func (s *Session) Settings() Settings {
	var out Settings
	_ = s.model.Decode(&out)
	return out
}

// SetLanguages selects the source ("auto" allowed) and target languages.
func (s *Session) SetLanguages(source, target string) error {
	r, err := Request{SourceLanguage: source, TargetLanguage: target}.Normalize()
	if err != nil {
		return err
	}
	s.update(map[string]any{"sourceLanguage": r.SourceLanguage, "targetLanguage": r.TargetLanguage})
	return nil
}

// SetType selects the translation type.
func (s *Session) SetType(id string) error {
	if _, ok := LookupType(id); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, id)
	}
	s.update(map[string]any{"translationType": id})
	return nil
}

// SetFormality selects the formality level.
func (s *Session) SetFormality(level string) error {
	if !validFormality(level) {
		return fmt.Errorf("%w: %q", ErrInvalidFormality, level)
	}
	s.update(map[string]any{"formalityLevel": level})
	return nil
}

// update applies a settings patch. The model keeps the values in memory and
// logs a failed write, so choices survive a broken store for the session.
func (s *Session) update(patch map[string]any) {
	_ = s.model.Merge(patch)
}

func (s *Session) SetSourceText(text string) {
	s.mu.Lock()
	s.sourceText = text
	s.mu.Unlock()
}

func (s *Session) SourceText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceText
}

// SetTargetText records the translation once the chat has produced it.
func (s *Session) SetTargetText(text string) {
	s.mu.Lock()
	s.targetText = text
	s.mu.Unlock()
}

func (s *Session) TargetText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetText
}

func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Request assembles the current state into a request.
func (s *Session) Request() Request {
	st := s.Settings()
	return Request{
		SourceLanguage: st.SourceLanguage,
		TargetLanguage: st.TargetLanguage,
		Text:           s.SourceText(),
		Type:           st.TranslationType,
		Formality:      st.FormalityLevel,
	}
}

// Translate sends the current request. A non-empty reply becomes the
// target text.
func (s *Session) Translate(ctx context.Context) (Result, error) {
	req := s.Request()
	prompt, err := req.Prompt()
	if err != nil {
		return Result{}, err
	}
	if s.sender == nil {
		return Result{Prompt: prompt}, ErrNoSender
	}

	s.setStatus(StatusTranslating)
	reply, err := s.sender.Send(ctx, prompt)
	if err != nil {
		recordRequest(req.Type, "error")
		s.setStatus("")
		return Result{Prompt: prompt}, fmt.Errorf("translate: send: %w", err)
	}
	recordRequest(req.Type, "sent")

	s.mu.Lock()
	s.status = StatusSent
	if reply != "" {
		s.targetText = reply
	}
	s.mu.Unlock()
	return Result{Prompt: prompt, Reply: reply}, nil
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Swap exchanges source and target languages. It does nothing while the
// source is auto-detected. An existing translation becomes the new source
// text and the translation is cleared.
func (s *Session) Swap() bool {
	st := s.Settings()
	if st.SourceLanguage == Auto {
		return false
	}
	s.update(map[string]any{
		"sourceLanguage": st.TargetLanguage,
		"targetLanguage": st.SourceLanguage,
	})
	s.mu.Lock()
	if s.targetText != "" {
		s.sourceText = s.targetText
		s.targetText = ""
	}
	s.mu.Unlock()
	return true
}

// ──────────────────────────────────────────────
// Saved translations
// ──────────────────────────────────────────────

// Save keeps the current pair at the front of the saved list, dropping the
// oldest beyond MaxSaved.
func (s *Session) Save() (Saved, error) {
	st := s.Settings()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sourceText == "" || s.targetText == "" {
		return Saved{}, ErrNothingToSave
	}
	item := Saved{
		ID:             s.now().UnixMilli(),
		SourceLanguage: st.SourceLanguage,
		TargetLanguage: st.TargetLanguage,
		SourceText:     s.sourceText,
		TargetText:     s.targetText,
		Timestamp:      s.now().UTC(),
	}
	if len(s.saved) > 0 && item.ID <= s.saved[0].ID {
		item.ID = s.saved[0].ID + 1
	}
	s.saved = append([]Saved{item}, s.saved...)
	if len(s.saved) > MaxSaved {
		s.saved = s.saved[:MaxSaved]
	}
	s.persistLocked()
	return item, nil
}

// SavedList returns the saved translations, newest first.
func (s *Session) SavedList() []Saved {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Saved(nil), s.saved...)
}

// LoadSaved restores a saved pair into the session.
func (s *Session) LoadSaved(id int64) error {
	s.mu.Lock()
	var found *Saved
	for i := range s.saved {
		if s.saved[i].ID == id {
			item := s.saved[i]
			found = &item
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	s.update(map[string]any{
		"sourceLanguage": found.SourceLanguage,
		"targetLanguage": found.TargetLanguage,
	})
	s.mu.Lock()
	s.sourceText = found.SourceText
	s.targetText = found.TargetText
	s.status = StatusLoaded
	s.mu.Unlock()
	return nil
}

// DeleteSaved removes one saved pair. It reports whether it existed.
func (s *Session) DeleteSaved(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.saved[:0:0]
	for _, t := range s.saved {
		if t.ID != id {
			out = append(out, t)
		}
	}
	if len(out) == len(s.saved) {
		return false
	}
	s.saved = out
	s.persistLocked()
	return true
}

// ClearSaved drops every saved pair.
func (s *Session) ClearSaved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = nil
	s.persistLocked()
}

func (s *Session) persistLocked() {
	list := s.saved
	if list == nil {
		list = []Saved{}
	}
	if err := s.store.Save(SavedKey, list); err != nil {
		log.Printf("[Translate] save translations: %v", err)
	}
}
