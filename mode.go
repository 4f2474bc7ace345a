package jaat

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

// ──────────────────────────────────────────────
// Persona configuration
// ──────────────────────────────────────────────

// Hooks let a persona add behavior around the generic turn pipeline.
// Every hook runs with the Mode lock held and must not call back into Mode.
type Hooks struct {
	// OnInit runs at the end of Initialize.
	OnInit func(tc *TurnContext)
	// OnClassify runs after tagging and classification, before building.
	OnClassify func(tc *TurnContext)
	// OnRespond runs after the response is built and history is updated.
	OnRespond func(tc *TurnContext, resp *Response)
	// Greeting overrides the uniform pick from Greetings.
	Greeting func(tc *TurnContext) string
	// Info adds persona specific details to ModeInfo.
	Info func(tc *TurnContext, details map[string]any)
}

// PersonaConfig is the static description of one persona. It is not
// modified after construction.
type PersonaConfig struct {
	ID          string
	Key         string // storage prefix, e.g. "jaat-mode12"
	Name        string
	Description string
	Icon        string
	Color       string
	Category    string
	Version     string

	SystemPrompt   string
	MaxMemoryItems int
	Disclaimer     string
	EmptyInputText string
	Greetings      []string
	Starters       []string
	Features       []string

	RequestTypes     *RuleTable
	Tagger           TagExtractor
	TagName          string // "topic", "emotion", ...
	ExcludedTagsPref string // preference key listing tags the user opted out of
	Templates        *TemplateSet
	Suggestions      *SuggestionPool

	DefaultSettings    map[string]any
	DefaultPreferences map[string]any
	DefaultState       map[string]any

	Hooks Hooks
}

// StorageKey returns Key, or "jaat-mode<ID>" when Key is empty.
func (c *PersonaConfig) StorageKey() string {
	if c.Key != "" {
		return c.Key
	}
	return "jaat-mode" + c.ID
}

// ──────────────────────────────────────────────
// Mode
// ──────────────────────────────────────────────

// Options are caller-supplied overrides applied by Initialize.
type Options struct {
	Settings    map[string]any
	Preferences map[string]any
	State       map[string]any
}

// Response is the result of one ProcessInput call.
type Response struct {
	Text        string         `json:"text"`
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	Timestamp   time.Time      `json:"timestamp"`
	RequestType string         `json:"requestType,omitempty"`
	Tag         string         `json:"tag,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// ModeInfo describes a mode for pickers and settings screens.
type ModeInfo struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Icon         string         `json:"icon"`
	Color        string         `json:"color"`
	Category     string         `json:"category"`
	Version      string         `json:"version"`
	Features     []string       `json:"features"`
	Suggestions  []string       `json:"suggestions"`
	RequestTypes []string       `json:"requestTypes"`
	Ready        bool           `json:"ready"`
	Details      map[string]any `json:"details,omitempty"`
}

// ModeOption customizes a Mode at construction.
type ModeOption func(*Mode)

// WithGenerator sets the generation backend.
func WithGenerator(g Generator) ModeOption { return func(m *Mode) { m.generator = g } }

// WithRand sets the random source.
func WithRand(r Rand) ModeOption { return func(m *Mode) { m.rnd = r } }

// WithClock sets the time source.
func WithClock(now func() time.Time) ModeOption { return func(m *Mode) { m.now = now } }

// Mode is one persona instance bound to a namespace. States: not ready
// until Initialize, then ready for ProcessInput.
type Mode struct {
	mu        sync.Mutex
	cfg       *PersonaConfig
	store     *PreferenceStore
	generator Generator
	rnd       Rand
	now       func() time.Time

	ready         bool
	settings      map[string]any
	prefs         map[string]any
	state         map[string]any
	history       *History
	pipeline      *Pipeline
	responseCount int
	sessionStart  time.Time
	lastActive    time.Time
}

// NewMode creates an uninitialized mode.
func NewMode(cfg *PersonaConfig, store *PreferenceStore, opts ...ModeOption) *Mode {
	if store == nil {
		store = NewPreferenceStore(nil, "")
	}
	capacity := cfg.MaxMemoryItems
	if capacity <= 0 {
		capacity = 50
	}
	m := &Mode{
		cfg:       cfg,
		store:     store,
		generator: DraftGenerator{},
		rnd:       DefaultRand(),
		now:       time.Now,
		settings:  MergeMaps(cfg.DefaultSettings),
		prefs:     MergeMaps(cfg.DefaultPreferences),
		state:     MergeMaps(cfg.DefaultState),
		history:   NewHistory(capacity),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the persona configuration.
func (m *Mode) Config() *PersonaConfig { return m.cfg }

// Initialize merges defaults, caller options and persisted preferences
// (persisted values win), loads history when memory is enabled, and marks
// the mode ready. Storage failures are logged and never fail initialization.
func (m *Mode) Initialize(opts Options) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings = MergeMaps(m.cfg.DefaultSettings, opts.Settings)
	m.state = MergeMaps(m.cfg.DefaultState, opts.State)

	persisted := map[string]any{}
	if _, err := m.store.Load(PreferencesKey(m.cfg.StorageKey()), &persisted); err != nil {
		log.Printf("[Mode] %s: loading preferences: %v", m.cfg.Name, err)
		persisted = map[string]any{}
	}
	m.prefs = MergeMaps(m.cfg.DefaultPreferences, opts.Preferences, persisted)

	m.history.Clear()
	if m.settingLocked("memoryEnabled", true) {
		if err := m.history.Load(m.store, HistoryKey(m.cfg.StorageKey())); err != nil {
			log.Printf("[Mode] %s: loading history: %v", m.cfg.Name, err)
			m.history.Clear()
		}
	}

	m.sessionStart = m.now()
	m.ready = true
	if m.cfg.Hooks.OnInit != nil {
		tc := m.turnContextLocked(context.Background(), Input{})
		m.cfg.Hooks.OnInit(tc)
		m.persistDirtyLocked(tc)
	}
	log.Printf("[Mode] %s initialized (%d turns loaded)", m.cfg.Name, m.history.Len())
	return true
}

// Ready reports whether Initialize has run.
func (m *Mode) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// ProcessInput runs one turn. Blank input returns EmptyInputText without
// touching history; an uninitialized mode answers with a greeting.
func (m *Mode) ProcessInput(ctx context.Context, text string, extra map[string]any) Response {
	if strings.TrimSpace(text) == "" {
		return Response{Text: m.cfg.EmptyInputText, Type: "text", Source: m.cfg.Name, Timestamp: m.now()}
	}
	if !m.Ready() {
		return Response{Text: m.GetGreeting(), Type: "text", Source: m.cfg.Name, Timestamp: m.now()}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	in := NewInput(text)
	in.Data = extra
	m.lastActive = m.now()

	tc := m.turnContextLocked(ctx, in)
	if m.cfg.Tagger != nil {
		excluded := AsStrings(m.prefs[m.cfg.ExcludedTagsPref])
		tc.Tag = m.cfg.Tagger.Extract(in, excluded)
		tc.Input.Tag = tc.Tag
	}
	if m.cfg.RequestTypes != nil {
		tc.RequestType = m.cfg.RequestTypes.Classify(tc.Input)
	}
	recordClassification(m.cfg.ID, tc.RequestType)

	if m.cfg.Hooks.OnClassify != nil {
		m.cfg.Hooks.OnClassify(tc)
	}

	builder := Builder{
		SystemPrompt: m.cfg.SystemPrompt,
		Disclaimer:   m.cfg.Disclaimer,
		Templates:    m.cfg.Templates,
		Generator:    m.generator,
	}
	m.pipeline.Execute(tc, func() {
		out, err := builder.Build(tc)
		if err != nil {
			recordGenerationFailure(m.cfg.ID)
			log.Printf("[Mode] %s: %v", m.cfg.Name, err)
		}
		tc.Reply = out
	})
	// Middleware may rewrite or replace the reply; the disclaimer is applied last.
	reply := tc.Reply
	if strings.TrimSpace(reply) == "" {
		reply = GenerationFailedText
	}
	out := AppendDisclaimer(reply, m.cfg.Disclaimer)

	resp := Response{
		Text:        out,
		Type:        "text",
		Source:      m.cfg.Name,
		Timestamp:   m.now(),
		RequestType: tc.RequestType,
		Tag:         tc.Tag,
		Meta:        tc.Meta,
	}
	if m.cfg.TagName != "" && tc.Tag != "" {
		resp.Meta[m.cfg.TagName] = tc.Tag
	}
	if m.settingLocked("suggestionsEnabled", true) {
		resp.Suggestions = m.cfg.Suggestions.Suggest(tc.RequestType, tc.Tag, m.rnd)
	}

	if m.settingLocked("memoryEnabled", true) {
		m.history.Append(
			Turn{Role: RoleUser, Content: in.Raw, Timestamp: m.lastActive},
			Turn{Role: RoleAssistant, Content: out, Timestamp: resp.Timestamp, RequestType: tc.RequestType, Tag: tc.Tag},
		)
		if err := m.history.Save(m.store, HistoryKey(m.cfg.StorageKey())); err != nil {
			log.Printf("[Mode] %s: saving history: %v", m.cfg.Name, err)
		}
	}

	m.responseCount++
	tc.ResponseCount = m.responseCount
	if m.cfg.Hooks.OnRespond != nil {
		m.cfg.Hooks.OnRespond(tc, &resp)
	}
	m.persistDirtyLocked(tc)
	if len(resp.Meta) == 0 {
		resp.Meta = nil
	}
	return resp
}

// GetGreeting returns a greeting, personalized by the persona when it can.
func (m *Mode) GetGreeting() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	tc := m.turnContextLocked(context.Background(), Input{})
	if m.cfg.Hooks.Greeting != nil {
		if g := m.cfg.Hooks.Greeting(tc); g != "" {
			return g
		}
	}
	return Pick(m.rnd, m.cfg.Greetings)
}

// ModeInfo describes the mode.
func (m *Mode) ModeInfo() ModeInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := ModeInfo{
		ID:          m.cfg.ID,
		Name:        m.cfg.Name,
		Description: m.cfg.Description,
		Icon:        m.cfg.Icon,
		Color:       m.cfg.Color,
		Category:    m.cfg.Category,
		Version:     m.cfg.Version,
		Features:    append([]string(nil), m.cfg.Features...),
		Suggestions: append([]string(nil), m.cfg.Starters...),
		Ready:       m.ready,
		Details:     map[string]any{},
	}
	if m.cfg.RequestTypes != nil {
		info.RequestTypes = m.cfg.RequestTypes.Tags()
	}
	if m.cfg.Hooks.Info != nil {
		m.cfg.Hooks.Info(m.turnContextLocked(context.Background(), Input{}), info.Details)
	}
	return info
}

// ClearHistory empties the history and removes it from the store.
// It reports false when the store could not be updated.
func (m *Mode) ClearHistory() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history.Clear()
	if err := m.store.Remove(HistoryKey(m.cfg.StorageKey())); err != nil {
		log.Printf("[Mode] %s: clearing history: %v", m.cfg.Name, err)
		return false
	}
	return true
}

// History returns a copy of the conversation history.
func (m *Mode) History() []Turn { return m.history.Turns() }

// ResponseCount returns the number of responses produced this session.
func (m *Mode) ResponseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.responseCount
}

// ──────────────────────────────────────────────
// Preferences, settings and state
// ──────────────────────────────────────────────

// Preferences returns a copy of the current preferences.
func (m *Mode) Preferences() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MergeMaps(m.prefs)
}

// Preference returns one preference value.
func (m *Mode) Preference(key string) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs[key]
}

// SavePreferences merges patch into the preferences and writes it through.
// It reports false when persisting failed; the in-memory value is kept.
func (m *Mode) SavePreferences(patch map[string]any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savePrefsLocked(patch)
}

// UpdatePreferences runs fn against the live preferences under the mode
// lock and persists the patch it returns.
func (m *Mode) UpdatePreferences(fn func(prefs map[string]any) map[string]any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	patch := fn(MergeMaps(m.prefs))
	if len(patch) == 0 {
		return true
	}
	return m.savePrefsLocked(patch)
}

func (m *Mode) savePrefsLocked(patch map[string]any) bool {
	for k, v := range patch {
		m.prefs[k] = v
	}
	if _, err := m.store.Merge(PreferencesKey(m.cfg.StorageKey()), patch); err != nil {
		log.Printf("[Mode] %s: saving preferences: %v", m.cfg.Name, err)
		return false
	}
	return true
}

// Settings returns a copy of the current settings.
func (m *Mode) Settings() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MergeMaps(m.settings)
}

// UpdateSettings merges patch into the session settings.
func (m *Mode) UpdateSettings(patch map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range patch {
		m.settings[k] = v
	}
}

// State returns a session state value.
func (m *Mode) State(key string) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state[key]
}

// SetState sets a session state value.
func (m *Mode) SetState(key string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[key] = v
}

func (m *Mode) settingLocked(key string, def bool) bool {
	if b, ok := m.settings[key].(bool); ok {
		return b
	}
	return def
}

func (m *Mode) turnContextLocked(ctx context.Context, in Input) *TurnContext {
	return &TurnContext{
		Ctx:           ctx,
		PersonaID:     m.cfg.ID,
		PersonaName:   m.cfg.Name,
		Input:         in,
		Rand:          m.rnd,
		Now:           m.now(),
		Extra:         in.Data,
		Settings:      m.settings,
		Prefs:         m.prefs,
		State:         m.state,
		Meta:          map[string]any{},
		Vars:          map[string]any{},
		ResponseCount: m.responseCount,
		History:       m.history.Turns(),
	}
}

func (m *Mode) persistDirtyLocked(tc *TurnContext) {
	patch := tc.dirtyPrefs()
	if len(patch) == 0 {
		return
	}
	if _, err := m.store.Merge(PreferencesKey(m.cfg.StorageKey()), patch); err != nil {
		log.Printf("[Mode] %s: saving preferences: %v", m.cfg.Name, err)
	}
}
