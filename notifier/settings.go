package notifier

import "time"

// SettingsKey is the preference key the notifier persists under.
const SettingsKey = "jaat-notifier-settings"

// Settings mirrors the persisted notifier settings blob.
type Settings struct {
	Enabled                 bool     `json:"enabled"`
	Sound                   bool     `json:"sound"`
	SoundVolume             float64  `json:"soundVolume"`
	Desktop                 bool     `json:"desktop"`
	InApp                   bool     `json:"inApp"`
	ShowPreview             bool     `json:"showPreview"`
	DurationMS              int      `json:"durationMS"`
	RequireInteraction      bool     `json:"requireInteraction"`
	MuteChatTab             bool     `json:"muteChatTab"`
	MuteWhenDnd             bool     `json:"muteWhenDnd"`
	GroupNotifications      bool     `json:"groupNotifications"`
	MaxStackSize            int      `json:"maxStackSize"`
	NotifyOnNewMessages     bool     `json:"notifyOnNewMessages"`
	NotifyOnMentions        bool     `json:"notifyOnMentions"`
	NotifyOnKeywords        bool     `json:"notifyOnKeywords"`
	NotifyOnExport          bool     `json:"notifyOnExport"`
	NotifyOnProcessComplete bool     `json:"notifyOnProcessComplete"`
	Keywords                []string `json:"keywords"`
	CurrentSound            string   `json:"currentSound"`
}

// Duration returns the auto-dismiss delay.
func (s Settings) Duration() time.Duration {
	return time.Duration(s.DurationMS) * time.Millisecond
}

// DefaultSettings returns the factory settings as a model map.
func DefaultSettings() map[string]any {
	return map[string]any{
		"enabled":                 true,
		"sound":                   true,
		"soundVolume":             0.5,
		"desktop":                 true,
		"inApp":                   true,
		"showPreview":             true,
		"durationMS":              5000,
		"requireInteraction":      false,
		"muteChatTab":             true,
		"muteWhenDnd":             true,
		"groupNotifications":      true,
		"maxStackSize":            5,
		"notifyOnNewMessages":     true,
		"notifyOnMentions":        true,
		"notifyOnKeywords":        true,
		"notifyOnExport":          true,
		"notifyOnProcessComplete": true,
		"keywords":                []string{},
		"currentSound":            DefaultSound,
	}
}

// Sound is one selectable notification sound.
type Sound struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	File string `json:"file"`
}

const DefaultSound = "ding"

// Sounds is the fixed sound table.
var Sounds = []Sound{
	{ID: "ding", Name: "Ding", File: "sounds/notifications/ding.mp3"},
	{ID: "bell", Name: "Bell", File: "sounds/notifications/bell.mp3"},
	{ID: "chime", Name: "Chime", File: "sounds/notifications/chime.mp3"},
	{ID: "pop", Name: "Pop", File: "sounds/notifications/pop.mp3"},
	{ID: "note", Name: "Note", File: "sounds/notifications/note.mp3"},
	{ID: "chirp", Name: "Chirp", File: "sounds/notifications/chirp.mp3"},
	{ID: "subtle", Name: "Subtle", File: "sounds/notifications/subtle.mp3"},
	{ID: "knock", Name: "Knock", File: "sounds/notifications/knock.mp3"},
	{ID: "bubble", Name: "Bubble", File: "sounds/notifications/bubble.mp3"},
}

// LookupSound finds a sound by id.
func LookupSound(id string) (Sound, bool) {
	for _, s := range Sounds {
		if s.ID == id {
			return s, true
		}
	}
	return Sound{}, false
}
