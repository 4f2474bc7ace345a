package jaat

import (
	"sync"
	"time"
)

// Role of a conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry of a mode's conversation history.
type Turn struct {
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	RequestType string    `json:"requestType,omitempty"`
	Tag         string    `json:"tag,omitempty"`
}

// historyBlob is the persisted shape of a history key.
type historyBlob struct {
	ConversationHistory []Turn `json:"conversationHistory"`
}

// History is a bounded FIFO of turns. Appending past capacity drops the oldest.
type History struct {
	mu       sync.RWMutex
	turns    []Turn
	capacity int
}

// NewHistory creates a history holding at most capacity turns (minimum 1).
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{capacity: capacity}
}

// Append adds turns in order and evicts the oldest beyond capacity.
func (h *History) Append(turns ...Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turns...)
	h.trimLocked()
}

// Replace swaps the contents, keeping only the most recent capacity turns.
func (h *History) Replace(turns []Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append([]Turn(nil), turns...)
	h.trimLocked()
}

func (h *History) trimLocked() {
	if over := len(h.turns) - h.capacity; over > 0 {
		h.turns = append([]Turn(nil), h.turns[over:]...)
	}
}

// Turns returns a copy of the stored turns, oldest first.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Turn(nil), h.turns...)
}

// Recent returns up to n most recent turns, oldest first.
func (h *History) Recent(n int) []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.turns) {
		n = len(h.turns)
	}
	return append([]Turn(nil), h.turns[len(h.turns)-n:]...)
}

// Len returns the number of stored turns.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Capacity returns the configured bound.
func (h *History) Capacity() int { return h.capacity }

// Clear empties the history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

// Load restores the history from store. A missing key leaves it empty.
func (h *History) Load(store *PreferenceStore, key string) error {
	var blob historyBlob
	found, err := store.Load(key, &blob)
	if err != nil {
		return err
	}
	if found {
		h.Replace(blob.ConversationHistory)
	}
	return nil
}

// Save writes the history to store.
func (h *History) Save(store *PreferenceStore, key string) error {
	turns := h.Turns()
	if turns == nil {
		turns = []Turn{}
	}
	return store.Save(key, historyBlob{ConversationHistory: turns})
}
