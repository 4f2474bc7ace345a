// Package notifier queues notifications and fans them out to desktop,
// in-app and sound channels with a fixed stagger between shows.
package notifier

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/atomic"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/panel"
)

// Type is the visual kind of a notification.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

const (
	DefaultTitle   = "JAAT-AI"
	DefaultIcon    = "assets/icons/notification-icon.png"
	DefaultStagger = 300 * time.Millisecond
)

// Events passed to On.
const (
	EventShown        = "shown"
	EventDismissed    = "dismissed"
	EventClick        = "click"
	EventMessageClick = "messageClick"
	EventProcessClick = "processClick"
	EventExportClick  = "exportClick"
)

// Request describes one notify call. Nil pointers take the settings default.
type Request struct {
	Title     string
	Message   string
	Icon      string
	Type      Type
	PlaySound *bool
	SoundID   string
	Desktop   *bool
	InApp     *bool
	OnClick   func()
}

// Notification is a queued or shown notification.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon"`
	Type      Type      `json:"type"`
	PlaySound bool      `json:"playSound"`
	SoundID   string    `json:"soundId"`
	Desktop   bool      `json:"desktop"`
	InApp     bool      `json:"inApp"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	onClick func()
}

// Options configures Init.
type Options struct {
	Settings     map[string]any
	CurrentSound string
	Desktop      Channel
	InApp        []Channel
	Sound        SoundPlayer
	Permission   PermissionProvider
	Stagger      time.Duration
}

type active struct {
	n     *Notification
	timer *time.Timer
}

// Notifier is safe for concurrent use. Notifications are shown by a single
// worker goroutine in FIFO order.
type Notifier struct {
	store   *jaat.PreferenceStore
	model   *panel.Model
	desktop Channel
	sinks   []Channel
	sound   SoundPlayer
	perm    PermissionProvider
	stagger time.Duration

	mu         sync.Mutex
	queue      []*Notification
	active     map[string]*active
	inAppOrder []string
	listeners  map[string]func(payload any)
	permission Permission
	signal     chan struct{}
	stopCh     chan struct{}
	running    bool

	unread atomic.Int64
	shown  atomic.Int64
}

// New creates a notifier with default settings overlaid by whatever is
// persisted in store. Call Init to configure channels and start showing.
func New(store *jaat.PreferenceStore) *Notifier {
	return &Notifier{
		store:      store,
		model:      panel.NewModel(store, SettingsKey, DefaultSettings()),
		stagger:    DefaultStagger,
		active:     make(map[string]*active),
		listeners:  make(map[string]func(any)),
		permission: PermissionUnsupported,
		signal:     make(chan struct{}, 1),
	}
}

// Init applies options, reloads persisted settings on top, checks
// permission, preloads the current sound and starts the worker.
func (n *Notifier) Init(opts Options) *Notifier {
	defaults := DefaultSettings()
	for k, v := range opts.Settings {
		defaults[k] = v
	}
	if _, ok := LookupSound(opts.CurrentSound); ok {
		defaults["currentSound"] = opts.CurrentSound
	}
	n.model = panel.NewModel(n.store, SettingsKey, defaults)

	n.mu.Lock()
	n.desktop = opts.Desktop
	n.sinks = opts.InApp
	n.sound = opts.Sound
	n.perm = opts.Permission
	if opts.Stagger > 0 {
		n.stagger = opts.Stagger
	}
	n.mu.Unlock()

	n.checkPermission()
	s := n.Settings()
	if cache, ok := n.sound.(*AudioCache); ok && s.Sound {
		if _, err := cache.Preload(s.CurrentSound); err != nil {
			log.Printf("[Notifier] preload %s failed: %v", s.CurrentSound, err)
		}
	}
	n.Start()
	log.Printf("[Notifier] Initialized (enabled=%v desktop=%v inApp=%v sound=%s)", s.Enabled, s.Desktop, s.InApp, s.CurrentSound)
	return n
}

// Start launches the show loop. Non-blocking.
func (n *Notifier) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return
	}
	n.running = true
	n.stopCh = make(chan struct{})
	go n.run(n.stopCh)
	n.wake()
}

// Close stops the show loop and every pending auto-dismiss timer.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		n.running = false
		close(n.stopCh)
	}
	for id, a := range n.active {
		if a.timer != nil {
			a.timer.Stop()
		}
		delete(n.active, id)
	}
	n.inAppOrder = nil
}

// Model exposes the observable settings model (used by the panel).
func (n *Notifier) Model() *panel.Model { return n.model }

// Settings decodes the current settings.
func (n *Notifier) Settings() Settings {
	var s Settings
	if err := n.model.Decode(&s); err != nil {
		log.Printf("[Notifier] settings decode failed, using defaults: %v", err)
		_ = panel.NewModel(nil, SettingsKey, DefaultSettings()).Decode(&s)
	}
	return s
}

// UpdateSettings merges patch into the settings and persists them.
func (n *Notifier) UpdateSettings(patch map[string]any) {
	_ = n.model.Merge(patch)
}

// ──────────────────────────────────────────────
// Notify
// ──────────────────────────────────────────────

// Notify queues a notification and returns its id, or "" when disabled.
// A desktop request without granted permission is downgraded to in-app.
func (n *Notifier) Notify(req Request) string {
	return n.enqueue(req, "")
}

func (n *Notifier) enqueue(req Request, reason string) string {
	s := n.Settings()
	if !s.Enabled {
		return ""
	}
	item := &Notification{
		ID:        "notification-" + ulid.Make().String(),
		Title:     orDefault(req.Title, DefaultTitle),
		Message:   req.Message,
		Icon:      orDefault(req.Icon, DefaultIcon),
		Type:      Type(orDefault(string(req.Type), string(TypeInfo))),
		PlaySound: boolOr(req.PlaySound, true),
		SoundID:   orDefault(req.SoundID, s.CurrentSound),
		Desktop:   boolOr(req.Desktop, s.Desktop),
		InApp:     boolOr(req.InApp, s.InApp),
		Reason:    reason,
		CreatedAt: time.Now(),
		onClick:   req.OnClick,
	}
	if item.Desktop && n.Permission() != PermissionGranted {
		item.Desktop = false
	}

	n.mu.Lock()
	n.queue = append(n.queue, item)
	n.wake()
	n.mu.Unlock()
	return item.ID
}

// wake nudges the worker; callers hold n.mu or know it is not running.
func (n *Notifier) wake() {
	select {
	case n.signal <- struct{}{}:
	default:
	}
}

func (n *Notifier) pop() *Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.queue) == 0 {
		return nil
	}
	item := n.queue[0]
	n.queue = n.queue[1:]
	return item
}

func (n *Notifier) run(stopCh chan struct{}) {
	var last time.Time
	for {
		select {
		case <-stopCh:
			return
		case <-n.signal:
		}
		for {
			item := n.pop()
			if item == nil {
				break
			}
			if !last.IsZero() {
				if wait := n.stagger - time.Since(last); wait > 0 {
					select {
					case <-stopCh:
						return
					case <-time.After(wait):
					}
				}
			}
			n.show(item)
			last = time.Now()
		}
	}
}

func (n *Notifier) show(item *Notification) {
	s := n.Settings()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n.mu.Lock()
	desktop, sinks, sound := n.desktop, n.sinks, n.sound
	n.mu.Unlock()

	if item.Desktop && desktop != nil {
		if err := desktop.Deliver(ctx, item); err != nil {
			logChannelError(desktop.Name(), err)
		} else {
			recordNotification(desktop.Name(), "shown")
		}
	}
	if item.InApp {
		recordNotification("in_app", "shown")
		for _, sink := range sinks {
			if err := sink.Deliver(ctx, item); err != nil {
				logChannelError(sink.Name(), err)
			}
		}
	}
	n.track(item, s)

	if item.PlaySound && s.Sound && sound != nil {
		if err := sound.Play(ctx, item.SoundID, s.SoundVolume); err != nil {
			log.Printf("[Notifier] sound skipped: %v", err)
			recordNotification("sound", "error")
		}
	}

	n.unread.Inc()
	n.shown.Inc()
	n.emit(EventShown, item)
}

// track registers the notification as active with its auto-dismiss timer
// and enforces the in-app stack limit.
func (n *Notifier) track(item *Notification, s Settings) {
	if !item.Desktop && !item.InApp {
		return
	}
	n.mu.Lock()
	a := &active{n: item}
	if item.InApp || !s.RequireInteraction {
		id := item.ID
		a.timer = time.AfterFunc(s.Duration(), func() { n.remove(id, EventDismissed) })
	}
	n.active[item.ID] = a
	var evicted []*Notification
	if item.InApp {
		n.inAppOrder = append(n.inAppOrder, item.ID)
		for s.MaxStackSize > 0 && len(n.inAppOrder) > s.MaxStackSize {
			oldest := n.inAppOrder[0]
			n.inAppOrder = n.inAppOrder[1:]
			if old, ok := n.active[oldest]; ok {
				if old.timer != nil {
					old.timer.Stop()
				}
				delete(n.active, oldest)
				evicted = append(evicted, old.n)
			}
		}
	}
	n.mu.Unlock()
	for _, old := range evicted {
		n.emit(EventDismissed, old)
	}
}

// remove drops an active notification and stops its timer.
func (n *Notifier) remove(id, event string) *Notification {
	n.mu.Lock()
	a, ok := n.active[id]
	if !ok {
		n.mu.Unlock()
		return nil
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	delete(n.active, id)
	for i, x := range n.inAppOrder {
		if x == id {
			n.inAppOrder = append(n.inAppOrder[:i], n.inAppOrder[i+1:]...)
			break
		}
	}
	n.mu.Unlock()
	n.emit(event, a.n)
	return a.n
}

// Dismiss closes an active notification. Its auto-dismiss timer is cancelled.
func (n *Notifier) Dismiss(id string) bool {
	return n.remove(id, EventDismissed) != nil
}

// Click runs the notification's click handler, closes it and marks it read.
func (n *Notifier) Click(id string) bool {
	item := n.remove(id, EventClick)
	if item == nil {
		return false
	}
	if item.onClick != nil {
		item.onClick()
	}
	n.decrementUnread()
	return true
}

// Active returns the currently displayed notifications, oldest first.
func (n *Notifier) Active() []*Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Notification, 0, len(n.active))
	seen := make(map[string]bool, len(n.inAppOrder))
	for _, id := range n.inAppOrder {
		if a, ok := n.active[id]; ok {
			out = append(out, a.n)
			seen[id] = true
		}
	}
	for id, a := range n.active {
		if !seen[id] {
			out = append(out, a.n)
		}
	}
	return out
}

// Shown counts notifications shown since start.
func (n *Notifier) Shown() int64 { return n.shown.Load() }

// ──────────────────────────────────────────────
// Unread badge
// ──────────────────────────────────────────────

func (n *Notifier) UnreadCount() int { return int(n.unread.Load()) }

func (n *Notifier) ResetUnread() { n.unread.Store(0) }

func (n *Notifier) decrementUnread() {
	for {
		cur := n.unread.Load()
		if cur <= 0 || n.unread.CAS(cur, cur-1) {
			return
		}
	}
}

// BadgeText renders the unread count: "" at zero, "99+" above 99.
func (n *Notifier) BadgeText() string {
	c := n.UnreadCount()
	switch {
	case c <= 0:
		return ""
	case c > 99:
		return "99+"
	}
	return strconv.Itoa(c)
}

// ──────────────────────────────────────────────
// Events
// ──────────────────────────────────────────────

// On sets the single listener for event, replacing any previous one.
func (n *Notifier) On(event string, fn func(payload any)) {
	if fn == nil {
		return
	}
	n.mu.Lock()
	n.listeners[event] = fn
	n.mu.Unlock()
}

// Off removes the listener for event.
func (n *Notifier) Off(event string) {
	n.mu.Lock()
	delete(n.listeners, event)
	n.mu.Unlock()
}

func (n *Notifier) emit(event string, payload any) {
	n.mu.Lock()
	fn := n.listeners[event]
	n.mu.Unlock()
	if fn != nil {
		fn(payload)
	}
}

// ──────────────────────────────────────────────
// Permission
// ──────────────────────────────────────────────

func (n *Notifier) checkPermission() Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.perm == nil {
		n.permission = PermissionUnsupported
	} else {
		n.permission = n.perm.Permission()
	}
	return n.permission
}

// Permission returns the last known desktop permission state.
func (n *Notifier) Permission() Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.permission
}

// RequestPermission asks the provider for desktop permission and turns the
// desktop setting on or off to match the answer.
func (n *Notifier) RequestPermission(ctx context.Context) (Permission, error) {
	n.mu.Lock()
	perm := n.perm
	n.mu.Unlock()
	if perm == nil {
		n.mu.Lock()
		n.permission = PermissionUnsupported
		n.mu.Unlock()
		return PermissionUnsupported, nil
	}
	state, err := perm.RequestPermission(ctx)
	if err != nil {
		log.Printf("[Notifier] permission request failed: %v", err)
		return n.Permission(), jaat.NewError(jaat.KindPermission, "request", "desktop", err)
	}
	n.mu.Lock()
	n.permission = state
	n.mu.Unlock()
	n.UpdateSettings(map[string]any{"desktop": state == PermissionGranted})
	return state, nil
}

// ──────────────────────────────────────────────
// Settings helpers
// ──────────────────────────────────────────────

// SetSound selects the current sound. Unknown ids are ignored.
func (n *Notifier) SetSound(id string) bool {
	if _, ok := LookupSound(id); !ok {
		log.Printf("[Notifier] sound not found: %s", id)
		return false
	}
	n.mu.Lock()
	sound := n.sound
	n.mu.Unlock()
	if cache, ok := sound.(*AudioCache); ok {
		if _, err := cache.Preload(id); err != nil {
			log.Printf("[Notifier] preload %s failed: %v", id, err)
		}
	}
	n.UpdateSettings(map[string]any{"currentSound": id})
	return true
}

// SetSoundVolume clamps volume into [0,1] and stores it.
func (n *Notifier) SetSoundVolume(volume float64) float64 {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	n.UpdateSettings(map[string]any{"soundVolume": volume})
	return volume
}

// AddKeyword adds a watched keyword; empty and duplicate keywords are ignored.
func (n *Notifier) AddKeyword(keyword string) bool {
	if keyword == "" {
		return false
	}
	keywords := n.model.Strings("keywords")
	for _, k := range keywords {
		if k == keyword {
			return false
		}
	}
	n.UpdateSettings(map[string]any{"keywords": append(keywords, keyword)})
	return true
}

// RemoveKeyword drops a watched keyword.
func (n *Notifier) RemoveKeyword(keyword string) {
	keywords := n.model.Strings("keywords")
	out := keywords[:0]
	for _, k := range keywords {
		if k != keyword {
			out = append(out, k)
		}
	}
	n.UpdateSettings(map[string]any{"keywords": out})
}

// ──────────────────────────────────────────────
// Feature helpers
// ──────────────────────────────────────────────

var mentionRe = regexp.MustCompile(`@\w+`)

// Message is an incoming chat message.
type Message struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
	Avatar  string `json:"avatar,omitempty"`
}

// Process is a finished background task.
type Process struct {
	Name string `json:"name"`
}

// ExportInfo describes a finished export.
type ExportInfo struct {
	Type     string `json:"type"`
	Filename string `json:"filename,omitempty"`
}

// ContainsMention reports an @handle in text.
func ContainsMention(text string) bool {
	return mentionRe.MatchString(text)
}

// ContainsKeyword reports whether text contains a watched keyword,
// case-insensitively.
func (n *Notifier) ContainsKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range n.Settings().Keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// ShouldNotifyForMessage gates message notifications on the enabled and
// new-message settings. Mentions and keywords only label the reason.
func (n *Notifier) ShouldNotifyForMessage(msg Message) bool {
	s := n.Settings()
	return s.Enabled && s.NotifyOnNewMessages
}

func (n *Notifier) messageReason(msg Message) string {
	s := n.Settings()
	switch {
	case s.NotifyOnMentions && ContainsMention(msg.Content):
		return "mention"
	case s.NotifyOnKeywords && n.ContainsKeyword(msg.Content):
		return "keyword"
	}
	return "message"
}

// NotifyNewMessage notifies about a chat message, with a preview when
// enabled.
func (n *Notifier) NotifyNewMessage(msg Message) string {
	if !n.ShouldNotifyForMessage(msg) {
		return ""
	}
	text := "New message received"
	if n.Settings().ShowPreview {
		text = msg.Content
	}
	return n.enqueue(Request{
		Title:   orDefault(msg.Sender, "New Message"),
		Message: text,
		Type:    TypeInfo,
		Icon:    msg.Avatar,
		OnClick: func() { n.emit(EventMessageClick, msg) },
	}, n.messageReason(msg))
}

// NotifyProcessComplete notifies that a background process finished.
func (n *Notifier) NotifyProcessComplete(p Process) string {
	if !n.Settings().NotifyOnProcessComplete {
		return ""
	}
	return n.Notify(Request{
		Title:   "Process Complete",
		Message: orDefault(p.Name, "A process has completed"),
		Type:    TypeSuccess,
		OnClick: func() { n.emit(EventProcessClick, p) },
	})
}

// NotifyExportComplete notifies that an export finished.
func (n *Notifier) NotifyExportComplete(e ExportInfo) string {
	if !n.Settings().NotifyOnExport {
		return ""
	}
	return n.Notify(Request{
		Title:   "Export Complete",
		Message: "Your " + orDefault(e.Type, "data") + " has been exported successfully",
		Type:    TypeSuccess,
		OnClick: func() { n.emit(EventExportClick, e) },
	})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
