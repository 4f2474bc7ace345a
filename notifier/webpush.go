package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// PushSubscription is a browser push subscription.
type PushSubscription struct {
	ID        string    `json:"id"`
	Endpoint  string    `json:"endpoint"`
	Keys      PushKeys  `json:"keys"`
	CreatedAt time.Time `json:"createdAt"`
}

// PushKeys are the subscription encryption keys.
type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// WebPushConfig configures desktop delivery through the Web Push protocol.
type WebPushConfig struct {
	VAPIDPublic  string // generated when empty
	VAPIDPrivate string
	Subject      string // mailto: or https: contact, required
	TTL          int    // seconds, default 3600
	HTTPClient   *http.Client
}

// WebPush sends desktop notifications to browser subscriptions, grouped by
// principal (session namespace).
type WebPush struct {
	cfg WebPushConfig

	mu   sync.RWMutex
	subs map[string]map[string]*PushSubscription
}

// NewWebPush validates cfg and generates VAPID keys when none are given.
func NewWebPush(cfg WebPushConfig) (*WebPush, error) {
	if cfg.Subject == "" {
		return nil, errors.New("push subject required (mailto: or https: url)")
	}
	if cfg.VAPIDPublic == "" || cfg.VAPIDPrivate == "" {
		priv, pub, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			return nil, fmt.Errorf("failed to generate VAPID keys: %w", err)
		}
		cfg.VAPIDPrivate, cfg.VAPIDPublic = priv, pub
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 3600
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebPush{cfg: cfg, subs: make(map[string]map[string]*PushSubscription)}, nil
}

// VAPIDPublicKey is handed to browsers when they subscribe.
func (w *WebPush) VAPIDPublicKey() string { return w.cfg.VAPIDPublic }

// Subscribe stores a subscription for principal.
func (w *WebPush) Subscribe(principal string, sub PushSubscription) error {
	if sub.ID == "" || sub.Endpoint == "" {
		return errors.New("subscription id and endpoint are required")
	}
	sub.CreatedAt = time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.subs[principal] == nil {
		w.subs[principal] = make(map[string]*PushSubscription)
	}
	w.subs[principal][sub.ID] = &sub
	return nil
}

// Unsubscribe removes a subscription.
func (w *WebPush) Unsubscribe(principal, id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.subs[principal], id)
}

// Subscriptions lists principal's subscriptions by id.
func (w *WebPush) Subscriptions(principal string) []PushSubscription {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]PushSubscription, 0, len(w.subs[principal]))
	for _, s := range w.subs[principal] {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// For returns the desktop channel and permission provider of one principal.
func (w *WebPush) For(principal string) *PushTarget {
	return &PushTarget{push: w, principal: principal}
}

// PushTarget is a WebPush bound to one principal. Permission is granted
// once the principal has registered a subscription.
type PushTarget struct {
	push      *WebPush
	principal string
}

func (t *PushTarget) Name() string { return "desktop" }

func (t *PushTarget) Permission() Permission {
	if len(t.push.Subscriptions(t.principal)) > 0 {
		return PermissionGranted
	}
	return PermissionDefault
}

// RequestPermission reports the current state; browsers grant permission by
// subscribing, which happens client side.
func (t *PushTarget) RequestPermission(context.Context) (Permission, error) {
	return t.Permission(), nil
}

type pushPayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon,omitempty"`
	Tag   string         `json:"tag"`
	Data  map[string]any `json:"data,omitempty"`
}

// Deliver sends n to every subscription of the principal. Expired
// subscriptions (404/410) are dropped.
func (t *PushTarget) Deliver(ctx context.Context, n *Notification) error {
	payload, err := json.Marshal(pushPayload{
		Title: n.Title,
		Body:  n.Message,
		Icon:  n.Icon,
		Tag:   n.ID,
		Data:  map[string]any{"type": n.Type, "id": n.ID},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	var lastErr error
	for _, sub := range t.push.Subscriptions(t.principal) {
		if err := t.send(ctx, sub, payload); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (t *PushTarget) send(ctx context.Context, sub PushSubscription, payload []byte) error {
	cfg := t.push.cfg
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	}, &webpush.Options{
		HTTPClient:      cfg.HTTPClient,
		Subscriber:      cfg.Subject,
		VAPIDPublicKey:  cfg.VAPIDPublic,
		VAPIDPrivateKey: cfg.VAPIDPrivate,
		TTL:             cfg.TTL,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		t.push.Unsubscribe(t.principal, sub.ID)
		return fmt.Errorf("subscription %s expired or invalid", sub.ID)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
	return nil
}

var (
	_ Channel            = (*PushTarget)(nil)
	_ PermissionProvider = (*PushTarget)(nil)
)
