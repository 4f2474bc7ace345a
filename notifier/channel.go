package notifier

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"sync"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

// Channel delivers a shown notification somewhere: a browser push service,
// a websocket, a message bus.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, n *Notification) error
}

// ChannelFunc adapts a function to Channel.
type ChannelFunc struct {
	ID string
	Fn func(ctx context.Context, n *Notification) error
}

func (c ChannelFunc) Name() string { return c.ID }

func (c ChannelFunc) Deliver(ctx context.Context, n *Notification) error { return c.Fn(ctx, n) }

// ──────────────────────────────────────────────
// Permission
// ──────────────────────────────────────────────

// Permission is the desktop notification permission state.
type Permission string

const (
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionDefault     Permission = "default"
	PermissionUnsupported Permission = "unsupported"
)

// PermissionProvider reports and requests desktop permission.
type PermissionProvider interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
}

// StaticPermission always reports the same state.
type StaticPermission Permission

func (p StaticPermission) Permission() Permission { return Permission(p) }

func (p StaticPermission) RequestPermission(context.Context) (Permission, error) {
	return Permission(p), nil
}

// ──────────────────────────────────────────────
// Sound
// ──────────────────────────────────────────────

// SoundPlayer plays a sound by id at a volume in [0,1].
type SoundPlayer interface {
	Play(ctx context.Context, soundID string, volume float64) error
}

// Output consumes decoded sound data, e.g. pushes it to a client or a device.
type Output func(ctx context.Context, sound Sound, data []byte, volume float64) error

// AudioCache loads sound files lazily from an fs.FS and keeps them for the
// life of the process. The sound table is small and fixed, so nothing is
// ever evicted.
type AudioCache struct {
	FS     fs.FS
	Output Output

	mu    sync.Mutex
	cache map[string][]byte
}

// NewAudioCache creates a cache over fsys. A nil output only preloads.
func NewAudioCache(fsys fs.FS, out Output) *AudioCache {
	return &AudioCache{FS: fsys, Output: out, cache: make(map[string][]byte)}
}

// Preload loads and caches a sound. Failures are media errors.
func (a *AudioCache) Preload(soundID string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if data, ok := a.cache[soundID]; ok {
		return data, nil
	}
	sound, ok := LookupSound(soundID)
	if !ok {
		return nil, jaat.NewError(jaat.KindMedia, "lookup", soundID, fmt.Errorf("sound not found"))
	}
	if a.FS == nil {
		return nil, jaat.NewError(jaat.KindMedia, "load", soundID, fmt.Errorf("no sound source"))
	}
	data, err := fs.ReadFile(a.FS, sound.File)
	if err != nil {
		return nil, jaat.NewError(jaat.KindMedia, "load", soundID, err)
	}
	a.cache[soundID] = data
	return data, nil
}

// Cached reports whether soundID is already loaded.
func (a *AudioCache) Cached(soundID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.cache[soundID]
	return ok
}

func (a *AudioCache) Play(ctx context.Context, soundID string, volume float64) error {
	data, err := a.Preload(soundID)
	if err != nil {
		return err
	}
	if a.Output == nil {
		return nil
	}
	sound, _ := LookupSound(soundID)
	if err := a.Output(ctx, sound, data, volume); err != nil {
		return jaat.NewError(jaat.KindMedia, "play", soundID, err)
	}
	return nil
}

func logChannelError(channel string, err error) {
	log.Printf("[Notifier] %s delivery failed: %v", channel, err)
	recordNotification(channel, "error")
}
