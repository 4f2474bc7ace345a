package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cyberFlowTech/jaat-agents-sdk-go/notifier"
)

// ──────────────────────────────────────────────
// Notifier
// ──────────────────────────────────────────────

// NotifyRequest is the body of POST /api/notifier/notify. Omitted flags
// take the session's settings.
type NotifyRequest struct {
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Icon      string        `json:"icon,omitempty"`
	Type      notifier.Type `json:"type,omitempty"`
	PlaySound *bool         `json:"playSound,omitempty"`
	SoundID   string        `json:"soundId,omitempty"`
	Desktop   *bool         `json:"desktop,omitempty"`
	InApp     *bool         `json:"inApp,omitempty"`
}

// NotifierState is returned by GET /api/notifier.
type NotifierState struct {
	Settings   notifier.Settings        `json:"settings"`
	Active     []*notifier.Notification `json:"active"`
	Unread     int                      `json:"unread"`
	Badge      string                   `json:"badge"`
	Permission notifier.Permission      `json:"permission"`
	Shown      int64                    `json:"shown"`
}

func notifierState(n *notifier.Notifier) NotifierState {
	return NotifierState{
		Settings:   n.Settings(),
		Active:     n.Active(),
		Unread:     n.UnreadCount(),
		Badge:      n.BadgeText(),
		Permission: n.Permission(),
		Shown:      n.Shown(),
	}
}

// queued answers a notify call; an empty id means the settings suppressed
// it.
func queued(w http.ResponseWriter, id string) {
	respondJSON(w, http.StatusAccepted, map[string]any{"id": id, "queued": id != ""})
}

func (srv *Server) handleNotifierState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, notifierState(sessionFrom(r.Context()).notifier))
}

func (srv *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req NotifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Title == "" && req.Message == "" {
		respondError(w, http.StatusBadRequest, errors.New("title or message is required"))
		return
	}
	n := sessionFrom(r.Context()).notifier
	queued(w, n.Notify(notifier.Request{
		Title:     req.Title,
		Message:   req.Message,
		Icon:      req.Icon,
		Type:      req.Type,
		PlaySound: req.PlaySound,
		SoundID:   req.SoundID,
		Desktop:   req.Desktop,
		InApp:     req.InApp,
	}))
}

func (srv *Server) handleNotifyMessage(w http.ResponseWriter, r *http.Request) {
	var msg notifier.Message
	if err := decodeJSON(r, &msg); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	queued(w, sessionFrom(r.Context()).notifier.NotifyNewMessage(msg))
}

func (srv *Server) handleNotifyProcess(w http.ResponseWriter, r *http.Request) {
	var p notifier.Process
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	queued(w, sessionFrom(r.Context()).notifier.NotifyProcessComplete(p))
}

func (srv *Server) handleNotifierSettings(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	n := sessionFrom(r.Context()).notifier
	n.UpdateSettings(patch)
	respondJSON(w, http.StatusOK, n.Settings())
}

func (srv *Server) handleSounds(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"sounds":  notifier.Sounds,
		"current": sessionFrom(r.Context()).notifier.Settings().CurrentSound,
	})
}

// SoundRequest selects the notification sound and, optionally, its volume.
type SoundRequest struct {
	ID     string   `json:"id,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
}

func (srv *Server) handleSetSound(w http.ResponseWriter, r *http.Request) {
	var req SoundRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	n := sessionFrom(r.Context()).notifier
	if req.ID != "" && !n.SetSound(req.ID) {
		respondError(w, http.StatusNotFound, fmt.Errorf("unknown sound %q", req.ID))
		return
	}
	if req.Volume != nil {
		n.SetSoundVolume(*req.Volume)
	}
	respondJSON(w, http.StatusOK, n.Settings())
}

// KeywordRequest is the body of POST /api/notifier/keywords.
type KeywordRequest struct {
	Keyword string `json:"keyword"`
}

func (srv *Server) handleAddKeyword(w http.ResponseWriter, r *http.Request) {
	var req KeywordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword == "" {
		respondError(w, http.StatusBadRequest, errors.New("keyword is required"))
		return
	}
	n := sessionFrom(r.Context()).notifier
	added := n.AddKeyword(req.Keyword)
	respondJSON(w, http.StatusOK, map[string]any{"added": added, "keywords": n.Settings().Keywords})
}

func (srv *Server) handleRemoveKeyword(w http.ResponseWriter, r *http.Request) {
	n := sessionFrom(r.Context()).notifier
	n.RemoveKeyword(chi.URLParam(r, "keyword"))
	respondJSON(w, http.StatusOK, map[string]any{"keywords": n.Settings().Keywords})
}

func (srv *Server) handleResetUnread(w http.ResponseWriter, r *http.Request) {
	n := sessionFrom(r.Context()).notifier
	n.ResetUnread()
	respondJSON(w, http.StatusOK, map[string]any{"unread": n.UnreadCount(), "badge": n.BadgeText()})
}

func (srv *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if !sessionFrom(r.Context()).notifier.Dismiss(chi.URLParam(r, "nid")) {
		respondError(w, http.StatusNotFound, errors.New("notification is not active"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	if !sessionFrom(r.Context()).notifier.Click(chi.URLParam(r, "nid")) {
		respondError(w, http.StatusNotFound, errors.New("notification is not active"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) handleNotifierPanel(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionFrom(r.Context()).notifier.Panel().Render())
}

func (srv *Server) handleNotifierPanelChange(w http.ResponseWriter, r *http.Request) {
	changePanel(w, r, sessionFrom(r.Context()).notifier.Panel())
}

// handleStream upgrades to a websocket that receives shown, dismissed and
// clicked events and may send {"action":"dismiss"|"click","id":...}.
func (srv *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	conn, err := srv.upgrader.Upgrade(w, r, http.Header{SessionHeader: []string{s.id}})
	if err != nil {
		srv.logger.Warn("stream upgrade failed", slog.String("session", s.id), slog.String("error", err.Error()))
		return
	}
	s.stream.serve(conn, s.notifier)
}

// ──────────────────────────────────────────────
// Web Push
// ──────────────────────────────────────────────

func (srv *Server) push(w http.ResponseWriter) (*notifier.WebPush, bool) {
	if srv.opts.Push == nil {
		respondError(w, http.StatusNotFound, errors.New("web push is not configured"))
		return nil, false
	}
	return srv.opts.Push, true
}

func (srv *Server) handleVAPIDKey(w http.ResponseWriter, r *http.Request) {
	push, ok := srv.push(w)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"publicKey": push.VAPIDPublicKey()})
}

func (srv *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	push, ok := srv.push(w)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, push.Subscriptions(sessionFrom(r.Context()).id))
}

// handleSubscribe registers a browser subscription. Subscribing is how a
// browser grants desktop permission, so the notifier re-reads it.
func (srv *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	push, ok := srv.push(w)
	if !ok {
		return
	}
	var sub notifier.PushSubscription
	if err := decodeJSON(r, &sub); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	s := sessionFrom(r.Context())
	if err := push.Subscribe(s.id, sub); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	perm, err := s.notifier.RequestPermission(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": sub.ID, "permission": perm})
}

func (srv *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	push, ok := srv.push(w)
	if !ok {
		return
	}
	s := sessionFrom(r.Context())
	push.Unsubscribe(s.id, chi.URLParam(r, "sid"))
	perm, _ := s.notifier.RequestPermission(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"permission": perm})
}
