package server

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/export"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/notifier"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/translate"
)

// SessionHeader carries the session id. Requests without one are given a
// fresh id, echoed back in the response header.
const SessionHeader = "X-JAAT-User"

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:@-]{1,128}$`)

// session is the per-user state behind every route: the namespace the
// personas persist under, plus the notifier, exporter and translator.
type session struct {
	id        string
	prefs     *jaat.PreferenceStore
	notifier  *notifier.Notifier
	exporter  *export.Exporter
	pdf       *export.PDFSettings
	translate *translate.Session
	stream    *stream
	limiter   *rate.Limiter

	lastSeen atomic.Time
	persona  atomic.String
}

type sessionKey struct{}

func sessionFrom(ctx context.Context) *session {
	s, _ := ctx.Value(sessionKey{}).(*session)
	return s
}

// sessions owns every live session. Idle ones are closed by the janitor.
type sessions struct {
	srv *Server

	mu   sync.Mutex
	byID map[string]*session
}

func newSessions(srv *Server) *sessions {
	return &sessions{srv: srv, byID: make(map[string]*session)}
}

// get returns the session for id, creating it on first use.
func (ss *sessions) get(id string) *session {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if s, ok := ss.byID[id]; ok {
		s.lastSeen.Store(ss.srv.now())
		return s
	}
	s := ss.srv.newSession(id)
	ss.byID[id] = s
	metricSessions.Inc()
	return s
}

func (ss *sessions) lookup(id string) (*session, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	s, ok := ss.byID[id]
	return s, ok
}

func (ss *sessions) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.byID)
}

// sweep closes sessions idle for longer than ttl and returns how many.
func (ss *sessions) sweep(ttl time.Duration) int {
	cutoff := ss.srv.now().Add(-ttl)
	ss.mu.Lock()
	var idle []*session
	for id, s := range ss.byID {
		if s.lastSeen.Load().Before(cutoff) && s.stream.Len() == 0 {
			idle = append(idle, s)
			delete(ss.byID, id)
		}
	}
	ss.mu.Unlock()
	for _, s := range idle {
		ss.srv.closeSession(s)
	}
	return len(idle)
}

func (ss *sessions) closeAll() {
	ss.mu.Lock()
	all := make([]*session, 0, len(ss.byID))
	for id, s := range ss.byID {
		all = append(all, s)
		delete(ss.byID, id)
	}
	ss.mu.Unlock()
	for _, s := range all {
		ss.srv.closeSession(s)
	}
}

func (srv *Server) newSession(id string) *session {
	s := &session{
		id:     id,
		prefs:  jaat.NewPreferenceStore(srv.kv, id),
		stream: newStream(srv.logger.With(slog.String("session", id))),
	}
	s.lastSeen.Store(srv.now())

	limit := rate.Inf
	if srv.opts.RateLimit > 0 {
		limit = rate.Limit(srv.opts.RateLimit)
	}
	s.limiter = rate.NewLimiter(limit, max(srv.opts.RateBurst, 1))

	n := notifier.New(s.prefs)
	in := []notifier.Channel{s.stream.sink(n)}
	if srv.opts.Bus != nil {
		in = append(in, srv.opts.Bus.For(id))
	}
	initOpts := notifier.Options{InApp: in, Stagger: srv.opts.Stagger}
	if srv.opts.DurationMS > 0 {
		initOpts.Settings = map[string]any{"durationMS": srv.opts.DurationMS}
	}
	if srv.opts.Push != nil {
		target := srv.opts.Push.For(id)
		initOpts.Desktop = target
		initOpts.Permission = target
	}
	n.On(notifier.EventDismissed, func(p any) {
		if item, ok := p.(*notifier.Notification); ok {
			s.stream.publish(n, "dismissed", item)
		}
	})
	n.On(notifier.EventClick, func(p any) {
		if item, ok := p.(*notifier.Notification); ok {
			s.stream.publish(n, "clicked", item)
		}
	})
	s.notifier = n.Init(initOpts)

	s.exporter = export.New(srv.opts.Export, export.WithNotifier(n), export.WithClock(srv.now))
	s.pdf = export.NewPDFSettings(s.prefs, s.exporter, func() []export.Message {
		return srv.currentHistory(s)
	})
	s.translate = translate.New(s.prefs, srv.opts.Translator, translate.WithClock(srv.now))

	srv.logger.Debug("session opened", slog.String("session", id))
	return s
}

// currentHistory is the conversation of the persona the session last
// talked to.
func (srv *Server) currentHistory(s *session) []export.Message {
	id := s.persona.Load()
	if id == "" {
		return nil
	}
	m, err := srv.registry.Mode(s.id, id)
	if err != nil {
		return nil
	}
	return export.FromHistory(m.History())
}

func (srv *Server) closeSession(s *session) {
	s.notifier.Close()
	s.stream.Close()
	srv.registry.Evict(s.id)
	metricSessions.Dec()
	srv.logger.Debug("session closed", slog.String("session", s.id))
}

// janitor sweeps idle sessions until ctx is done.
func (srv *Server) janitor(ctx context.Context) {
	ttl := srv.opts.SessionTTL
	if ttl <= 0 {
		<-ctx.Done()
		return
	}
	tick := min(ttl/2, time.Minute)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := srv.sessions.sweep(ttl); n > 0 {
				srv.logger.Info("evicted idle sessions", slog.Int("count", n))
			}
		}
	}
}
