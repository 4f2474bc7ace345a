package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cyberFlowTech/jaat-agents-sdk-go/notifier"
)

const (
	streamBuffer     = 100
	streamPingPeriod = 54 * time.Second
	streamPongWait   = 60 * time.Second
	streamWriteWait  = 10 * time.Second
)

// StreamEvent is pushed to notification stream clients.
type StreamEvent struct {
	Type         string                 `json:"type"` // shown, dismissed, clicked
	Notification *notifier.Notification `json:"notification,omitempty"`
	Unread       int                    `json:"unread"`
	Badge        string                 `json:"badge"`
	Timestamp    time.Time              `json:"timestamp"`
}

// StreamCommand is read from stream clients.
type StreamCommand struct {
	Action string `json:"action"` // dismiss or click
	ID     string `json:"id"`
}

type streamClient struct {
	conn    *websocket.Conn
	send    chan StreamEvent
	writeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// stream fans notifier events out to every websocket of one session.
type stream struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*streamClient]bool
}

func newStream(logger *slog.Logger) *stream {
	return &stream{logger: logger, clients: make(map[*streamClient]bool)}
}

// sink is the in-app channel the session's notifier delivers shown
// notifications to.
func (s *stream) sink(n *notifier.Notifier) notifier.Channel {
	return notifier.ChannelFunc{ID: "stream", Fn: func(_ context.Context, item *notifier.Notification) error {
		s.publish(n, "shown", item)
		return nil
	}}
}

func (s *stream) publish(n *notifier.Notifier, kind string, item *notifier.Notification) {
	ev := StreamEvent{
		Type:         kind,
		Notification: item,
		Unread:       n.UnreadCount(),
		Badge:        n.BadgeText(),
		Timestamp:    time.Now(),
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- ev:
		default:
			s.logger.Warn("stream backpressure, dropping event", slog.String("type", kind))
		}
	}
}

func (s *stream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// serve takes over an upgraded connection until the client goes away.
func (s *stream) serve(conn *websocket.Conn, n *notifier.Notifier) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &streamClient{conn: conn, send: make(chan StreamEvent, streamBuffer), ctx: ctx, cancel: cancel}

	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
	metricStreamClients.Inc()

	// Bring the new client up to date with what is already on screen.
	for _, item := range n.Active() {
		select {
		case c.send <- StreamEvent{Type: "shown", Notification: item, Unread: n.UnreadCount(), Badge: n.BadgeText(), Timestamp: time.Now()}:
		default:
		}
	}

	go c.writePump()
	go s.readPump(c, n)
}

func (s *stream) readPump(c *streamClient, n *notifier.Notifier) {
	defer func() {
		s.remove(c)
		c.writeMu.Lock()
		c.conn.Close()
		c.writeMu.Unlock()
		metricStreamClients.Dec()
	}()

	c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
		return nil
	})

	for {
		var cmd StreamCommand
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("stream read error", slog.String("error", err.Error()))
			}
			return
		}
		switch cmd.Action {
		case "dismiss":
			n.Dismiss(cmd.ID)
		case "click":
			n.Click(cmd.ID)
		default:
			s.logger.Debug("unknown stream action", slog.String("action", cmd.Action))
		}
	}
}

func (c *streamClient) writePump() {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		c.cancel()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.writeMu.Lock()
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				c.writeMu.Unlock()
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			err := c.conn.WriteJSON(ev)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (s *stream) remove(c *streamClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
}

// Close disconnects every client.
func (s *stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.cancel()
		c.writeMu.Lock()
		c.conn.Close()
		c.writeMu.Unlock()
		close(c.send)
	}
	s.clients = make(map[*streamClient]bool)
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}
