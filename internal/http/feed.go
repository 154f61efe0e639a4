package http

import (
	nethttp "net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"go-process-table-ui/internal/render"
)

const (
	feedWriteWait  = 5 * time.Second
	feedBufferSize = 16
)

// feedEvent is one message on the live feed. Type is "state" or "reload".
type feedEvent struct {
	Type  string        `json:"type"`
	State *render.State `json:"state,omitempty"`
}

type feedClient struct {
	conn *websocket.Conn
	send chan feedEvent
}

// Feed pushes render state transitions to websocket clients.
type Feed struct {
	logger   *zap.Logger
	current  func() render.State
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*feedClient]struct{}
	closed  bool
}

func newFeed(logger *zap.Logger, current func() render.State) *Feed {
	return &Feed{
		logger:  logger,
		current: current,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: map[*feedClient]struct{}{},
	}
}

// BroadcastState sends a state transition to every client.
func (f *Feed) BroadcastState(s render.State) {
	f.broadcast(feedEvent{Type: "state", State: &s})
}

// BroadcastReload asks every client to reload the page.
func (f *Feed) BroadcastReload() {
	f.broadcast(feedEvent{Type: "reload"})
}

func (f *Feed) broadcast(ev feedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		select {
		case c.send <- ev:
		default:
			f.logger.Debug("feed client too slow, dropping event", zap.String("type", ev.Type))
		}
	}
}

func (f *Feed) handler() nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		conn, err := f.upgrader.Upgrade(w, r, nil)
		if err != nil {
			f.logger.Debug("feed upgrade failed", zap.Error(err))
			return
		}

		c := &feedClient{conn: conn, send: make(chan feedEvent, feedBufferSize)}
		state := f.current()
		c.send <- feedEvent{Type: "state", State: &state}
		if !f.register(c) {
			_ = conn.Close()
			return
		}
		atomic.AddInt64(&feedClients, 1)

		done := make(chan struct{})
		go func() {
			defer close(done)
			f.writeLoop(c)
		}()

		// Clients only send control frames; a read error means they left.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		f.unregister(c)
		<-done
		_ = conn.Close()
		atomic.AddInt64(&feedClients, -1)
	}
}

func (f *Feed) writeLoop(c *feedClient) {
	for ev := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			f.logger.Debug("feed write failed", zap.Error(err))
			// Unblock the read loop.
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(feedWriteWait))
	_ = c.conn.Close()
}

func (f *Feed) register(c *feedClient) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.clients[c] = struct{}{}
	return true
}

func (f *Feed) unregister(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.send)
	}
}

// Close disconnects every client and rejects new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for c := range f.clients {
		delete(f.clients, c)
		close(c.send)
	}
}
