package roomchat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/putto11262002/roomchat/core"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

const (
	ViewEvent   = "view"
	TypingEvent = "typing"
	SendEvent   = "send"
)

// Event is the frame exchanged over the view stream.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outEvent struct {
	Type    string    `json:"type"`
	Payload core.View `json:"payload"`
}

// ViewStream pushes the session view to websocket clients on every change
// and accepts typing and send events from them.
// An open stream keeps its session in use.
type ViewStream struct {
	context  context.Context
	wg       *sync.WaitGroup
	logger   *slog.Logger
	sessions *Sessions
	upgrader websocket.Upgrader
}

func NewViewStream(ctx context.Context, wg *sync.WaitGroup, logger *slog.Logger, sessions *Sessions, checkOrigin func(*http.Request) bool) *ViewStream {
	return &ViewStream{
		context:  ctx,
		wg:       wg,
		logger:   logger,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin,
		},
	}
}

type viewConn struct {
	conn    *websocket.Conn
	chat    *core.Chat
	context context.Context
	// changed holds at most one pending redraw.
	changed chan struct{}
	done    chan struct{}
	touch   func()
	logger  *slog.Logger
}

func (s *ViewStream) Handler(w http.ResponseWriter, r *http.Request) {
	session := SessionFromRequest(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Upgrade: %v", err))
		return
	}
	c := &viewConn{
		conn:    conn,
		chat:    session.Chat,
		context: s.context,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
		touch:   func() { s.sessions.Touch(session.ID) },
		logger:  s.logger.With(slog.String("session", session.ID)),
	}
	c.changed <- struct{}{}
	unsubscribe := c.chat.Subscribe(func(core.ChatState) { c.notify() })

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		defer unsubscribe()
		c.readLoop()
	}()
	go func() {
		defer s.wg.Done()
		c.writeLoop()
	}()
}

func (c *viewConn) notify() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

func (c *viewConn) readLoop() {
	c.logger.Debug("read loop started")
	defer func() {
		close(c.done)
		c.conn.Close()
		c.logger.Debug("read loop stopped")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.touch()
		return nil
	})
	for {
		format, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug(fmt.Sprintf("expected close: %v", err))
				return
			}
			c.logger.Error(fmt.Sprintf("ReadMessage: %v", err))
			return
		}
		if format != websocket.TextMessage {
			c.logger.Error(fmt.Sprintf("unexpected message format: %v", format))
			continue
		}
		c.touch()
		if err := c.handle(data); err != nil {
			c.logger.Error(err.Error())
		}
	}
}

func (c *viewConn) handle(data []byte) error {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("Unmarshal: %w", err)
	}
	switch e.Type {
	case TypingEvent:
		var p TypingPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return fmt.Errorf("Unmarshal %s: %w", e.Type, err)
		}
		p.apply(c.chat)
	case SendEvent:
		var p SendPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return fmt.Errorf("Unmarshal %s: %w", e.Type, err)
		}
		c.chat.Send(p.Content)
	default:
		return fmt.Errorf("unknown event type: %q", e.Type)
	}
	return nil
}

func (c *viewConn) writeLoop() {
	c.logger.Debug("write loop started")
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.Debug("write loop stopped")
	}()

	for {
		select {
		case <-c.changed:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(outEvent{Type: ViewEvent, Payload: c.chat.View()}); err != nil {
				c.logger.Error(fmt.Sprintf("WriteJSON: %v", err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error(fmt.Sprintf("writing ping: %v", err))
				return
			}
		case <-c.done:
			return
		case <-c.context.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
