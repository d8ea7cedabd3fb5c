// Package chatclient implements the client side of the /chat protocol: a
// persistent session that joins a room on connect, dispatches inbound frames
// to caller-supplied handlers, and reconnects after a fixed delay whenever
// the connection drops.
package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultReconnectDelay is the fixed pause between reconnect attempts.
// Retries are unbounded at a fixed interval rather than backed off: the
// server is a local, operator-controlled endpoint, not a public one.
const DefaultReconnectDelay = 3 * time.Second

// ErrNotConnected is returned by Send while the session is disconnected.
var ErrNotConnected = errors.New("chatclient: not connected")

// User mirrors the server's participant representation.
type User struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// ChatMessage mirrors one server-side history entry.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Body      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// serverFrame is the union of all server-to-client frames; Type selects
// which fields are populated.
type serverFrame struct {
	Type     string        `json:"type"`
	RoomID   string        `json:"roomId"`
	Users    []User        `json:"users"`
	Messages []ChatMessage `json:"messages"`
	User     User          `json:"user"`
	Message  ChatMessage   `json:"message"`
}

type joinFrame struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type sendFrame struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Body     string `json:"message"`
}

// Config identifies the room view this session maintains.
type Config struct {
	ServerURL      string // WebSocket URL of the chat endpoint, e.g. ws://localhost:3001/chat
	RoomID         string
	UserID         string
	Username       string
	ReconnectDelay time.Duration
}

// Handlers receive dispatched frames. Nil handlers are skipped.
type Handlers struct {
	OnRoomJoined func(users []User, history []ChatMessage)
	OnMessage    func(msg ChatMessage)
	OnUserJoined func(user User, users []User)
	OnUserLeft   func(user User, users []User)
}

// Session is one client connection to one room. Run drives the connect and
// reconnect loop; Send can be called from any goroutine.
type Session struct {
	cfg      Config
	handlers Handlers
	dialer   *websocket.Dialer
	log      *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// New validates the configuration and returns an unconnected session.
func New(cfg Config, handlers Handlers, log *slog.Logger) (*Session, error) {
	if cfg.ServerURL == "" || cfg.RoomID == "" || cfg.UserID == "" || cfg.Username == "" {
		return nil, errors.New("chatclient: server URL, room id, user id, and username are required")
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Session{
		cfg:      cfg,
		handlers: handlers,
		dialer:   websocket.DefaultDialer,
		log:      log,
	}, nil
}

// Run connects and serves until ctx is cancelled, sleeping the configured
// delay between attempts. The initial dial failing is retried like any
// later drop.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := s.connectAndServe(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("chat connection lost", "err", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ReconnectDelay):
		}
	}
}

func (s *Session) connectAndServe(ctx context.Context) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.ServerURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
	}()

	// Close the connection when ctx is cancelled so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	if err := s.writeJSON(joinFrame{
		Type:     "join-room",
		RoomID:   s.cfg.RoomID,
		UserID:   s.cfg.UserID,
		Username: s.cfg.Username,
	}); err != nil {
		return err
	}

	s.log.Info("joined chat room", "room", s.cfg.RoomID, "user", s.cfg.Username)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.dispatch(raw)
	}
}

func (s *Session) dispatch(raw []byte) {
	var frame serverFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.log.Warn("dropping unparseable server frame", "err", err)
		return
	}

	switch frame.Type {
	case "room-joined":
		if s.handlers.OnRoomJoined != nil {
			s.handlers.OnRoomJoined(frame.Users, frame.Messages)
		}
	case "new-message":
		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(frame.Message)
		}
	case "user-joined":
		if s.handlers.OnUserJoined != nil {
			s.handlers.OnUserJoined(frame.User, frame.Users)
		}
	case "user-left":
		if s.handlers.OnUserLeft != nil {
			s.handlers.OnUserLeft(frame.User, frame.Users)
		}
	default:
		s.log.Debug("ignoring server frame with unknown type", "type", frame.Type)
	}
}

// Send posts a chat message on the current connection.
func (s *Session) Send(body string) error {
	return s.writeJSON(sendFrame{
		Type:     "send-message",
		RoomID:   s.cfg.RoomID,
		UserID:   s.cfg.UserID,
		Username: s.cfg.Username,
		Body:     body,
	})
}

func (s *Session) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	return s.conn.WriteJSON(v)
}
