// Package server manages individual WebSocket connections on the /chat
// endpoint: read/write pumps, per-connection rate limiting, and lifecycle
// handoff to the room registry.
package server

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 256
	pongWait       = 60 * time.Second
	pingInterval   = 54 * time.Second
	writeWait      = 10 * time.Second
)

// Client wraps one chat WebSocket connection. Inbound frames are handed to
// the registry; outbound frames are queued on a buffered channel drained by
// the write pump, so a slow peer never blocks a broadcast.
type Client struct {
	conn           *websocket.Conn
	send           chan []byte
	registry       *Registry
	addr           string
	maxMessageSize int64
	rateLimiter    *rateLimiter
	log            *slog.Logger
	closeOnce      sync.Once
}

// NewClient wraps an accepted connection. The caller is expected to start
// the pumps through Registry.StartClient.
func NewClient(conn *websocket.Conn, registry *Registry, addr string, cfg *Config, log *slog.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	return &Client{
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		registry:       registry,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimitBurst, cfg.RateLimitRefillInterval),
		log:            log.With("remote", addr),
	}
}

// trySend queues a payload without blocking. It reports false when the
// buffer is full, which the broadcast path treats as a dead connection.
// Only the registry calls trySend, always inside its critical section, so a
// send can never race the channel close in shutdown.
func (c *Client) trySend(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// shutdown closes the send channel exactly once, which lets the write pump
// drain, emit a close frame, and tear down the connection.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Error("error setting initial read deadline", "err", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Error("error setting read deadline in pong handler", "err", err)
		}
		return nil
	})
}

// handleReadError logs the error at an appropriate level. Every read error
// ends the pump, so this is about log noise, not control flow.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("frame exceeded maximum size", "limit", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Debug("client disconnected", "err", err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Debug("connection closed", "err", err)
	default:
		c.log.Warn("websocket read error", "err", err)
	}
}

func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		c.log.Warn("rate limit exceeded; discarding frame")
		return false
	}
	return true
}

// readPump reads frames until the connection dies, then triggers the leave
// path. Leave is idempotent, so a connection already unbound by a failed
// broadcast is handled cleanly here.
func (c *Client) readPump() {
	defer func() {
		c.registry.Leave(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Debug("error closing connection in readPump", "err", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if !c.checkRateLimit() {
			continue
		}

		c.registry.Dispatch(c, raw)
	}
}

// writePump drains the send channel until it is closed or a write fails,
// pinging on a ticker to keep the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Debug("error closing connection in writePump", "err", err)
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.Debug("error setting write deadline", "err", err)
				return
			}
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
					c.log.Debug("error writing close message", "err", err)
				}
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					c.log.Debug("error writing message", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.Debug("error setting write deadline for ping", "err", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
