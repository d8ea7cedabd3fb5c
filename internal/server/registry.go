// Package server implements the room session protocol: the join, message,
// and leave transitions that connect the connection table, the room store,
// and broadcast fan-out.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Registry owns the room store and the connection table. Every join, send,
// and leave transition runs under one mutex, so cross-room invariants and
// same-room races (two concurrent leaves of the last two members) are
// serialized. Nothing inside the critical section blocks on I/O: deliveries
// are non-blocking sends to per-connection buffers.
type Registry struct {
	mu      sync.Mutex
	rooms   *RoomStore
	conns   *connTable
	clients map[*Client]struct{}

	replayLimit int
	validate    *validator.Validate
	log         *slog.Logger
	wg          sync.WaitGroup
}

// NewRegistry creates a registry sized by the given configuration.
func NewRegistry(cfg *Config, log *slog.Logger) *Registry {
	return &Registry{
		rooms:       NewRoomStore(cfg.HistoryLimit),
		conns:       newConnTable(),
		clients:     make(map[*Client]struct{}),
		replayLimit: cfg.ReplayLimit,
		validate:    validator.New(),
		log:         log,
	}
}

// StartClient tracks an accepted connection and launches its pumps. The
// connection stays unbound until its first join-room frame.
func (reg *Registry) StartClient(c *Client) {
	reg.mu.Lock()
	reg.clients[c] = struct{}{}
	total := len(reg.clients)
	reg.mu.Unlock()
	reg.log.Info("chat connection established", "remote", c.addr, "connections", total)

	reg.wg.Add(2)
	go func() {
		defer reg.wg.Done()
		c.writePump()
	}()
	go func() {
		defer reg.wg.Done()
		c.readPump()
	}()
}

// Dispatch routes one inbound frame. Malformed or unknown frames are logged
// and dropped; the connection stays open.
func (reg *Registry) Dispatch(c *Client, raw []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		reg.log.Warn("dropping unparseable frame", "remote", c.addr, "err", err)
		return
	}

	switch env.Type {
	case frameJoinRoom:
		var req joinRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			reg.log.Warn("dropping malformed join-room frame", "remote", c.addr, "err", err)
			return
		}
		if err := reg.validate.Struct(req); err != nil {
			reg.log.Warn("dropping incomplete join-room frame", "remote", c.addr, "err", err)
			return
		}
		reg.Join(c, req.RoomID, req.UserID, req.Username)

	case frameSendMessage:
		var req sendRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			reg.log.Warn("dropping malformed send-message frame", "remote", c.addr, "err", err)
			return
		}
		if err := reg.validate.Struct(req); err != nil {
			reg.log.Warn("dropping incomplete send-message frame", "remote", c.addr, "err", err)
			return
		}
		reg.SendMessage(c, req.Body)

	default:
		reg.log.Warn("dropping frame with unknown type", "remote", c.addr, "type", env.Type)
	}
}

// Join binds the connection to a room, replies with the current membership
// and recent history, and announces the join to the rest of the room. A
// connection already bound to a different room leaves that room first; a
// re-join of the same room just replaces the member record.
func (reg *Registry) Join(c *Client, roomID, userID, username string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if prev, ok := reg.conns.lookup(c); ok && prev.roomID != roomID {
		reg.leaveLocked(c, prev)
	}

	room := reg.rooms.GetOrCreate(roomID)
	user := User{UserID: userID, Username: username}
	room.upsertMember(user)
	reg.conns.bind(c, roomID, user)

	joined := reg.encode(roomJoinedFrame{
		Type:     frameRoomJoined,
		RoomID:   roomID,
		Users:    room.Members(),
		Messages: room.recent(reg.replayLimit),
	})
	if joined != nil && !c.trySend(joined) {
		reg.dropPeer(c)
		return
	}

	reg.broadcastLocked(roomID, reg.encode(presenceFrame{
		Type:  frameUserJoined,
		User:  user,
		Users: room.Members(),
	}), c)

	reg.log.Info("user joined room", "room", roomID, "user", username, "members", room.memberCount())
}

// SendMessage appends a message to the sender's room history and broadcasts
// it to every member, the sender included, so the sender's own message
// round-trips for local display. Messages from unbound connections are
// silently ignored.
func (reg *Registry) SendMessage(c *Client, body string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	b, ok := reg.conns.lookup(c)
	if !ok {
		reg.log.Debug("dropping message from unbound connection", "remote", c.addr)
		return
	}

	msg := ChatMessage{
		ID:        uuid.NewString(),
		UserID:    b.user.UserID,
		Username:  b.user.Username,
		Body:      body,
		Timestamp: time.Now().UTC(),
	}

	if !reg.rooms.AppendMessage(b.roomID, msg) {
		reg.log.Debug("dropping message for vanished room", "room", b.roomID)
		return
	}

	reg.broadcastLocked(b.roomID, reg.encode(newMessageFrame{
		Type:    frameNewMessage,
		Message: msg,
	}), nil)
}

// Leave unbinds the connection and, if it was bound, removes the member from
// its room, deleting the room when it empties or announcing the departure
// otherwise. Safe to call for connections that never joined.
func (reg *Registry) Leave(c *Client) {
	reg.mu.Lock()
	if b, ok := reg.conns.lookup(c); ok {
		reg.leaveLocked(c, b)
	}
	delete(reg.clients, c)
	reg.mu.Unlock()

	c.shutdown()
}

// leaveLocked applies the leave transition for a bound connection. The room
// deletion check and the departure broadcast happen in the same critical
// section as the unbind, so an emptied room can never be observed.
func (reg *Registry) leaveLocked(c *Client, b binding) {
	reg.conns.unbind(c)

	room, ok := reg.rooms.Get(b.roomID)
	if !ok {
		return
	}

	room.removeMember(b.user.UserID)
	if room.memberCount() == 0 {
		reg.rooms.Delete(b.roomID)
		reg.log.Info("empty room deleted", "room", b.roomID)
		return
	}

	reg.broadcastLocked(b.roomID, reg.encode(presenceFrame{
		Type:  frameUserLeft,
		User:  b.user,
		Users: room.Members(),
	}), nil)

	reg.log.Info("user left room", "room", b.roomID, "user", b.user.Username, "members", room.memberCount())
}

func (reg *Registry) encode(v any) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		reg.log.Error("error encoding frame", "err", err)
		return nil
	}
	return payload
}

// HealthStats is the aggregate state snapshot served by /health.
type HealthStats struct {
	TotalRooms       int         `json:"totalRooms"`
	TotalConnections int         `json:"totalConnections"`
	Rooms            []RoomStats `json:"rooms"`
}

// Stats returns a consistent snapshot of room and connection counts.
func (reg *Registry) Stats() HealthStats {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return HealthStats{
		TotalRooms:       reg.rooms.Len(),
		TotalConnections: reg.conns.len(),
		Rooms:            reg.rooms.Stats(),
	}
}

// Shutdown closes every tracked connection and waits for the pump goroutines
// to finish, or gives up after the timeout. Room and binding state is
// in-memory only and is intentionally dropped.
func (reg *Registry) Shutdown(timeout time.Duration) error {
	reg.mu.Lock()
	clients := make([]*Client, 0, len(reg.clients))
	for c := range reg.clients {
		clients = append(clients, c)
	}
	reg.mu.Unlock()

	reg.log.Info("closing chat connections", "count", len(clients))
	for _, c := range clients {
		if c.conn != nil {
			if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
				reg.log.Debug("error closing client connection", "remote", c.addr, "err", err)
			}
		}
	}

	done := make(chan struct{})
	go func() {
		reg.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		reg.log.Info("registry shutdown completed")
		return nil
	case <-time.After(timeout):
		reg.log.Warn("registry shutdown timeout reached")
		return context.DeadlineExceeded
	}
}
