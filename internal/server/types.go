// Package server defines the JSON frame types exchanged on the /chat
// endpoint. Field names mirror the payloads the editor frontend already
// speaks, so the chat body travels under the "message" key.
package server

import "time"

// Frame type discriminators. The first two arrive from clients, the rest are
// server-to-client notifications.
const (
	frameJoinRoom    = "join-room"
	frameSendMessage = "send-message"
	frameRoomJoined  = "room-joined"
	frameUserJoined  = "user-joined"
	frameUserLeft    = "user-left"
	frameNewMessage  = "new-message"
)

// User identifies a room participant as presented to other participants.
type User struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// ChatMessage is one immutable chat history entry. Messages are never edited
// or deleted individually; old entries fall out when the room history is full.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Body      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// joinRequest is the payload of a join-room frame.
type joinRequest struct {
	RoomID   string `json:"roomId" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	Username string `json:"username" validate:"required"`
}

// sendRequest is the payload of a send-message frame. Room and identity are
// taken from the connection's binding, not from the frame, so only the body
// is required here.
type sendRequest struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Body     string `json:"message" validate:"required"`
}

// roomJoinedFrame is sent to a joiner only: current membership plus the most
// recent history entries.
type roomJoinedFrame struct {
	Type     string        `json:"type"`
	RoomID   string        `json:"roomId"`
	Users    []User        `json:"users"`
	Messages []ChatMessage `json:"messages"`
}

// presenceFrame announces a user-joined or user-left event together with the
// updated member list.
type presenceFrame struct {
	Type  string `json:"type"`
	User  User   `json:"user"`
	Users []User `json:"users"`
}

// newMessageFrame carries a freshly appended chat message to every member of
// the room, the sender included.
type newMessageFrame struct {
	Type    string      `json:"type"`
	Message ChatMessage `json:"message"`
}
