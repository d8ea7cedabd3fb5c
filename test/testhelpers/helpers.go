// Package testhelpers provides shared utilities for the integration tests:
// spinning up a full server over httptest, dialing the chat endpoint, and
// reading protocol frames with deadlines.
package testhelpers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/codecollab/collab-server/internal/server"
)

// FrameTimeout bounds how long tests wait for a single frame.
const FrameTimeout = 2 * time.Second

// StartServer builds a registry and router from a default config (optionally
// customized) and serves them over httptest. The server and registry are
// torn down with the test.
func StartServer(t *testing.T, customize func(cfg *server.Config)) (*httptest.Server, *server.Registry) {
	t.Helper()

	cfg := server.NewConfig()
	if customize != nil {
		customize(cfg)
	}
	log := server.NewLogger("error")
	registry := server.NewRegistry(cfg, log)

	mux, err := server.NewRouter(cfg, registry, log)
	require.NoError(t, err)

	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		ts.Close()
		_ = registry.Shutdown(time.Second)
	})
	return ts, registry
}

// WebSocketURL rewrites an httptest base URL to a ws:// URL for the path.
func WebSocketURL(baseURL, path string) string {
	return "ws" + strings.TrimPrefix(baseURL, "http") + path
}

// DialChat opens a WebSocket connection to the server's /chat endpoint.
func DialChat(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(WebSocketURL(baseURL, "/chat"), nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendJoin issues a join-room frame.
func SendJoin(t *testing.T, conn *websocket.Conn, roomID, userID, username string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":     "join-room",
		"roomId":   roomID,
		"userId":   userID,
		"username": username,
	}))
}

// SendMessage issues a send-message frame.
func SendMessage(t *testing.T, conn *websocket.Conn, roomID, userID, username, body string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":     "send-message",
		"roomId":   roomID,
		"userId":   userID,
		"username": username,
		"message":  body,
	}))
}

// ReadFrame reads and decodes the next frame, failing the test on timeout.
func ReadFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(FrameTimeout)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(payload, &frame))
	return frame
}

// ReadFrameOfType keeps reading until a frame of the wanted type arrives,
// skipping interleaved presence traffic.
func ReadFrameOfType(t *testing.T, conn *websocket.Conn, wantType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(FrameTimeout)
	for time.Now().Before(deadline) {
		frame := ReadFrame(t, conn)
		if frame["type"] == wantType {
			return frame
		}
	}
	t.Fatalf("no %q frame received within %s", wantType, FrameTimeout)
	return nil
}

// Usernames extracts the username column of a frame's users list.
func Usernames(t *testing.T, frame map[string]any) []string {
	t.Helper()
	raw, ok := frame["users"].([]any)
	require.True(t, ok, "frame has no users list")
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		out = append(out, u.(map[string]any)["username"].(string))
	}
	return out
}
