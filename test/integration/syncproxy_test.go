package integration

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/codecollab/collab-server/internal/server"
	"github.com/codecollab/collab-server/test/testhelpers"
)

// startEchoUpstream runs a WebSocket server that echoes every frame back,
// standing in for the external document sync server.
func startEchoUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		for {
			msgType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			// Prefix with the request path so tests can assert it survived.
			out := append([]byte(r.URL.Path+" "), payload...)
			if err := conn.WriteMessage(msgType, out); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestSyncTrafficRelayedVerbatim(t *testing.T) {
	upstream := startEchoUpstream(t)

	ts, _ := testhelpers.StartServer(t, func(cfg *server.Config) {
		cfg.SyncUpstreamURL = testhelpers.WebSocketURL(upstream.URL, "")
	})

	conn, resp, err := websocket.DefaultDialer.Dial(testhelpers.WebSocketURL(ts.URL, "/my-document"), nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}))

	msgType, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, msgType)
	require.Equal(t, append([]byte("/my-document "), 0x01, 0x02), payload)
}

func TestSyncRelayWithoutUpstreamAnswers502(t *testing.T) {
	ts, _ := testhelpers.StartServer(t, nil)

	resp, err := http.Get(ts.URL + "/some-doc")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
