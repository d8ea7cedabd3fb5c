// Package integration exercises the server end to end: real HTTP listener,
// real WebSocket connections, multiple clients per room.
package integration

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/codecollab/collab-server/test/testhelpers"
)

func TestTwoUsersChatInOneRoom(t *testing.T) {
	ts, _ := testhelpers.StartServer(t, nil)

	alice := testhelpers.DialChat(t, ts.URL)
	testhelpers.SendJoin(t, alice, "demo", "u-alice", "alice")
	joined := testhelpers.ReadFrameOfType(t, alice, "room-joined")
	require.Equal(t, "demo", joined["roomId"])
	require.Equal(t, []string{"alice"}, testhelpers.Usernames(t, joined))

	bob := testhelpers.DialChat(t, ts.URL)
	testhelpers.SendJoin(t, bob, "demo", "u-bob", "bob")
	bobJoined := testhelpers.ReadFrameOfType(t, bob, "room-joined")
	require.ElementsMatch(t, []string{"alice", "bob"}, testhelpers.Usernames(t, bobJoined))

	notice := testhelpers.ReadFrameOfType(t, alice, "user-joined")
	require.Equal(t, "bob", notice["user"].(map[string]any)["username"])

	testhelpers.SendMessage(t, alice, "demo", "u-alice", "alice", "hi")

	aliceMsg := testhelpers.ReadFrameOfType(t, alice, "new-message")
	bobMsg := testhelpers.ReadFrameOfType(t, bob, "new-message")
	for _, frame := range []map[string]any{aliceMsg, bobMsg} {
		message := frame["message"].(map[string]any)
		require.Equal(t, "hi", message["message"])
		require.Equal(t, "alice", message["username"])
	}

	require.NoError(t, bob.Close())
	left := testhelpers.ReadFrameOfType(t, alice, "user-left")
	require.Equal(t, "bob", left["user"].(map[string]any)["username"])
	require.Equal(t, []string{"alice"}, testhelpers.Usernames(t, left))
}

func TestLateJoinerReceivesHistoryReplay(t *testing.T) {
	ts, _ := testhelpers.StartServer(t, nil)

	alice := testhelpers.DialChat(t, ts.URL)
	testhelpers.SendJoin(t, alice, "demo", "u-alice", "alice")
	_ = testhelpers.ReadFrameOfType(t, alice, "room-joined")

	testhelpers.SendMessage(t, alice, "demo", "u-alice", "alice", "first")
	testhelpers.SendMessage(t, alice, "demo", "u-alice", "alice", "second")
	_ = testhelpers.ReadFrameOfType(t, alice, "new-message")
	_ = testhelpers.ReadFrameOfType(t, alice, "new-message")

	bob := testhelpers.DialChat(t, ts.URL)
	testhelpers.SendJoin(t, bob, "demo", "u-bob", "bob")
	joined := testhelpers.ReadFrameOfType(t, bob, "room-joined")

	msgs := joined["messages"].([]any)
	require.Len(t, msgs, 2)
	require.Equal(t, "first", msgs[0].(map[string]any)["message"])
	require.Equal(t, "second", msgs[1].(map[string]any)["message"])
}

func TestMessagesStayWithinTheirRoom(t *testing.T) {
	ts, _ := testhelpers.StartServer(t, nil)

	alice := testhelpers.DialChat(t, ts.URL)
	testhelpers.SendJoin(t, alice, "r1", "u-alice", "alice")
	_ = testhelpers.ReadFrameOfType(t, alice, "room-joined")

	carol := testhelpers.DialChat(t, ts.URL)
	testhelpers.SendJoin(t, carol, "r2", "u-carol", "carol")
	_ = testhelpers.ReadFrameOfType(t, carol, "room-joined")

	testhelpers.SendMessage(t, alice, "r1", "u-alice", "alice", "only for r1")
	_ = testhelpers.ReadFrameOfType(t, alice, "new-message")

	require.NoError(t, carol.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := carol.ReadMessage()
	require.Error(t, err, "carol must not receive r1 traffic")
}

func TestMalformedFramesDoNotCloseConnection(t *testing.T) {
	ts, _ := testhelpers.StartServer(t, nil)

	conn := testhelpers.DialChat(t, ts.URL)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("this is not json")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join-room"}`)))

	// The connection is still usable afterwards.
	testhelpers.SendJoin(t, conn, "demo", "u1", "survivor")
	joined := testhelpers.ReadFrameOfType(t, conn, "room-joined")
	require.Equal(t, []string{"survivor"}, testhelpers.Usernames(t, joined))
}

func TestUnannouncedDisconnectCleansUpRoom(t *testing.T) {
	ts, registry := testhelpers.StartServer(t, nil)

	conn := testhelpers.DialChat(t, ts.URL)
	testhelpers.SendJoin(t, conn, "ephemeral", "u1", "loner")
	_ = testhelpers.ReadFrameOfType(t, conn, "room-joined")

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		stats := registry.Stats()
		return stats.TotalRooms == 0 && stats.TotalConnections == 0
	}, 2*time.Second, 20*time.Millisecond, "room must vanish after its only member drops")
}
