package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := NewConfig()
	reg := NewRegistry(cfg, NewLogger("error"))
	return NewClient(nil, reg, "127.0.0.1:0", cfg, NewLogger("error"))
}

func TestConnTable_BindLookupUnbind(t *testing.T) {
	table := newConnTable()
	c := newTestClient(t)

	_, ok := table.lookup(c)
	require.False(t, ok)

	table.bind(c, "demo", User{UserID: "u1", Username: "alice"})
	b, ok := table.lookup(c)
	require.True(t, ok)
	require.Equal(t, "demo", b.roomID)
	require.Equal(t, "alice", b.user.Username)

	prev, ok := table.unbind(c)
	require.True(t, ok)
	require.Equal(t, b, prev)

	_, ok = table.unbind(c)
	require.False(t, ok, "unbinding twice reports absent")
	require.Equal(t, 0, table.len())
}

func TestConnTable_RebindOverwrites(t *testing.T) {
	table := newConnTable()
	c := newTestClient(t)

	table.bind(c, "r1", User{UserID: "u1"})
	table.bind(c, "r2", User{UserID: "u1"})

	b, ok := table.lookup(c)
	require.True(t, ok)
	require.Equal(t, "r2", b.roomID)
	require.Equal(t, 1, table.len(), "one binding per connection")
}

func TestConnTable_InRoomSnapshots(t *testing.T) {
	table := newConnTable()
	a := newTestClient(t)
	b := newTestClient(t)
	other := newTestClient(t)

	table.bind(a, "demo", User{UserID: "ua"})
	table.bind(b, "demo", User{UserID: "ub"})
	table.bind(other, "elsewhere", User{UserID: "uc"})

	got := table.inRoom("demo")
	require.Len(t, got, 2)
	for _, bc := range got {
		require.Equal(t, "demo", bc.binding.roomID)
		require.NotSame(t, other, bc.client)
	}

	require.Empty(t, table.inRoom("missing"))
}
