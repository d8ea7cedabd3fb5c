package server

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func msg(i int) ChatMessage {
	return ChatMessage{ID: strconv.Itoa(i), Body: "m" + strconv.Itoa(i)}
}

func TestMessageRing_PushAndLen(t *testing.T) {
	ring := newMessageRing(3)
	require.Equal(t, 0, ring.len())

	ring.push(msg(1))
	ring.push(msg(2))
	require.Equal(t, 2, ring.len())
}

func TestMessageRing_EvictsOldestFirst(t *testing.T) {
	ring := newMessageRing(3)
	for i := 1; i <= 5; i++ {
		ring.push(msg(i))
	}

	require.Equal(t, 3, ring.len())
	got := ring.last(3)
	require.Equal(t, []ChatMessage{msg(3), msg(4), msg(5)}, got)
}

func TestMessageRing_LastReturnsTailInInsertionOrder(t *testing.T) {
	ring := newMessageRing(10)
	for i := 1; i <= 4; i++ {
		ring.push(msg(i))
	}

	require.Equal(t, []ChatMessage{msg(3), msg(4)}, ring.last(2))
	require.Equal(t, []ChatMessage{msg(1), msg(2), msg(3), msg(4)}, ring.last(100))
}

func TestMessageRing_LastOnEmptyRingIsNonNil(t *testing.T) {
	ring := newMessageRing(5)
	got := ring.last(3)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestMessageRing_ZeroCapacityClamped(t *testing.T) {
	ring := newMessageRing(0)
	ring.push(msg(1))
	ring.push(msg(2))
	require.Equal(t, []ChatMessage{msg(2)}, ring.last(1))
}
