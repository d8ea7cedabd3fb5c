package server

// broadcastLocked delivers an already-serialized payload to every connection
// bound to roomID, optionally excluding one. Callers must hold reg.mu.
//
// Fan-out iterates a snapshot of the room's connections, so a failed
// delivery can prune the table mid-loop without invalidating the iteration.
// A peer whose outbound buffer is full is treated as dead: it is unbound and
// shut down, but deliberately without a leave broadcast. The explicit leave
// path is the authoritative source of leave notifications; this is
// best-effort cleanup, and it never touches the room store.
func (reg *Registry) broadcastLocked(roomID string, payload []byte, exclude *Client) {
	if payload == nil {
		return
	}

	for _, bc := range reg.conns.inRoom(roomID) {
		if bc.client == exclude {
			continue
		}
		if !bc.client.trySend(payload) {
			reg.log.Warn("dropping unresponsive connection", "remote", bc.client.addr, "room", roomID)
			reg.dropPeer(bc.client)
		}
	}
}

// dropPeer unbinds a connection that failed delivery and starts its
// teardown. Callers must hold reg.mu.
func (reg *Registry) dropPeer(c *Client) {
	reg.conns.unbind(c)
	c.shutdown()
}
