package server

// binding records which room and identity a connection currently represents.
type binding struct {
	roomID string
	user   User
}

// boundConn pairs a connection with its binding for broadcast fan-out.
type boundConn struct {
	client  *Client
	binding binding
}

// connTable maps live connections to their bindings. At most one binding
// exists per connection. Like RoomStore it holds no lock of its own; the
// Registry serializes all access.
type connTable struct {
	conns map[*Client]binding
}

func newConnTable() *connTable {
	return &connTable{conns: make(map[*Client]binding)}
}

// bind associates a connection with a room and user, overwriting any prior
// binding for that connection.
func (t *connTable) bind(c *Client, roomID string, user User) {
	t.conns[c] = binding{roomID: roomID, user: user}
}

func (t *connTable) lookup(c *Client) (binding, bool) {
	b, ok := t.conns[c]
	return b, ok
}

// unbind removes and returns the connection's binding. Unbinding an unbound
// connection reports false, which makes leave handling idempotent.
func (t *connTable) unbind(c *Client) (binding, bool) {
	b, ok := t.conns[c]
	if ok {
		delete(t.conns, c)
	}
	return b, ok
}

// inRoom returns a snapshot of the connections bound to roomID. Iteration
// order is unspecified: message ordering is carried by room history, not by
// delivery order.
func (t *connTable) inRoom(roomID string) []boundConn {
	var out []boundConn
	for c, b := range t.conns {
		if b.roomID == roomID {
			out = append(out, boundConn{client: c, binding: b})
		}
	}
	return out
}

func (t *connTable) len() int {
	return len(t.conns)
}
