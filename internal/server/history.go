package server

// messageRing is a fixed-capacity ring buffer of chat messages. Appending to
// a full ring evicts the oldest entry, so history append stays O(1) on the
// hottest path instead of re-slicing a backing array.
type messageRing struct {
	buf   []ChatMessage
	start int
	size  int
}

func newMessageRing(capacity int) *messageRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &messageRing{buf: make([]ChatMessage, capacity)}
}

// push appends a message, evicting the oldest entry when the ring is full.
func (r *messageRing) push(msg ChatMessage) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = msg
		r.size++
		return
	}
	r.buf[r.start] = msg
	r.start = (r.start + 1) % len(r.buf)
}

func (r *messageRing) len() int {
	return r.size
}

// last returns the most recent n messages in insertion order. It always
// returns a non-nil slice so the result marshals to a JSON array.
func (r *messageRing) last(n int) []ChatMessage {
	if n > r.size {
		n = r.size
	}
	if n < 0 {
		n = 0
	}
	out := make([]ChatMessage, 0, n)
	for i := r.size - n; i < r.size; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}
