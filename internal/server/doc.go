// Package server implements the chat and presence core of the collab-server
// backend: room registry, connection bindings, broadcast fan-out, the
// WebSocket session protocol, and the HTTP shell around them. The document
// synchronization traffic itself is relayed untouched to an external sync
// server; this package only owns room-level chat state.
package server
