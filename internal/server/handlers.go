// Package server exposes the HTTP handlers: the /chat WebSocket upgrade and
// the /health state snapshot.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// ChatHandler upgrades /chat requests and hands the resulting connections to
// the registry.
type ChatHandler struct {
	registry *Registry
	cfg      *Config
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewChatHandler builds the /chat endpoint with the configured origin
// allow-list.
func NewChatHandler(cfg *Config, registry *Registry, log *slog.Logger) *ChatHandler {
	policy := newOriginPolicy(cfg.Origins(), log)
	return &ChatHandler{
		registry: registry,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.check,
		},
		log: log,
	}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := NewClient(conn, h.registry, r.RemoteAddr, h.cfg, h.log)
	h.registry.StartClient(client)
}
