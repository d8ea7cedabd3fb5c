// Package server wires the HTTP handlers into a ServeMux.
package server

import (
	"log/slog"
	"net/http"
)

// NewRouter configures the routes: the chat protocol on /chat, the operator
// snapshot on /health, and everything else relayed to the document sync
// upstream.
func NewRouter(cfg *Config, registry *Registry, log *slog.Logger) (*http.ServeMux, error) {
	proxy, err := NewSyncProxy(cfg, log)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/chat", NewChatHandler(cfg, registry, log))
	mux.Handle("/health", NewHealthHandler(registry, log))
	mux.Handle("/", proxy)
	return mux, nil
}
