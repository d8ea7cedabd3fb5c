// Package server relays document synchronization traffic. The CRDT sync
// protocol is owned by an external server; every non-chat WebSocket path is
// piped to it verbatim, with the path segment carrying the document name.
package server

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// SyncProxy forwards WebSocket upgrades on arbitrary paths to the configured
// document sync upstream without inspecting the frames.
type SyncProxy struct {
	upstream *url.URL
	upgrader websocket.Upgrader
	dialer   *websocket.Dialer
	log      *slog.Logger
}

// NewSyncProxy builds the relay. An empty upstream URL is allowed: the proxy
// then answers 502 until one is configured.
func NewSyncProxy(cfg *Config, log *slog.Logger) (*SyncProxy, error) {
	policy := newOriginPolicy(cfg.Origins(), log)
	p := &SyncProxy{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     policy.check,
		},
		dialer: websocket.DefaultDialer,
		log:    log,
	}

	if cfg.SyncUpstreamURL == "" {
		return p, nil
	}
	upstream, err := url.Parse(cfg.SyncUpstreamURL)
	if err != nil {
		return nil, err
	}
	p.upstream = upstream
	return p, nil
}

func (p *SyncProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.upstream == nil {
		http.Error(w, "document sync upstream not configured", http.StatusBadGateway)
		return
	}

	target := *p.upstream
	target.Path = r.URL.Path
	target.RawQuery = r.URL.RawQuery

	// Dial upstream before upgrading so a dead upstream surfaces as a plain
	// HTTP error instead of an immediately closed WebSocket.
	up, resp, err := p.dialer.Dial(target.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		p.log.Warn("sync upstream dial failed", "target", target.String(), "err", err)
		http.Error(w, "document sync upstream unavailable", http.StatusBadGateway)
		return
	}

	down, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.log.Warn("sync WebSocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		_ = up.Close()
		return
	}

	p.log.Info("sync connection relayed", "path", r.URL.Path, "remote", r.RemoteAddr)

	errc := make(chan error, 2)
	go pipeFrames(up, down, errc)
	go pipeFrames(down, up, errc)
	<-errc

	_ = up.Close()
	_ = down.Close()
}

// pipeFrames copies frames from src to dst until either side fails.
func pipeFrames(dst, src *websocket.Conn, errc chan<- error) {
	for {
		msgType, payload, err := src.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		if err := dst.WriteMessage(msgType, payload); err != nil {
			errc <- err
			return
		}
	}
}
