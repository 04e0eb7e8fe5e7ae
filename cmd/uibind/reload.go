package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the browser.
	writeWait = time.Second
	// Pings keep idle reload sockets open through proxies.
	pingPeriod = 10 * time.Second
	pongWait   = 3 * pingPeriod
)

const reloadMessage = "reload"

var upgrader = websocket.Upgrader{}

// reloadHub tells every connected page to reload after a rebuild.
type reloadHub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan struct{}
}

func newReloadHub(logger *zap.Logger) *reloadHub {
	return &reloadHub{
		logger:  logger,
		clients: map[*websocket.Conn]chan struct{}{},
	}
}

// Clients returns the number of connected pages.
func (h *reloadHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast asks every connected page to reload. Pages that already have a
// reload queued are skipped.
func (h *reloadHub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *reloadHub) add(ws *websocket.Conn) chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.clients[ws] = ch
	h.mu.Unlock()
	return ch
}

func (h *reloadHub) remove(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and holds the socket until the page goes
// away or the request context ends.
func (h *reloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	reload := h.add(ws)
	defer h.remove(ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		// Reads only surface pongs and the close frame.
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.pump(ctx, ws, reload)
}

func (h *reloadHub) pump(ctx context.Context, ws *websocket.Conn, reload <-chan struct{}) {
	pinger := channerics.NewTicker(ctx.Done(), pingPeriod)
	for {
		select {
		case <-ctx.Done():
			return
		case <-pinger:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.logger.Debug("ping failed", zap.Error(err))
				return
			}
		case <-reload:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, []byte(reloadMessage)); err != nil {
				h.logger.Debug("reload write failed", zap.Error(err))
				return
			}
		}
	}
}
