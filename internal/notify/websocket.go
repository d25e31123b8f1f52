package notify

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-grc/internal/mention"
)

const writeTimeout = 5 * time.Second

// Hub is a Channel that pushes notifications to users' open WebSocket
// connections. Users without a connection simply miss live delivery.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]struct{}

	// AcceptOptions are passed to websocket.Accept.
	AcceptOptions *websocket.AcceptOptions
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*websocket.Conn]struct{})}
}

// Serve upgrades the request and keeps the connection registered for user
// until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, user string) {
	conn, err := websocket.Accept(w, r, h.AcceptOptions)
	if err != nil {
		slog.Warn("websocket accept failed", "user", user, "error", err)
		return
	}
	key := mention.Key(user)

	h.add(key, conn)
	defer h.remove(key, conn)
	slog.Debug("websocket connected", "user", user)

	// Clients only listen; CloseRead handles control frames and reports
	// when the peer disconnects.
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()
	conn.Close(websocket.StatusNormalClosure, "")
	slog.Debug("websocket disconnected", "user", user)
}

// Notify writes n to every open connection of n.User.
func (h *Hub) Notify(ctx context.Context, n Notification) error {
	key := mention.Key(n.User)

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns[key]))
	for c := range h.conns[key] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := wsjson.Write(wctx, c, n)
		cancel()
		if err != nil {
			slog.Warn("websocket write failed, dropping connection", "user", n.User, "error", err)
			h.remove(key, c)
			c.Close(websocket.StatusInternalError, "write failed")
		}
	}
	return nil
}

// Connections returns the number of open connections for user.
func (h *Hub) Connections(user string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[mention.Key(user)])
}

func (h *Hub) add(key string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[key] == nil {
		h.conns[key] = make(map[*websocket.Conn]struct{})
	}
	h.conns[key][c] = struct{}{}
}

func (h *Hub) remove(key string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[key], c)
	if len(h.conns[key]) == 0 {
		delete(h.conns, key)
	}
}
