package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"dinehub/internal/notify"
	"dinehub/internal/orderservice/core"
	"dinehub/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Handler upgrades panel connections and subscribes each one to its
// tenant group. Panels only receive; anything a client sends besides
// control frames is discarded.
type Handler struct {
	registry    core.TenantRegistry
	broadcaster notify.Broadcaster
	logger      *logger.Logger
	upgrader    websocket.Upgrader
	sendBuffer  int

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHandler(registry core.TenantRegistry, broadcaster notify.Broadcaster, sendBuffer int, logger *logger.Logger) *Handler {
	return &Handler{
		registry:    registry,
		broadcaster: broadcaster,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Panels are served from their own origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuffer: sendBuffer,
		clients:    make(map[*client]struct{}),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/waiter/{client_id}/{$}", h.ServeWaiter)
	mux.HandleFunc("GET /ws/kitchen/{client_id}/{$}", h.ServeKitchen)
}

func (h *Handler) ServeWaiter(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, notify.WaiterGroup)
}

func (h *Handler) ServeKitchen(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, notify.KitchenGroup)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, group func(string) string) {
	clientID := r.PathValue("client_id")

	// The tenant is checked before the upgrade so bad handshakes stay
	// plain HTTP.
	tenant, err := h.registry.Resolve(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, core.ErrTenantNotFound) {
			http.Error(w, "Unknown client_id.", http.StatusNotFound)
			return
		}
		h.logger.Error("", "ws_resolve_failed", "Failed to resolve tenant", err)
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
		return
	}
	if !tenant.IsActive {
		http.Error(w, "Restaurant account is inactive.", http.StatusForbidden)
		return
	}

	c := &client{
		id:    uuid.NewString(),
		group: group(clientID),
		send:  make(chan []byte, h.sendBuffer),
	}

	// Join before the upgrade completes, so an event published right
	// after the handshake is never missed. Frames queue in the send
	// buffer until the pumps start.
	h.broadcaster.Join(c.group, c)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		h.broadcaster.Leave(c.group, c)
		h.logger.Warn("", "ws_upgrade_failed", "WebSocket upgrade failed", err)
		return
	}
	c.conn = conn

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Info(c.id, "ws_connected", "Panel connected to "+c.group)

	go c.writePump()
	go h.readPump(c)
}

// readPump owns teardown. Leave is synchronous with the broadcaster's
// publish lock, so once it returns no Send can be in flight and the
// channel is safe to close.
func (h *Handler) readPump(c *client) {
	defer func() {
		h.broadcaster.Leave(c.group, c)
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(c.send)
		c.conn.Close()
		h.logger.Info(c.id, "ws_disconnected", "Panel disconnected from "+c.group)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		// Panels never send; drop whatever arrived.
	}
}

// CloseAll force-closes every live connection. Used at shutdown, where
// Shutdown on the HTTP server does not wait for hijacked connections.
func (h *Handler) CloseAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait),
		)
		c.conn.Close()
	}
}

type client struct {
	id    string
	group string
	conn  *websocket.Conn
	send  chan []byte
}

func (c *client) ID() string { return c.id }

// Send never blocks; a full buffer means the frame is dropped for this
// viewer only.
func (c *client) Send(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
