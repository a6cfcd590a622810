package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"parley/internal/config"
	"parley/internal/hub"
	"parley/internal/protocol"
	"parley/internal/registry"
)

// Upgrader shared by all connection attempts. Origins are left open for
// browser clients served from a different host; lock this down when
// deploying behind a known origin.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Handler upgrades HTTP requests to WebSocket connections and runs the
// per-connection read pump. All registry and history mutation happens in
// the hub; the handler only decodes frames and forwards them.
type Handler struct {
	hub *hub.Hub
	cfg *config.WebSocketConfig
}

// NewHandler creates a WebSocket handler feeding the given hub.
func NewHandler(h *hub.Hub, cfg *config.WebSocketConfig) *Handler {
	return &Handler{hub: h, cfg: cfg}
}

// HandleWebSocket admits one client. Identity travels as query
// parameters: username and color are optional, session_id is an opaque
// client-persisted string used only to disambiguate display names — a
// client that omits it gets a fresh one and simply loses the stable
// suffix across reloads.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	params := registry.Params{
		Username:  r.URL.Query().Get("username"),
		Color:     r.URL.Query().Get("color"),
		SessionID: r.URL.Query().Get("session_id"),
	}
	if params.SessionID == "" {
		params.SessionID = uuid.NewString()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	wsConn := NewConnection(uuid.NewString(), conn, h.cfg.WriteTimeout, h.cfg.SendBuffer)

	if err := h.hub.Join(wsConn, params); err != nil {
		log.Printf("Connection admission failed: %v", err)
		_ = wsConn.Close()
		return
	}

	go h.readPump(wsConn)
}

// readPump reads frames for one connection until it closes, decoding each
// at this boundary and forwarding the typed event to the hub. Malformed
// frames are logged and skipped — they never close the connection or
// reach other clients.
func (h *Handler) readPump(conn *Connection) {
	defer func() {
		if err := h.hub.Leave(conn.ID()); err != nil {
			log.Printf("Failed to queue eviction for %s: %v", conn.ID(), err)
		}
		_ = conn.Close()
	}()

	conn.conn.SetReadLimit(h.cfg.ReadLimit)
	if err := conn.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	// Heartbeat pings keep the read deadline honest for quiet clients.
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error on %s: %v", conn.ID(), err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		event, err := protocol.Decode(data)
		if err != nil {
			log.Printf("Dropping frame from %s: %v", conn.ID(), err)
			continue
		}

		if err := h.hub.Dispatch(conn.ID(), event); err != nil {
			log.Printf("Dropping event from %s: %v", conn.ID(), err)
		}
	}
}
