package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"hexempire/internal/relay"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// wsWriteTimeout bounds a single write so one stuck client cannot
	// wedge its pump goroutine forever.
	wsWriteTimeout = 10 * time.Second
)

// subscribeRequest is the first message a client sends after connecting.
type subscribeRequest struct {
	Type   string       `json:"type"` // "subscribe"
	Filter relay.Filter `json:"filter"`
}

// WebSocketHub upgrades connections and bridges them onto the relay's
// subscription registry. Each client gets one subscription; events that
// match its filter are pushed as JSON frames.
type WebSocketHub struct {
	registry *relay.SubscriptionRegistry
	upgrader websocket.Upgrader
	log      logrus.FieldLogger

	mu      sync.RWMutex
	clients map[string]*websocket.Conn // subscription id -> conn

	// Connection limiting per IP
	wsLimiter *WebSocketRateLimiter

	maxTotal int
}

// NewWebSocketHub creates a hub with connection limiting. The registry
// is shared with the HTTP publish path so WebSocket subscribers see
// every stored event.
func NewWebSocketHub(registry *relay.SubscriptionRegistry, logger logrus.FieldLogger) *WebSocketHub {
	h := &WebSocketHub{
		registry:  registry,
		log:       logger,
		clients:   make(map[string]*websocket.Conn),
		wsLimiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
		maxTotal:  MaxWSConnectionsTotal,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if IsAllowedOrigin(origin) {
				return true
			}
			h.log.WithField("origin", origin).Warn("websocket rejected by origin check")
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket handles incoming subscription connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ClientCount() >= h.maxTotal {
		h.log.WithField("total", h.maxTotal).Warn("websocket rejected, total limit reached")
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		h.log.WithField("ip", ip).Warn("websocket rejected, per-IP limit reached")
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		h.wsLimiter.Release(ip) // Release the slot we reserved
		return
	}

	// First frame must be the subscribe request. An empty filter
	// subscribes to everything.
	conn.SetReadDeadline(time.Now().Add(wsWriteTimeout))
	var req subscribeRequest
	_, first, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		h.wsLimiter.Release(ip)
		return
	}
	if jsonErr := json.Unmarshal(first, &req); jsonErr != nil || req.Type != "subscribe" {
		conn.WriteJSON(map[string]string{"error": "expected subscribe message"})
		conn.Close()
		h.wsLimiter.Release(ip)
		return
	}
	conn.SetReadDeadline(time.Time{})

	subID := uuid.NewString()
	sub := h.registry.Subscribe(subID, req.Filter)

	h.mu.Lock()
	h.clients[subID] = conn
	count := len(h.clients)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"ip": ip, "total": count}).Info("websocket subscriber connected")
	UpdateWSConnections(count)

	conn.WriteJSON(map[string]string{"type": "subscribed", "id": subID})

	go h.writePump(subID, ip, conn, sub)
	go h.readPump(subID, ip, conn)
}

// writePump forwards matching events until the subscription closes.
func (h *WebSocketHub) writePump(subID, ip string, conn *websocket.Conn, sub *relay.Subscription) {
	defer h.drop(subID, ip, conn)

	for ev := range sub.C {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(map[string]interface{}{"type": "event", "event": ev}); err != nil {
			return
		}
		IncrementWSMessages()
	}
}

// readPump drains the connection so pings and close frames are
// processed; clients have nothing else to say after subscribing.
func (h *WebSocketHub) readPump(subID, ip string, conn *websocket.Conn) {
	defer h.drop(subID, ip, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebSocketHub) drop(subID, ip string, conn *websocket.Conn) {
	h.mu.Lock()
	_, present := h.clients[subID]
	delete(h.clients, subID)
	count := len(h.clients)
	h.mu.Unlock()

	if !present {
		return // the other pump got here first
	}

	h.registry.Unsubscribe(subID)
	h.wsLimiter.Release(ip)
	conn.Close()

	h.log.WithFields(logrus.Fields{"ip": ip, "remaining": count}).Info("websocket subscriber disconnected")
	UpdateWSConnections(count)
}
