package handler

import (
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/cigarro-stock/internal/model"
)

// WebSocket configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 32
)

// EventPath is the WebSocket endpoint streaming stock events.
const EventPath = "/ws/cigarros"

// EventHub fans stock events out to connected WebSocket clients.
type EventHub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger
	mu       sync.RWMutex
	clients  map[*wsClient]struct{}
	writers  sync.WaitGroup
	// closed is set by CloseAllConnections; later upgrades are refused.
	closed bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *wsClient) stop() {
	c.once.Do(func() { close(c.done) })
}

// NewEventHub creates a new EventHub instance.
func NewEventHub(logger *zap.Logger) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// RegisterRoutes registers the WebSocket route with the router.
func (h *EventHub) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(EventPath, h.HandleWebSocket).Methods(http.MethodGet)
}

// Publish queues the event for every connected client. A client whose queue
// is full misses the event.
func (h *EventHub) Publish(event model.StockEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode stock event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Debug("dropping stock event for slow client",
				zap.String("remote_addr", c.conn.RemoteAddr().String()),
				zap.String("event", event.Type),
			)
		}
	}
}

// HandleWebSocket upgrades the request and subscribes the client to events.
func (h *EventHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.isClosed() {
		http.Error(w, "event feed is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	c := &wsClient{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}

	// Registration and writers.Add happen under mu so they are ordered
	// before the Wait in CloseAllConnections.
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.sendCloseMessage(conn)
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.writers.Add(1)
	h.mu.Unlock()

	h.logger.Info("websocket client connected", zap.String("remote_addr", conn.RemoteAddr().String()))

	go h.writePump(c)
	go h.readPump(c)
}

func (h *EventHub) isClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump consumes control frames and detects disconnects. Clients are not
// expected to send data.
func (h *EventHub) readPump(c *wsClient) {
	defer h.removeClient(c)

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump is the only writer of the connection and closes it on exit.
func (h *EventHub) writePump(c *wsClient) {
	pingTicker := time.NewTicker(pingPeriod)

	defer func() {
		pingTicker.Stop()
		if err := c.conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
		h.writers.Done()
	}()

	for {
		select {
		case <-c.done:
			h.sendCloseMessage(c.conn)
			return
		case payload := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("failed to send stock event", zap.Error(err))
				h.removeClient(c)
				return
			}
		case <-pingTicker.C:
			if err := h.sendPing(c.conn); err != nil {
				h.logger.Debug("failed to send ping", zap.Error(err))
				h.removeClient(c)
				return
			}
		}
	}
}

// sendPing sends a ping message to the connection.
func (h *EventHub) sendPing(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.PingMessage, nil)
}

// sendCloseMessage sends a close message to the connection.
func (h *EventHub) sendCloseMessage(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		h.logger.Debug("failed to set write deadline for close", zap.Error(err))
		return
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		h.logger.Debug("failed to send close message", zap.Error(err))
	}
}

// removeClient unsubscribes the client and stops its writer.
func (h *EventHub) removeClient(c *wsClient) {
	h.mu.Lock()
	_, exists := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	c.stop()
	if exists {
		h.logger.Info("websocket client disconnected", zap.String("remote_addr", c.conn.RemoteAddr().String()))
	}
}

// CloseAllConnections sends a close frame to every client and waits for the
// connections to be closed. The hub accepts no new clients afterwards.
func (h *EventHub) CloseAllConnections() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.stop()
	}
	h.writers.Wait()

	h.logger.Info("all websocket connections closed", zap.Int("count", len(clients)))
}
