package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/pollroom/go/internal/classroom/events"
	"github.com/rs/zerolog/log"
)

// Dispatcher receives client frames and disconnect notices
type Dispatcher interface {
	HandleMessage(ctx context.Context, connectionID string, raw []byte) error
	Disconnected(ctx context.Context, connectionID string) error
}

// ConnectionManager manages the classroom's WebSocket connections
type ConnectionManager struct {
	// Connection pool keyed by connection ID
	connections map[string]*Connection
	mu          sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig

	// Outbound events, targeted sends and closes share one queue so they
	// reach each connection in the order the room produced them.
	outboundCh chan outboundMessage

	dispatcher Dispatcher

	messagesIn  atomic.Int64
	messagesOut atomic.Int64
	dropped     atomic.Int64
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	// Connection metadata
	ConnectedAt time.Time
	lastPong    atomic.Int64
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	OutboundBuffer  int
	AllowedOrigins  []string
}

type outboundKind int

const (
	outboundBroadcast outboundKind = iota
	outboundDirect
	outboundClose
)

// outboundMessage is one unit of work for the Start loop
type outboundMessage struct {
	Kind         outboundKind
	ConnectionID string // empty for broadcasts
	Event        *events.Event
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  64 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		OutboundBuffer:  1000,
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	cm := &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     originChecker(config.AllowedOrigins),
		},
		config:     config,
		outboundCh: make(chan outboundMessage, config.OutboundBuffer),
	}

	return cm
}

// SetDispatcher wires the component that handles inbound frames. It must be
// called before the first connection is accepted.
func (cm *ConnectionManager) SetDispatcher(d Dispatcher) {
	cm.dispatcher = d
}

// originChecker allows any origin when none are configured
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// Start begins processing outbound messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case message := <-cm.outboundCh:
			cm.handleOutbound(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	connection.lastPong.Store(time.Now().UnixNano())

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return connection, nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn.ID] = conn

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// unregisterConnection removes a connection and closes its send queue. Safe to
// call more than once.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if existing, ok := cm.connections[conn.ID]; ok && existing == conn {
		delete(cm.connections, conn.ID)
		close(conn.Send)

		log.Info().
			Str("connection_id", conn.ID).
			Dur("connected_for", time.Since(conn.ConnectedAt)).
			Msg("connection unregistered")
	}
}

// Broadcast queues an event for every open connection
func (cm *ConnectionManager) Broadcast(event *events.Event) {
	cm.enqueue(outboundMessage{Kind: outboundBroadcast, Event: event})
}

// SendTo queues an event for a single connection
func (cm *ConnectionManager) SendTo(connectionID string, event *events.Event) {
	cm.enqueue(outboundMessage{Kind: outboundDirect, ConnectionID: connectionID, Event: event})
}

// Close flushes anything already queued for the connection, then closes it
func (cm *ConnectionManager) Close(connectionID string) {
	cm.enqueue(outboundMessage{Kind: outboundClose, ConnectionID: connectionID})
}

func (cm *ConnectionManager) enqueue(message outboundMessage) {
	select {
	case cm.outboundCh <- message:
	default:
		cm.dropped.Add(1)
		log.Warn().
			Str("connection_id", message.ConnectionID).
			Msg("outbound channel full, dropping message")
	}
}

// handleOutbound processes one queued message
func (cm *ConnectionManager) handleOutbound(message outboundMessage) {
	if message.Kind == outboundClose {
		cm.mu.RLock()
		conn, ok := cm.connections[message.ConnectionID]
		cm.mu.RUnlock()
		if ok {
			// The write pump drains Send, sends a close frame and exits.
			cm.unregisterConnection(conn)
		}
		return
	}

	// Marshal the event once
	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	// Sends happen under the read lock so unregister cannot close Send mid-write.
	var slow []*Connection
	delivered := 0
	deliver := func(conn *Connection) {
		select {
		case conn.Send <- eventData:
			delivered++
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RLock()
	if message.Kind == outboundDirect {
		if conn, ok := cm.connections[message.ConnectionID]; ok {
			deliver(conn)
		}
	} else {
		for _, conn := range cm.connections {
			deliver(conn)
		}
	}
	cm.mu.RUnlock()

	cm.messagesOut.Add(int64(delivered))

	// Connection is slow/dead, close it
	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("target", message.ConnectionID).
		Int("connections", delivered).
		Msg("event sent")
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for _, conn := range cm.connections {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range conns {
		cm.unregisterConnection(conn)
	}
}

// ConnectionCount returns the number of open connections
func (cm *ConnectionManager) ConnectionCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	return map[string]interface{}{
		"total_connections": cm.ConnectionCount(),
		"messages_received": cm.messagesIn.Load(),
		"messages_sent":     cm.messagesOut.Load(),
		"messages_dropped":  cm.dropped.Load(),
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection. It is the
// only place that reports a disconnect to the dispatcher.
func (c *Connection) readPump() {
	cm := c.Manager
	defer func() {
		cm.unregisterConnection(c)
		c.Conn.Close()
		if cm.dispatcher != nil {
			if err := cm.dispatcher.Disconnected(context.Background(), c.ID); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("disconnect not delivered")
			}
		}
	}()

	c.Conn.SetReadLimit(cm.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(cm.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(cm.config.ReadTimeout))
		c.lastPong.Store(time.Now().UnixNano())
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		cm.messagesIn.Add(1)
		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(cm.config.ReadTimeout))
	}
}

// handleClientMessage hands a frame to the dispatcher. Bad frames are logged
// and skipped; the connection stays open.
func (c *Connection) handleClientMessage(message []byte) {
	if c.Manager.dispatcher == nil {
		log.Warn().Str("connection_id", c.ID).Msg("no dispatcher configured, dropping client message")
		return
	}
	if err := c.Manager.dispatcher.HandleMessage(context.Background(), c.ID, message); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", c.ID).
			Msg("rejected client message")
	}
}

// LastPong reports when the client last answered a ping
func (c *Connection) LastPong() time.Time {
	return time.Unix(0, c.lastPong.Load())
}
