// Package realtime maintains the agent's persistent WebSocket session with
// the backend event stream: one connection, at most one joined workspace
// room, bounded automatic reconnection.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"workb-agent/config"
	"workb-agent/internal/storage"
)

// Handler receives a server-pushed event's raw payload.
type Handler func(data json.RawMessage)

type handlerEntry struct {
	id int
	fn Handler
}

// Client is the realtime session. Construct one per process and inject it;
// connection errors surface only as the boolean result of Connect.
type Client struct {
	cfg     config.RealtimeConfig
	storage *storage.Storage

	mu          sync.Mutex
	conn        *websocket.Conn
	connected   bool
	closing     bool
	workspaceID string
	handlers    map[string][]handlerEntry
	nextID      int

	writeMu sync.Mutex
}

// NewClient creates a disconnected session client.
func NewClient(cfg config.RealtimeConfig, store *storage.Storage) *Client {
	return &Client{
		cfg:      cfg,
		storage:  store,
		handlers: make(map[string][]handlerEntry),
	}
}

// Connect establishes the transport. Idempotent: returns true immediately
// when already connected. Resolves false on handshake error or timeout,
// never returns an error.
func (c *Client) Connect(ctx context.Context) bool {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		log.Println("realtime: already connected")
		return true
	}
	c.closing = false
	c.mu.Unlock()

	conn, ok := c.dial(ctx)
	if !ok {
		return false
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop(conn)
	log.Println("realtime: connected")
	return true
}

// dial performs one handshake attempt under the configured timeout.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, bool) {
	header := http.Header{}
	if token := c.storage.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(dialCtx, c.cfg.URL, header)
	if err != nil {
		log.Printf("realtime: connection error: %v", err)
		return nil, false
	}
	return conn, true
}

// readLoop consumes frames until the connection drops, then hands off to
// the reconnect loop unless the drop was a deliberate Disconnect.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var envelope Envelope
		if err := conn.ReadJSON(&envelope); err != nil {
			c.mu.Lock()
			// Disconnect nils the conn and a fresh Connect swaps it;
			// either way this loop no longer owns the session state.
			if c.conn != conn {
				c.mu.Unlock()
				return
			}
			c.connected = false
			c.conn = nil
			c.mu.Unlock()

			log.Printf("realtime: disconnected: %v", err)
			c.reconnect()
			return
		}
		c.dispatch(envelope)
	}
}

// reconnect retries the handshake with exponential-ish backoff, bounded by
// the configured attempt ceiling. After a successful reconnect the last
// joined workspace room is rejoined; there is no acknowledgment for the
// rejoin signal.
func (c *Client) reconnect() {
	delay := c.cfg.ReconnectDelay
	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		time.Sleep(delay)
		delay *= 2
		if delay > c.cfg.ReconnectDelayMax {
			delay = c.cfg.ReconnectDelayMax
		}

		c.mu.Lock()
		if c.closing {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		conn, ok := c.dial(context.Background())
		if !ok {
			log.Printf("realtime: reconnection attempt %d failed", attempt)
			continue
		}

		c.mu.Lock()
		if c.closing {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.connected = true
		workspaceID := c.workspaceID
		c.mu.Unlock()

		log.Printf("realtime: reconnected after %d attempts", attempt)
		if workspaceID != "" {
			c.emit(SignalJoinWorkspace, workspaceID)
		}
		go c.readLoop(conn)
		return
	}
	log.Printf("realtime: giving up after %d reconnection attempts", c.cfg.MaxReconnectAttempts)
}

// Disconnect tears down the transport and clears room membership. Safe to
// call when already disconnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.closing = true
	c.connected = false
	c.conn = nil
	c.workspaceID = ""
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
		log.Println("realtime: disconnected manually")
	}
}

// Connected reports whether the transport is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// JoinWorkspace joins the workspace room for realtime updates, leaving the
// previously joined room first. At most one room is joined at a time. Warns
// and no-ops when not connected; the join is not queued.
func (c *Client) JoinWorkspace(workspaceID string) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		log.Println("realtime: cannot join workspace, not connected")
		return
	}
	previous := c.workspaceID
	c.workspaceID = workspaceID
	c.mu.Unlock()

	if previous != "" && previous != workspaceID {
		c.emit(SignalLeaveWorkspace, previous)
		log.Printf("realtime: left workspace %s", previous)
	}
	c.emit(SignalJoinWorkspace, workspaceID)
	log.Printf("realtime: joined workspace %s", workspaceID)
}

// LeaveWorkspace leaves the given room.
func (c *Client) LeaveWorkspace(workspaceID string) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	if c.workspaceID == workspaceID {
		c.workspaceID = ""
	}
	c.mu.Unlock()

	c.emit(SignalLeaveWorkspace, workspaceID)
	log.Printf("realtime: left workspace %s", workspaceID)
}

// On subscribes to a named server-pushed event and returns an unsubscribe
// function.
func (c *Client) On(event string, fn Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.handlers[event] = append(c.handlers[event], handlerEntry{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		entries := c.handlers[event]
		for i, e := range entries {
			if e.id == id {
				c.handlers[event] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Off removes every handler for the event name.
func (c *Client) Off(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, event)
}

func (c *Client) dispatch(envelope Envelope) {
	c.mu.Lock()
	entries := make([]handlerEntry, len(c.handlers[envelope.Event]))
	copy(entries, c.handlers[envelope.Event])
	c.mu.Unlock()

	for _, e := range entries {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("realtime: handler panic for %s recovered: %v", envelope.Event, r)
				}
			}()
			e.fn(envelope.Data)
		}()
	}
}

// emit writes one envelope. Fire and forget: write errors are logged only,
// and nothing is sent while disconnected.
func (c *Client) emit(event string, data any) {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		log.Printf("realtime: cannot emit %s, not connected", event)
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("realtime: failed to marshal %s payload: %v", event, err)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(Envelope{Event: event, Data: raw}); err != nil {
		log.Printf("realtime: failed to emit %s: %v", event, err)
	}
}

// EmitCheckIn broadcasts an attendance check-in. No delivery guarantee:
// emits while offline are dropped with a warning.
func (c *Client) EmitCheckIn(event CheckEvent) {
	c.emit(EventAttendanceCheckIn, event)
}

// EmitCheckOut broadcasts an attendance check-out.
func (c *Client) EmitCheckOut(event CheckEvent) {
	c.emit(EventAttendanceCheckOut, event)
}

// EmitPresenceResponse answers a presence check.
func (c *Client) EmitPresenceResponse(resp PresenceResponse) {
	c.emit(EventPresenceCheckResponse, resp)
}
