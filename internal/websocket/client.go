package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBufferSize = 256
)

// NewUpgrader builds an upgrader that admits requests without an Origin
// header and those whose origin passes allowOrigin.
func NewUpgrader(allowOrigin func(origin string) bool) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowOrigin == nil {
				return true
			}
			return allowOrigin(origin)
		},
	}
}

type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	ip   string

	// Polls the client watches, with the number of live updates delivered
	// for each since it subscribed.
	polls map[string]uint64
	mu    sync.Mutex

	sendMu     sync.Mutex
	sendClosed bool

	// Connection state management
	ctx    context.Context
	cancel context.CancelFunc
	closed int32

	initialPoll string
}

func NewClient(hub *Hub, conn *websocket.Conn, ip string) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		id:     uuid.New().String(),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		ip:     ip,
		polls:  make(map[string]uint64),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Client) GetID() string {
	return c.id
}

// Polls returns the poll ids the client is subscribed to
func (c *Client) Polls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	polls := make([]string, 0, len(c.polls))
	for pollID := range c.polls {
		polls = append(polls, pollID)
	}
	return polls
}

func (c *Client) IsInPoll(pollID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.polls[pollID]
	return ok
}

func (c *Client) addPoll(pollID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls[pollID] = 0
}

func (c *Client) removePoll(pollID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.polls, pollID)
}

// deliver queues a live update and counts it against the subscription
func (c *Client) deliver(pollID string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.polls[pollID]; !ok {
		return
	}
	c.polls[pollID]++
	c.enqueue(data)
}

// sendSnapshot queues the join snapshot unless a live update already got
// through, which is at least as recent.
func (c *Client) sendSnapshot(pollID string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delivered, ok := c.polls[pollID]
	if !ok || delivered > 0 {
		return
	}
	c.polls[pollID]++
	c.enqueue(data)
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// close marks the client as closed and cancels the context
func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
		slog.Debug("Client marked as closed", "clientID", c.id)
	}
}

func (c *Client) closeSendChannel() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
		slog.Debug("Send channel closed", "clientID", c.id)
	}
}

// enqueue never blocks; a client that cannot keep up is dropped
func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		slog.Warn("Send buffer full, closing client", "clientID", c.id)
		c.sendClosed = true
		close(c.send)
		return false
	}
}

func (c *Client) SendMessage(message *Message) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	if !c.enqueue(data) {
		return ErrClientDisconnected
	}
	return nil
}

func (c *Client) sendError(code, message string) {
	msg, err := NewErrorMessage(code, message)
	if err != nil {
		return
	}
	c.SendMessage(msg)
}

func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeJoinPoll, MessageTypeLeavePoll:
		var data PollRoomData
		if err := msg.DecodeData(&data); err != nil || data.PollID == "" {
			c.sendError(ErrorCodeInvalidMessage, "pollId is required")
			return
		}
		if msg.Type == MessageTypeJoinPoll {
			c.hub.Join(c.ctx, c, data.PollID)
		} else {
			c.hub.Leave(c, data.PollID)
		}

	default:
		c.sendError(ErrorCodeUnsupportedMessage, "Unsupported message type: "+msg.Type.String())
	}
}

func (c *Client) readPump() {
	defer func() {
		c.close()

		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		case <-time.After(5 * time.Second):
			slog.Warn("Timeout sending unregister request", "clientID", c.id)
		}

		if err := c.conn.Close(); err != nil {
			slog.Debug("Error closing connection", "clientID", c.id, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "clientID", c.id, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			slog.Debug("Failed to unmarshal message", "clientID", c.id, "error", err)
			c.sendError(ErrorCodeInvalidMessage, "Invalid message format")
			continue
		}
		if err := msg.Validate(); err != nil {
			c.sendError(ErrorCodeInvalidMessage, err.Error())
			continue
		}

		c.handleMessage(&msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		// Unblocks readPump, which then unregisters the client
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

			// One frame per message; clients parse each frame as JSON
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("Error writing message", "clientID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "clientID", c.id, "error", err)
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// ServeWS upgrades the request and registers the client. A non-empty
// pollID joins that poll right away.
func ServeWS(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, ip, pollID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "ip", ip, "error", err)
		return
	}

	client := NewClient(hub, conn, ip)
	client.initialPoll = pollID

	select {
	case hub.register <- client:
	case <-time.After(5 * time.Second):
		slog.Error("Timeout sending registration request", "clientID", client.id)
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	slog.Debug("WebSocket goroutines started", "clientID", client.id, "pollID", pollID)
}
