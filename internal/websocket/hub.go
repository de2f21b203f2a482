package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"poll-service/internal/models"
	"poll-service/internal/voting"
	"poll-service/pkg/logger"
)

var ErrClientDisconnected = fmt.Errorf("client disconnected")

// PollViewer answers join requests with the current public view
type PollViewer interface {
	GetPublicPoll(ctx context.Context, pollID string) (*models.PublicPoll, error)
}

const (
	joinLookupTimeout = 5 * time.Second

	resubscribeDelay    = time.Second
	maxResubscribeDelay = 30 * time.Second
)

// Hub tracks connected clients and the poll topics they watch. Mutations
// go out through the bus and come back in through consume, so every
// instance delivers to its own subscribers.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Poll subscriptions
	topics map[string]map[*Client]bool

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	bus    Bus
	viewer PollViewer

	// Backoff between bus subscriptions after a failure
	reconnectDelay    time.Duration
	maxReconnectDelay time.Duration

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc

	mu sync.RWMutex

	logger *logger.Logger
}

func NewHub(bus Bus, viewer PollViewer, logger *logger.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:           make(map[*Client]bool),
		topics:            make(map[string]map[*Client]bool),
		register:          make(chan *Client),
		unregister:        make(chan *Client),
		bus:               bus,
		viewer:            viewer,
		reconnectDelay:    resubscribeDelay,
		maxReconnectDelay: maxResubscribeDelay,
		ctx:               ctx,
		cancel:            cancel,
		logger:            logger,
	}
}

func (h *Hub) Run() {
	go h.consume()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub shutting down")
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
	if err := h.bus.Close(); err != nil {
		h.logger.Warn("Failed to close broadcast bus", "error", err)
	}
}

// consume keeps a bus subscription open until the hub stops. A failed
// subscription is retried with exponential backoff capped at
// maxReconnectDelay; a nil return means the bus was closed.
func (h *Hub) consume() {
	delay := h.reconnectDelay
	for {
		started := time.Now()
		err := h.bus.Subscribe(h.ctx, h.deliver)
		if err == nil || h.ctx.Err() != nil {
			return
		}

		// A subscription that stayed up for a while starts the backoff over
		if time.Since(started) > h.maxReconnectDelay {
			delay = h.reconnectDelay
		}

		h.logger.Error("Broadcast bus subscription failed", "error", err, "retryIn", delay)

		select {
		case <-h.ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > h.maxReconnectDelay {
			delay = h.maxReconnectDelay
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	h.logger.Info("Client registered", "clientID", client.id, "ip", client.ip)

	if msg, err := NewConnectMessage(client.id); err == nil {
		client.SendMessage(msg)
	}

	// Joined off the hub loop, after connect is queued
	if client.initialPoll != "" {
		go h.Join(client.ctx, client, client.initialPoll)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	for _, pollID := range client.Polls() {
		h.removeFromTopic(client, pollID)
	}
	client.closeSendChannel()

	h.logger.Info("Client unregistered", "clientID", client.id)
}

// =============================================================================
// Broadcaster
// =============================================================================

// PollUpdated publishes the saved view to every instance
func (h *Hub) PollUpdated(ctx context.Context, view *models.PublicPoll) error {
	return h.bus.Publish(ctx, Event{Type: MessageTypeVoteUpdated, PollID: view.ID, Poll: view})
}

// PollDeleted tells every instance to notify and drop the poll's topic
func (h *Hub) PollDeleted(ctx context.Context, pollID string) error {
	return h.bus.Publish(ctx, Event{Type: MessageTypePollDeleted, PollID: pollID})
}

// =============================================================================
// Subscriptions
// =============================================================================

// Join subscribes client to a poll and sends it the current view. The
// client is subscribed before the lookup, and the snapshot is dropped if a
// live update reached the client first, so it never ends on a stale view.
func (h *Hub) Join(ctx context.Context, client *Client, pollID string) {
	if pollID == "" {
		client.sendError(ErrorCodeInvalidMessage, "pollId is required")
		return
	}

	h.subscribe(client, pollID)

	lookupCtx, cancel := context.WithTimeout(ctx, joinLookupTimeout)
	defer cancel()

	view, err := h.viewer.GetPublicPoll(lookupCtx, pollID)
	if errors.Is(err, voting.ErrPollNotFound) {
		h.Leave(client, pollID)
		if msg, err := NewPollUnavailableMessage(pollID, pollNotFoundMessage); err == nil {
			client.SendMessage(msg)
		}
		return
	}
	if err != nil {
		h.Leave(client, pollID)
		h.logger.Error("Failed to load poll for join", "clientID", client.id, "pollID", pollID, "error", err)
		client.sendError(ErrorCodeJoinFailed, joinFailedMessage)
		return
	}

	msg, err := NewVoteUpdatedMessage(view)
	if err != nil {
		h.logger.Error("Failed to build poll snapshot", "pollID", pollID, "error", err)
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	client.sendSnapshot(pollID, data)

	h.logger.Debug("Client joined poll", "clientID", client.id, "pollID", pollID)
}

func (h *Hub) Leave(client *Client, pollID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromTopic(client, pollID)
}

func (h *Hub) subscribe(client *Client, pollID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[pollID] == nil {
		h.topics[pollID] = make(map[*Client]bool)
	}
	h.topics[pollID][client] = true
	client.addPoll(pollID)
}

// removeFromTopic must be called with h.mu held
func (h *Hub) removeFromTopic(client *Client, pollID string) {
	client.removePoll(pollID)

	members, ok := h.topics[pollID]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.topics, pollID)
	}
}

// TopicSize returns how many local clients watch pollID
func (h *Hub) TopicSize(pollID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[pollID])
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// =============================================================================
// Delivery
// =============================================================================

func (h *Hub) deliver(event Event) {
	var (
		msg *Message
		err error
	)
	switch event.Type {
	case MessageTypeVoteUpdated:
		if event.Poll == nil {
			h.logger.Warn("Dropping vote update without poll", "pollID", event.PollID)
			return
		}
		msg, err = NewVoteUpdatedMessage(event.Poll)
	case MessageTypePollDeleted:
		msg, err = NewPollDeletedMessage(event.PollID)
	default:
		h.logger.Warn("Dropping unknown poll event", "type", event.Type, "pollID", event.PollID)
		return
	}
	if err != nil {
		h.logger.Error("Failed to build poll event message", "pollID", event.PollID, "error", err)
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal poll event message", "pollID", event.PollID, "error", err)
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.topics[event.PollID]))
	for client := range h.topics[event.PollID] {
		members = append(members, client)
	}
	h.mu.RUnlock()

	for _, client := range members {
		client.deliver(event.PollID, data)
	}

	if event.Type == MessageTypePollDeleted {
		h.mu.Lock()
		for client := range h.topics[event.PollID] {
			client.removePoll(event.PollID)
		}
		delete(h.topics, event.PollID)
		h.mu.Unlock()
	}

	h.logger.Debug("Poll event delivered", "type", event.Type, "pollID", event.PollID, "clients", len(members))
}
