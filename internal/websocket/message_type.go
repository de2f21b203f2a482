package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"poll-service/internal/models"

	"github.com/google/uuid"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	// Connection events
	MessageTypeConnect MessageType = "connection.connect"

	// Client requests
	MessageTypeJoinPoll  MessageType = "poll.join"
	MessageTypeLeavePoll MessageType = "poll.leave"

	// Server pushes
	MessageTypeVoteUpdated     MessageType = "poll.vote_updated"
	MessageTypePollDeleted     MessageType = "poll.deleted"
	MessageTypePollUnavailable MessageType = "poll.unavailable"

	// Error events
	MessageTypeError MessageType = "error"
)

// Error codes sent in error messages
const (
	ErrorCodeInvalidMessage     = "INVALID_MESSAGE"
	ErrorCodeUnsupportedMessage = "UNSUPPORTED_MESSAGE"
	ErrorCodeJoinFailed         = "JOIN_FAILED"
)

const (
	pollNotFoundMessage = "Poll does not exist."
	joinFailedMessage   = "Failed to join poll room."
)

func (mt MessageType) String() string {
	return string(mt)
}

// IsValid checks if the MessageType is a known value
func (mt MessageType) IsValid() bool {
	switch mt {
	case MessageTypeConnect, MessageTypeJoinPoll, MessageTypeLeavePoll,
		MessageTypeVoteUpdated, MessageTypePollDeleted, MessageTypePollUnavailable,
		MessageTypeError:
		return true
	default:
		return false
	}
}

// Message is the envelope of every frame in both directions
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Validate checks an inbound message
func (m *Message) Validate() error {
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid message type: %s", m.Type)
	}
	return nil
}

// DecodeData unmarshals the payload into v
func (m *Message) DecodeData(v interface{}) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("message %s has no data", m.Type)
	}
	return json.Unmarshal(m.Data, v)
}

// Message data structures for different message types
type PollRoomData struct {
	PollID string `json:"pollId"`
}

type PollUnavailableData struct {
	PollID  string `json:"pollId"`
	Message string `json:"message"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ConnectData struct {
	ClientID string `json:"clientId"`
	Status   string `json:"status"`
}

// NewMessage builds an outbound message with a fresh id
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	msg := &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Timestamp: time.Now().Unix(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s data: %w", msgType, err)
		}
		msg.Data = raw
	}
	return msg, nil
}

func NewConnectMessage(clientID string) (*Message, error) {
	return NewMessage(MessageTypeConnect, ConnectData{ClientID: clientID, Status: "connected"})
}

func NewErrorMessage(code, message string) (*Message, error) {
	return NewMessage(MessageTypeError, ErrorData{Code: code, Message: message})
}

func NewVoteUpdatedMessage(view *models.PublicPoll) (*Message, error) {
	return NewMessage(MessageTypeVoteUpdated, view)
}

func NewPollDeletedMessage(pollID string) (*Message, error) {
	return NewMessage(MessageTypePollDeleted, PollRoomData{PollID: pollID})
}

func NewPollUnavailableMessage(pollID, message string) (*Message, error) {
	return NewMessage(MessageTypePollUnavailable, PollUnavailableData{PollID: pollID, Message: message})
}
