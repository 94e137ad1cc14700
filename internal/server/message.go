package server

import (
	"encoding/json"
	"time"

	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/poker"
)

// MessageType names a websocket message.
type MessageType string

// Client to server.
const (
	MessageTypeJoin   MessageType = "join"
	MessageTypeLeave  MessageType = "leave"
	MessageTypeAction MessageType = "action"
	MessageTypePing   MessageType = "ping"
)

// Server to client.
const (
	MessageTypeJoined        MessageType = "joined"
	MessageTypeState         MessageType = "state"
	MessageTypeActionRequest MessageType = "action_request"
	MessageTypeActionApplied MessageType = "action_applied"
	MessageTypeTimeout       MessageType = "timeout"
	MessageTypeHandResult    MessageType = "hand_result"
	MessageTypeTableClosed   MessageType = "table_closed"
	MessageTypeError         MessageType = "error"
	MessageTypePong          MessageType = "pong"
)

// Message is the envelope for every websocket message.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
}

// NewMessage creates a message with the current timestamp.
func NewMessage(t MessageType, data any) (*Message, error) {
	msg := &Message{Type: t, Timestamp: time.Now().UTC()}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = b
	}
	return msg, nil
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	return json.Unmarshal(m.Data, v)
}

type JoinData struct {
	Table string `json:"table"`
	Seat  *int   `json:"seat,omitempty"`
}

type ActionData struct {
	Action string  `json:"action"`
	Amount int     `json:"amount,omitempty"`
	TurnID *uint64 `json:"turn_id,omitempty"`
}

type JoinedData struct {
	TableID string `json:"table_id"`
	Seat    int    `json:"seat"`
}

// StateData is the public table plus the receiver's own cards.
type StateData struct {
	Table     game.TableView `json:"table"`
	Seat      int            `json:"seat"`
	HoleCards []poker.Card   `json:"hole_cards,omitempty"`
}

type ActionRequestData struct {
	TurnID    uint64            `json:"turn_id"`
	TimeoutMs int64             `json:"timeout_ms"`
	View      game.DecisionView `json:"view"`
}

type ActionAppliedData struct {
	TableID string         `json:"table_id"`
	TurnID  uint64         `json:"turn_id"`
	Street  game.Street    `json:"street"`
	Seat    int            `json:"seat"`
	Type    game.EventType `json:"type"`
	Paid    int            `json:"paid"`
	RaiseTo int            `json:"raise_to,omitempty"`
}

type TimeoutData struct {
	TableID string `json:"table_id"`
	TurnID  uint64 `json:"turn_id"`
	Seat    int    `json:"seat"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorMessage(code string, err error) *Message {
	msg, _ := NewMessage(MessageTypeError, ErrorData{Code: code, Message: err.Error()})
	return msg
}
