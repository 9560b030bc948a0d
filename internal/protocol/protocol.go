// Package protocol defines the wire format spoken between the relay and the
// visitor/pastor clients.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Event names.
const (
	EventConnect          = "connect"
	EventChatMessage      = "chat_message"
	EventPastorStatus     = "pastor_status"
	EventUserConnected    = "user_connected"
	EventUserDisconnected = "user_disconnected"
)

// Role tags carried in user_type.
type Role string

const (
	RoleUser   Role = "user"
	RolePastor Role = "pastor"
)

// PastorName is the sender label the relay puts on operator-authored messages.
const PastorName = "Pastor"

// Pastor presence values.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Envelope is one websocket text frame in either direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ChatMessage is the chat_message payload.
//
// Messages sent by clients only fill Msg (and TargetUserID for the pastor);
// the relay fills in the rest before delivering.
type ChatMessage struct {
	Msg          string `json:"msg"`
	Sender       string `json:"sender,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	UserType     Role   `json:"user_type,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	TargetUserID string `json:"target_user_id,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
}

// PastorStatus is the pastor_status payload.
type PastorStatus struct {
	Status string `json:"status"`
}

// Online reports whether the status announces the pastor as online.
func (p PastorStatus) Online() bool { return p.Status == StatusOnline }

// UserInfo is the user_connected / user_disconnected payload.
type UserInfo struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Room   string `json:"room,omitempty"`
	Status string `json:"status,omitempty"`
}

// NewEnvelope marshals payload under the given event name.
func NewEnvelope(event string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Event: event}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: raw}, nil
}

// Decode unmarshals the envelope data into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: empty payload", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%s: decode payload: %w", e.Event, err)
	}
	return nil
}

// OwnerID resolves the visitor a message belongs to: the author for
// visitor-authored messages, the addressee for everything else. An empty
// result means the message cannot be attributed to any visitor.
func OwnerID(m ChatMessage) string {
	if m.UserType == RoleUser {
		return m.UserID
	}
	return m.TargetUserID
}
