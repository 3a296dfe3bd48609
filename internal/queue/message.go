package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

// MessageVersion is bumped when the payload shape changes.
const MessageVersion = 1

// Message asks a worker to analyze one document.
type Message struct {
	DocumentID string `json:"documentId"`
	UserID     string `json:"userId"`
	Role       string `json:"role"`
	Mode       string `json:"mode,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// ErrInvalidMessage is returned for payloads missing required fields.
var ErrInvalidMessage = errors.New("invalid queue message")

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	if msg.Version == 0 {
		msg.Version = MessageVersion
	}
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Validate checks the fields a worker needs.
func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(m.DocumentID) == "":
		return errors.Join(ErrInvalidMessage, errors.New("documentId is required"))
	case strings.TrimSpace(m.UserID) == "":
		return errors.Join(ErrInvalidMessage, errors.New("userId is required"))
	case m.Version > MessageVersion:
		return errors.Join(ErrInvalidMessage, errors.New("unsupported message version"))
	}
	return nil
}
