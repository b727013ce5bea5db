package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

type MessageType string

const (
	// Inbound.
	TypeInit MessageType = "INIT"
	TypeText MessageType = "TEXT"

	// Outbound.
	TypeUserEnter MessageType = "USER_ENTER"
	TypeUserLeave MessageType = "USER_LEAVE"
	TypeMsg       MessageType = "MSG"
	TypeDM        MessageType = "DM"
)

// IsInbound reports whether clients are allowed to send this type.
func (t MessageType) IsInbound() bool {
	switch t {
	case TypeInit, TypeText:
		return true
	}
	return false
}

func (t MessageType) hasText() bool {
	switch t {
	case TypeText, TypeMsg, TypeDM:
		return true
	}
	return false
}

var ErrMalformedFrame = errors.New("malformed frame")

// Message is the JSON record exchanged with clients in both directions.
// To is only meaningful on inbound TEXT messages.
type Message struct {
	Type MessageType `json:"mtype"`
	ID   string      `json:"id"`
	Text string      `json:"text,omitempty"`
	To   string      `json:"to,omitempty"`
}

func (m Message) IsDirected() bool {
	return m.To != ""
}

// MarshalJSON keeps "text" on MSG and DM even when it is empty, and never
// emits it on presence notifications.
func (m Message) MarshalJSON() ([]byte, error) {
	if m.Type.hasText() {
		type wire struct {
			Type MessageType `json:"mtype"`
			ID   string      `json:"id"`
			Text string      `json:"text"`
			To   string      `json:"to,omitempty"`
		}
		return json.Marshal(wire{Type: m.Type, ID: m.ID, Text: m.Text, To: m.To})
	}
	type wire struct {
		Type MessageType `json:"mtype"`
		ID   string      `json:"id"`
	}
	return json.Marshal(wire{Type: m.Type, ID: m.ID})
}

// Decode parses an inbound frame. Every failure is reported as
// ErrMalformedFrame so callers can answer with a liveness probe.
func Decode(frame []byte) (Message, error) {
	var raw struct {
		Type MessageType `json:"mtype"`
		ID   string      `json:"id"`
		Text string      `json:"text"`
		To   *string     `json:"to"`
	}
	if err := json.Unmarshal(frame, &raw); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if !raw.Type.IsInbound() {
		return Message{}, fmt.Errorf("%w: unexpected mtype %q", ErrMalformedFrame, raw.Type)
	}
	if raw.Type == TypeInit && raw.ID == "" {
		return Message{}, fmt.Errorf("%w: INIT without id", ErrMalformedFrame)
	}

	msg := Message{Type: raw.Type, ID: raw.ID}
	if raw.Type == TypeText {
		msg.Text = raw.Text
		if raw.To != nil {
			msg.To = *raw.To
		}
	}
	return msg, nil
}

func userEnter(id string) Message {
	return Message{Type: TypeUserEnter, ID: id}
}

func userLeave(id string) Message {
	return Message{Type: TypeUserLeave, ID: id}
}

func broadcastText(from, text string) Message {
	return Message{Type: TypeMsg, ID: from, Text: text}
}

func directText(from, text string) Message {
	return Message{Type: TypeDM, ID: from, Text: text}
}
