// Package streaming defines the wire protocol spoken between the extension
// and a live telemetry server. Every frame is an Envelope; the server answers
// session boundaries with an AckMessage.
package streaming

import (
	"encoding/json"

	"github.com/rcsfx/extension/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeTick         = "tick"
	TypeEffectEvent  = "effect_event"
	TypeAck          = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload opens a session on the server.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
}

// EndSessionPayload closes the session opened by the last start_session.
type EndSessionPayload struct {
	SessionID uint `json:"sessionId"`
	Ticks     uint `json:"ticks"`
}
