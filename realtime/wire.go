// ABOUTME: Outbound frame envelope for locally-originated real-time signals.
// ABOUTME: Frames are named events with a pre-marshaled JSON payload.
package realtime

import (
	"encoding/json"
	"fmt"
)

// Well-known outbound event names.
const (
	// EventJoinBoard announces the user entering a board's event room.
	EventJoinBoard = "board.join"
	// EventLeaveBoard announces the user leaving the board, sent best-effort
	// before the socket closes.
	EventLeaveBoard = "board.leave"
	// EventHeartbeat is the periodic liveness signal carrying the user's
	// identity.
	EventHeartbeat = "presence.heartbeat"
)

// Frame is a single outbound message: a named event plus its payload.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewFrame builds a Frame, marshaling the payload. A nil payload produces an
// empty-payload frame.
func NewFrame(event string, payload any) (Frame, error) {
	f := Frame{Event: event}
	if payload == nil {
		return f, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	f.Payload = data
	return f, nil
}

// Identity is the current user's identity carried on join, leave, and
// heartbeat frames. The session layer supplies it; the transport never
// modifies it.
type Identity struct {
	UserID string `json:"user_id"`
	Alias  string `json:"alias,omitempty"`
}
