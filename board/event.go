// ABOUTME: RemoteEvent is the envelope for inbound server notifications, wrapping EventPayload variants.
// ABOUTME: Tagged union JSON with a "type" discriminator; payloads carry absolute state for idempotent reapplication.
package board

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// RemoteEvent is a single server-originated change notification. Events
// carry no ordering guarantee relative to each other; each one holds enough
// absolute state to be applied independently and idempotently.
type RemoteEvent struct {
	EventID   ulid.ULID    `json:"event_id"`
	BoardID   string       `json:"board_id"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   EventPayload `json:"-"` // Custom marshal/unmarshal
}

// eventJSON is the wire format for RemoteEvent.
type eventJSON struct {
	EventID   ulid.ULID       `json:"event_id"`
	BoardID   string          `json:"board_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// MarshalJSON serializes the event with its payload inlined.
func (e RemoteEvent) MarshalJSON() ([]byte, error) {
	payloadJSON, err := MarshalEventPayload(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return json.Marshal(eventJSON{
		EventID:   e.EventID,
		BoardID:   e.BoardID,
		Timestamp: e.Timestamp,
		Payload:   payloadJSON,
	})
}

// UnmarshalJSON deserializes the event with its payload.
func (e *RemoteEvent) UnmarshalJSON(data []byte) error {
	var j eventJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	payload, err := UnmarshalEventPayload(j.Payload)
	if err != nil {
		return fmt.Errorf("unmarshal event payload: %w", err)
	}
	e.EventID = j.EventID
	e.BoardID = j.BoardID
	e.Timestamp = j.Timestamp
	e.Payload = payload
	return nil
}

// EventPayload is the tagged union of inbound event variants.
type EventPayload interface {
	EventType() string
	eventPayloadSeal()
}

// CardCreatedPayload carries the full new card.
type CardCreatedPayload struct {
	Card Card `json:"card"`
}

func (p CardCreatedPayload) EventType() string { return "card.created" }
func (p CardCreatedPayload) eventPayloadSeal() {}

// CardUpdatedPayload is a partial snapshot of a card's mutable fields.
// Parent and LinkedFeedback use OptionalField for 3-state semantics:
// absent leaves the link untouched, null clears it, a value sets it.
type CardUpdatedPayload struct {
	CardID         string                `json:"card_id"`
	Content        *string               `json:"content,omitempty"`
	Parent         OptionalField[string] `json:"-"` // Custom marshal
	LinkedFeedback OptionalField[string] `json:"-"` // Custom marshal
}

func (p CardUpdatedPayload) EventType() string { return "card.updated" }
func (p CardUpdatedPayload) eventPayloadSeal() {}

// cardUpdatedJSON is the wire format for CardUpdatedPayload.
type cardUpdatedJSON struct {
	Type           string           `json:"type"`
	CardID         string           `json:"card_id"`
	Content        *string          `json:"content,omitempty"`
	Parent         *json.RawMessage `json:"parent_id,omitempty"`
	LinkedFeedback *json.RawMessage `json:"linked_feedback_id,omitempty"`
}

// CardMovedPayload indicates a card moved to a new column.
type CardMovedPayload struct {
	CardID   string `json:"card_id"`
	ColumnID string `json:"column_id"`
}

func (p CardMovedPayload) EventType() string { return "card.moved" }
func (p CardMovedPayload) eventPayloadSeal() {}

// CardDeletedPayload indicates a card was removed.
type CardDeletedPayload struct {
	CardID string `json:"card_id"`
}

func (p CardDeletedPayload) EventType() string { return "card.deleted" }
func (p CardDeletedPayload) eventPayloadSeal() {}

// ReactionAddedPayload carries the authoritative absolute counts after a
// reaction was added. Counts are snapshots, never increments, so redelivery
// is harmless.
type ReactionAddedPayload struct {
	CardID              string `json:"card_id"`
	DirectReactions     int    `json:"direct_reactions"`
	AggregatedReactions int    `json:"aggregated_reactions"`
}

func (p ReactionAddedPayload) EventType() string { return "reaction.added" }
func (p ReactionAddedPayload) eventPayloadSeal() {}

// ReactionRemovedPayload carries the authoritative absolute counts after a
// reaction was removed.
type ReactionRemovedPayload struct {
	CardID              string `json:"card_id"`
	DirectReactions     int    `json:"direct_reactions"`
	AggregatedReactions int    `json:"aggregated_reactions"`
}

func (p ReactionRemovedPayload) EventType() string { return "reaction.removed" }
func (p ReactionRemovedPayload) eventPayloadSeal() {}

// BoardRenamedPayload indicates the board title changed.
type BoardRenamedPayload struct {
	Name string `json:"name"`
}

func (p BoardRenamedPayload) EventType() string { return "board.renamed" }
func (p BoardRenamedPayload) eventPayloadSeal() {}

// BoardClosedPayload indicates the board lifecycle flag flipped to closed.
type BoardClosedPayload struct{}

func (p BoardClosedPayload) EventType() string { return "board.closed" }
func (p BoardClosedPayload) eventPayloadSeal() {}

// ParticipantJoinedPayload indicates a user joined the board's event room.
type ParticipantJoinedPayload struct {
	UserID string `json:"user_id"`
	Alias  string `json:"alias,omitempty"`
}

func (p ParticipantJoinedPayload) EventType() string { return "participant.joined" }
func (p ParticipantJoinedPayload) eventPayloadSeal() {}

// ParticipantLeftPayload indicates a user left the board's event room.
type ParticipantLeftPayload struct {
	UserID string `json:"user_id"`
}

func (p ParticipantLeftPayload) EventType() string { return "participant.left" }
func (p ParticipantLeftPayload) eventPayloadSeal() {}

// MarshalEventPayload serializes an EventPayload with a "type" discriminator.
func MarshalEventPayload(p EventPayload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("cannot marshal nil event payload")
	}
	switch v := p.(type) {
	case CardUpdatedPayload:
		return marshalCardUpdated(v)
	default:
		return marshalTagged(p.EventType(), p)
	}
}

// UnmarshalEventPayload deserializes an EventPayload from JSON with a "type"
// discriminator.
func UnmarshalEventPayload(data []byte) (EventPayload, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal event payload type: %w", err)
	}

	switch envelope.Type {
	case "card.created":
		var p CardCreatedPayload
		return p, json.Unmarshal(data, &p)
	case "card.updated":
		return unmarshalCardUpdated(data)
	case "card.moved":
		var p CardMovedPayload
		return p, json.Unmarshal(data, &p)
	case "card.deleted":
		var p CardDeletedPayload
		return p, json.Unmarshal(data, &p)
	case "reaction.added":
		var p ReactionAddedPayload
		return p, json.Unmarshal(data, &p)
	case "reaction.removed":
		var p ReactionRemovedPayload
		return p, json.Unmarshal(data, &p)
	case "board.renamed":
		var p BoardRenamedPayload
		return p, json.Unmarshal(data, &p)
	case "board.closed":
		return BoardClosedPayload{}, nil
	case "participant.joined":
		var p ParticipantJoinedPayload
		return p, json.Unmarshal(data, &p)
	case "participant.left":
		var p ParticipantLeftPayload
		return p, json.Unmarshal(data, &p)
	default:
		return nil, fmt.Errorf("unknown event payload type: %q", envelope.Type)
	}
}

// marshalTagged marshals a struct with an injected "type" field.
func marshalTagged(typeName string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	typeJSON, _ := json.Marshal(typeName)
	m["type"] = typeJSON
	return json.Marshal(m)
}

// marshalCardUpdated handles the OptionalField link fields.
func marshalCardUpdated(p CardUpdatedPayload) ([]byte, error) {
	j := cardUpdatedJSON{
		Type:    "card.updated",
		CardID:  p.CardID,
		Content: p.Content,
	}
	j.Parent = optionalRaw(p.Parent)
	j.LinkedFeedback = optionalRaw(p.LinkedFeedback)
	return json.Marshal(j)
}

// unmarshalCardUpdated uses the raw JSON map to distinguish "parent_id":null
// from an absent parent_id, since *json.RawMessage with omitempty collapses
// both to nil on unmarshal.
func unmarshalCardUpdated(data []byte) (CardUpdatedPayload, error) {
	var j cardUpdatedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return CardUpdatedPayload{}, err
	}
	p := CardUpdatedPayload{
		CardID:  j.CardID,
		Content: j.Content,
	}

	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return CardUpdatedPayload{}, err
	}
	var err error
	if p.Parent, err = optionalFromRaw(rawMap, "parent_id"); err != nil {
		return CardUpdatedPayload{}, fmt.Errorf("unmarshal card.updated parent_id: %w", err)
	}
	if p.LinkedFeedback, err = optionalFromRaw(rawMap, "linked_feedback_id"); err != nil {
		return CardUpdatedPayload{}, fmt.Errorf("unmarshal card.updated linked_feedback_id: %w", err)
	}
	return p, nil
}

func optionalRaw(o OptionalField[string]) *json.RawMessage {
	if !o.Set {
		return nil
	}
	if !o.Valid {
		raw := json.RawMessage("null")
		return &raw
	}
	valueJSON, _ := json.Marshal(o.Value)
	raw := json.RawMessage(valueJSON)
	return &raw
}

func optionalFromRaw(rawMap map[string]json.RawMessage, key string) (OptionalField[string], error) {
	raw, present := rawMap[key]
	if !present {
		return Absent[string](), nil
	}
	if string(raw) == "null" {
		return Null[string](), nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return OptionalField[string]{}, err
	}
	return Of(v), nil
}
