// ABOUTME: Tests for the event payload tagged union and the 3-state link fields.
// ABOUTME: The null-vs-absent distinction on card.updated must survive the wire.
package board

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRemoteEventRoundTrip(t *testing.T) {
	ev := RemoteEvent{
		EventID:   NewULID(),
		BoardID:   "board-1",
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Payload:   CardMovedPayload{CardID: "c1", ColumnID: "col-2"},
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got RemoteEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.EventID != ev.EventID {
		t.Errorf("EventID = %s, want %s", got.EventID, ev.EventID)
	}
	if got.BoardID != "board-1" {
		t.Errorf("BoardID = %q", got.BoardID)
	}
	moved, ok := got.Payload.(CardMovedPayload)
	if !ok {
		t.Fatalf("Payload = %T, want CardMovedPayload", got.Payload)
	}
	if moved.CardID != "c1" || moved.ColumnID != "col-2" {
		t.Errorf("payload = %+v", moved)
	}
}

func TestMarshalEventPayloadInjectsType(t *testing.T) {
	data, err := MarshalEventPayload(ReactionAddedPayload{
		CardID:              "c1",
		DirectReactions:     2,
		AggregatedReactions: 4,
	})
	if err != nil {
		t.Fatalf("MarshalEventPayload: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["type"] != "reaction.added" {
		t.Errorf("type = %v, want reaction.added", m["type"])
	}
	if m["aggregated_reactions"] != float64(4) {
		t.Errorf("aggregated_reactions = %v", m["aggregated_reactions"])
	}
}

func TestUnmarshalEventPayloadUnknownType(t *testing.T) {
	_, err := UnmarshalEventPayload([]byte(`{"type":"card.exploded"}`))
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
	if !strings.Contains(err.Error(), "card.exploded") {
		t.Errorf("error does not name the type: %v", err)
	}
}

func TestCardUpdatedNullVsAbsent(t *testing.T) {
	tests := []struct {
		name string
		json string
		want OptionalField[string]
	}{
		{
			name: "absent leaves link untouched",
			json: `{"type":"card.updated","card_id":"c1"}`,
			want: Absent[string](),
		},
		{
			name: "null clears the link",
			json: `{"type":"card.updated","card_id":"c1","parent_id":null}`,
			want: Null[string](),
		},
		{
			name: "value sets the link",
			json: `{"type":"card.updated","card_id":"c1","parent_id":"p9"}`,
			want: Of("p9"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := UnmarshalEventPayload([]byte(tt.json))
			if err != nil {
				t.Fatalf("UnmarshalEventPayload: %v", err)
			}
			updated, ok := p.(CardUpdatedPayload)
			if !ok {
				t.Fatalf("payload = %T", p)
			}
			if updated.Parent != tt.want {
				t.Errorf("Parent = %+v, want %+v", updated.Parent, tt.want)
			}
		})
	}
}

func TestCardUpdatedRoundTripPreservesOptionalStates(t *testing.T) {
	content := "new text"
	orig := CardUpdatedPayload{
		CardID:         "c1",
		Content:        &content,
		Parent:         Null[string](),
		LinkedFeedback: Absent[string](),
	}

	data, err := MarshalEventPayload(orig)
	if err != nil {
		t.Fatalf("MarshalEventPayload: %v", err)
	}
	if !strings.Contains(string(data), `"parent_id":null`) {
		t.Errorf("wire form missing explicit null parent_id: %s", data)
	}
	if strings.Contains(string(data), "linked_feedback_id") {
		t.Errorf("wire form leaked absent linked_feedback_id: %s", data)
	}

	p, err := UnmarshalEventPayload(data)
	if err != nil {
		t.Fatalf("UnmarshalEventPayload: %v", err)
	}
	got := p.(CardUpdatedPayload)
	if got.Parent != Null[string]() {
		t.Errorf("Parent = %+v, want explicit null", got.Parent)
	}
	if got.LinkedFeedback != Absent[string]() {
		t.Errorf("LinkedFeedback = %+v, want absent", got.LinkedFeedback)
	}
	if got.Content == nil || *got.Content != "new text" {
		t.Errorf("Content = %v", got.Content)
	}
}

func TestEventTypeStrings(t *testing.T) {
	tests := []struct {
		payload EventPayload
		want    string
	}{
		{CardCreatedPayload{}, "card.created"},
		{CardUpdatedPayload{}, "card.updated"},
		{CardMovedPayload{}, "card.moved"},
		{CardDeletedPayload{}, "card.deleted"},
		{ReactionAddedPayload{}, "reaction.added"},
		{ReactionRemovedPayload{}, "reaction.removed"},
		{BoardRenamedPayload{}, "board.renamed"},
		{BoardClosedPayload{}, "board.closed"},
		{ParticipantJoinedPayload{}, "participant.joined"},
		{ParticipantLeftPayload{}, "participant.left"},
	}
	for _, tt := range tests {
		if got := tt.payload.EventType(); got != tt.want {
			t.Errorf("EventType() = %q, want %q", got, tt.want)
		}
	}
}

func TestBoardClosedRoundTrip(t *testing.T) {
	data, err := MarshalEventPayload(BoardClosedPayload{})
	if err != nil {
		t.Fatalf("MarshalEventPayload: %v", err)
	}
	p, err := UnmarshalEventPayload(data)
	if err != nil {
		t.Fatalf("UnmarshalEventPayload: %v", err)
	}
	if _, ok := p.(BoardClosedPayload); !ok {
		t.Errorf("payload = %T, want BoardClosedPayload", p)
	}
}
