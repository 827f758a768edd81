// ABOUTME: Card is the primary content unit on a retrospective board.
// ABOUTME: Feedback cards may stack one level deep; action cards link to feedback.
package board

import (
	"time"
)

// CardType distinguishes retrospective feedback cards from follow-up actions.
type CardType string

const (
	// CardTypeFeedback is a retrospective observation raised by a participant.
	CardTypeFeedback CardType = "feedback"
	// CardTypeAction is a follow-up task derived from feedback.
	CardTypeAction CardType = "action"
)

// Card represents a single card on a board. Server-assigned IDs are opaque
// strings; cards created optimistically carry a "pending-" placeholder ID
// until the server acknowledges them.
type Card struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"board_id"`
	ColumnID  string    `json:"column_id"`
	Type      CardType  `json:"type"`
	Content   string    `json:"content"`
	OwnerID   string    `json:"owner_id"`
	Alias     string    `json:"alias,omitempty"`
	Anonymous bool      `json:"anonymous"`
	CreatedAt time.Time `json:"created_at"`

	// DirectReactions counts reactions placed on this card alone.
	// AggregatedReactions is direct plus the direct counts of all children;
	// for a card with no children the two are equal.
	DirectReactions     int `json:"direct_reactions"`
	AggregatedReactions int `json:"aggregated_reactions"`

	// ParentID, when set, references a feedback card that itself has no
	// parent. Hierarchy depth never exceeds one level.
	ParentID *string `json:"parent_id,omitempty"`

	// LinkedFeedbackID is the action-to-feedback association. Only action
	// cards carry it; it is not a parent/child relationship.
	LinkedFeedbackID *string `json:"linked_feedback_id,omitempty"`

	// Children is a denormalized list of child summaries kept on the parent
	// for render convenience. Rebuilt by the cache whenever a child changes.
	Children []ChildSummary `json:"children,omitempty"`
}

// ChildSummary is the denormalized view of a child card stored on its parent.
type ChildSummary struct {
	ID              string `json:"id"`
	Content         string `json:"content"`
	OwnerID         string `json:"owner_id"`
	Alias           string `json:"alias,omitempty"`
	Anonymous       bool   `json:"anonymous"`
	DirectReactions int    `json:"direct_reactions"`
}

// Clone returns a deep copy of the card. Pointer and slice fields are
// duplicated so the copy can be mutated or held as a snapshot safely.
func (c Card) Clone() Card {
	out := c
	if c.ParentID != nil {
		p := *c.ParentID
		out.ParentID = &p
	}
	if c.LinkedFeedbackID != nil {
		l := *c.LinkedFeedbackID
		out.LinkedFeedbackID = &l
	}
	if c.Children != nil {
		out.Children = make([]ChildSummary, len(c.Children))
		copy(out.Children, c.Children)
	}
	return out
}

// HasParent reports whether the card is currently stacked under a parent.
func (c Card) HasParent() bool {
	return c.ParentID != nil
}

// Summary returns the denormalized child view of this card.
func (c Card) Summary() ChildSummary {
	return ChildSummary{
		ID:              c.ID,
		Content:         c.Content,
		OwnerID:         c.OwnerID,
		Alias:           c.Alias,
		Anonymous:       c.Anonymous,
		DirectReactions: c.DirectReactions,
	}
}
