// ABOUTME: Pure drop validation: decides whether a drag-and-drop is legal and classifies it.
// ABOUTME: Re-run on every hover event, so it must stay allocation-light and O(1).
package board

// TargetKind identifies what a card is being dropped onto.
type TargetKind string

const (
	// TargetColumn is a drop onto a column header or lane.
	TargetColumn TargetKind = "column"
	// TargetCard is a drop onto another card.
	TargetCard TargetKind = "card"
)

// DropAction classifies a valid drop.
type DropAction string

const (
	// MoveToColumn moves the source card into the target column.
	MoveToColumn DropAction = "move_to_column"
	// LinkParentChild stacks the source card under the target feedback card.
	LinkParentChild DropAction = "link_parent_child"
	// LinkAction associates the source action card with the target feedback card.
	LinkAction DropAction = "link_action"
)

// DropReason explains why a drop was rejected.
type DropReason string

const (
	// ReasonTargetNotFound means the target card is not in the cache.
	ReasonTargetNotFound DropReason = "target_not_found"
	// ReasonSelfDrop means a card was dropped onto itself.
	ReasonSelfDrop DropReason = "self_drop"
	// ReasonCircular means the link would make a card its own ancestor.
	ReasonCircular DropReason = "circular_relationship"
	// ReasonAlreadyHasParent means the target is itself a child, so stacking
	// under it would exceed the one-level hierarchy.
	ReasonAlreadyHasParent DropReason = "already_has_parent"
	// ReasonSourceHasChildren means the source is already a parent and
	// cannot become a child.
	ReasonSourceHasChildren DropReason = "source_has_children"
	// ReasonIncompatibleTypes means the source/target card types cannot be
	// linked (feedback on action, or action on action).
	ReasonIncompatibleTypes DropReason = "incompatible_types"
)

// DropDecision is the result of validating a proposed drop.
type DropDecision struct {
	Valid  bool
	Reason DropReason
	Detail string
	Action DropAction

	// For LinkParentChild: the explicit direction of the new relationship.
	ParentID string
	ChildID  string

	// For LinkAction.
	ActionID   string
	FeedbackID string
}

func rejected(reason DropReason, detail string) DropDecision {
	return DropDecision{Reason: reason, Detail: detail}
}

// Err converts a rejected decision into a *DropRejectedError, or nil when
// the decision is valid.
func (d DropDecision) Err() error {
	if d.Valid {
		return nil
	}
	return &DropRejectedError{Reason: d.Reason, Detail: d.Detail}
}

// ValidateDrop decides whether dropping the source card onto the target is
// legal, evaluating rules in order with first failure winning. It is a pure
// function of the cache contents and its arguments: it never mutates state,
// and calling it twice against an unchanged cache yields identical results.
func ValidateDrop(cache *Cache, sourceID string, sourceType CardType, targetID string, targetKind TargetKind) DropDecision {
	// Column targets are always valid regardless of source type.
	if targetKind == TargetColumn {
		return DropDecision{Valid: true, Action: MoveToColumn}
	}

	target, ok := cache.Card(targetID)
	if !ok {
		return rejected(ReasonTargetNotFound, "")
	}
	if sourceID == targetID {
		return rejected(ReasonSelfDrop, "")
	}

	switch {
	case sourceType == CardTypeFeedback && target.Type == CardTypeFeedback:
		return validateStack(cache, sourceID, target)

	case sourceType == CardTypeAction && target.Type == CardTypeFeedback:
		return DropDecision{
			Valid:      true,
			Action:     LinkAction,
			ActionID:   sourceID,
			FeedbackID: targetID,
		}

	case sourceType == CardTypeFeedback && target.Type == CardTypeAction:
		return rejected(ReasonIncompatibleTypes, "feedback on action")

	default: // action on action
		return rejected(ReasonIncompatibleTypes, "action on action")
	}
}

// validateStack checks a feedback-on-feedback drop, which would make the
// target the parent of the source.
func validateStack(cache *Cache, sourceID string, target Card) DropDecision {
	if target.ParentID != nil {
		// The target being a child of the source is the one-step cycle the
		// depth-1 cap permits; report it as circular rather than as a
		// generic depth violation.
		if *target.ParentID == sourceID {
			return rejected(ReasonCircular, "")
		}
		return rejected(ReasonAlreadyHasParent, "")
	}
	if len(cache.Children(sourceID)) > 0 {
		return rejected(ReasonSourceHasChildren, "")
	}
	return DropDecision{
		Valid:    true,
		Action:   LinkParentChild,
		ParentID: target.ID,
		ChildID:  sourceID,
	}
}
