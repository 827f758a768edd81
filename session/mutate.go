// ABOUTME: Optimistic mutations: validate, write the cache synchronously, call the server, roll back on failure.
// ABOUTME: Snapshots are per-call so concurrent mutations roll back independently.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/2389-research/retroboard/api"
	"github.com/2389-research/retroboard/board"
)

// CreateCard creates a card optimistically under a "pending-" placeholder ID
// and swaps in the server-assigned card on acknowledgment. Quota and content
// preconditions are checked locally; when they fail no remote call is
// issued.
func (s *Session) CreateCard(ctx context.Context, columnID string, cardType board.CardType, content string, anonymous bool) (board.Card, error) {
	b, err := s.openBoard()
	if err != nil {
		return board.Card{}, err
	}
	if err := board.ValidateContent(content); err != nil {
		return board.Card{}, err
	}
	s.mu.Lock()
	if s.cardQuota.Exhausted() {
		s.mu.Unlock()
		return board.Card{}, board.ErrCardQuotaExceeded
	}
	s.cardQuota.Used++
	s.mu.Unlock()

	placeholder := board.Card{
		ID:        "pending-" + uuid.New().String(),
		BoardID:   b.ID,
		ColumnID:  columnID,
		Type:      cardType,
		Content:   content,
		OwnerID:   s.identity.UserID,
		Anonymous: anonymous,
		CreatedAt: time.Now().UTC(),
	}
	if !anonymous {
		placeholder.Alias = s.identity.Alias
	}

	snap := s.cache.Snapshot(placeholder.ID)
	s.cache.PutCard(placeholder)

	card, err := s.api.CreateCard(ctx, b.ID, api.CreateCardRequest{
		ColumnID:  columnID,
		Type:      cardType,
		Content:   content,
		Anonymous: anonymous,
	})
	if err != nil {
		s.cache.Restore(snap)
		s.mu.Lock()
		s.cardQuota.Used--
		s.mu.Unlock()
		return board.Card{}, err
	}

	// Authoritative fields replace the optimistic placeholder.
	s.cache.DeleteCard(placeholder.ID)
	s.cache.PutCard(card)
	return card, nil
}

// UpdateContent edits a card's text. The parent's denormalized child summary
// is refreshed alongside the optimistic write.
func (s *Session) UpdateContent(ctx context.Context, cardID, content string) (board.Card, error) {
	if _, err := s.openBoard(); err != nil {
		return board.Card{}, err
	}
	if err := board.ValidateContent(content); err != nil {
		return board.Card{}, err
	}
	card, ok := s.cache.Card(cardID)
	if !ok {
		return board.Card{}, &board.CardNotFoundError{CardID: cardID}
	}

	affected := []string{cardID}
	if card.ParentID != nil {
		affected = append(affected, *card.ParentID)
	}
	snap := s.cache.Snapshot(affected...)

	card.Content = content
	s.cache.PutCard(card)
	if card.ParentID != nil {
		s.cache.RecomputeParent(*card.ParentID)
	}

	updated, err := s.api.UpdateCard(ctx, cardID, api.UpdateCardRequest{Content: &content})
	if err != nil {
		s.cache.Restore(snap)
		return board.Card{}, err
	}
	s.cache.PutCard(updated)
	if updated.ParentID != nil {
		s.cache.RecomputeParent(*updated.ParentID)
	}
	return updated, nil
}

// DeleteCard removes a card optimistically and restores it when the server
// rejects the delete.
func (s *Session) DeleteCard(ctx context.Context, cardID string) error {
	if _, err := s.openBoard(); err != nil {
		return err
	}
	card, ok := s.cache.Card(cardID)
	if !ok {
		return &board.CardNotFoundError{CardID: cardID}
	}

	affected := []string{cardID}
	if card.ParentID != nil {
		affected = append(affected, *card.ParentID)
	}
	snap := s.cache.Snapshot(affected...)

	s.cache.DeleteCard(cardID)
	if card.ParentID != nil {
		s.cache.RecomputeParent(*card.ParentID)
	}

	if err := s.api.DeleteCard(ctx, cardID); err != nil {
		s.cache.Restore(snap)
		return err
	}
	return nil
}

// MoveCard moves a card to a different column.
func (s *Session) MoveCard(ctx context.Context, cardID, columnID string) (board.Card, error) {
	if _, err := s.openBoard(); err != nil {
		return board.Card{}, err
	}
	card, ok := s.cache.Card(cardID)
	if !ok {
		return board.Card{}, &board.CardNotFoundError{CardID: cardID}
	}

	snap := s.cache.Snapshot(cardID)
	card.ColumnID = columnID
	s.cache.PutCard(card)

	moved, err := s.api.MoveCard(ctx, cardID, columnID)
	if err != nil {
		s.cache.Restore(snap)
		return board.Card{}, err
	}
	s.cache.PutCard(moved)
	return moved, nil
}

// LinkParentChild stacks childID under parentID after re-validating the drop
// against current cache state. Returns the updated parent card.
func (s *Session) LinkParentChild(ctx context.Context, parentID, childID string) (board.Card, error) {
	if _, err := s.openBoard(); err != nil {
		return board.Card{}, err
	}
	child, ok := s.cache.Card(childID)
	if !ok {
		return board.Card{}, &board.CardNotFoundError{CardID: childID}
	}
	decision := board.ValidateDrop(s.cache, childID, child.Type, parentID, board.TargetCard)
	if err := decision.Err(); err != nil {
		return board.Card{}, err
	}

	snap := s.cache.Snapshot(childID, parentID)
	child.ParentID = &parentID
	s.cache.PutCard(child)
	s.cache.RecomputeParent(parentID)

	parent, err := s.api.LinkCards(ctx, parentID, childID)
	if err != nil {
		s.cache.Restore(snap)
		return board.Card{}, err
	}
	s.cache.PutCard(parent)
	return parent, nil
}

// Unlink detaches a child card from its parent. Returns the updated
// ex-parent card.
func (s *Session) Unlink(ctx context.Context, childID string) (board.Card, error) {
	if _, err := s.openBoard(); err != nil {
		return board.Card{}, err
	}
	child, ok := s.cache.Card(childID)
	if !ok {
		return board.Card{}, &board.CardNotFoundError{CardID: childID}
	}
	if child.ParentID == nil {
		return board.Card{}, board.ErrNotLinked
	}
	parentID := *child.ParentID

	snap := s.cache.Snapshot(childID, parentID)
	child.ParentID = nil
	s.cache.PutCard(child)
	s.cache.RecomputeParent(parentID)

	parent, err := s.api.UnlinkCard(ctx, childID)
	if err != nil {
		s.cache.Restore(snap)
		return board.Card{}, err
	}
	s.cache.PutCard(parent)
	return parent, nil
}

// LinkAction associates an action card with a feedback card after
// re-validating the drop.
func (s *Session) LinkAction(ctx context.Context, actionID, feedbackID string) (board.Card, error) {
	if _, err := s.openBoard(); err != nil {
		return board.Card{}, err
	}
	action, ok := s.cache.Card(actionID)
	if !ok {
		return board.Card{}, &board.CardNotFoundError{CardID: actionID}
	}
	decision := board.ValidateDrop(s.cache, actionID, action.Type, feedbackID, board.TargetCard)
	if err := decision.Err(); err != nil {
		return board.Card{}, err
	}
	if decision.Action != board.LinkAction {
		return board.Card{}, &board.DropRejectedError{Reason: board.ReasonIncompatibleTypes}
	}

	snap := s.cache.Snapshot(actionID)
	action.LinkedFeedbackID = &feedbackID
	s.cache.PutCard(action)

	linked, err := s.api.LinkAction(ctx, actionID, feedbackID)
	if err != nil {
		s.cache.Restore(snap)
		return board.Card{}, err
	}
	s.cache.PutCard(linked)
	return linked, nil
}

// AddReaction bumps the card's own counts optimistically. The parent's
// aggregated count is deliberately left alone; the server recomputes
// aggregation and the next reconciled update corrects it.
func (s *Session) AddReaction(ctx context.Context, cardID string) error {
	if _, err := s.openBoard(); err != nil {
		return err
	}
	card, ok := s.cache.Card(cardID)
	if !ok {
		return &board.CardNotFoundError{CardID: cardID}
	}
	s.mu.Lock()
	if s.reactionQuota.Exhausted() {
		s.mu.Unlock()
		return board.ErrReactionQuotaExceeded
	}
	s.reactionQuota.Used++
	s.mu.Unlock()

	snap := s.cache.Snapshot(cardID)
	card.DirectReactions++
	card.AggregatedReactions++
	s.cache.PutCard(card)

	counts, err := s.api.AddReaction(ctx, cardID)
	if err != nil {
		s.cache.Restore(snap)
		s.mu.Lock()
		s.reactionQuota.Used--
		s.mu.Unlock()
		return err
	}
	s.applyCounts(counts)
	return nil
}

// RemoveReaction removes the user's reaction from a card.
func (s *Session) RemoveReaction(ctx context.Context, cardID string) error {
	if _, err := s.openBoard(); err != nil {
		return err
	}
	card, ok := s.cache.Card(cardID)
	if !ok {
		return &board.CardNotFoundError{CardID: cardID}
	}

	snap := s.cache.Snapshot(cardID)
	if card.DirectReactions > 0 {
		card.DirectReactions--
		card.AggregatedReactions--
		s.cache.PutCard(card)
	}

	counts, err := s.api.RemoveReaction(ctx, cardID)
	if err != nil {
		s.cache.Restore(snap)
		return err
	}
	s.mu.Lock()
	if s.reactionQuota.Used > 0 {
		s.reactionQuota.Used--
	}
	s.mu.Unlock()
	s.applyCounts(counts)
	return nil
}

// applyCounts overwrites a card's reaction counts with the authoritative
// absolute snapshot.
func (s *Session) applyCounts(counts api.ReactionCounts) {
	card, ok := s.cache.Card(counts.CardID)
	if !ok {
		return
	}
	card.DirectReactions = counts.DirectReactions
	card.AggregatedReactions = counts.AggregatedReactions
	s.cache.PutCard(card)
	if card.ParentID != nil {
		s.cache.RecomputeParent(*card.ParentID)
	}
}

// RenameBoard updates the board title. Only board admins may rename.
func (s *Session) RenameBoard(ctx context.Context, name string) (board.Board, error) {
	b, err := s.openBoard()
	if err != nil {
		return board.Board{}, err
	}
	if !b.IsAdmin(s.identity.UserID) {
		return board.Board{}, board.ErrNotAdmin
	}

	snap := s.cache.SnapshotWithBoard()
	b.Name = name
	s.cache.SetBoard(b)

	updated, err := s.api.UpdateBoard(ctx, b.ID, api.UpdateBoardRequest{Name: &name})
	if err != nil {
		s.cache.Restore(snap)
		return board.Board{}, err
	}
	s.cache.SetBoard(updated)
	return updated, nil
}

// ValidateDrop classifies a proposed drop of sourceID onto a target without
// mutating anything. Drag handlers re-run this on every hover.
func (s *Session) ValidateDrop(sourceID, targetID string, targetKind board.TargetKind) (board.DropDecision, error) {
	source, ok := s.cache.Card(sourceID)
	if !ok {
		return board.DropDecision{}, &board.CardNotFoundError{CardID: sourceID}
	}
	return board.ValidateDrop(s.cache, sourceID, source.Type, targetID, targetKind), nil
}

// Drop validates and executes a drop in one step, dispatching to the
// mutation matching the validator's classification.
func (s *Session) Drop(ctx context.Context, sourceID, targetID string, targetKind board.TargetKind) error {
	decision, err := s.ValidateDrop(sourceID, targetID, targetKind)
	if err != nil {
		return err
	}
	if err := decision.Err(); err != nil {
		return err
	}
	switch decision.Action {
	case board.MoveToColumn:
		_, err := s.MoveCard(ctx, sourceID, targetID)
		return err
	case board.LinkParentChild:
		_, err := s.LinkParentChild(ctx, decision.ParentID, decision.ChildID)
		return err
	case board.LinkAction:
		_, err := s.LinkAction(ctx, decision.ActionID, decision.FeedbackID)
		return err
	default:
		return &board.DropRejectedError{Reason: board.ReasonIncompatibleTypes}
	}
}
