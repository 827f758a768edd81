// ABOUTME: Applies inbound remote events to the cache idempotently, independent of local mutations.
// ABOUTME: Every event is an absolute snapshot; an update for an unknown card is an implicit create.
package session

import (
	"github.com/2389-research/retroboard/board"
)

// reconcileLoop drains one transport subscription until it closes, then
// signals done. The channels come in as parameters so the loop always
// finishes the subscription it was started with, even when Leave detaches
// the session's fields before this goroutine first runs.
func (s *Session) reconcileLoop(events chan board.RemoteEvent, done chan struct{}) {
	defer close(done)
	for ev := range events {
		s.ApplyRemote(ev)
	}
}

// ApplyRemote folds a single inbound event into the cache. Application is
// synchronous and idempotent: replaying the same event produces the same
// cache state. No cross-event ordering is assumed; a remote event racing a
// local in-flight mutation on the same card resolves last-write-wins.
func (s *Session) ApplyRemote(ev board.RemoteEvent) {
	s.record(ev)

	switch p := ev.Payload.(type) {
	case board.CardCreatedPayload:
		s.cache.PutCard(p.Card)
		if p.Card.ParentID != nil {
			s.cache.RecomputeParent(*p.Card.ParentID)
		}

	case board.CardUpdatedPayload:
		card, ok := s.cache.Card(p.CardID)
		if !ok {
			// Implicit create: the create event may still be in flight.
			card = board.Card{ID: p.CardID, BoardID: ev.BoardID}
		}
		var oldParent string
		if card.ParentID != nil {
			oldParent = *card.ParentID
		}
		if p.Content != nil {
			card.Content = *p.Content
		}
		if p.Parent.Set {
			if p.Parent.Valid {
				v := p.Parent.Value
				card.ParentID = &v
			} else {
				card.ParentID = nil
			}
		}
		if p.LinkedFeedback.Set {
			if p.LinkedFeedback.Valid {
				v := p.LinkedFeedback.Value
				card.LinkedFeedbackID = &v
			} else {
				card.LinkedFeedbackID = nil
			}
		}
		s.cache.PutCard(card)
		if oldParent != "" {
			s.cache.RecomputeParent(oldParent)
		}
		if card.ParentID != nil && *card.ParentID != oldParent {
			s.cache.RecomputeParent(*card.ParentID)
		}

	case board.CardMovedPayload:
		card, ok := s.cache.Card(p.CardID)
		if !ok {
			card = board.Card{ID: p.CardID, BoardID: ev.BoardID}
		}
		card.ColumnID = p.ColumnID
		s.cache.PutCard(card)

	case board.CardDeletedPayload:
		card, ok := s.cache.Card(p.CardID)
		s.cache.DeleteCard(p.CardID)
		if ok && card.ParentID != nil {
			s.cache.RecomputeParent(*card.ParentID)
		}

	case board.ReactionAddedPayload:
		s.applyReaction(ev.BoardID, p.CardID, p.DirectReactions, p.AggregatedReactions)

	case board.ReactionRemovedPayload:
		s.applyReaction(ev.BoardID, p.CardID, p.DirectReactions, p.AggregatedReactions)

	case board.BoardRenamedPayload:
		if b, ok := s.cache.Board(); ok {
			b.Name = p.Name
			s.cache.SetBoard(b)
		}

	case board.BoardClosedPayload:
		if b, ok := s.cache.Board(); ok {
			b.Closed = true
			s.cache.SetBoard(b)
		}

	case board.ParticipantJoinedPayload:
		s.mu.Lock()
		s.presence[p.UserID] = p.Alias
		s.mu.Unlock()

	case board.ParticipantLeftPayload:
		s.mu.Lock()
		delete(s.presence, p.UserID)
		s.mu.Unlock()
	}
}

// applyReaction overwrites a card's counts with the event's absolute values
// and refreshes the parent's denormalized view.
func (s *Session) applyReaction(boardID, cardID string, direct, aggregated int) {
	card, ok := s.cache.Card(cardID)
	if !ok {
		card = board.Card{ID: cardID, BoardID: boardID}
	}
	card.DirectReactions = direct
	card.AggregatedReactions = aggregated
	s.cache.PutCard(card)
	if card.ParentID != nil {
		s.cache.RecomputeParent(*card.ParentID)
	}
}
