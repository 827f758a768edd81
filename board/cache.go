// ABOUTME: Cache is the in-memory entity store and single source of truth for a board session.
// ABOUTME: Writers perform whole-entity replacement; snapshots restore exact pre-mutation state.
package board

import (
	"sort"
	"sync"
)

// Cache holds the board and all of its cards for the lifetime of an active
// session. The mutation coordinator and the event reconciler are its only
// two writers; both replace whole entities so readers never observe a
// half-applied card.
type Cache struct {
	mu    sync.RWMutex
	board *Board
	cards map[string]Card
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{cards: make(map[string]Card)}
}

// SetBoard replaces the cached board.
func (c *Cache) SetBoard(b Board) {
	c.mu.Lock()
	defer c.mu.Unlock()
	clone := b.Clone()
	c.board = &clone
}

// Board returns a copy of the cached board, if one is loaded.
func (c *Cache) Board() (Board, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.board == nil {
		return Board{}, false
	}
	return c.board.Clone(), true
}

// Card returns a copy of the card with the given ID, if present.
func (c *Cache) Card(id string) (Card, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	card, ok := c.cards[id]
	if !ok {
		return Card{}, false
	}
	return card.Clone(), true
}

// Cards returns copies of all cached cards, ordered by ID for determinism.
func (c *Cache) Cards() []Card {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Card, 0, len(c.cards))
	for _, card := range c.cards {
		out = append(out, card.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of cached cards.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cards)
}

// PutCard stores a card by whole-entity replacement.
func (c *Cache) PutCard(card Card) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards[card.ID] = card.Clone()
}

// DeleteCard removes a card. Deleting an absent card is a no-op.
func (c *Cache) DeleteCard(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cards, id)
}

// Reset clears the cache wholesale. Called when the board session ends.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.board = nil
	c.cards = make(map[string]Card)
}

// Children returns copies of all cards whose parent is the given card,
// ordered by ID.
func (c *Cache) Children(parentID string) []Card {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.childrenLocked(parentID)
}

func (c *Cache) childrenLocked(parentID string) []Card {
	var out []Card
	for _, card := range c.cards {
		if card.ParentID != nil && *card.ParentID == parentID {
			out = append(out, card.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RecomputeParent rebuilds the denormalized child summaries and aggregated
// reaction count on the given card from the live children in the cache:
// aggregated = direct + sum of children's direct counts. A no-op when the
// card is absent.
func (c *Cache) RecomputeParent(parentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	parent, ok := c.cards[parentID]
	if !ok {
		return
	}
	children := c.childrenLocked(parentID)
	updated := parent.Clone()
	updated.Children = nil
	updated.AggregatedReactions = updated.DirectReactions
	for _, child := range children {
		updated.Children = append(updated.Children, child.Summary())
		updated.AggregatedReactions += child.DirectReactions
	}
	c.cards[parentID] = updated
}

// Snapshot captures the exact current state of the given cards plus the
// board, including which of the IDs were absent. Snapshots are taken
// per-mutation so concurrent mutations roll back independently.
type Snapshot struct {
	board   *Board
	present map[string]Card
	absent  []string
}

// Snapshot records the state of the listed card IDs. The board is not
// captured; use SnapshotWithBoard for mutations that touch board metadata.
func (c *Cache) Snapshot(ids ...string) *Snapshot {
	return c.snapshot(false, ids)
}

// SnapshotWithBoard records the state of the listed card IDs plus the board.
func (c *Cache) SnapshotWithBoard(ids ...string) *Snapshot {
	return c.snapshot(true, ids)
}

func (c *Cache) snapshot(withBoard bool, ids []string) *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := &Snapshot{present: make(map[string]Card)}
	if withBoard && c.board != nil {
		b := c.board.Clone()
		snap.board = &b
	}
	for _, id := range ids {
		if card, ok := c.cards[id]; ok {
			snap.present[id] = card.Clone()
		} else {
			snap.absent = append(snap.absent, id)
		}
	}
	return snap
}

// Restore replaces the captured entities with their snapshot state: present
// cards are written back whole, cards that were absent are deleted, and the
// board is restored. Entities outside the snapshot are untouched, so two
// concurrent mutations never clobber each other's unrelated fields.
func (c *Cache) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.board != nil {
		b := snap.board.Clone()
		c.board = &b
	}
	for id, card := range snap.present {
		c.cards[id] = card.Clone()
	}
	for _, id := range snap.absent {
		delete(c.cards, id)
	}
}
