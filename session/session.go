// ABOUTME: Session ties the entity cache, REST client, and transport together for one board.
// ABOUTME: Join loads authoritative state and starts the reconciler; Leave tears everything down.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/2389-research/retroboard/api"
	"github.com/2389-research/retroboard/board"
	"github.com/2389-research/retroboard/realtime"
)

// Identity is the current user's identity, supplied by the external session
// layer. The session reads it for ownership and permission preconditions and
// never modifies it.
type Identity struct {
	UserID string
	Alias  string
}

// EventRecorder receives every inbound remote event, typically for a debug
// journal. Recording failures are logged, never propagated.
type EventRecorder interface {
	Append(ev board.RemoteEvent) error
}

// Session is the client-side coordinator for one active board: it owns the
// entity cache, applies optimistic mutations with rollback, and reconciles
// the live event stream into the cache.
type Session struct {
	cache    *board.Cache
	api      *api.Client
	rt       *realtime.Client
	identity Identity
	recorder EventRecorder

	mu            sync.Mutex
	boardID       string
	cardQuota     board.Quota
	reactionQuota board.Quota
	presence      map[string]string

	events   chan board.RemoteEvent
	loopDone chan struct{}
}

// SessionOption configures optional Session behavior.
type SessionOption func(*Session)

// WithRecorder attaches an event recorder (e.g. a journal) to the session.
func WithRecorder(r EventRecorder) SessionOption {
	return func(s *Session) { s.recorder = r }
}

// New creates a Session over the given cache, REST client, and transport.
func New(cache *board.Cache, apiClient *api.Client, rtClient *realtime.Client, identity Identity, opts ...SessionOption) *Session {
	s := &Session{
		cache:    cache,
		api:      apiClient,
		rt:       rtClient,
		identity: identity,
		presence: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache exposes the session's entity cache for read-driven rendering.
func (s *Session) Cache() *board.Cache {
	return s.cache
}

// Join loads the board and its cards into the cache, refreshes quota
// snapshots, connects the transport to the board's event room, and starts
// the reconciler.
func (s *Session) Join(ctx context.Context, boardID string) error {
	b, err := s.api.FetchBoard(ctx, boardID)
	if err != nil {
		return fmt.Errorf("fetch board: %w", err)
	}
	s.cache.SetBoard(b)

	cards, err := s.api.ListCards(ctx, boardID)
	if err != nil {
		return fmt.Errorf("list cards: %w", err)
	}
	for _, card := range cards {
		s.cache.PutCard(card)
	}

	if err := s.RefreshQuotas(ctx); err != nil {
		return err
	}

	if err := s.rt.Connect(boardID); err != nil {
		return fmt.Errorf("connect transport: %w", err)
	}

	events := s.rt.Subscribe(realtime.SubscribeAll)
	done := make(chan struct{})
	s.mu.Lock()
	s.boardID = boardID
	s.events = events
	s.loopDone = done
	s.mu.Unlock()

	go s.reconcileLoop(events, done)
	return nil
}

// Leave disconnects the transport, stops the reconciler, and clears the
// cache wholesale. The session can Join again afterwards.
func (s *Session) Leave() {
	s.mu.Lock()
	events := s.events
	done := s.loopDone
	s.events = nil
	s.loopDone = nil
	s.boardID = ""
	s.mu.Unlock()

	s.rt.Disconnect()
	if events != nil {
		s.rt.Unsubscribe(realtime.SubscribeAll, events)
		<-done
	}
	s.cache.Reset()

	s.mu.Lock()
	s.presence = make(map[string]string)
	s.mu.Unlock()
}

// RefreshQuotas re-reads the user's card and reaction quota snapshots.
func (s *Session) RefreshQuotas(ctx context.Context) error {
	s.mu.Lock()
	boardID := s.boardID
	s.mu.Unlock()
	if boardID == "" {
		// Join calls this before the board ID is recorded.
		boardID = s.pendingBoardID()
	}
	quotas, err := s.api.FetchQuotas(ctx, boardID)
	if err != nil {
		return fmt.Errorf("fetch quotas: %w", err)
	}
	s.mu.Lock()
	s.cardQuota = quotas.Cards
	s.reactionQuota = quotas.Reactions
	s.mu.Unlock()
	return nil
}

func (s *Session) pendingBoardID() string {
	if b, ok := s.cache.Board(); ok {
		return b.ID
	}
	return ""
}

// Events returns a fresh subscription to the inbound event stream for
// observers (e.g. a CLI tail). Delivery is independent of the reconciler;
// stop reading and call Unsubscribe on the transport to release it.
func (s *Session) Events() chan board.RemoteEvent {
	return s.rt.Subscribe(realtime.SubscribeAll)
}

// CardQuota returns the cached card quota snapshot.
func (s *Session) CardQuota() board.Quota {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cardQuota
}

// ReactionQuota returns the cached reaction quota snapshot.
func (s *Session) ReactionQuota() board.Quota {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reactionQuota
}

// Presence returns a copy of the user-ID-to-alias map of participants
// currently in the board's event room.
func (s *Session) Presence() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.presence))
	for k, v := range s.presence {
		out[k] = v
	}
	return out
}

// openBoard returns the cached board, failing when no board is loaded or the
// board is closed. Every mutation checks this before touching the cache.
func (s *Session) openBoard() (board.Board, error) {
	b, ok := s.cache.Board()
	if !ok {
		return board.Board{}, board.ErrNoBoard
	}
	if b.Closed {
		return board.Board{}, board.ErrBoardClosed
	}
	return b, nil
}

func (s *Session) record(ev board.RemoteEvent) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Append(ev); err != nil {
		log.Printf("session journal append event=%s error=%v", ev.Payload.EventType(), err)
	}
}
