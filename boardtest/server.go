// ABOUTME: In-memory fake board server: chi REST routes plus a websocket event stream.
// ABOUTME: Backs integration tests; state handling mirrors the real server's contract, not its implementation.
package boardtest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/2389-research/retroboard/board"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is an in-memory board server for tests. It implements the REST
// contract the api client consumes and broadcasts every mutation on the
// websocket stream.
type Server struct {
	mu        sync.Mutex
	board     board.Board
	cards     map[string]board.Card
	reactions map[string]map[string]int // cardID -> userID -> count
	cardCount map[string]int            // userID -> cards created

	forcedStatus int
	forcedCode   string

	conns map[*websocket.Conn]bool

	router chi.Router
}

// NewServer creates a fake server seeded with the given board.
func NewServer(b board.Board) *Server {
	s := &Server{
		board:     b.Clone(),
		cards:     make(map[string]board.Card),
		reactions: make(map[string]map[string]int),
		cardCount: make(map[string]int),
		conns:     make(map[*websocket.Conn]bool),
	}
	r := chi.NewRouter()
	r.Get("/api/boards/{boardID}", s.handleGetBoard)
	r.Patch("/api/boards/{boardID}", s.handleUpdateBoard)
	r.Get("/api/boards/{boardID}/cards", s.handleListCards)
	r.Post("/api/boards/{boardID}/cards", s.handleCreateCard)
	r.Get("/api/boards/{boardID}/quotas", s.handleQuotas)
	r.Patch("/api/cards/{cardID}", s.handleUpdateCard)
	r.Delete("/api/cards/{cardID}", s.handleDeleteCard)
	r.Post("/api/cards/{cardID}/move", s.handleMoveCard)
	r.Post("/api/cards/{cardID}/parent", s.handleLinkParent)
	r.Delete("/api/cards/{cardID}/parent", s.handleUnlinkParent)
	r.Post("/api/cards/{cardID}/link", s.handleLinkAction)
	r.Post("/api/cards/{cardID}/reactions", s.handleAddReaction)
	r.Delete("/api/cards/{cardID}/reactions", s.handleRemoveReaction)
	r.Get("/api/stream", s.handleStream)
	s.router = r
	return s
}

// Handler returns the server's HTTP handler for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// FailNext makes the next mutating request fail with the given status and
// error code, then clears itself.
func (s *Server) FailNext(status int, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forcedStatus = status
	s.forcedCode = code
}

// SeedCard injects a card directly, bypassing quotas and events.
func (s *Server) SeedCard(card board.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[card.ID] = card.Clone()
	s.refreshDerivedLocked()
}

// Card returns a copy of a stored card.
func (s *Server) Card(id string) (board.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok {
		return board.Card{}, false
	}
	return card.Clone(), true
}

// Broadcast pushes an arbitrary event to all connected stream clients, for
// tests that need to simulate server-originated changes.
func (s *Server) Broadcast(payload board.EventPayload) {
	s.mu.Lock()
	boardID := s.board.ID
	s.mu.Unlock()
	s.broadcast(boardID, payload)
}

func (s *Server) broadcast(boardID string, payload board.EventPayload) {
	ev := board.RemoteEvent{
		EventID:   board.NewULID(),
		BoardID:   boardID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	data, err := ev.MarshalJSON()
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
}

func (s *Server) takeForcedFailure() (int, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forcedStatus == 0 {
		return 0, "", false
	}
	status, code := s.forcedStatus, s.forcedCode
	s.forcedStatus, s.forcedCode = 0, ""
	return status, code, true
}

func (s *Server) rejectIfForced(w http.ResponseWriter) bool {
	if status, code, ok := s.takeForcedFailure(); ok {
		writeError(w, status, code, "forced failure")
		return true
	}
	return false
}

func userID(r *http.Request) string {
	// The fake treats the opaque bearer token as the user ID.
	auth := r.Header.Get("Authorization")
	return strings.TrimPrefix(auth, "Bearer ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

// refreshDerivedLocked recomputes reaction counts, aggregates, and child
// summaries for every card. Callers hold s.mu.
func (s *Server) refreshDerivedLocked() {
	for id, card := range s.cards {
		direct := 0
		for _, n := range s.reactions[id] {
			direct += n
		}
		card.DirectReactions = direct
		card.Children = nil
		s.cards[id] = card
	}
	for id, card := range s.cards {
		card.AggregatedReactions = card.DirectReactions
		var childIDs []string
		for cid, child := range s.cards {
			if child.ParentID != nil && *child.ParentID == id {
				childIDs = append(childIDs, cid)
			}
		}
		sort.Strings(childIDs)
		for _, cid := range childIDs {
			child := s.cards[cid]
			card.Children = append(card.Children, child.Summary())
			card.AggregatedReactions += child.DirectReactions
		}
		s.cards[id] = card
	}
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chi.URLParam(r, "boardID") != s.board.ID {
		writeError(w, http.StatusNotFound, "not_found", "board not found")
		return
	}
	writeJSON(w, http.StatusOK, s.board.Clone())
}

func (s *Server) handleUpdateBoard(w http.ResponseWriter, r *http.Request) {
	if s.rejectIfForced(w) {
		return
	}
	var req struct {
		Name   *string `json:"name"`
		Closed *bool   `json:"closed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	s.mu.Lock()
	if req.Name != nil {
		s.board.Name = *req.Name
	}
	if req.Closed != nil {
		s.board.Closed = *req.Closed
	}
	b := s.board.Clone()
	s.mu.Unlock()

	if req.Name != nil {
		s.broadcast(b.ID, board.BoardRenamedPayload{Name: *req.Name})
	}
	if req.Closed != nil && *req.Closed {
		s.broadcast(b.ID, board.BoardClosedPayload{})
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cards []board.Card
	for _, card := range s.cards {
		cards = append(cards, card.Clone())
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	if s.rejectIfForced(w) {
		return
	}
	var req struct {
		ColumnID  string         `json:"column_id"`
		Type      board.CardType `json:"type"`
		Content   string         `json:"content"`
		Anonymous bool           `json:"anonymous"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	user := userID(r)

	s.mu.Lock()
	if s.board.Closed {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "board_closed", "board is closed")
		return
	}
	if s.board.MaxCardsPerUser > 0 && s.cardCount[user] >= s.board.MaxCardsPerUser {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "quota_exceeded", "card quota exceeded")
		return
	}
	card := board.Card{
		ID:        uuid.New().String(),
		BoardID:   s.board.ID,
		ColumnID:  req.ColumnID,
		Type:      req.Type,
		Content:   req.Content,
		OwnerID:   user,
		Anonymous: req.Anonymous,
		CreatedAt: time.Now().UTC(),
	}
	s.cards[card.ID] = card
	s.cardCount[user]++
	s.refreshDerivedLocked()
	out := s.cards[card.ID].Clone()
	boardID := s.board.ID
	s.mu.Unlock()

	s.broadcast(boardID, board.CardCreatedPayload{Card: out})
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleQuotas(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	reacted := 0
	for _, byUser := range s.reactions {
		reacted += byUser[user]
	}
	writeJSON(w, http.StatusOK, map[string]board.Quota{
		"cards":     {Used: s.cardCount[user], Limit: s.board.MaxCardsPerUser},
		"reactions": {Used: reacted, Limit: s.board.MaxReactionsPerUser},
	})
}

// withCard runs fn against the card named in the URL, handling not-found and
// forced failures uniformly. fn returns the response body and the events to
// broadcast after the lock is released.
func (s *Server) withCard(w http.ResponseWriter, r *http.Request, fn func(card board.Card) (any, []board.EventPayload, bool)) {
	if s.rejectIfForced(w) {
		return
	}
	id := chi.URLParam(r, "cardID")
	s.mu.Lock()
	card, ok := s.cards[id]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "card not found")
		return
	}
	if s.board.Closed {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "board_closed", "board is closed")
		return
	}
	body, events, ok := fn(card)
	boardID := s.board.ID
	s.mu.Unlock()
	if !ok {
		return // fn already wrote the error
	}
	for _, payload := range events {
		s.broadcast(boardID, payload)
	}
	if body != nil {
		writeJSON(w, http.StatusOK, body)
	} else {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content *string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	s.withCard(w, r, func(card board.Card) (any, []board.EventPayload, bool) {
		if req.Content != nil {
			card.Content = *req.Content
		}
		s.cards[card.ID] = card
		s.refreshDerivedLocked()
		out := s.cards[card.ID].Clone()
		return out, []board.EventPayload{
			board.CardUpdatedPayload{CardID: card.ID, Content: req.Content},
		}, true
	})
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	s.withCard(w, r, func(card board.Card) (any, []board.EventPayload, bool) {
		delete(s.cards, card.ID)
		for _, child := range s.cards {
			if child.ParentID != nil && *child.ParentID == card.ID {
				child.ParentID = nil
				s.cards[child.ID] = child
			}
		}
		s.refreshDerivedLocked()
		return nil, []board.EventPayload{
			board.CardDeletedPayload{CardID: card.ID},
		}, true
	})
}

func (s *Server) handleMoveCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ColumnID string `json:"column_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	s.withCard(w, r, func(card board.Card) (any, []board.EventPayload, bool) {
		card.ColumnID = req.ColumnID
		s.cards[card.ID] = card
		out := card.Clone()
		return out, []board.EventPayload{
			board.CardMovedPayload{CardID: card.ID, ColumnID: req.ColumnID},
		}, true
	})
}

func (s *Server) handleLinkParent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParentID string `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	s.withCard(w, r, func(card board.Card) (any, []board.EventPayload, bool) {
		parent, ok := s.cards[req.ParentID]
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "parent not found")
			return nil, nil, false
		}
		if parent.ParentID != nil || parent.Type != board.CardTypeFeedback {
			writeError(w, http.StatusUnprocessableEntity, "invalid_link", "target cannot be a parent")
			return nil, nil, false
		}
		card.ParentID = &req.ParentID
		s.cards[card.ID] = card
		s.refreshDerivedLocked()
		out := s.cards[req.ParentID].Clone()
		return out, []board.EventPayload{
			board.CardUpdatedPayload{CardID: card.ID, Parent: board.Of(req.ParentID)},
		}, true
	})
}

func (s *Server) handleUnlinkParent(w http.ResponseWriter, r *http.Request) {
	s.withCard(w, r, func(card board.Card) (any, []board.EventPayload, bool) {
		if card.ParentID == nil {
			writeError(w, http.StatusUnprocessableEntity, "not_linked", "card has no parent")
			return nil, nil, false
		}
		parentID := *card.ParentID
		card.ParentID = nil
		s.cards[card.ID] = card
		s.refreshDerivedLocked()
		out := s.cards[parentID].Clone()
		return out, []board.EventPayload{
			board.CardUpdatedPayload{CardID: card.ID, Parent: board.Null[string]()},
		}, true
	})
}

func (s *Server) handleLinkAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FeedbackID string `json:"feedback_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	s.withCard(w, r, func(card board.Card) (any, []board.EventPayload, bool) {
		if _, ok := s.cards[req.FeedbackID]; !ok {
			writeError(w, http.StatusNotFound, "not_found", "feedback not found")
			return nil, nil, false
		}
		card.LinkedFeedbackID = &req.FeedbackID
		s.cards[card.ID] = card
		out := card.Clone()
		return out, []board.EventPayload{
			board.CardUpdatedPayload{CardID: card.ID, LinkedFeedback: board.Of(req.FeedbackID)},
		}, true
	})
}

func (s *Server) handleAddReaction(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	s.withCard(w, r, func(card board.Card) (any, []board.EventPayload, bool) {
		reacted := 0
		for _, byUser := range s.reactions {
			reacted += byUser[user]
		}
		if s.board.MaxReactionsPerUser > 0 && reacted >= s.board.MaxReactionsPerUser {
			writeError(w, http.StatusConflict, "quota_exceeded", "reaction quota exceeded")
			return nil, nil, false
		}
		if s.reactions[card.ID] == nil {
			s.reactions[card.ID] = make(map[string]int)
		}
		s.reactions[card.ID][user]++
		s.refreshDerivedLocked()
		updated := s.cards[card.ID]
		counts := map[string]any{
			"card_id":              card.ID,
			"direct_reactions":     updated.DirectReactions,
			"aggregated_reactions": updated.AggregatedReactions,
		}
		return counts, []board.EventPayload{
			board.ReactionAddedPayload{
				CardID:              card.ID,
				DirectReactions:     updated.DirectReactions,
				AggregatedReactions: updated.AggregatedReactions,
			},
		}, true
	})
}

func (s *Server) handleRemoveReaction(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	s.withCard(w, r, func(card board.Card) (any, []board.EventPayload, bool) {
		if s.reactions[card.ID][user] > 0 {
			s.reactions[card.ID][user]--
		}
		s.refreshDerivedLocked()
		updated := s.cards[card.ID]
		counts := map[string]any{
			"card_id":              card.ID,
			"direct_reactions":     updated.DirectReactions,
			"aggregated_reactions": updated.AggregatedReactions,
		}
		return counts, []board.EventPayload{
			board.ReactionRemovedPayload{
				CardID:              card.ID,
				DirectReactions:     updated.DirectReactions,
				AggregatedReactions: updated.AggregatedReactions,
			},
		}, true
	})
}

// handleStream upgrades to a websocket, tracks presence from join/leave
// frames, and keeps the conn registered until it dies.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns[conn] = true
	boardID := s.board.ID
	s.mu.Unlock()

	user := r.URL.Query().Get("user_id")
	s.broadcast(boardID, board.ParticipantJoinedPayload{UserID: user})

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
		s.broadcast(boardID, board.ParticipantLeftPayload{UserID: user})
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame struct {
			Event string `json:"event"`
		}
		if json.Unmarshal(data, &frame) == nil && frame.Event == "board.leave" {
			return
		}
	}
}
