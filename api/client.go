// ABOUTME: Typed REST client for the board server: cards, links, reactions, quotas, board metadata.
// ABOUTME: Maps non-2xx responses through ErrorFromStatusCode and wraps transport failures as NetworkError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2389-research/retroboard/board"
)

// Client is an HTTP client for the board server's REST API. All methods take
// a context and return the authoritative entity state from the server, which
// callers use to reconcile optimistic cache writes.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// Option configures optional Client behavior.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client (used in tests and for
// custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client for the given base URL. The auth token is the
// opaque session identity supplied by the external session layer; it is sent
// as a bearer token and never inspected.
func NewClient(baseURL, authToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errorBody is the wire shape of a server rejection.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do issues a request and decodes the response into out (when non-nil).
// Transport-level failures come back as *NetworkError; non-2xx statuses are
// mapped through ErrorFromStatusCode.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{ClientError: ClientError{
			Message: fmt.Sprintf("%s %s failed", method, path),
			Cause:   err,
		}}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{ClientError: ClientError{
			Message: fmt.Sprintf("read %s %s response", method, path),
			Cause:   err,
		}}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		message := eb.Error.Message
		if message == "" {
			message = fmt.Sprintf("%s %s: status %d", method, path, resp.StatusCode)
		}
		return ErrorFromStatusCode(resp.StatusCode, message, eb.Error.Code, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// FetchBoard retrieves board metadata, columns, membership, and quota limits.
func (c *Client) FetchBoard(ctx context.Context, boardID string) (board.Board, error) {
	var b board.Board
	err := c.do(ctx, http.MethodGet, "/api/boards/"+url.PathEscape(boardID), nil, &b)
	return b, err
}

// UpdateBoardRequest is a partial board metadata update.
type UpdateBoardRequest struct {
	Name   *string `json:"name,omitempty"`
	Closed *bool   `json:"closed,omitempty"`
}

// UpdateBoard applies a partial update to board metadata and returns the
// authoritative board.
func (c *Client) UpdateBoard(ctx context.Context, boardID string, req UpdateBoardRequest) (board.Board, error) {
	var b board.Board
	err := c.do(ctx, http.MethodPatch, "/api/boards/"+url.PathEscape(boardID), req, &b)
	return b, err
}

// ListCards fetches all cards for a board with relationship data embedded.
func (c *Client) ListCards(ctx context.Context, boardID string) ([]board.Card, error) {
	var out struct {
		Cards []board.Card `json:"cards"`
	}
	err := c.do(ctx, http.MethodGet, "/api/boards/"+url.PathEscape(boardID)+"/cards", nil, &out)
	return out.Cards, err
}

// CreateCardRequest carries the fields of a new card.
type CreateCardRequest struct {
	ColumnID  string         `json:"column_id"`
	Type      board.CardType `json:"type"`
	Content   string         `json:"content"`
	Anonymous bool           `json:"anonymous"`
}

// CreateCard creates a card and returns it with its server-assigned ID and
// canonical timestamp.
func (c *Client) CreateCard(ctx context.Context, boardID string, req CreateCardRequest) (board.Card, error) {
	var card board.Card
	err := c.do(ctx, http.MethodPost, "/api/boards/"+url.PathEscape(boardID)+"/cards", req, &card)
	return card, err
}

// UpdateCardRequest is a partial card update. Content nil leaves the text
// unchanged.
type UpdateCardRequest struct {
	Content *string `json:"content,omitempty"`
}

// UpdateCard applies a partial update and returns the authoritative card.
func (c *Client) UpdateCard(ctx context.Context, cardID string, req UpdateCardRequest) (board.Card, error) {
	var card board.Card
	err := c.do(ctx, http.MethodPatch, "/api/cards/"+url.PathEscape(cardID), req, &card)
	return card, err
}

// DeleteCard removes a card.
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	return c.do(ctx, http.MethodDelete, "/api/cards/"+url.PathEscape(cardID), nil, nil)
}

// MoveCard moves a card to a different column and returns the authoritative
// card.
func (c *Client) MoveCard(ctx context.Context, cardID, columnID string) (board.Card, error) {
	in := struct {
		ColumnID string `json:"column_id"`
	}{ColumnID: columnID}
	var card board.Card
	err := c.do(ctx, http.MethodPost, "/api/cards/"+url.PathEscape(cardID)+"/move", in, &card)
	return card, err
}

// LinkCards makes parentID the parent of childID and returns the updated
// parent card with its child summaries and aggregated counts.
func (c *Client) LinkCards(ctx context.Context, parentID, childID string) (board.Card, error) {
	in := struct {
		ParentID string `json:"parent_id"`
	}{ParentID: parentID}
	var parent board.Card
	err := c.do(ctx, http.MethodPost, "/api/cards/"+url.PathEscape(childID)+"/parent", in, &parent)
	return parent, err
}

// UnlinkCard detaches a child from its parent and returns the updated
// ex-parent card.
func (c *Client) UnlinkCard(ctx context.Context, childID string) (board.Card, error) {
	var parent board.Card
	err := c.do(ctx, http.MethodDelete, "/api/cards/"+url.PathEscape(childID)+"/parent", nil, &parent)
	return parent, err
}

// LinkAction associates an action card with a feedback card and returns the
// updated action card.
func (c *Client) LinkAction(ctx context.Context, actionID, feedbackID string) (board.Card, error) {
	in := struct {
		FeedbackID string `json:"feedback_id"`
	}{FeedbackID: feedbackID}
	var action board.Card
	err := c.do(ctx, http.MethodPost, "/api/cards/"+url.PathEscape(actionID)+"/link", in, &action)
	return action, err
}

// ReactionCounts is the authoritative count snapshot returned by reaction
// endpoints. Counts are absolute, never deltas.
type ReactionCounts struct {
	CardID              string `json:"card_id"`
	DirectReactions     int    `json:"direct_reactions"`
	AggregatedReactions int    `json:"aggregated_reactions"`
}

// AddReaction adds the current user's reaction to a card.
func (c *Client) AddReaction(ctx context.Context, cardID string) (ReactionCounts, error) {
	var counts ReactionCounts
	err := c.do(ctx, http.MethodPost, "/api/cards/"+url.PathEscape(cardID)+"/reactions", nil, &counts)
	return counts, err
}

// RemoveReaction removes the current user's reaction from a card.
func (c *Client) RemoveReaction(ctx context.Context, cardID string) (ReactionCounts, error) {
	var counts ReactionCounts
	err := c.do(ctx, http.MethodDelete, "/api/cards/"+url.PathEscape(cardID)+"/reactions", nil, &counts)
	return counts, err
}

// Quotas is the per-user usage snapshot for both quota kinds.
type Quotas struct {
	Cards     board.Quota `json:"cards"`
	Reactions board.Quota `json:"reactions"`
}

// FetchQuotas retrieves the current user's card and reaction quotas for a
// board.
func (c *Client) FetchQuotas(ctx context.Context, boardID string) (Quotas, error) {
	var q Quotas
	err := c.do(ctx, http.MethodGet, "/api/boards/"+url.PathEscape(boardID)+"/quotas", nil, &q)
	return q, err
}
