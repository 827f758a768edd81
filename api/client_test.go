// ABOUTME: Tests for the REST client against the in-memory fake server.
// ABOUTME: Covers success decoding, typed error mapping, auth header, and network failures.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2389-research/retroboard/board"
	"github.com/2389-research/retroboard/boardtest"
)

func newFixture(t *testing.T) (*boardtest.Server, *Client) {
	t.Helper()
	fake := boardtest.NewServer(board.Board{
		ID:   "board-1",
		Name: "Sprint 12",
		Columns: []board.Column{
			{ID: "col-1", Name: "Went well"},
			{ID: "col-2", Name: "Needs work"},
		},
		Admins:              []string{"user-1"},
		MaxCardsPerUser:     2,
		MaxReactionsPerUser: 5,
	})
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	return fake, NewClient(srv.URL, "user-1")
}

func TestClientFetchBoard(t *testing.T) {
	_, client := newFixture(t)

	b, err := client.FetchBoard(context.Background(), "board-1")
	if err != nil {
		t.Fatalf("FetchBoard: %v", err)
	}
	if b.Name != "Sprint 12" {
		t.Errorf("Name = %q", b.Name)
	}
	if len(b.Columns) != 2 {
		t.Errorf("len(Columns) = %d, want 2", len(b.Columns))
	}
}

func TestClientFetchBoardNotFound(t *testing.T) {
	_, client := newFixture(t)

	_, err := client.FetchBoard(context.Background(), "ghost")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %T (%v), want *NotFoundError", err, err)
	}
}

func TestClientCreateAndListCards(t *testing.T) {
	_, client := newFixture(t)
	ctx := context.Background()

	card, err := client.CreateCard(ctx, "board-1", CreateCardRequest{
		ColumnID: "col-1",
		Type:     board.CardTypeFeedback,
		Content:  "good pairing sessions",
	})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if card.ID == "" {
		t.Fatal("server did not assign an ID")
	}
	if card.OwnerID != "user-1" {
		t.Errorf("OwnerID = %q, want user-1", card.OwnerID)
	}

	cards, err := client.ListCards(ctx, "board-1")
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	if len(cards) != 1 || cards[0].ID != card.ID {
		t.Errorf("ListCards = %+v", cards)
	}
}

func TestClientCreateCardQuotaExceeded(t *testing.T) {
	_, client := newFixture(t)
	ctx := context.Background()

	req := CreateCardRequest{ColumnID: "col-1", Type: board.CardTypeFeedback, Content: "x"}
	for i := 0; i < 2; i++ {
		if _, err := client.CreateCard(ctx, "board-1", req); err != nil {
			t.Fatalf("CreateCard %d: %v", i, err)
		}
	}

	_, err := client.CreateCard(ctx, "board-1", req)
	var qe *QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("err = %T (%v), want *QuotaExceededError", err, err)
	}
	if qe.IsRetryable() {
		t.Error("quota errors must not be retryable")
	}
}

func TestClientMutationOnClosedBoard(t *testing.T) {
	fake, client := newFixture(t)
	ctx := context.Background()
	fake.SeedCard(board.Card{ID: "c1", BoardID: "board-1", ColumnID: "col-1", Type: board.CardTypeFeedback})

	closed := true
	if _, err := client.UpdateBoard(ctx, "board-1", UpdateBoardRequest{Closed: &closed}); err != nil {
		t.Fatalf("UpdateBoard: %v", err)
	}

	_, err := client.MoveCard(ctx, "c1", "col-2")
	var bce *BoardClosedError
	if !errors.As(err, &bce) {
		t.Fatalf("err = %T (%v), want *BoardClosedError", err, err)
	}
}

func TestClientLinkAndUnlink(t *testing.T) {
	fake, client := newFixture(t)
	ctx := context.Background()
	fake.SeedCard(board.Card{ID: "p1", BoardID: "board-1", ColumnID: "col-1", Type: board.CardTypeFeedback})
	fake.SeedCard(board.Card{ID: "k1", BoardID: "board-1", ColumnID: "col-1", Type: board.CardTypeFeedback})

	parent, err := client.LinkCards(ctx, "p1", "k1")
	if err != nil {
		t.Fatalf("LinkCards: %v", err)
	}
	if len(parent.Children) != 1 || parent.Children[0].ID != "k1" {
		t.Errorf("parent.Children = %+v", parent.Children)
	}

	parent, err = client.UnlinkCard(ctx, "k1")
	if err != nil {
		t.Fatalf("UnlinkCard: %v", err)
	}
	if len(parent.Children) != 0 {
		t.Errorf("parent.Children = %+v after unlink", parent.Children)
	}
}

func TestClientReactionsReturnAbsoluteCounts(t *testing.T) {
	fake, client := newFixture(t)
	ctx := context.Background()
	fake.SeedCard(board.Card{ID: "c1", BoardID: "board-1", ColumnID: "col-1", Type: board.CardTypeFeedback})

	counts, err := client.AddReaction(ctx, "c1")
	if err != nil {
		t.Fatalf("AddReaction: %v", err)
	}
	if counts.DirectReactions != 1 || counts.AggregatedReactions != 1 {
		t.Errorf("counts = %+v", counts)
	}

	counts, err = client.RemoveReaction(ctx, "c1")
	if err != nil {
		t.Fatalf("RemoveReaction: %v", err)
	}
	if counts.DirectReactions != 0 {
		t.Errorf("DirectReactions = %d after remove", counts.DirectReactions)
	}
}

func TestClientFetchQuotas(t *testing.T) {
	_, client := newFixture(t)
	ctx := context.Background()

	if _, err := client.CreateCard(ctx, "board-1", CreateCardRequest{ColumnID: "col-1", Type: board.CardTypeFeedback, Content: "x"}); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}

	q, err := client.FetchQuotas(ctx, "board-1")
	if err != nil {
		t.Fatalf("FetchQuotas: %v", err)
	}
	if q.Cards.Used != 1 || q.Cards.Limit != 2 {
		t.Errorf("Cards quota = %+v", q.Cards)
	}
	if q.Reactions.Limit != 5 {
		t.Errorf("Reactions quota = %+v", q.Reactions)
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-token")
	if _, err := client.FetchBoard(context.Background(), "b"); err != nil {
		t.Fatalf("FetchBoard: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestClientNetworkError(t *testing.T) {
	// Reserved port with nothing listening.
	client := NewClient("http://127.0.0.1:1", "tok")

	_, err := client.FetchBoard(context.Background(), "board-1")
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("err = %T (%v), want *NetworkError", err, err)
	}
	if !ne.IsRetryable() {
		t.Error("network errors must be retryable")
	}
}

func TestClientServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"internal","message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok")
	_, err := client.FetchBoard(context.Background(), "board-1")
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("err = %T (%v), want *ServerError", err, err)
	}
	if se.Code != "internal" {
		t.Errorf("Code = %q", se.Code)
	}
}
