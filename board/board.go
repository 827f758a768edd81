// ABOUTME: Board holds the column layout, lifecycle flag, membership, and quotas.
// ABOUTME: Quota limits are per-user caps on cards and reactions.
package board

// Column is a named, colored lane that cards are organized into.
type Column struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Quota is a per-user usage snapshot against a limit.
type Quota struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// Exhausted reports whether the quota has no headroom left. A limit of zero
// or below means unlimited.
func (q Quota) Exhausted() bool {
	return q.Limit > 0 && q.Used >= q.Limit
}

// Board is the top-level container for a retrospective session.
type Board struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Closed  bool     `json:"closed"`

	Members []string `json:"members"`
	Admins  []string `json:"admins"`

	// Per-user limits enforced as mutation preconditions.
	MaxCardsPerUser     int `json:"max_cards_per_user"`
	MaxReactionsPerUser int `json:"max_reactions_per_user"`
}

// Clone returns a deep copy of the board.
func (b Board) Clone() Board {
	out := b
	if b.Columns != nil {
		out.Columns = make([]Column, len(b.Columns))
		copy(out.Columns, b.Columns)
	}
	if b.Members != nil {
		out.Members = make([]string, len(b.Members))
		copy(out.Members, b.Members)
	}
	if b.Admins != nil {
		out.Admins = make([]string, len(b.Admins))
		copy(out.Admins, b.Admins)
	}
	return out
}

// Column returns the column with the given ID, if present.
func (b Board) Column(id string) (Column, bool) {
	for _, col := range b.Columns {
		if col.ID == id {
			return col, true
		}
	}
	return Column{}, false
}

// IsAdmin reports whether the given user is in the board's admin set.
func (b Board) IsAdmin(userID string) bool {
	for _, id := range b.Admins {
		if id == userID {
			return true
		}
	}
	return false
}
