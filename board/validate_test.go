// ABOUTME: Tests for drop validation: column moves, stacking rules, action links, and rejections.
// ABOUTME: Covers the depth-1 hierarchy rules and validator determinism.
package board

import (
	"reflect"
	"testing"
)

// stackFixture builds a cache with a parent/child pair plus standalone cards.
func stackFixture(t *testing.T) *Cache {
	t.Helper()
	cache := NewCache()

	parent := testCard("parent")
	cache.PutCard(parent)

	child := testCard("child")
	child.ParentID = strPtr("parent")
	cache.PutCard(child)

	cache.PutCard(testCard("loose"))

	action := testCard("action")
	action.Type = CardTypeAction
	cache.PutCard(action)

	return cache
}

func TestValidateDropColumnAlwaysValid(t *testing.T) {
	cache := stackFixture(t)
	// Even a card that could never stack can always move to a column.
	d := ValidateDrop(cache, "parent", CardTypeFeedback, "col-2", TargetColumn)
	if !d.Valid || d.Action != MoveToColumn {
		t.Errorf("column drop = %+v, want valid MoveToColumn", d)
	}
}

func TestValidateDropRejections(t *testing.T) {
	cache := stackFixture(t)

	tests := []struct {
		name       string
		sourceID   string
		sourceType CardType
		targetID   string
		want       DropReason
	}{
		{"target not found", "loose", CardTypeFeedback, "ghost", ReasonTargetNotFound},
		{"self drop", "loose", CardTypeFeedback, "loose", ReasonSelfDrop},
		{"target already has parent", "loose", CardTypeFeedback, "child", ReasonAlreadyHasParent},
		{"source has children", "parent", CardTypeFeedback, "loose", ReasonSourceHasChildren},
		{"feedback on action", "loose", CardTypeFeedback, "action", ReasonIncompatibleTypes},
		{"action on action", "action", CardTypeAction, "action2", ReasonIncompatibleTypes},
	}

	action2 := testCard("action2")
	action2.Type = CardTypeAction
	cache.PutCard(action2)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ValidateDrop(cache, tt.sourceID, tt.sourceType, tt.targetID, TargetCard)
			if d.Valid {
				t.Fatalf("drop unexpectedly valid: %+v", d)
			}
			if d.Reason != tt.want {
				t.Errorf("Reason = %q, want %q", d.Reason, tt.want)
			}
		})
	}
}

func TestValidateDropCircularBeatsAlreadyHasParent(t *testing.T) {
	cache := stackFixture(t)
	// Dropping the parent onto its own child would invert the relationship
	// into a cycle; that wins over the generic has-parent rejection.
	d := ValidateDrop(cache, "parent", CardTypeFeedback, "child", TargetCard)
	if d.Valid {
		t.Fatalf("drop unexpectedly valid: %+v", d)
	}
	if d.Reason != ReasonCircular {
		t.Errorf("Reason = %q, want %q", d.Reason, ReasonCircular)
	}
}

func TestValidateDropStacking(t *testing.T) {
	cache := stackFixture(t)
	d := ValidateDrop(cache, "loose", CardTypeFeedback, "parent", TargetCard)
	if !d.Valid {
		t.Fatalf("drop rejected: %+v", d)
	}
	if d.Action != LinkParentChild {
		t.Errorf("Action = %q, want %q", d.Action, LinkParentChild)
	}
	if d.ParentID != "parent" || d.ChildID != "loose" {
		t.Errorf("direction = parent %q child %q, want parent/loose", d.ParentID, d.ChildID)
	}
}

func TestValidateDropChildOntoLooseCard(t *testing.T) {
	cache := stackFixture(t)
	// A card that is already a child can be re-stacked onto a fresh parent;
	// only the target's state and the source's children matter.
	d := ValidateDrop(cache, "child", CardTypeFeedback, "loose", TargetCard)
	if !d.Valid {
		t.Fatalf("drop rejected: %+v", d)
	}
	if d.ParentID != "loose" || d.ChildID != "child" {
		t.Errorf("direction = parent %q child %q", d.ParentID, d.ChildID)
	}
}

func TestValidateDropActionLink(t *testing.T) {
	cache := stackFixture(t)
	d := ValidateDrop(cache, "action", CardTypeAction, "parent", TargetCard)
	if !d.Valid {
		t.Fatalf("drop rejected: %+v", d)
	}
	if d.Action != LinkAction {
		t.Errorf("Action = %q, want %q", d.Action, LinkAction)
	}
	if d.ActionID != "action" || d.FeedbackID != "parent" {
		t.Errorf("link = action %q feedback %q", d.ActionID, d.FeedbackID)
	}
}

func TestValidateDropDeterministic(t *testing.T) {
	cache := stackFixture(t)
	first := ValidateDrop(cache, "loose", CardTypeFeedback, "parent", TargetCard)
	for i := 0; i < 5; i++ {
		again := ValidateDrop(cache, "loose", CardTypeFeedback, "parent", TargetCard)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
	// And validation never mutates the cache.
	child, _ := cache.Card("loose")
	if child.ParentID != nil {
		t.Error("validation mutated the source card")
	}
}

func TestDropDecisionErr(t *testing.T) {
	valid := DropDecision{Valid: true, Action: MoveToColumn}
	if err := valid.Err(); err != nil {
		t.Errorf("Err() on valid decision = %v, want nil", err)
	}

	rejectedDecision := rejected(ReasonSelfDrop, "")
	err := rejectedDecision.Err()
	dre, ok := err.(*DropRejectedError)
	if !ok {
		t.Fatalf("Err() = %T, want *DropRejectedError", err)
	}
	if dre.Reason != ReasonSelfDrop {
		t.Errorf("Reason = %q, want %q", dre.Reason, ReasonSelfDrop)
	}
}
