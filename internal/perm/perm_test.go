package perm

import "testing"

func TestEvaluateAnd(t *testing.T) {
	s := NewSet(InspectionsSubmitOwn, AnnouncementsView)
	if !Evaluate(s, All(InspectionsSubmitOwn)) {
		t.Fatal("expected allow for held permission")
	}
	if !Evaluate(s, All(InspectionsSubmitOwn, AnnouncementsView)) {
		t.Fatal("expected allow when all required are held")
	}
	if Evaluate(s, All(InspectionsSubmitOwn, InspectionsSubmitAny)) {
		t.Fatal("AND must fail when any required token is missing")
	}
	if !Evaluate(s, All()) {
		t.Fatal("empty AND requirement must allow")
	}
}

func TestEvaluateOr(t *testing.T) {
	s := NewSet(InspectionsSubmitOwn)
	if !Evaluate(s, Any(InspectionsSubmitAny, InspectionsSubmitOwn)) {
		t.Fatal("OR must allow on non-empty intersection")
	}
	if Evaluate(s, Any(InspectionsSubmitAny, InspectionsViewAll)) {
		t.Fatal("OR must deny on empty intersection")
	}
	if Evaluate(s, Any()) {
		t.Fatal("empty OR requirement must deny")
	}
}

func TestEvaluateSuperuserBypass(t *testing.T) {
	s := NewSet(FullAccess)
	if !Evaluate(s, All(InspectionsSubmitAny, InspectionsViewAll, UsersManage)) {
		t.Fatal("full access must bypass AND requirements")
	}
	if !Evaluate(s, Any(InspectionsSubmitAny)) {
		t.Fatal("full access must bypass OR requirements")
	}
	if !Evaluate(s, Any()) {
		t.Fatal("full access must bypass even an empty OR requirement")
	}
}

func TestNewRequiredValidatesLogic(t *testing.T) {
	if _, err := NewRequired(And, UsersView); err != nil {
		t.Fatalf("AND is valid: %v", err)
	}
	if _, err := NewRequired(Or, UsersView); err != nil {
		t.Fatalf("OR is valid: %v", err)
	}
	if _, err := NewRequired(Logic("XOR"), UsersView); err == nil {
		t.Fatal("expected error for unknown logic literal")
	}
}

func TestSetHas(t *testing.T) {
	s := NewSet(UsersView, UsersView)
	if len(s) != 1 {
		t.Fatalf("set must deduplicate, got %d entries", len(s))
	}
	if !s.Has(UsersView) || s.Has(UsersManage) {
		t.Fatal("membership check broken")
	}
}
