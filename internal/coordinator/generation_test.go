package coordinator

import "testing"

func TestGenerations(t *testing.T) {
	var gens Generations
	if gens.Valid(Ticket{}) {
		t.Fatal("zero ticket must never be valid")
	}
	first := gens.Next()
	if !gens.Valid(first) || first.Generation() != 1 {
		t.Fatalf("expected fresh ticket to be valid, got %+v", first)
	}
	second := gens.Next()
	if gens.Valid(first) {
		t.Fatal("older ticket must be stale after Next")
	}
	gens.Invalidate()
	if gens.Valid(second) {
		t.Fatal("ticket must be stale after Invalidate")
	}
	if gens.Current() != 3 {
		t.Fatalf("expected generation 3, got %d", gens.Current())
	}
}
