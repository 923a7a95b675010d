package feed

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	items := []CandidateItem{
		{Title: "  Go   Concurrency ", URL: " https://y/1 ", Channel: " chan ", Position: 9},
		{Title: "", URL: "https://y/2"},
		{Title: "Missing url"},
		{Title: "Duplicate", URL: "https://y/1"},
		{Title: "Cafe\u0301", URL: "https://y/3"},
	}
	got := Normalize(items)
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(got), got)
	}
	if got[0].Title != "Go Concurrency" || got[0].URL != "https://y/1" || got[0].Channel != "chan" || got[0].Position != 0 {
		t.Fatalf("unexpected first item: %+v", got[0])
	}
	if got[1].Title != "Caf\u00e9" {
		t.Fatalf("expected NFC title, got %q", got[1].Title)
	}
	if got[1].Position != 1 {
		t.Fatalf("expected position 1, got %d", got[1].Position)
	}
}

func TestSplit(t *testing.T) {
	items := make([]CandidateItem, 5)
	for i := range items {
		items[i] = CandidateItem{Title: "t", URL: string(rune('a' + i)), Position: 10 + i}
	}
	head, overflow := Split(items, 3)
	if len(head) != 3 || len(overflow) != 2 {
		t.Fatalf("unexpected split sizes %d/%d", len(head), len(overflow))
	}
	for i, item := range head {
		if item.Position != i {
			t.Fatalf("expected contiguous positions, got %d at %d", item.Position, i)
		}
	}
	if overflow[0].URL != "d" || overflow[1].URL != "e" {
		t.Fatalf("unexpected overflow %+v", overflow)
	}
	if items[0].Position != 10 {
		t.Fatal("Split must not modify its input")
	}

	head, overflow = Split(items, 0)
	if len(head) != 5 || overflow != nil {
		t.Fatalf("expected default cap to keep all items, got %d/%d", len(head), len(overflow))
	}
}

func TestTruncateCategory(t *testing.T) {
	long := ""
	for range 90 {
		long += "é"
	}
	got := TruncateCategory(long, MaxCategoryLength)
	if n := len([]rune(got)); n != MaxCategoryLength {
		t.Fatalf("expected %d runes, got %d", MaxCategoryLength, n)
	}
	if TruncateCategory("short", MaxCategoryLength) != "short" {
		t.Fatal("short labels must be unchanged")
	}
}

func TestCloneGroupsIsDeep(t *testing.T) {
	groups := []Group{{Category: "A", Videos: []CandidateItem{{URL: "u1"}}}}
	clone := CloneGroups(groups)
	clone[0].Videos[0].URL = "mutated"
	clone[0].Category = "B"
	if groups[0].Videos[0].URL != "u1" || groups[0].Category != "A" {
		t.Fatal("clone shares state with original")
	}
}

func TestWithOverflow(t *testing.T) {
	groups := []Group{{Category: "A", Videos: []CandidateItem{{URL: "u1"}}}}
	out := WithOverflow(groups, []CandidateItem{{URL: "u2"}})
	if len(out) != 2 || out[1].Category != OverflowCategory || out[1].Videos[0].URL != "u2" {
		t.Fatalf("unexpected merged groups %+v", out)
	}
	if len(WithOverflow(groups, nil)) != 1 {
		t.Fatal("expected no trailing group without overflow")
	}
	if ItemCount(out) != 2 {
		t.Fatalf("expected 2 items, got %d", ItemCount(out))
	}
}
