package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"feedcurator/internal/feed"
)

func TestRenderGroupsNumbersAcrossSections(t *testing.T) {
	groups := []feed.Group{
		{Category: "Learning", Videos: []feed.CandidateItem{{Title: "T1", URL: "u1"}, {Title: "T2", URL: "u2"}}},
		{Category: feed.OtherPicksCategory, Videos: []feed.CandidateItem{{Title: "T3", URL: "u3", Channel: "C"}}},
	}
	out := renderGroups(groups)
	for _, want := range []string{"Learning", "Other picks", "T3", "u2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
	if strings.Count(out, "Learning") != 1 {
		t.Fatalf("category should label only the first row:\n%s", out)
	}
	lines := strings.Split(out, "\n")
	found := false
	for _, line := range lines {
		if strings.Contains(line, "T3") && strings.Contains(line, " 3 ") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected continuous numbering across groups:\n%s", out)
	}
}

func TestGroupRendererJSONFallback(t *testing.T) {
	cmd := &cobra.Command{}
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	r := newGroupRenderer(cmd, true)
	r.ShowLoading()
	r.ShowFallback([]feed.CandidateItem{{Title: "A", URL: "u1"}}, errors.New("no endpoint reachable"))

	if stderr.Len() != 0 {
		t.Fatalf("json mode should not print loading notices, got %q", stderr.String())
	}
	want := `{"groups":[{"category":"All videos","videos":[{"title":"A","url":"u1","channel":"","position":0}]}],"fallback":true,"error":"no endpoint reachable"}`
	if strings.TrimSpace(stdout.String()) != want {
		t.Fatalf("unexpected json:\n%s", stdout.String())
	}
	select {
	case payload := <-r.rendered:
		if !payload.Fallback {
			t.Fatal("expected fallback payload signal")
		}
	default:
		t.Fatal("expected a render signal")
	}
}
