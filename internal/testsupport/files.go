package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"feedcurator/internal/feed"
)

// Candidates builds n distinct candidate items whose URLs share prefix.
func Candidates(prefix string, n int) []feed.CandidateItem {
	items := make([]feed.CandidateItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, feed.CandidateItem{
			Title:    fmt.Sprintf("Video %d", i+1),
			URL:      fmt.Sprintf("https://example.com/%s/%d", prefix, i+1),
			Channel:  fmt.Sprintf("Channel %d", i%3+1),
			Position: i,
		})
	}
	return items
}

// WriteJSON marshals v into path, creating parent directories.
func WriteJSON(t testing.TB, path string, v any) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
