package feed

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxItems caps the candidate list before fingerprinting and dispatch.
	DefaultMaxItems = 30
	// MaxCategoryLength bounds group labels, in runes.
	MaxCategoryLength = 80
	// OtherPicksCategory labels the catch-all group of unassigned items.
	OtherPicksCategory = "Other picks"
	// AllVideosCategory labels the single group used when no grouping exists.
	AllVideosCategory = "All videos"
	// OverflowCategory labels items beyond the processing cap.
	OverflowCategory = "More recommendations"
)

// CandidateItem is one recommendation captured by an extractor.
type CandidateItem struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Channel  string `json:"channel"`
	Position int    `json:"position"`
}

// Group is a labelled, ordered slice of candidate items.
type Group struct {
	Category string          `json:"category"`
	Videos   []CandidateItem `json:"videos"`
}

// Normalize trims and NFC-normalizes text fields, drops items without a
// title or URL, keeps the first occurrence of each URL, and reassigns
// contiguous 0-based positions.
func Normalize(items []CandidateItem) []CandidateItem {
	out := make([]CandidateItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		title := cleanText(item.Title)
		url := strings.TrimSpace(item.URL)
		if title == "" || url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, CandidateItem{
			Title:    title,
			URL:      url,
			Channel:  cleanText(item.Channel),
			Position: len(out),
		})
	}
	return out
}

func cleanText(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = norm.NFC.String(value)
	return strings.Join(strings.Fields(value), " ")
}

// Split returns the first max items with 0-based positions and the overflow
// remainder. A non-positive max means DefaultMaxItems. The input is not modified.
func Split(items []CandidateItem, max int) ([]CandidateItem, []CandidateItem) {
	if max <= 0 {
		max = DefaultMaxItems
	}
	if len(items) == 0 {
		return nil, nil
	}
	n := min(len(items), max)
	head := make([]CandidateItem, n)
	copy(head, items[:n])
	for i := range head {
		head[i].Position = i
	}
	var overflow []CandidateItem
	if len(items) > n {
		overflow = CloneItems(items[n:])
	}
	return head, overflow
}

// URLs returns the URLs of items in order.
func URLs(items []CandidateItem) []string {
	urls := make([]string, 0, len(items))
	for _, item := range items {
		urls = append(urls, item.URL)
	}
	return urls
}

// CloneItems returns a copy of items; nil stays nil.
func CloneItems(items []CandidateItem) []CandidateItem {
	if items == nil {
		return nil
	}
	out := make([]CandidateItem, len(items))
	copy(out, items)
	return out
}

// CloneGroups returns a deep copy of groups.
func CloneGroups(groups []Group) []Group {
	if groups == nil {
		return nil
	}
	out := make([]Group, len(groups))
	for i, group := range groups {
		out[i] = Group{Category: group.Category, Videos: CloneItems(group.Videos)}
	}
	return out
}

// TruncateCategory trims a label to at most limit runes.
func TruncateCategory(category string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(category) <= limit {
		return category
	}
	runes := []rune(category)
	return string(runes[:limit])
}

// AllVideos wraps items in the single fallback group.
func AllVideos(items []CandidateItem) []Group {
	return []Group{{Category: AllVideosCategory, Videos: CloneItems(items)}}
}

// WithOverflow appends the overflow remainder as a trailing group.
func WithOverflow(groups []Group, overflow []CandidateItem) []Group {
	out := CloneGroups(groups)
	if len(overflow) == 0 {
		return out
	}
	return append(out, Group{Category: OverflowCategory, Videos: CloneItems(overflow)})
}

// ItemCount returns the number of items across all groups.
func ItemCount(groups []Group) int {
	total := 0
	for _, group := range groups {
		total += len(group.Videos)
	}
	return total
}
