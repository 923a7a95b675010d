package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"feedcurator/internal/feed"
)

// FeedReader reads candidates from RSS or Atom feeds.
type FeedReader struct {
	parser *gofeed.Parser
}

// NewFeedReader constructs a reader. A nil client uses a 15s timeout.
func NewFeedReader(client *http.Client) *FeedReader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = "feedcurator"
	return &FeedReader{parser: parser}
}

// Fetch downloads and parses the feed at url.
func (r *FeedReader) Fetch(ctx context.Context, url string) ([]feed.CandidateItem, error) {
	parsed, err := r.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	return fromFeed(parsed), nil
}

// Parse reads a feed document from an io.Reader.
func (r *FeedReader) Parse(reader io.Reader) ([]feed.CandidateItem, error) {
	parsed, err := r.parser.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return fromFeed(parsed), nil
}

// FetchAll reads every url in order and concatenates the candidates.
// Failing feeds are returned as errors alongside whatever was read.
func (r *FeedReader) FetchAll(ctx context.Context, urls []string) ([]feed.CandidateItem, []error) {
	var (
		items []feed.CandidateItem
		errs  []error
	)
	for _, url := range urls {
		fetched, err := r.Fetch(ctx, url)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, fetched...)
	}
	return feed.Normalize(items), errs
}

func fromFeed(parsed *gofeed.Feed) []feed.CandidateItem {
	if parsed == nil {
		return nil
	}
	items := make([]feed.CandidateItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		channel := strings.TrimSpace(parsed.Title)
		if len(it.Authors) > 0 && it.Authors[0] != nil && strings.TrimSpace(it.Authors[0].Name) != "" {
			channel = it.Authors[0].Name
		}
		items = append(items, feed.CandidateItem{
			Title:   it.Title,
			URL:     it.Link,
			Channel: channel,
		})
	}
	return feed.Normalize(items)
}
