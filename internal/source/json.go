package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"feedcurator/internal/feed"
	"feedcurator/internal/services"
)

// RawVideo is one extractor entry before normalization.
type RawVideo struct {
	Title   string `json:"title"`
	Text    string `json:"text"`
	URL     string `json:"url"`
	Href    string `json:"href"`
	Channel string `json:"channel"`
}

// Candidate resolves aliases into a candidate item.
func (v RawVideo) Candidate() feed.CandidateItem {
	title := v.Title
	if strings.TrimSpace(title) == "" {
		title = v.Text
	}
	url := v.URL
	if strings.TrimSpace(url) == "" {
		url = v.Href
	}
	return feed.CandidateItem{Title: title, URL: url, Channel: v.Channel}
}

// DecodeVideos parses a bare array or an object carrying a "videos" array.
// Entries that are not objects are skipped; the result is normalized. A
// document without a videos array is a validation error.
func DecodeVideos(data []byte) ([]feed.CandidateItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, services.Wrap(services.ErrValidation, "source", "decode", "empty document", nil)
	}

	var entries []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, services.Wrap(services.ErrValidation, "source", "decode", "invalid array", err)
		}
	case '{':
		var envelope struct {
			Videos json.RawMessage `json:"videos"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, services.Wrap(services.ErrValidation, "source", "decode", "invalid object", err)
		}
		videos := bytes.TrimSpace(envelope.Videos)
		if len(videos) == 0 || videos[0] != '[' {
			return nil, services.Wrap(services.ErrValidation, "source", "decode", "payload must include a 'videos' array", nil)
		}
		if err := json.Unmarshal(videos, &entries); err != nil {
			return nil, services.Wrap(services.ErrValidation, "source", "decode", "invalid videos array", err)
		}
	default:
		return nil, services.Wrap(services.ErrValidation, "source", "decode", "document must be a JSON array or object", nil)
	}

	items := make([]feed.CandidateItem, 0, len(entries))
	for _, entry := range entries {
		var raw RawVideo
		if err := json.Unmarshal(entry, &raw); err != nil {
			continue
		}
		items = append(items, raw.Candidate())
	}
	return feed.Normalize(items), nil
}

// ReadFile loads candidates from path, or from stdin when path is "-".
func ReadFile(path string) ([]feed.CandidateItem, error) {
	if path == "-" {
		return ReadReader(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}
	items, err := DecodeVideos(data)
	if err != nil {
		return nil, fmt.Errorf("read candidates from %s: %w", displayPath(path), err)
	}
	return items, nil
}

// ReadReader loads a single candidate document from r.
func ReadReader(r io.Reader) ([]feed.CandidateItem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}
	items, err := DecodeVideos(data)
	if err != nil {
		return nil, fmt.Errorf("read candidates from %s: %w", displayPath("-"), err)
	}
	return items, nil
}

func displayPath(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}
