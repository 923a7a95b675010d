package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"feedcurator/internal/services"
)

func TestDecodeVideosShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{name: "array", body: `[{"title":"A","url":"u1"},{"title":"B","url":"u2"}]`, want: []string{"u1", "u2"}},
		{name: "envelope", body: `{"videos":[{"title":"A","url":"u1"}]}`, want: []string{"u1"}},
		{name: "aliases", body: `{"videos":[{"text":"A","href":"u9","channel":"C"}]}`, want: []string{"u9"}},
		{name: "skips junk", body: `[1,"x",{"title":"A"},{"title":"B","url":"u2"}]`, want: []string{"u2"}},
		{name: "empty videos", body: `{"videos":[]}`, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := DecodeVideos([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodeVideos returned error: %v", err)
			}
			if len(items) != len(tt.want) {
				t.Fatalf("expected %d items, got %+v", len(tt.want), items)
			}
			for i, url := range tt.want {
				if items[i].URL != url || items[i].Position != i {
					t.Fatalf("unexpected item %d: %+v", i, items[i])
				}
			}
		})
	}
}

func TestDecodeVideosRejectsMissingArray(t *testing.T) {
	for _, body := range []string{`{}`, `{"videos":"nope"}`, `"text"`, ``, `{"videos":null}`} {
		if _, err := DecodeVideos([]byte(body)); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for %q, got %v", body, err)
		}
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.json")
	if err := os.WriteFile(path, []byte(`[{"title":"A","url":"u1"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	items, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if len(items) != 1 || items[0].Title != "A" {
		t.Fatalf("unexpected items %+v", items)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadReader(t *testing.T) {
	items, err := ReadReader(strings.NewReader(`{"videos":[{"text":"B","href":"u2"}]}`))
	if err != nil {
		t.Fatalf("ReadReader returned error: %v", err)
	}
	if len(items) != 1 || items[0].URL != "u2" {
		t.Fatalf("unexpected items %+v", items)
	}
	if _, err := ReadReader(strings.NewReader(`{"items":[]}`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReadStream(t *testing.T) {
	input := strings.Join([]string{
		`{"videos":[{"title":"A","url":"u1"}]}`,
		``,
		`not json`,
		`{"event":"leave"}`,
		`[{"title":"B","url":"u2"}]`,
	}, "\n")
	var batches []Batch
	err := ReadStream(context.Background(), strings.NewReader(input), func(b Batch) error {
		batches = append(batches, b)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadStream returned error: %v", err)
	}
	if len(batches) != 4 {
		t.Fatalf("expected 4 batches, got %d", len(batches))
	}
	if len(batches[0].Items) != 1 || batches[0].Line != 1 {
		t.Fatalf("unexpected first batch %+v", batches[0])
	}
	if batches[1].Err == nil || batches[1].Line != 3 {
		t.Fatalf("expected decode error on line 3, got %+v", batches[1])
	}
	if !batches[2].Leave {
		t.Fatalf("expected leave batch, got %+v", batches[2])
	}
	if batches[3].Items[0].URL != "u2" {
		t.Fatalf("unexpected last batch %+v", batches[3])
	}
}

func TestReadStreamStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := ReadStream(context.Background(), strings.NewReader("[]\n[]\n[]\n"), func(Batch) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("expected stop after first batch, got %v (calls=%d)", err, calls)
	}
}

const atomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Go Channel</title>
  <entry>
    <title>Understanding Channels</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=aaa"/>
    <author><name>Gopher Academy</name></author>
  </entry>
  <entry>
    <title>Generics Deep Dive</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=bbb"/>
  </entry>
</feed>`

func TestFeedReaderParse(t *testing.T) {
	items, err := NewFeedReader(nil).Parse(strings.NewReader(atomFeed))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
	if items[0].URL != "https://www.youtube.com/watch?v=aaa" || items[0].Channel != "Gopher Academy" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[1].Channel != "Go Channel" {
		t.Fatalf("expected feed title as channel fallback, got %q", items[1].Channel)
	}
}

func TestFeedReaderFetchAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atomFeed))
	}))
	defer server.Close()

	items, errs := NewFeedReader(server.Client()).FetchAll(context.Background(), []string{server.URL + "/feed", server.URL + "/missing", server.URL + "/feed"})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	if len(items) != 2 {
		t.Fatalf("expected duplicate feeds to collapse to 2 items, got %d", len(items))
	}
}
