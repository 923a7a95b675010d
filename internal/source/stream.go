package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"feedcurator/internal/feed"
)

const maxLineBytes = 4 << 20

// Batch is one line of a candidate stream.
type Batch struct {
	Line  int
	Items []feed.CandidateItem
	// Leave marks a navigation away from eligible content.
	Leave bool
	// Err is set when the line could not be decoded.
	Err error
}

// ReadStream reads NDJSON candidate documents from r and calls fn for each
// non-blank line. A line of {"event":"leave"} yields a Leave batch. Decode
// failures are reported through Batch.Err rather than ending the stream.
func ReadStream(ctx context.Context, r io.Reader, fn func(Batch) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		batch := Batch{Line: line}
		if isLeave(text) {
			batch.Leave = true
		} else {
			batch.Items, batch.Err = DecodeVideos(text)
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

func isLeave(line []byte) bool {
	if line[0] != '{' {
		return false
	}
	var control struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(line, &control); err != nil {
		return false
	}
	return control.Event == "leave"
}
