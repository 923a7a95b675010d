package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"feedcurator/internal/feed"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// wantJSON reports whether output should be JSON: when requested, or when
// stdout is a file or pipe rather than a terminal.
func wantJSON(cmd *cobra.Command, flag bool) bool {
	if flag {
		return true
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

type renderPayload struct {
	Groups   []feed.Group `json:"groups"`
	Fallback bool         `json:"fallback,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// groupRenderer prints coordinator renders to the terminal and signals each
// terminal render on rendered.
type groupRenderer struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	json     bool
	rendered chan renderPayload
}

func newGroupRenderer(cmd *cobra.Command, jsonOut bool) *groupRenderer {
	return &groupRenderer{
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		json:     jsonOut,
		rendered: make(chan renderPayload, 16),
	}
}

func (r *groupRenderer) ShowLoading() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.json {
		fmt.Fprintln(r.errOut, "Reranking recommendations...")
	}
}

func (r *groupRenderer) ShowGroups(groups []feed.Group) {
	r.emit(renderPayload{Groups: groups})
}

func (r *groupRenderer) ShowFallback(items []feed.CandidateItem, err error) {
	payload := renderPayload{Groups: feed.AllVideos(items), Fallback: true}
	if err != nil {
		payload.Error = err.Error()
	}
	r.emit(payload)
}

func (r *groupRenderer) emit(payload renderPayload) {
	r.mu.Lock()
	if r.json {
		enc := json.NewEncoder(r.out)
		_ = enc.Encode(payload)
	} else {
		if payload.Fallback {
			fmt.Fprintf(r.errOut, "Reranking unavailable (%s); showing original order\n", payload.Error)
		}
		fmt.Fprintln(r.out, renderGroups(payload.Groups))
	}
	r.mu.Unlock()

	select {
	case r.rendered <- payload:
	default:
	}
}

func renderGroups(groups []feed.Group) string {
	spec := tableSpec{
		headers: []string{"Category", "#", "Title", "Channel", "URL"},
		aligns:  []columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	}
	n := 0
	for _, group := range groups {
		section := make([][]string, 0, len(group.Videos))
		for i, video := range group.Videos {
			n++
			category := ""
			if i == 0 {
				category = group.Category
			}
			section = append(section, []string{category, strconv.Itoa(n), video.Title, video.Channel, video.URL})
		}
		spec.sections = append(spec.sections, section)
	}
	return spec.render()
}
