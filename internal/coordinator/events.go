package coordinator

import (
	"feedcurator/internal/feed"
	"feedcurator/internal/sanitize"
)

type event interface {
	isEvent()
}

type triggerEvent struct {
	items []feed.CandidateItem
}

type leaveEvent struct{}

type debounceEvent struct {
	ticket Ticket
}

type resultEvent struct {
	ticket Ticket
	cycle  *cycle
	result sanitize.Result
	err    error
}

type snapshotEvent struct {
	reply chan Snapshot
}

func (triggerEvent) isEvent()  {}
func (leaveEvent) isEvent()    {}
func (debounceEvent) isEvent() {}
func (resultEvent) isEvent()   {}
func (snapshotEvent) isEvent() {}
