package sanitize

import (
	"strings"

	"feedcurator/internal/feed"
	"feedcurator/internal/services"
	"feedcurator/internal/services/llm"
)

// Status tags the outcome of decoding a response body.
type Status int

const (
	// StatusOK means the body was an object carrying a groups array.
	StatusOK Status = iota
	// StatusMalformed means the body could not be read as a grouping; the
	// groups are then a valid repair built from the allowed items alone.
	StatusMalformed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Result is the validated form of a reranking response.
type Result struct {
	Status Status
	Groups []feed.Group
	// Reason explains a Malformed status.
	Reason string
	// Dropped counts raw entries rejected as unknown, duplicate, or malformed.
	Dropped int
}

// OK reports whether the response had the expected shape.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Err returns a malformed-response error for Malformed results and nil otherwise.
func (r Result) Err() error {
	if r.Status == StatusOK {
		return nil
	}
	return services.Wrap(services.ErrMalformedResponse, "sanitize", "decode", r.Reason, nil)
}

// Sanitize filters rawGroups (the decoded value of a "groups" field) down to
// the allowed items. See the package documentation for the rules.
func Sanitize(rawGroups any, allowed []feed.CandidateItem) []feed.Group {
	groups, _ := sanitize(rawGroups, allowed)
	return groups
}

// Decode parses a response body and sanitizes its groups. Code fences and
// surrounding prose are tolerated.
func Decode(body []byte, allowed []feed.CandidateItem) Result {
	return DecodeString(string(body), allowed)
}

// DecodeString is Decode for bodies already held as text, such as model output.
func DecodeString(body string, allowed []feed.CandidateItem) Result {
	var payload any
	if err := llm.DecodeLLMJSON(body, &payload); err != nil {
		return malformed("body is not JSON: "+err.Error(), allowed)
	}
	object, ok := payload.(map[string]any)
	if !ok {
		return malformed("body is not a JSON object", allowed)
	}
	rawGroups, present := object["groups"]
	if !present {
		return malformed("body has no groups field", allowed)
	}
	if _, ok := rawGroups.([]any); !ok {
		return malformed("groups is not an array", allowed)
	}
	groups, dropped := sanitize(rawGroups, allowed)
	return Result{Status: StatusOK, Groups: groups, Dropped: dropped}
}

func malformed(reason string, allowed []feed.CandidateItem) Result {
	groups, _ := sanitize(nil, allowed)
	return Result{Status: StatusMalformed, Groups: groups, Reason: reason}
}

func sanitize(rawGroups any, allowed []feed.CandidateItem) ([]feed.Group, int) {
	allowedByURL := make(map[string]feed.CandidateItem, len(allowed))
	for _, item := range allowed {
		if _, exists := allowedByURL[item.URL]; !exists {
			allowedByURL[item.URL] = item
		}
	}

	assigned := make(map[string]struct{}, len(allowed))
	out := make([]feed.Group, 0)
	dropped := 0

	list, _ := rawGroups.([]any)
	for _, rawGroup := range list {
		group, ok := rawGroup.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		category := strings.TrimSpace(stringField(group, "category"))
		if category == "" {
			dropped++
			continue
		}
		rawVideos, _ := group["videos"].([]any)
		videos := make([]feed.CandidateItem, 0, len(rawVideos))
		for _, rawVideo := range rawVideos {
			video, ok := rawVideo.(map[string]any)
			if !ok {
				dropped++
				continue
			}
			// URLs are identity keys and must match an allowed item exactly.
			url := stringField(video, "url")
			base, known := allowedByURL[url]
			if url == "" || !known {
				dropped++
				continue
			}
			if _, taken := assigned[url]; taken {
				dropped++
				continue
			}
			assigned[url] = struct{}{}
			videos = append(videos, base)
		}
		if len(videos) == 0 {
			continue
		}
		out = append(out, feed.Group{
			Category: feed.TruncateCategory(category, feed.MaxCategoryLength),
			Videos:   videos,
		})
	}

	var remaining []feed.CandidateItem
	for _, item := range allowed {
		if _, taken := assigned[item.URL]; taken {
			continue
		}
		assigned[item.URL] = struct{}{}
		remaining = append(remaining, item)
	}
	if len(remaining) > 0 {
		out = append(out, feed.Group{Category: feed.OtherPicksCategory, Videos: remaining})
	}
	return out, dropped
}

func stringField(object map[string]any, key string) string {
	value, _ := object[key].(string)
	return value
}
