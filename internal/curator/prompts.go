package curator

import (
	"fmt"
	"strings"

	"feedcurator/internal/feed"
	"feedcurator/internal/services/llm"
)

// SystemPrompt constrains the model to JSON groupings of the supplied videos.
const SystemPrompt = "You are a JSON-only assistant that groups YouTube recommendations by learning-focused themes. " +
	`You must respond with valid JSON that matches exactly this schema: {"groups":[{"category":string,"videos":[{"title":string,"url":string}]}]}. ` +
	"After any internal reasoning, the message content must contain only that JSON object and must never be empty. " +
	"Never include markdown, explanations, code fences, or extra fields. " +
	"Only reference the videos provided to you; never invent new URLs or titles. " +
	"Favor tutorials, explainers, long-form breakdowns, courses, research recaps, and other learning-focused content."

// UserInstructions precedes the numbered video list in the user message.
const UserInstructions = "Group every provided video into learning-focused categories using these rules:\n" +
	"1. Choose clear category labels (e.g., 'Programming Deep Dives', 'Mindset & Strategy', 'Quick Inspiration').\n" +
	"2. Prefer grouping tutorials, walkthroughs, explainers, courses, and research recaps together.\n" +
	"3. Deprioritize shorts, drama, gossip, or clickbait by placing them in lower-value categories near the end.\n" +
	"4. Include every video exactly once in some group. If a video does not fit any high-value group, place it in a catch-all 'Other' style section.\n" +
	"Limit yourself to at most six categories, each containing at most ten videos. " +
	"Return the grouped structure strictly as JSON following the required schema."

// GroupSchema is the json_schema response format sent with every request.
var GroupSchema = llm.Schema{
	Name: "grouped_video_feed",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"groups": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 6,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"category": map[string]any{"type": "string"},
						"videos": map[string]any{
							"type":     "array",
							"minItems": 1,
							"maxItems": 10,
							"items": map[string]any{
								"type":                 "object",
								"additionalProperties": false,
								"properties": map[string]any{
									"title": map[string]any{"type": "string"},
									"url":   map[string]any{"type": "string", "pattern": "^https?://"},
								},
								"required": []string{"title", "url"},
							},
						},
					},
					"required": []string{"category", "videos"},
				},
			},
		},
		"required":             []string{"groups"},
		"additionalProperties": false,
	},
}

// FormatVideoList renders videos as a 1-based numbered list for the prompt.
func FormatVideoList(videos []feed.CandidateItem) string {
	lines := make([]string, 0, len(videos))
	for _, video := range videos {
		channel := video.Channel
		if channel == "" {
			channel = "Unknown channel"
		}
		lines = append(lines, fmt.Sprintf("%d. Title: %s | Channel: %s | URL: %s", video.Position+1, video.Title, channel, video.URL))
	}
	return strings.Join(lines, "\n")
}

// UserPrompt assembles the full user message for videos.
func UserPrompt(videos []feed.CandidateItem) string {
	return UserInstructions + "\n\nVideos:\n" + FormatVideoList(videos)
}
