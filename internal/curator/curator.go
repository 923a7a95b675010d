// Package curator groups candidate videos with a chat completion model on
// behalf of the reranking service.
//
// The model output is untrusted and always passes through the sanitizer.
// When no API key is configured, or the model fails in any way, the videos
// are returned as a single "All videos" group in their original order.
package curator

import (
	"context"
	"errors"
	"log/slog"

	"feedcurator/internal/feed"
	"feedcurator/internal/logging"
	"feedcurator/internal/sanitize"
	"feedcurator/internal/services"
	"feedcurator/internal/services/llm"
)

// Completer is the subset of the LLM client the curator needs.
type Completer interface {
	Configured() bool
	CompleteSchema(ctx context.Context, systemPrompt, userPrompt string, schema llm.Schema) (string, error)
}

// Source tells where a grouping came from.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Outcome is the result of one curation.
type Outcome struct {
	Groups  []feed.Group
	Source  Source
	Dropped int
	Err     error
}

// Curator builds prompts, calls the model, and sanitizes its answer.
type Curator struct {
	client Completer
	logger *slog.Logger
}

// New constructs a curator.
func New(client Completer, logger *slog.Logger) *Curator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Curator{client: client, logger: logging.NewComponentLogger(logger, "curator")}
}

// Curate groups videos. It never fails; errors are reported on the Outcome
// and the videos fall back to their original order.
func (c *Curator) Curate(ctx context.Context, videos []feed.CandidateItem) Outcome {
	if len(videos) == 0 {
		return Outcome{Groups: []feed.Group{}, Source: SourceModel}
	}
	logger := logging.WithContext(ctx, c.logger)

	if c.client == nil || !c.client.Configured() {
		err := services.Wrap(services.ErrConfiguration, "curator", "curate", "llm api key is not set", nil)
		logging.WarnWithContext(logger, "llm not configured", "curator_unconfigured",
			logging.Hint("set GROQ_API_KEY or llm.api_key"),
			logging.Impact("returning the original order"))
		return fallback(videos, err)
	}

	content, err := c.client.CompleteSchema(ctx, SystemPrompt, UserPrompt(videos), GroupSchema)
	if err != nil {
		kind := services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			kind = services.ErrTimeout
		}
		wrapped := services.Wrap(kind, "curator", "complete", "llm request failed", err)
		logging.ErrorWithContext(logger, "llm request failed", "curator_llm_failed",
			logging.Error(err),
			logging.Hint("check llm.base_url, llm.model, and the API key"))
		return fallback(videos, wrapped)
	}

	result := sanitize.DecodeString(content, videos)
	if !result.OK() {
		logging.ErrorWithContext(logger, "llm response unusable", "curator_llm_malformed",
			logging.String("reason", result.Reason),
			logging.Hint("the model ignored the response schema; try another model"))
		return fallback(videos, result.Err())
	}

	logger.Info("curated videos",
		logging.ItemCount(len(videos)),
		logging.Int("groups", len(result.Groups)),
		logging.Int("dropped", result.Dropped))
	return Outcome{Groups: result.Groups, Source: SourceModel, Dropped: result.Dropped}
}

func fallback(videos []feed.CandidateItem, err error) Outcome {
	return Outcome{Groups: feed.AllVideos(videos), Source: SourceFallback, Err: err}
}

// Model names the model behind the client, or "" when it cannot say.
func (c *Curator) Model() string {
	if named, ok := c.client.(interface{ Model() string }); ok {
		return named.Model()
	}
	return ""
}
