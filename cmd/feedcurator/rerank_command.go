package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"feedcurator/internal/config"
	"feedcurator/internal/coordinator"
	"feedcurator/internal/dispatch"
	"feedcurator/internal/feed"
	"feedcurator/internal/logging"
	"feedcurator/internal/rescache"
	"feedcurator/internal/source"
)

func newRerankCommand(ctx *commandContext) *cobra.Command {
	var feeds []string
	var endpoints []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "rerank [file|-]",
		Short: "Group a candidate list through the reranking service",
		Long: "Read candidate videos from a JSON file (or stdin with '-') or from RSS/Atom feeds,\n" +
			"send them to the first reachable reranking endpoint, and print the grouped result.\n" +
			"When no endpoint answers, the original order is shown instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			items, err := loadCandidates(cmd, args, feeds, logger)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				return errors.New("no candidate videos found")
			}

			renderer := newGroupRenderer(cmd, wantJSON(cmd, jsonOut))
			coord := newCoordinator(cfg, endpoints, renderer, logger, 0)

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- coord.Run(runCtx) }()

			coord.Trigger(items)
			select {
			case <-renderer.rendered:
			case <-runCtx.Done():
				return runCtx.Err()
			}
			cancel()
			return <-done
		},
	}

	cmd.Flags().StringSliceVar(&feeds, "feed", nil, "RSS/Atom feed URL to read candidates from (repeatable)")
	cmd.Flags().StringSliceVar(&endpoints, "endpoint", nil, "Reranking endpoint URL, overriding rerank.endpoints (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}

// newCoordinator wires a dispatcher and result cache from cfg. A nil
// endpoints override uses the configured list.
func newCoordinator(cfg *config.Config, endpoints []string, renderer coordinator.Renderer, logger *slog.Logger, debounce time.Duration) *coordinator.Coordinator {
	if len(endpoints) == 0 {
		endpoints = cfg.Rerank.Endpoints
	}
	dispatcher := dispatch.New(endpoints,
		dispatch.WithTimeout(cfg.RequestTimeout()),
		dispatch.WithMaxItems(cfg.Rerank.MaxItems),
		dispatch.WithLogger(logger),
	)
	cache := rescache.New(rescache.Options{
		Capacity: cfg.Rerank.Capacity,
		TTL:      cfg.CacheTTL(),
		Logger:   logger,
	})
	return coordinator.New(dispatcher, renderer,
		coordinator.WithDebounce(debounce),
		coordinator.WithMaxItems(cfg.Rerank.MaxItems),
		coordinator.WithCache(cache),
		coordinator.WithLogger(logger),
	)
}

func loadCandidates(cmd *cobra.Command, args []string, feeds []string, logger *slog.Logger) ([]feed.CandidateItem, error) {
	var items []feed.CandidateItem
	if len(args) > 0 {
		path := strings.TrimSpace(args[0])
		var (
			fileItems []feed.CandidateItem
			err       error
		)
		if path == "-" {
			fileItems, err = source.ReadReader(cmd.InOrStdin())
		} else {
			fileItems, err = source.ReadFile(path)
		}
		if err != nil {
			return nil, err
		}
		items = append(items, fileItems...)
	}

	if len(feeds) > 0 {
		reader := source.NewFeedReader(&http.Client{Timeout: 30 * time.Second})
		feedItems, errs := reader.FetchAll(cmd.Context(), feeds)
		for _, err := range errs {
			logging.WarnWithContext(logger, "feed fetch failed", "feed_fetch_failed",
				logging.Error(err),
				logging.Impact("candidates from this feed are skipped"))
		}
		if len(feedItems) == 0 && len(errs) > 0 {
			return nil, fmt.Errorf("read feeds: %w", errors.Join(errs...))
		}
		items = append(items, feedItems...)
	}

	if len(args) == 0 && len(feeds) == 0 {
		return nil, errors.New("provide a candidate file, '-' for stdin, or --feed")
	}
	return feed.Normalize(items), nil
}
