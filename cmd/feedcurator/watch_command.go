package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"feedcurator/internal/coordinator"
	"feedcurator/internal/logging"
	"feedcurator/internal/source"
)

const settlePollInterval = 50 * time.Millisecond

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var input string
	var endpoints []string
	var jsonOut bool
	var debounceFlag time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rerank candidate sets streamed as NDJSON",
		Long: "Read one candidate document per line (an array or {\"videos\": [...]}) and feed each\n" +
			"to the debounced coordinator, printing every grouping it renders. A line of\n" +
			"{\"event\":\"leave\"} discards pending work. The command exits after the input ends\n" +
			"and the last cycle settles.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			reader, closeFn, err := openInput(cmd, input)
			if err != nil {
				return err
			}
			defer closeFn()

			debounce := cfg.Debounce()
			if cmd.Flags().Changed("debounce") {
				debounce = debounceFlag
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			runCtx, cancel := context.WithCancel(sigCtx)
			defer cancel()

			renderer := newGroupRenderer(cmd, wantJSON(cmd, jsonOut))
			coord := newCoordinator(cfg, endpoints, renderer, logger, debounce)
			done := make(chan error, 1)
			go func() { done <- coord.Run(runCtx) }()

			watchLogger := logging.NewComponentLogger(logger, "watch")
			err = source.ReadStream(runCtx, reader, func(batch source.Batch) error {
				switch {
				case batch.Err != nil:
					logging.WarnWithContext(watchLogger, "skipping invalid candidate line", "watch_line_invalid",
						logging.Int("line", batch.Line),
						logging.Error(batch.Err),
						logging.Impact("line ignored"))
				case batch.Leave:
					coord.Leave()
				default:
					coord.Trigger(batch.Items)
				}
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				cancel()
				<-done
				return err
			}

			if err := waitSettled(runCtx, coord); err != nil && !errors.Is(err, context.Canceled) {
				cancel()
				<-done
				return err
			}
			cancel()
			return <-done
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "NDJSON input file, or '-' for stdin")
	cmd.Flags().StringSliceVar(&endpoints, "endpoint", nil, "Reranking endpoint URL, overriding rerank.endpoints (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print one JSON document per render")
	cmd.Flags().DurationVar(&debounceFlag, "debounce", 0, "Override rerank.debounce_ms")
	return cmd
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// waitSettled blocks until the coordinator has no pending debounce or
// in-flight dispatch.
func waitSettled(ctx context.Context, coord *coordinator.Coordinator) error {
	for {
		snap, err := coord.Snapshot(ctx)
		if err != nil {
			return err
		}
		if !snap.DebouncePending && snap.State != coordinator.StateDebouncing && snap.State != coordinator.StateDispatching {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settlePollInterval):
		}
	}
}
