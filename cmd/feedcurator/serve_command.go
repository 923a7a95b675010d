package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"feedcurator/internal/curator"
	"feedcurator/internal/logging"
	"feedcurator/internal/rerankd"
	"feedcurator/internal/resultstore"
	"feedcurator/internal/services/llm"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reranking HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another rerank service is already running (lock %s)", cfg.LockPath())
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					logger.Warn("failed to release service lock", logging.Error(err))
				}
			}()

			llmCfg := cfg.GetLLM()
			client := llm.NewClient(llm.Config{
				APIKey:         llmCfg.APIKey,
				BaseURL:        llmCfg.BaseURL,
				Model:          llmCfg.Model,
				Referer:        llmCfg.Referer,
				Title:          llmCfg.Title,
				Temperature:    llmCfg.Temperature,
				TimeoutSeconds: llmCfg.TimeoutSeconds,
			}, llm.WithRetryMaxAttempts(llmCfg.RetryAttempts+1))
			if !client.Configured() {
				logging.WarnWithContext(logger, "llm api key not set", "serve_llm_unconfigured",
					logging.Hint("set GROQ_API_KEY or llm.api_key"),
					logging.Impact("every request returns the original order"))
			}

			opts := []rerankd.Option{rerankd.WithLogger(logger)}
			if cfg.Server.StoreEnabled {
				store, err := resultstore.Open(cfg)
				if err != nil {
					return fmt.Errorf("open result store: %w", err)
				}
				defer store.Close()
				opts = append(opts, rerankd.WithStore(store))
			}

			server := rerankd.New(cfg, curator.New(client, logger), opts...)

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(sigCtx)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address, overriding server.bind")
	return cmd
}
