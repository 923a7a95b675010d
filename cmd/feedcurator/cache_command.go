package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"feedcurator/internal/logging"
	"feedcurator/internal/resultstore"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the persisted result store",
	}
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func withStore(ctx *commandContext, fn func(*resultstore.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := resultstore.Open(cfg)
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

type cacheRecordView struct {
	Fingerprint string    `json:"fingerprint"`
	Items       int       `json:"items"`
	Groups      int       `json:"groups"`
	Source      string    `json:"source"`
	Model       string    `json:"model,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Hits        int       `json:"hits"`
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted groupings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *resultstore.Store) error {
				records, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				views := make([]cacheRecordView, 0, len(records))
				for _, rec := range records {
					views = append(views, cacheRecordView{
						Fingerprint: rec.Fingerprint,
						Items:       rec.ItemCount,
						Groups:      len(rec.Groups),
						Source:      rec.Source,
						Model:       rec.Model,
						CreatedAt:   rec.CreatedAt,
						Hits:        rec.Hits,
					})
				}
				if jsonOut {
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "Result store is empty")
					return nil
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{
						logging.ShortFingerprint(v.Fingerprint),
						strconv.Itoa(v.Items),
						strconv.Itoa(v.Groups),
						v.Source,
						v.Model,
						v.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						strconv.Itoa(v.Hits),
					})
				}
				fmt.Fprintln(out, tableSpec{
					title:    fmt.Sprintf("Result store (%d shown)", len(views)),
					headers:  []string{"Fingerprint", "Items", "Groups", "Source", "Model", "Created", "Hits"},
					aligns:   []columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignRight},
					sections: [][][]string{rows},
				}.render())
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum records to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete persisted groupings older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			age := cfg.StoreRetention()
			if cmd.Flags().Changed("older-than") {
				age = olderThan
			}
			if age <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return withStore(ctx, func(store *resultstore.Store) error {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-age))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d record(s) older than %s\n", removed, age)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Age cutoff, overriding server.store_retention_hours")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every persisted grouping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := resultstore.Open(cfg)
			if errors.Is(err, resultstore.ErrSchemaMismatch) {
				path := cfg.ResultStorePath()
				for _, suffix := range []string{"", "-wal", "-shm"} {
					if rmErr := os.Remove(path + suffix); rmErr != nil && !os.IsNotExist(rmErr) {
						return fmt.Errorf("remove outdated result store: %w", rmErr)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed outdated result store at %s\n", path)
				return nil
			}
			if err != nil {
				return fmt.Errorf("open result store: %w", err)
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d record(s)\n", removed)
			return nil
		},
	}
}
