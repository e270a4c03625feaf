package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediasieve/internal/probestore"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the persistent ffprobe result store",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

// withStore opens the probe store directly; cache commands do not need ffprobe.
func withStore(ctx *commandContext, fn func(*probestore.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.ProbeStore.Enabled {
		return errors.New("probe store is disabled (set probe_store.enabled = true)")
	}
	store, err := probestore.Open(cfg.ProbeStore.Path, cfg.ProbeStore.MaxEntries)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show probe store usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *probestore.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Path:     %s\n", stats.Path)
				limit := "unbounded"
				if stats.MaxEntries > 0 {
					limit = fmt.Sprintf("%d", stats.MaxEntries)
				}
				fmt.Fprintf(out, "Entries:  %d (limit %s)\n", stats.Entries, limit)
				fmt.Fprintf(out, "Payload:  %s\n", humanize.Bytes(uint64(stats.Bytes)))
				fmt.Fprintf(out, "Hits:     %d\n", stats.Hits)
				if !stats.Oldest.IsZero() {
					fmt.Fprintf(out, "Oldest:   %s\n", humanize.Time(stats.Oldest))
					fmt.Fprintf(out, "Newest:   %s\n", humanize.Time(stats.Newest))
				}
				return nil
			})
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop the oldest probe results beyond a limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *probestore.Store) error {
				limit := keep
				if limit <= 0 {
					cfg, _ := ctx.ensureConfig()
					limit = cfg.ProbeStore.MaxEntries
				}
				if limit <= 0 {
					return errors.New("no limit given; pass --keep or set probe_store.max_entries")
				}
				removed, err := store.Prune(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return reportRemoved(cmd, ctx, removed)
			})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "Entries to keep (default from config)")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored probe result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *probestore.Store) error {
				clearCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				removed, err := store.Clear(clearCtx)
				if err != nil {
					return err
				}
				return reportRemoved(cmd, ctx, removed)
			})
		},
	}
}

func reportRemoved(cmd *cobra.Command, ctx *commandContext, removed int64) error {
	if ctx.JSONMode() {
		return writeJSON(cmd, map[string]any{"removed": removed})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stored probe results\n", removed)
	return nil
}
