package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediasieve/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage the scratch directory",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingSweepCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scratch entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			area, err := staging.NewArea(cfg.Paths.ScratchDir)
			if err != nil {
				return err
			}
			entries, err := area.List()
			if err != nil {
				return fmt.Errorf("list scratch directory: %w", err)
			}

			var totalSize int64
			for _, e := range entries {
				totalSize += e.Size
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"scratch_dir":      area.Dir(),
					"entries":          jsonList(entries),
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No scratch entries found")
				return nil
			}
			fmt.Fprintf(out, "Scratch directory: %s\n\n", area.Dir())
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				age := time.Since(e.ModTime).Truncate(time.Second)
				rows = append(rows, []string{e.Name, formatDuration(age), humanize.Bytes(uint64(e.Size))})
			}
			fmt.Fprint(out, renderTable([]column{
				{header: "Name", width: pathColumnWidth},
				{header: "Age", align: alignRight},
				{header: "Size", align: alignRight},
			}, rows))
			fmt.Fprintf(out, "\nTotal: %d entries, %s\n", len(entries), humanize.Bytes(uint64(totalSize)))
			return nil
		},
	}
}

func newStagingSweepCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove abandoned scratch files",
		Long: `Remove scratch entries older than the configured age.

Sweeping is skipped while any transcode holds the scratch directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if maxAge <= 0 {
				maxAge = cfg.StaleAfter()
			}
			area, err := staging.NewArea(cfg.Paths.ScratchDir)
			if err != nil {
				return err
			}

			result, err := area.Sweep(cmd.Context(), maxAge, logger)
			if errors.Is(err, staging.ErrBusy) {
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"busy": true, "removed": 0, "errors": []string{}})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Scratch directory in use; sweep skipped")
				return nil
			}
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeSweepJSON(cmd, result)
			}
			return printSweepResult(cmd, result)
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Remove entries older than this (default from config)")
	return cmd
}

func printSweepResult(cmd *cobra.Command, result staging.SweepResult) error {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintln(out, "No stale scratch entries to remove")
		return nil
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "Removed %d scratch entries, %d errors\n", len(result.Removed), len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
		}
		return nil
	}
	fmt.Fprintf(out, "Removed %d scratch entries\n", len(result.Removed))
	return nil
}

func writeSweepJSON(cmd *cobra.Command, result staging.SweepResult) error {
	errs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
	}
	return writeJSON(cmd, map[string]any{
		"busy":    false,
		"removed": len(result.Removed),
		"errors":  errs,
	})
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
