package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"mediasieve/internal/config"
	"mediasieve/internal/media/fieldmode"
	"mediasieve/internal/media/metadata"
)

func newFieldModeCommand(ctx *commandContext) *cobra.Command {
	var stream int

	cmd := &cobra.Command{
		Use:   "fieldmode <file>...",
		Short: "Classify the field order of a video stream by sampling frames",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp()
			if err != nil {
				return err
			}

			type fieldModeRow struct {
				Input  string `json:"input"`
				Stream int    `json:"stream"`
				Mode   string `json:"mode"`
				Code   int    `json:"code"`
			}
			results := make([]fieldModeRow, 0, len(args))
			for _, arg := range args {
				path, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				meta, err := a.collector.Get(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("probe %s: %w", path, err)
				}
				if _, ok := meta.Stream(metadata.Video, stream); !ok {
					return fmt.Errorf("%s: no video stream %d (found %d)", path, stream, meta.Count(metadata.Video))
				}
				mode, err := meta.FieldMode(cmd.Context(), stream)
				if err != nil {
					return fmt.Errorf("field mode %s: %w", path, err)
				}
				results = append(results, fieldModeRow{Input: path, Stream: stream, Mode: mode.String(), Code: int(mode)})
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, results)
			}
			colorize := shouldColorize(cmd.OutOrStdout())
			for _, r := range results {
				label := fmt.Sprintf("%s v:%d", filepath.Base(r.Input), r.Stream)
				kind := fieldModeStatus(fieldmode.Mode(r.Code))
				fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine(label, kind, r.Mode, colorize))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&stream, "stream", "s", 0, "Video stream ordinal to sample")
	return cmd
}
