package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mediasieve/internal/config"
	"mediasieve/internal/media/ffprobe"
	"mediasieve/internal/media/metadata"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "probe <file>...",
		Short: "Show container and stream metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp()
			if err != nil {
				return err
			}

			summaries := make([]map[string]any, 0, len(args))
			for _, arg := range args {
				path, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				meta, err := a.collector.Get(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("probe %s: %w", path, err)
				}
				if raw {
					summaries = append(summaries, meta.Info())
					continue
				}
				if ctx.JSONMode() {
					summaries = append(summaries, meta.Summary())
					continue
				}
				printProbeSummary(cmd, meta)
			}
			if raw || ctx.JSONMode() {
				if len(summaries) == 1 {
					return writeJSON(cmd, summaries[0])
				}
				return writeJSON(cmd, summaries)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the full ffprobe document")
	return cmd
}

func printProbeSummary(cmd *cobra.Command, meta *metadata.Result) {
	out := cmd.OutOrStdout()
	format := meta.Format()
	fmt.Fprintf(out, "%s\n", meta.Filename())
	fmt.Fprintf(out, "  Format:   %s\n", valueOr(ffprobe.String(format, "format_long_name"), ffprobe.String(format, "format_name")))
	if duration := ffprobe.String(format, "duration"); duration != "" {
		fmt.Fprintf(out, "  Duration: %ss\n", duration)
	}

	title := cases.Title(language.English)
	rows := make([][]string, 0)
	for _, kind := range metadata.Kinds {
		for n, stream := range meta.Streams(kind) {
			rows = append(rows, []string{
				title.String(string(kind)),
				strconv.Itoa(n),
				ffprobe.String(stream, "codec_name"),
				streamDetail(kind, stream),
			})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "  No video or audio streams")
		return
	}
	fmt.Fprintln(out, renderTable([]column{
		{header: "Type"},
		{header: "#", align: alignRight},
		{header: "Codec"},
		{header: "Details"},
	}, rows))
}

func streamDetail(kind metadata.Kind, stream map[string]any) string {
	var parts []string
	switch kind {
	case metadata.Video:
		width, wok := ffprobe.Int(stream, "width")
		height, hok := ffprobe.Int(stream, "height")
		if wok && hok {
			parts = append(parts, fmt.Sprintf("%dx%d", width, height))
		}
		if rate := ffprobe.String(stream, "avg_frame_rate"); rate != "" && rate != "0/0" {
			parts = append(parts, rate+" fps")
		}
		if order := ffprobe.String(stream, "field_order"); order != "" {
			parts = append(parts, order)
		}
	case metadata.Audio:
		if channels, ok := ffprobe.Int(stream, "channels"); ok {
			parts = append(parts, fmt.Sprintf("%d ch", channels))
		}
		if rate := ffprobe.String(stream, "sample_rate"); rate != "" {
			parts = append(parts, rate+" Hz")
		}
	}
	if tags, ok := stream["tags"].(map[string]any); ok {
		if lang := ffprobe.String(tags, "language"); lang != "" {
			parts = append(parts, lang)
		}
	}
	return strings.Join(parts, ", ")
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
