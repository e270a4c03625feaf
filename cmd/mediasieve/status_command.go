package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediasieve/internal/config"
	"mediasieve/internal/deps"
	"mediasieve/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show dependency and environment health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			binaries := preflight.CheckSystemDeps(cfg)
			checks := preflight.RunAll(cmd.Context(), cfg)
			versions := make(map[string]preflight.VersionProbe, len(binaries))
			for _, status := range binaries {
				if status.Available {
					versions[status.Name] = preflight.ProbeVersion(cmd.Context(), status.Command)
				}
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, statusJSON(binaries, versions, checks))
			}

			colorize := shouldColorize(cmd.OutOrStdout())
			lines := renderSectionHeader("Dependencies", colorize)
			lines = append(lines, dependencyLines(binaries, versions, colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Environment", colorize)...)
			lines = append(lines, checkLines(checks, colorize)...)
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
			return nil
		},
	}
}

func dependencyLines(statuses []deps.Status, versions map[string]preflight.VersionProbe, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, s := range statuses {
		switch {
		case s.Available:
			detail := s.Command
			if v, ok := versions[s.Name]; ok && v.Detected {
				detail = v.Detail()
			}
			lines = append(lines, renderStatusLine(s.Name, statusOK, detail, colorize))
		case s.Optional:
			lines = append(lines, renderStatusLine(s.Name, statusWarn, s.Detail, colorize))
		default:
			lines = append(lines, renderStatusLine(s.Name, statusError, s.Detail, colorize))
		}
	}
	return lines
}

// checkLines renders the non-binary preflight checks.
func checkLines(checks []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(checks))
	for _, c := range checks {
		if c.Name == "FFmpeg" || c.Name == "FFprobe" {
			continue
		}
		kind := statusOK
		switch {
		case !c.Passed:
			kind = statusError
		case c.Detail == "Disabled":
			kind = statusSkip
		}
		lines = append(lines, renderStatusLine(c.Name, kind, c.Detail, colorize))
	}
	return lines
}

func statusJSON(binaries []deps.Status, versions map[string]preflight.VersionProbe, checks []preflight.Result) map[string]any {
	depRows := make([]map[string]any, 0, len(binaries))
	for _, s := range binaries {
		row := map[string]any{
			"name":      s.Name,
			"command":   s.Command,
			"available": s.Available,
			"optional":  s.Optional,
			"detail":    s.Detail,
		}
		if v, ok := versions[s.Name]; ok && v.Detected {
			row["version"] = v.Version
		}
		depRows = append(depRows, row)
	}
	checkRows := make([]map[string]any, 0, len(checks))
	for _, c := range checks {
		checkRows = append(checkRows, map[string]any{"name": c.Name, "passed": c.Passed, "detail": c.Detail})
	}
	return map[string]any{
		"dependencies": depRows,
		"checks":       checkRows,
		"ready":        len(preflight.Failed(checks)) == 0,
	}
}

// configSummary lists the effective settings shown by config show.
func configSummary(cfg *config.Config) [][]string {
	store := "disabled"
	if cfg.ProbeStore.Enabled {
		store = cfg.ProbeStore.Path
	}
	return [][]string{
		{"Scratch directory", cfg.Paths.ScratchDir},
		{"Log directory", cfg.Paths.LogDir},
		{"ffmpeg", cfg.FFmpeg.Binary},
		{"ffprobe", deps.ResolveFFprobe(cfg.FFprobe.Binary, cfg.FFmpeg.Binary)},
		{"Probe timeout", cfg.ProbeTimeout().String()},
		{"Field mode intervals", cfg.FieldMode.ReadIntervals},
		{"Probe store", store},
		{"Stale after", cfg.StaleAfter().String()},
		{"Metrics textfile", valueOr(cfg.Metrics.TextfilePath, "disabled")},
	}
}
