package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediasieve/internal/config"
	"mediasieve/internal/media/filter"
)

func newFilterCommand(ctx *commandContext) *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "filter --rules <file> <input>...",
		Short: "Check inputs against a metadata filter",
		Long: `Evaluate a YAML metadata filter against each input.

The command exits non-zero when any input is rejected, so it can gate
shell pipelines.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(rulesPath) == "" {
				return errors.New("--rules is required")
			}
			params, err := filter.LoadFile(rulesPath)
			if err != nil {
				return err
			}
			a, err := ctx.ensureApp()
			if err != nil {
				return err
			}

			type filterRow struct {
				Input    string `json:"input"`
				Accepted bool   `json:"accepted"`
			}
			rows := make([]filterRow, 0, len(args))
			rejected := 0
			for _, arg := range args {
				path, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				ok, err := a.filter.Match(cmd.Context(), path, params)
				if err != nil {
					return fmt.Errorf("filter %s: %w", path, err)
				}
				if !ok {
					rejected++
				}
				rows = append(rows, filterRow{Input: path, Accepted: ok})
			}

			if ctx.JSONMode() {
				if err := writeJSON(cmd, rows); err != nil {
					return err
				}
			} else {
				table := make([][]string, 0, len(rows))
				for _, r := range rows {
					table = append(table, []string{r.Input, verdict(r.Accepted)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
					{header: "Input", width: pathColumnWidth},
					{header: "Result"},
				}, table))
			}
			if rejected > 0 {
				return fmt.Errorf("%w: %d of %d", errRejected, rejected, len(rows))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "YAML filter file")
	return cmd
}

func verdict(accepted bool) string {
	if accepted {
		return "accepted"
	}
	return "rejected"
}
