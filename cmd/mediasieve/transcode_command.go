package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediasieve/internal/dispatch"
	"mediasieve/internal/preflight"
)

func newTranscodeCommand(ctx *commandContext) *cobra.Command {
	var jobPath string
	var simulate bool
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "transcode --job <file>",
		Short: "Run filter-gated ffmpeg jobs",
		Long: `Run the jobs described in a YAML job file.

Each YAML document is one job: an optional metadata filter, ffmpeg inputs and
outputs, and extra general arguments. A job whose inputs fail its filter is
skipped. Outputs are written to the scratch directory and moved into place
only after ffmpeg succeeds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(jobPath) == "" {
				return errors.New("--job is required")
			}
			jobs, err := dispatch.LoadJobs(jobPath)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !skipChecks {
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
					for _, f := range failed {
						fmt.Fprintf(cmd.ErrOrStderr(), "preflight %s: %s\n", f.Name, f.Detail)
					}
					return fmt.Errorf("preflight failed (%d checks)", len(failed))
				}
			}

			a, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			dispatcher, err := a.Dispatcher()
			if err != nil {
				return err
			}

			outcomes, runErr := dispatcher.RunAll(cmd.Context(), jobs, simulate, nil)
			if ctx.JSONMode() {
				if err := writeJSON(cmd, outcomes); err != nil {
					return err
				}
				return runErr
			}
			printOutcomes(cmd, outcomes)
			return runErr
		},
	}

	cmd.Flags().StringVarP(&jobPath, "job", "j", "", "YAML job file")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Validate and print the ffmpeg command without running it")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip preflight checks")
	return cmd
}

func printOutcomes(cmd *cobra.Command, outcomes []dispatch.Outcome) {
	out := cmd.OutOrStdout()
	for _, o := range outcomes {
		switch {
		case !o.Accepted && o.Rejected != "":
			fmt.Fprintf(out, "%s: skipped (%s rejected by filter)\n", o.Job, o.Rejected)
		case !o.Accepted:
			fmt.Fprintf(out, "%s: not run\n", o.Job)
		case o.Result.Simulated:
			fmt.Fprintf(out, "%s: simulated\n  %s\n", o.Job, strings.Join(o.Result.Args, " "))
		default:
			fmt.Fprintf(out, "%s: done in %s (%d frames)\n", o.Job, formatDuration(o.Result.Elapsed), o.Result.LastFrame)
			for _, staged := range o.Result.Outputs {
				fmt.Fprintf(out, "  -> %s\n", staged.FinalPath)
			}
		}
	}
}
