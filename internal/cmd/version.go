package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/azteclab/trueblue-cli/internal/update"
)

// version is set at build time via ldflags
var version = "dev"

func newVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print version information",
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if isJSON(cmd) && !check {
				return printJSON(cmd, map[string]any{"version": version})
			}
			if !isJSON(cmd) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "trueblue-cli version %s\n", version)
			}

			if !check {
				// Passive check: non-blocking, fails silently, prints to stderr.
				result := update.CheckForUpdate(cmd.Context(), version)
				if result != nil && result.UpdateAvailable {
					errOut := cmd.ErrOrStderr()
					_, _ = fmt.Fprintf(errOut, "\nUpdate available: %s -> %s\n", result.CurrentVersion, result.LatestVersion) //nolint:errcheck
					_, _ = fmt.Fprintf(errOut, "Download: %s\n", result.UpdateURL)                                            //nolint:errcheck
				}
				return nil
			}

			result := update.CheckForUpdate(cmd.Context(), version)
			if result == nil {
				if isJSON(cmd) {
					return printJSON(cmd, map[string]any{
						"version": version,
						"checked": false,
					})
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Update check unavailable (dev build or release lookup failed).")
				return nil
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"version":          result.CurrentVersion,
					"latest":           result.LatestVersion,
					"update_available": result.UpdateAvailable,
					"update_url":       result.UpdateURL,
					"checked":          true,
				})
			}
			if result.UpdateAvailable {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Update available: %s -> %s\n", result.CurrentVersion, result.LatestVersion)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Download: %s\n", result.UpdateURL)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Up to date (latest: %s).\n", result.LatestVersion)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check for a newer release")

	return cmd
}
