package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/azteclab/trueblue-cli/internal/envfile"
)

// newEnvCmd creates the env command
func newEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env [local|staging|production]",
		Short: "Write .env for an environment",
		Long: strings.TrimSpace(`
Write a flat KEY=VALUE .env file from env-templates/env.<environment>.template
in the current directory. Without an argument the environment is inferred
from the current git branch: main selects production, staging selects
staging, anything else selects local.
`),
		Example: strings.TrimSpace(`
  # Infer from the current branch
  tb env

  # Explicit environment
  tb env staging
`),
		Args: cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}

			var env string
			if len(args) == 1 {
				env = strings.ToLower(strings.TrimSpace(args[0]))
				if err := envfile.ValidateEnvironment(env); err != nil {
					return err
				}
			} else {
				env = envfile.DetectEnvironment(root)
				printIfNotQuiet(cmd, "Environment %s (from git branch)\n", env)
			}

			result, err := envfile.Setup(root, env)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				keys := make([]string, 0, len(result.Entries))
				for _, e := range result.Entries {
					keys = append(keys, e.Key)
				}
				return printJSON(cmd, map[string]any{
					"environment": result.Environment,
					"template":    result.TemplatePath,
					"target":      result.TargetPath,
					"keys":        keys,
				})
			}

			printAction(cmd, "Wrote", result.TargetPath, nil, result.Environment)
			printIfNotQuiet(cmd, "  %d variables from %s\n", len(result.Entries), result.TemplatePath)
			return nil
		}),
	}

	return cmd
}
