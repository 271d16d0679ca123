package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/azteclab/trueblue-cli/internal/dryrun"
	"github.com/azteclab/trueblue-cli/internal/templates"
)

// templatesStore opens the local template file, honoring the
// TRUEBLUE_TEMPLATES_FILE override.
func templatesStore() (*templates.Store, error) {
	if path := strings.TrimSpace(os.Getenv("TRUEBLUE_TEMPLATES_FILE")); path != "" {
		return templates.Open(path), nil
	}
	path, err := templates.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("resolving templates path: %w", err)
	}
	return templates.Open(path), nil
}

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"tpl"},
		Short:   "Manage canned reply templates",
		Long: strings.TrimSpace(`
Templates are stored locally and referenced by title or id. A template
message may contain {name}, which renders as your display name when the
template is used with reply --template.
`),
	}

	cmd.AddCommand(newTemplatesListCmd())
	cmd.AddCommand(newTemplatesShowCmd())
	cmd.AddCommand(newTemplatesAddCmd())
	cmd.AddCommand(newTemplatesRemoveCmd())
	return cmd
}

func newTemplatesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List reply templates",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			s, err := templatesStore()
			if err != nil {
				return err
			}
			all, err := s.List()
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, all)
			}

			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintln(w, "TITLE\tMESSAGE")
			for _, t := range all {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", t.Title, truncate(t.Message, 60))
			}
			return w.Flush()
		}),
	}
}

func newTemplatesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <title-or-id>",
		Short: "Show a template's full message",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			s, err := templatesStore()
			if err != nil {
				return err
			}
			tmpl, err := s.Get(args[0])
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, tmpl)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", tmpl.Title, tmpl.Message)
			return nil
		}),
	}
}

func newTemplatesAddCmd() *cobra.Command {
	var content string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a reply template",
		Example: strings.TrimSpace(`
  tb templates add "Refund ack" --content "Hi, I'm {name}. Your refund is on its way."
`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if content == "" {
				return fmt.Errorf("--content is required")
			}

			if previewIfDryRun(cmd, "add", "template "+args[0],
				dryrun.Detail{Key: "message", Value: truncate(content, 60)}) {
				return nil
			}

			s, err := templatesStore()
			if err != nil {
				return err
			}
			tmpl, err := s.Add(args[0], content)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, tmpl)
			}
			printAction(cmd, "Added", "template", nil, tmpl.Title)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&content, "content", "c", "", "Template message (required)")
	flagAlias(cmd.Flags(), "content", "msg")

	return cmd
}

func newTemplatesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <title-or-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a reply template",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if previewIfDryRun(cmd, "remove", "template "+args[0]) {
				return nil
			}

			s, err := templatesStore()
			if err != nil {
				return err
			}
			tmpl, err := s.Remove(args[0])
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, tmpl)
			}
			printAction(cmd, "Removed", "template", nil, tmpl.Title)
			return nil
		}),
	}
}
