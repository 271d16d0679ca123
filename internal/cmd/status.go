package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/azteclab/trueblue-cli/internal/dryrun"
	"github.com/azteclab/trueblue-cli/internal/inbox"
	"github.com/azteclab/trueblue-cli/internal/store"
	"github.com/azteclab/trueblue-cli/internal/validation"
)

// statusAction runs one controller state change per conversation ID and
// reports per-ID results, continuing past individual failures.
func statusAction(cmd *cobra.Command, args []string, verb, pastTense string, apply func(*inbox.Controller, *cobra.Command, string) (*store.Conversation, error)) error {
	for _, id := range args {
		if err := validation.ValidateID(id, "conversation ID"); err != nil {
			return err
		}
	}

	if dryrun.IsEnabled(cmd.Context()) {
		for _, id := range args {
			previewIfDryRun(cmd, verb, "conversation "+shortID(strings.TrimSpace(id)))
		}
		return nil
	}

	client, err := getClient()
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd)

	session, err := currentSession(ctx, client)
	if err != nil {
		return err
	}
	controller := newController(client, session)

	type outcome struct {
		ID           string              `json:"id"`
		Conversation *store.Conversation `json:"conversation,omitempty"`
		Error        string              `json:"error,omitempty"`
	}

	outcomes := make([]outcome, 0, len(args))
	var firstErr error
	for _, id := range args {
		conv, err := apply(controller, cmd, strings.TrimSpace(id))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			outcomes = append(outcomes, outcome{ID: id, Error: err.Error()})
			continue
		}
		outcomes = append(outcomes, outcome{ID: conv.ID, Conversation: conv})
	}

	if isJSON(cmd) {
		if err := printJSON(cmd, outcomes); err != nil {
			return err
		}
		return firstErr
	}

	for _, o := range outcomes {
		if o.Error != "" {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "failed to %s %s: %s\n", verb, o.ID, o.Error)
			continue
		}
		printAction(cmd, pastTense, "conversation", shortID(o.ID), string(o.Conversation.Status))
	}
	return firstErr
}

// newCloseCmd creates the close command
func newCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "close <conversation-id>...",
		Aliases: []string{"resolve"},
		Short:   "Close conversations",
		Example: strings.TrimSpace(`
  # Close one conversation
  tb close 7c9e6679

  # Close several at once
  tb close 7c9e6679 0b1f3c2a
`),
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			return statusAction(cmd, args, "close", "Closed", func(c *inbox.Controller, cmd *cobra.Command, id string) (*store.Conversation, error) {
				return c.Close(cmdContext(cmd), id)
			})
		}),
	}
}

// newReopenCmd creates the reopen command
func newReopenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <conversation-id>...",
		Short: "Reopen closed conversations",
		Long: strings.TrimSpace(`
Reopen closed conversations as active_human, assigned to you.
`),
		Example: strings.TrimSpace(`
  tb reopen 7c9e6679
`),
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			return statusAction(cmd, args, "reopen", "Reopened", func(c *inbox.Controller, cmd *cobra.Command, id string) (*store.Conversation, error) {
				return c.Reopen(cmdContext(cmd), id)
			})
		}),
	}
}

// newStatusCmd creates the status command
func newStatusCmd() *cobra.Command {
	var setStatus string

	cmd := &cobra.Command{
		Use:   "status <conversation-id>",
		Short: "Show or set a conversation's state",
		Long: strings.TrimSpace(`
Without --set, print the conversation's current state. With --set, move it
to the given state, carrying the state machine's assignment side effects:
active_ai re-assigns the assistant, reopening a closed conversation as
active_human assigns you, closing leaves assignment alone.
`),
		Example: strings.TrimSpace(`
  # Show current state
  tb status 7c9e6679

  # Hand the conversation to the assistant
  tb status 7c9e6679 --set active_ai
`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			conversationID := strings.TrimSpace(args[0])
			if err := validation.ValidateID(conversationID, "conversation ID"); err != nil {
				return err
			}

			client, err := getClient()
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)

			if setStatus == "" {
				conv, err := client.Conversations().Get(ctx, conversationID)
				if err != nil {
					return err
				}
				if isJSON(cmd) {
					return printJSON(cmd, conv)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Conversation %s\n", conv.ID)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", conv.Status)
				if conv.AssignedAgentID != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Agent: %s\n", conv.AssignedAgentID)
				}
				return nil
			}

			normalized, err := normalizeEnum("set", setStatus, conversationStatuses)
			if err != nil {
				return err
			}

			if previewIfDryRun(cmd, "move", "conversation "+shortID(conversationID),
				dryrun.Detail{Key: "status", Value: normalized}) {
				return nil
			}

			session, err := currentSession(ctx, client)
			if err != nil {
				return err
			}
			controller := newController(client, session)

			conv, err := controller.SetStatus(ctx, conversationID, store.ConversationStatus(normalized))
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, conv)
			}
			printAction(cmd, "Updated", "conversation", shortID(conv.ID), string(conv.Status))
			return nil
		}),
	}

	cmd.Flags().StringVar(&setStatus, "set", "", "Target state (active_ai|pending_human|active_human|closed)")
	flagAlias(cmd.Flags(), "set", "s")

	return cmd
}
