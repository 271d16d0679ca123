package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/azteclab/trueblue-cli/internal/dryrun"
	"github.com/azteclab/trueblue-cli/internal/inbox"
	"github.com/azteclab/trueblue-cli/internal/store"
	"github.com/azteclab/trueblue-cli/internal/templates"
	"github.com/azteclab/trueblue-cli/internal/validation"
)

// newReplyCmd creates the reply command
func newReplyCmd() *cobra.Command {
	var (
		content     string
		templateRef string
		closeConv   bool
	)

	cmd := &cobra.Command{
		Use:     "reply <conversation-id>",
		Aliases: []string{"respond", "r"},
		Short:   "Send an agent reply to a conversation",
		Long: strings.TrimSpace(`
Store a reply in the conversation and push it out on the originating
channel. The conversation moves to active_human; an unassigned
conversation is claimed for you in the same write.

Channel delivery is best-effort: if the relay fails, the reply is still
stored and a warning is printed.
`),
		Example: strings.TrimSpace(`
  # Reply to a conversation
  tb reply 7c9e6679 --content "On it, give me a minute"

  # Reply and close in one go
  tb reply 7c9e6679 --content "Done, closing this out" --close

  # Reply with a canned template
  tb reply 7c9e6679 --template "Personal greeting"
`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if content == "" && templateRef == "" {
				return fmt.Errorf("--content or --template is required")
			}
			if content != "" && templateRef != "" {
				return fmt.Errorf("--content and --template are mutually exclusive")
			}

			var tmpl *templates.Template
			if templateRef != "" {
				s, err := templatesStore()
				if err != nil {
					return err
				}
				tmpl, err = s.Get(templateRef)
				if err != nil {
					return err
				}
			} else if err := validation.ValidateMessageContent(content); err != nil {
				return err
			}

			conversationID := strings.TrimSpace(args[0])
			if err := validation.ValidateID(conversationID, "conversation ID"); err != nil {
				return err
			}

			var details []dryrun.Detail
			if tmpl != nil {
				details = append(details, dryrun.Detail{Key: "template", Value: tmpl.Title})
			} else {
				details = append(details, dryrun.Detail{Key: "content", Value: truncate(content, 60)})
			}
			if closeConv {
				details = append(details, dryrun.Detail{Key: "then", Value: "close the conversation"})
			}
			if previewIfDryRun(cmd, "reply to", "conversation "+shortID(conversationID), details...) {
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

			if tmpl != nil {
				content = templates.Render(tmpl.Message, session.Viewer.Name)
				if err := validation.ValidateMessageContent(content); err != nil {
					return err
				}
			}

			controller := newController(client, session)
			result, err := controller.SendReply(ctx, conversationID, content)
			if err != nil {
				return err
			}

			if result.DeliveryWarning != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: reply stored but channel delivery failed: %v\n", result.DeliveryWarning)
			}

			closed := false
			if closeConv {
				conv, err := controller.Close(ctx, result.Conversation.ID)
				if err != nil {
					return fmt.Errorf("reply sent (message %s) but failed to close conversation: %w", result.Message.ID, err)
				}
				result.Conversation = *conv
				closed = true
			}

			if isJSON(cmd) {
				payload := map[string]any{
					"action":       "replied",
					"message":      result.Message,
					"conversation": result.Conversation,
					"closed":       closed,
				}
				if result.DeliveryWarning != nil {
					payload["delivery_warning"] = result.DeliveryWarning.Error()
				}
				return printJSON(cmd, payload)
			}

			printAction(cmd, "Sent", "reply", shortID(result.Message.ID), "")
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Conversation: %s\n", result.Conversation.ID)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", result.Conversation.Status)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&content, "content", "c", "", "Reply content")
	cmd.Flags().StringVarP(&templateRef, "template", "t", "", "Reply with a stored template (title or id)")
	cmd.Flags().BoolVar(&closeConv, "close", false, "Close the conversation after replying")
	flagAlias(cmd.Flags(), "content", "msg")
	flagAlias(cmd.Flags(), "template", "tpl")
	flagAlias(cmd.Flags(), "close", "cl")

	return cmd
}

// newController wires a one-shot controller over the store and relay.
func newController(client *store.Client, session inbox.Session) *inbox.Controller {
	return inbox.NewController(client, relayClient(client), nil, session)
}
