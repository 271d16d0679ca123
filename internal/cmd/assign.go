package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/azteclab/trueblue-cli/internal/dryrun"
	"github.com/azteclab/trueblue-cli/internal/resolve"
	"github.com/azteclab/trueblue-cli/internal/store"
	"github.com/azteclab/trueblue-cli/internal/validation"
)

// newClaimCmd creates the claim command
func newClaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim <conversation-id>",
		Short: "Claim a conversation for yourself",
		Long: strings.TrimSpace(`
Take over a conversation: it is assigned to you and moves to active_human.
Typically used on conversations in pending_human.
`),
		Example: strings.TrimSpace(`
  tb claim 7c9e6679
`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			conversationID := strings.TrimSpace(args[0])
			if err := validation.ValidateID(conversationID, "conversation ID"); err != nil {
				return err
			}

			if previewIfDryRun(cmd, "claim", "conversation "+shortID(conversationID),
				dryrun.Detail{Key: "status", Value: string(store.StatusActiveHuman)}) {
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

			conv, err := controller.Claim(ctx, conversationID)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, conv)
			}
			printAction(cmd, "Claimed", "conversation", shortID(conv.ID), "")
			return nil
		}),
	}
}

// newAssignCmd creates the assign command
func newAssignCmd() *cobra.Command {
	var agent string

	cmd := &cobra.Command{
		Use:   "assign <conversation-id>",
		Short: "Assign a conversation to an agent",
		Long: strings.TrimSpace(`
Assign a conversation to an agent by ID or name. Names are matched
fuzzily against active profiles; an ambiguous name lists the candidates.
Assigning the assistant profile moves the conversation to active_ai,
assigning a human moves it to active_human.
`),
		Example: strings.TrimSpace(`
  # Assign by agent ID
  tb assign 7c9e6679 --agent 0b1f3c2a

  # Assign by name (fuzzy matched)
  tb assign 7c9e6679 --agent "marisol"
`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if agent == "" {
				return fmt.Errorf("--agent is required")
			}
			conversationID := strings.TrimSpace(args[0])
			if err := validation.ValidateID(conversationID, "conversation ID"); err != nil {
				return err
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

			agentID, err := resolveAgent(ctx, client, agent)
			if err != nil {
				return err
			}

			if previewIfDryRun(cmd, "assign", "conversation "+shortID(conversationID),
				dryrun.Detail{Key: "agent", Value: agentID}) {
				return nil
			}

			controller := newController(client, session)
			conv, err := controller.AssignAgent(ctx, conversationID, agentID)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, conv)
			}
			printAction(cmd, "Assigned", "conversation", shortID(conv.ID), fmt.Sprintf("agent %s", shortID(agentID)))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&agent, "agent", "a", "", "Agent ID or name (required)")
	flagAlias(cmd.Flags(), "agent", "ag")

	return cmd
}

// newHandoffCmd creates the handoff command
func newHandoffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handoff <conversation-id>",
		Short: "Hand a conversation back to the AI assistant",
		Long: strings.TrimSpace(`
Return a conversation to the assistant: it is re-assigned to the assistant
profile and moves back to active_ai.
`),
		Example: strings.TrimSpace(`
  tb handoff 7c9e6679
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

			session, err := currentSession(ctx, client)
			if err != nil {
				return err
			}
			if session.AssistantID == "" {
				return fmt.Errorf("no assistant profile configured (set TRUEBLUE_ASSISTANT_ID or log in with --assistant-id)")
			}

			if previewIfDryRun(cmd, "hand off", "conversation "+shortID(conversationID),
				dryrun.Detail{Key: "assistant", Value: session.AssistantID},
				dryrun.Detail{Key: "status", Value: string(store.StatusActiveAI)}) {
				return nil
			}

			controller := newController(client, session)

			conv, err := controller.Handoff(ctx, conversationID)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, conv)
			}
			printAction(cmd, "Handed off", "conversation", shortID(conv.ID), "assistant")
			return nil
		}),
	}
}

// resolveAgent turns an agent reference (exact ID or fuzzy name) into a
// profile ID. Only active profiles are candidates.
func resolveAgent(ctx context.Context, client *store.Client, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("agent reference is required")
	}

	profiles, err := cachedProfiles(ctx, client)
	if err != nil {
		return "", err
	}

	var candidates []resolve.Named
	for _, p := range profiles {
		if p.ID == ref {
			return p.ID, nil
		}
		if p.Status != store.ProfileActive {
			continue
		}
		name := p.Name
		if name == "" {
			name = p.Email
		}
		candidates = append(candidates, resolve.Named{ID: p.ID, Name: name})
	}

	id, err := resolve.FuzzyMatch(ref, candidates)
	if err != nil {
		return "", fmt.Errorf("agent %q: %w", ref, err)
	}
	return id, nil
}
