package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/azteclab/trueblue-cli/internal/dryrun"
	"github.com/azteclab/trueblue-cli/internal/relay"
	"github.com/azteclab/trueblue-cli/internal/store"
	"github.com/azteclab/trueblue-cli/internal/validation"
)

// newAgentsCmd returns the agents command with subcommands
func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "agents",
		Aliases: []string{"agent", "ag"},
		Short:   "Manage agent profiles",
	}

	cmd.AddCommand(newAgentsListCmd())
	cmd.AddCommand(newAgentsInviteCmd())
	cmd.AddCommand(newAgentsActivateCmd())
	cmd.AddCommand(newAgentsDeactivateCmd())
	cmd.AddCommand(newAgentsRemoveCmd())

	return cmd
}

// newAgentsListCmd creates the agents list command
func newAgentsListCmd() *cobra.Command {
	var pending bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List agent profiles",
		Example: strings.TrimSpace(`
  # All profiles
  tb agents list

  # Pending invitations alongside
  tb agents list --pending
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)

			profiles, err := client.Profiles().List(ctx)
			if err != nil {
				return err
			}

			var invitations []store.Invitation
			if pending {
				invitations, err = client.Invitations().ListPending(ctx)
				if err != nil {
					return err
				}
			}

			if isJSON(cmd) {
				payload := map[string]any{"profiles": profiles}
				if pending {
					payload["pending_invitations"] = invitations
				}
				return printJSON(cmd, payload)
			}

			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tSTATUS\tCREATED")
			for _, p := range profiles {
				name := p.Name
				if name == "" {
					name = "-"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					shortID(p.ID), name, p.Email, p.Role, p.Status, formatDate(p.CreatedAt))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if pending && len(invitations) > 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Pending invitations:")
				w := newTabWriterFromCmd(cmd)
				_, _ = fmt.Fprintln(w, "EMAIL\tROLE\tEXPIRES")
				for _, inv := range invitations {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", inv.Email, inv.Role, formatTimestampShort(inv.ExpiresAt))
				}
				return w.Flush()
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "Also list pending invitations")
	flagAlias(cmd.Flags(), "pending", "pd")

	return cmd
}

// newAgentsInviteCmd creates the agents invite command
func newAgentsInviteCmd() *cobra.Command {
	var (
		email   string
		name    string
		role    string
		reissue bool
	)

	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Invite a new agent by email",
		Long: strings.TrimSpace(`
Create a one-time invitation and a pending profile for an email address,
then request the invitation mail. Re-inviting an email with an unused
invitation reuses the existing token; pass --reissue to replace it with a
fresh one. An email that already accepted, or that already belongs to an
active agent, is a conflict.

Mail delivery failure does not roll anything back; the invitation stays
valid and the mail can be re-requested by running invite again.
`),
		Example: strings.TrimSpace(`
  tb agents invite --email ana@example.com --name "Ana Ruiz" --role agent
  tb agents invite --email lead@example.com --role admin
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if err := validation.ValidateEmail(email); err != nil {
				return err
			}
			if name != "" {
				if err := validation.ValidateName(name); err != nil {
					return err
				}
			}
			normalizedRole, err := normalizeEnum("role", role, []string{string(store.RoleAdmin), string(store.RoleAgent)})
			if err != nil {
				return err
			}

			if previewIfDryRun(cmd, "invite", "agent "+email,
				dryrun.Detail{Key: "role", Value: normalizedRole}) {
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
			if session.Viewer.Role != store.RoleAdmin {
				return &store.StoreError{Code: store.ErrForbidden, Message: "only admins can invite agents"}
			}

			if existing, err := client.Profiles().GetByEmail(ctx, email); err == nil {
				if existing.Status == store.ProfileActive {
					return &store.StoreError{Code: store.ErrConflict, Message: fmt.Sprintf("%s is already an active agent", existing.Email)}
				}
			} else if !store.IsNotFound(err) {
				return err
			}

			inv, reused, err := client.Invitations().Create(ctx, store.NewInvitation{
				Email:     email,
				Role:      store.Role(normalizedRole),
				InvitedBy: session.Viewer.ID,
				Reissue:   reissue,
			})
			if err != nil {
				return err
			}

			// The pending profile may already exist from a prior invite;
			// that conflict is fine, the row is already in place.
			if _, err := client.Profiles().CreatePending(ctx, store.NewProfile{
				Email: email,
				Name:  name,
				Role:  store.Role(normalizedRole),
			}); err != nil && !store.IsConflict(err) {
				return fmt.Errorf("invitation created but pending profile failed: %w", err)
			}

			outcome, mailErr := relayClient(client).SendInvite(ctx, relay.SendInvitation{
				Email:     inv.Email,
				Name:      name,
				Role:      string(inv.Role),
				InvitedBy: session.Viewer.Name,
				Token:     inv.Token,
			})

			if isJSON(cmd) {
				payload := map[string]any{
					"invitation":     inv,
					"already_exists": reused,
					"mail":           string(outcome),
				}
				if mailErr != nil {
					payload["mail_error"] = mailErr.Error()
				}
				return printJSON(cmd, payload)
			}

			switch {
			case reused && reissue:
				printAction(cmd, "Re-invited", "agent", nil, inv.Email)
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Invitation token reissued.")
			case reused:
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Invitation for %s already exists; reusing its token (pass --reissue for a fresh one).\n", inv.Email)
			default:
				printAction(cmd, "Invited", "agent", nil, inv.Email)
			}
			switch outcome {
			case relay.InviteSent:
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Invitation mail sent.")
			case relay.InviteAlreadyExists:
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Invitation already delivered earlier.")
			case relay.InviteFailed:
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: invitation stored but mail delivery failed: %v\n", mailErr)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Expires: %s\n", formatTimestamp(inv.ExpiresAt))
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address to invite (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name for the pending profile")
	cmd.Flags().StringVar(&role, "role", string(store.RoleAgent), "Role: admin|agent")
	cmd.Flags().BoolVar(&reissue, "reissue", false, "Replace the token on an existing unused invitation")
	flagAlias(cmd.Flags(), "email", "em")
	flagAlias(cmd.Flags(), "name", "nm")
	flagAlias(cmd.Flags(), "role", "rl")
	flagAlias(cmd.Flags(), "reissue", "ri")

	return cmd
}

// profileStatusAction changes one profile's lifecycle state.
func profileStatusAction(cmd *cobra.Command, ref string, status store.ProfileStatus, verb, pastTense string) error {
	client, err := getClient()
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd)

	session, err := currentSession(ctx, client)
	if err != nil {
		return err
	}
	if session.Viewer.Role != store.RoleAdmin {
		return &store.StoreError{Code: store.ErrForbidden, Message: "only admins can manage agent profiles"}
	}

	agentID, err := resolveAgent(ctx, client, ref)
	if err != nil {
		return err
	}

	if previewIfDryRun(cmd, verb, "agent "+shortID(agentID),
		dryrun.Detail{Key: "status", Value: string(status)}) {
		return nil
	}

	profile, err := client.Profiles().SetStatus(ctx, agentID, status)
	if err != nil {
		return err
	}
	profileCache(client.BaseURL).Clear()

	if isJSON(cmd) {
		return printJSON(cmd, profile)
	}
	printAction(cmd, pastTense, "agent", shortID(profile.ID), profile.Email)
	return nil
}

// newAgentsActivateCmd creates the agents activate command
func newAgentsActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <agent>",
		Short: "Activate an agent profile",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			return profileStatusAction(cmd, args[0], store.ProfileActive, "activate", "Activated")
		}),
	}
}

// newAgentsDeactivateCmd creates the agents deactivate command
func newAgentsDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <agent>",
		Short: "Deactivate an agent profile",
		Long: strings.TrimSpace(`
Deactivate an agent. The profile row stays (so message attribution keeps
working) but the agent disappears from assignment candidates.
`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			return profileStatusAction(cmd, args[0], store.ProfileInactive, "deactivate", "Deactivated")
		}),
	}
}

// newAgentsRemoveCmd creates the agents remove command
func newAgentsRemoveCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "remove <agent>",
		Aliases: []string{"rm"},
		Short:   "Remove an agent (deactivate permanently)",
		Long: strings.TrimSpace(`
Remove an agent from the workspace. The profile is deactivated rather than
deleted: message rows reference it for attribution, so the row must
survive. Removal is just deactivation with a confirmation step.
`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ok, err := confirmAction(cmd, confirmOptions{
				Prompt:              fmt.Sprintf("Remove agent %q? [y/N] ", args[0]),
				CancelMessage:       "Cancelled.",
				Force:               force,
				RequireForceForJSON: true,
			})
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			return profileStatusAction(cmd, args[0], store.ProfileInactive, "remove", "Removed")
		}),
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	return cmd
}
