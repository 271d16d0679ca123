package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/azteclab/trueblue-cli/internal/cli"
	"github.com/azteclab/trueblue-cli/internal/inbox"
	"github.com/azteclab/trueblue-cli/internal/store"
)

var conversationStatuses = []string{
	string(store.StatusActiveAI),
	string(store.StatusPendingHuman),
	string(store.StatusActiveHuman),
	string(store.StatusClosed),
}

// newInboxCmd returns the inbox command with subcommands
func newInboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inbox",
		Aliases: []string{"in", "i"},
		Short:   "Browse the consolidated conversation inbox",
		Long: strings.TrimSpace(`
Browse the support inbox: one thread per end-user, duplicate conversation
rows merged, visibility filtered by your role (admins see everything,
agents see their assignments plus everything waiting for a human).
`),
	}

	cmd.AddCommand(newInboxListCmd())
	cmd.AddCommand(newInboxShowCmd())
	cmd.AddCommand(newInboxFollowCmd())

	return cmd
}

// inboxFilters are the list filters applied on top of visibility.
type inboxFilters struct {
	status   string
	channel  string
	assignee string
	unread   bool
	search   string
	since    time.Time
}

func (f inboxFilters) apply(views []inbox.ConversationView) []inbox.ConversationView {
	out := views
	if f.status != "" {
		out = filterBy(out, func(v inbox.ConversationView) bool {
			return string(v.Conversation.Status) == f.status
		})
	}
	if f.channel != "" {
		channel := strings.ToLower(f.channel)
		out = filterBy(out, func(v inbox.ConversationView) bool {
			return strings.ToLower(v.Conversation.Channel) == channel
		})
	}
	if f.assignee != "" {
		out = filterBy(out, func(v inbox.ConversationView) bool {
			return v.Conversation.AssignedAgentID == f.assignee
		})
	}
	if f.unread {
		out = filterBy(out, inbox.HasUnread)
	}
	if f.search != "" {
		out = inbox.FilterViews(out, f.search)
	}
	if !f.since.IsZero() {
		out = filterBy(out, func(v inbox.ConversationView) bool {
			return !v.Conversation.UpdatedAt.Before(f.since)
		})
	}
	return out
}

func filterBy(views []inbox.ConversationView, keep func(inbox.ConversationView) bool) []inbox.ConversationView {
	out := make([]inbox.ConversationView, 0, len(views))
	for _, v := range views {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// newInboxListCmd creates the inbox list command
func newInboxListCmd() *cobra.Command {
	var filters inboxFilters
	var since string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "l"},
		Short:   "List conversations",
		Example: strings.TrimSpace(`
  # Everything you can see
  tb inbox list

  # Conversations waiting for a human
  tb inbox list --status pending_human

  # Unread Telegram threads assigned to an agent
  tb inbox list --channel telegram --assignee 7c9e6679 --unread

  # Fuzzy search across usernames and summaries
  tb inbox list --search "refund"
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if filters.status != "" {
				normalized, err := normalizeEnum("status", filters.status, conversationStatuses)
				if err != nil {
					return err
				}
				filters.status = normalized
			}
			if since != "" {
				cutoff, err := cli.ParseSince(since, time.Now())
				if err != nil {
					return fmt.Errorf("--since: %w", err)
				}
				filters.since = cutoff
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

			convs, msgs, profiles, err := inbox.StoreFetch(client)(ctx)
			if err != nil {
				return fmt.Errorf("failed to load inbox: %w", err)
			}

			views := inbox.VisibleTo(inbox.BuildView(convs, msgs, profiles), session.Viewer)
			views = filters.apply(views)

			if isJSON(cmd) {
				return printJSON(cmd, viewPayloads(views))
			}
			return renderInboxTable(cmd, views)
		}),
	}

	cmd.Flags().StringVar(&filters.status, "status", "", "Filter by status (active_ai|pending_human|active_human|closed)")
	cmd.Flags().StringVar(&filters.channel, "channel", "", "Filter by channel (e.g. telegram, whatsapp)")
	cmd.Flags().StringVar(&filters.assignee, "assignee", "", "Filter by assigned agent ID")
	cmd.Flags().BoolVar(&filters.unread, "unread", false, "Only conversations with an unanswered user message")
	cmd.Flags().StringVar(&filters.search, "search", "", "Fuzzy match on channel username and summary")
	cmd.Flags().StringVar(&since, "since", "", `Only threads updated since (e.g. "2h", "yesterday", a date)`)
	flagAlias(cmd.Flags(), "status", "st")
	flagAlias(cmd.Flags(), "channel", "chn")
	flagAlias(cmd.Flags(), "assignee", "as")
	flagAlias(cmd.Flags(), "unread", "ur")
	flagAlias(cmd.Flags(), "search", "se")
	flagAlias(cmd.Flags(), "since", "si")

	return cmd
}

// viewPayload is the JSON shape for one inbox entry.
type viewPayload struct {
	Conversation store.Conversation `json:"conversation"`
	Agent        *store.Profile     `json:"agent,omitempty"`
	Messages     []store.Message    `json:"messages,omitempty"`
	Unread       bool               `json:"unread"`
	Preview      string             `json:"preview,omitempty"`
	MessageCount int                `json:"message_count"`
}

func viewPayloads(views []inbox.ConversationView) []viewPayload {
	out := make([]viewPayload, 0, len(views))
	for _, v := range views {
		out = append(out, viewPayload{
			Conversation: v.Conversation,
			Agent:        v.Agent,
			Unread:       inbox.HasUnread(v),
			Preview:      inbox.Preview(v),
			MessageCount: len(v.Messages),
		})
	}
	return out
}

func renderInboxTable(cmd *cobra.Command, views []inbox.ConversationView) error {
	if len(views) == 0 {
		printIfNotQuiet(cmd, "No conversations.\n")
		return nil
	}

	w := newTabWriterFromCmd(cmd)
	_, _ = fmt.Fprintln(w, "ID\tUSER\tCHANNEL\tSTATUS\tAGENT\tUNREAD\tUPDATED\tPREVIEW")
	for _, v := range views {
		c := v.Conversation
		user := c.ChannelUsername
		if user == "" {
			user = c.ChannelUserID
		}
		agent := "-"
		if v.Agent != nil {
			agent = v.Agent.Name
			if agent == "" {
				agent = v.Agent.Email
			}
		}
		unread := ""
		if inbox.HasUnread(v) {
			unread = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(c.ID), user, c.Channel, c.Status, agent, unread,
			formatTimestampShort(c.UpdatedAt), truncate(inbox.Preview(v), 48))
	}
	return w.Flush()
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// newInboxShowCmd creates the inbox show command
func newInboxShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show <conversation-id>",
		Aliases: []string{"view", "s"},
		Short:   "Show the full merged thread for a conversation",
		Example: strings.TrimSpace(`
  # Show a thread (ID prefix is enough when unambiguous)
  tb inbox show 7c9e6679

  # Full thread as JSON
  tb inbox show 7c9e6679 --json
`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)

			session, err := currentSession(ctx, client)
			if err != nil {
				return err
			}

			convs, msgs, profiles, err := inbox.StoreFetch(client)(ctx)
			if err != nil {
				return fmt.Errorf("failed to load inbox: %w", err)
			}

			views := inbox.VisibleTo(inbox.BuildView(convs, msgs, profiles), session.Viewer)
			view, err := findView(views, args[0])
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				payload := viewPayloads([]inbox.ConversationView{*view})[0]
				payload.Messages = view.Messages
				return printJSON(cmd, payload)
			}
			return renderThread(cmd, *view)
		}),
	}

	return cmd
}

// findView locates the thread whose canonical conversation matches id.
// A unique ID prefix is accepted so short IDs from list output work.
func findView(views []inbox.ConversationView, id string) (*inbox.ConversationView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("conversation ID is required")
	}

	var matches []*inbox.ConversationView
	for i := range views {
		if views[i].Conversation.ID == id {
			return &views[i], nil
		}
		if strings.HasPrefix(views[i].Conversation.ID, id) {
			matches = append(matches, &views[i])
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, &store.StoreError{Code: store.ErrNotFound, Message: fmt.Sprintf("conversation %s not found", id)}
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.Conversation.ID)
		}
		return nil, fmt.Errorf("conversation ID %q is ambiguous (matches: %s)", id, strings.Join(ids, ", "))
	}
}

func renderThread(cmd *cobra.Command, v inbox.ConversationView) error {
	out := cmd.OutOrStdout()
	c := v.Conversation

	user := c.ChannelUsername
	if user == "" {
		user = c.ChannelUserID
	}
	_, _ = fmt.Fprintf(out, "Conversation %s\n", c.ID)
	_, _ = fmt.Fprintf(out, "  User: %s (%s)\n", user, c.Channel)
	_, _ = fmt.Fprintf(out, "  Status: %s\n", c.Status)
	if v.Agent != nil {
		name := v.Agent.Name
		if name == "" {
			name = v.Agent.Email
		}
		_, _ = fmt.Fprintf(out, "  Agent: %s\n", name)
	}
	if c.Summary != "" {
		_, _ = fmt.Fprintf(out, "  Summary: %s\n", c.Summary)
	}
	_, _ = fmt.Fprintf(out, "  Updated: %s\n", formatTimestamp(c.UpdatedAt))
	_, _ = fmt.Fprintln(out)

	for _, m := range v.Messages {
		_, _ = fmt.Fprintf(out, "[%s] %s\n", formatTimestampShort(m.CreatedAt), senderLabel(m))
		_, _ = fmt.Fprintf(out, "  %s\n", strings.ReplaceAll(m.Content, "\n", "\n  "))
	}
	if len(v.Messages) == 0 {
		_, _ = fmt.Fprintln(out, "(no messages)")
	}
	return nil
}

func senderLabel(m store.Message) string {
	switch m.SenderRole {
	case store.SenderUser:
		return "user"
	case store.SenderAI:
		return "assistant"
	case store.SenderAgent:
		if m.RespondedByAgentID != "" {
			return "agent " + shortID(m.RespondedByAgentID)
		}
		return "agent"
	default:
		return string(m.SenderRole)
	}
}
