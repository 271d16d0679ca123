package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/azteclab/trueblue-cli/internal/config"
	"github.com/azteclab/trueblue-cli/internal/inbox"
	"github.com/azteclab/trueblue-cli/internal/outfmt"
	"github.com/azteclab/trueblue-cli/internal/realtime"
	"github.com/azteclab/trueblue-cli/internal/store"
)

const (
	followBackoffInitial = 1 * time.Second
	followBackoffMax     = 30 * time.Second
	// A stream that survived this long counts as healthy and resets the
	// reconnect backoff.
	followHealthyRun = 30 * time.Second
)

// newInboxFollowCmd creates the inbox follow command
func newInboxFollowCmd() *cobra.Command {
	var filters inboxFilters

	cmd := &cobra.Command{
		Use:     "follow",
		Aliases: []string{"f", "watch"},
		Short:   "Follow the inbox live",
		Long: strings.TrimSpace(`
Keep a live view of the inbox: conversations and messages are loaded once,
then kept current from the realtime change feed. Dropped connections are
re-dialed with exponential backoff, with a full refetch after reconnect so
nothing missed while offline is lost.

With --output jsonl every view update is emitted as one JSON line.
`),
		Example: strings.TrimSpace(`
  # Live text view
  tb inbox follow

  # Only what's waiting for a human, as a JSON stream
  tb inbox follow --status pending_human --output jsonl
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

			client, err := getClient()
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)

			session, err := currentSession(ctx, client)
			if err != nil {
				return err
			}

			cfg, err := config.ResolveClientConfig(flags.StoreURL, flags.APIKey)
			if err != nil {
				return err
			}

			syncer := inbox.NewSyncer(inbox.StoreFetch(client))
			if err := syncer.Refresh(ctx); err != nil {
				return err
			}

			renderFollowUpdate(cmd, syncer, session, filters)

			// Render loop: repaint whenever the syncer reports a change.
			renderCtx, cancelRender := context.WithCancel(ctx)
			defer cancelRender()
			go func() {
				for {
					select {
					case <-renderCtx.Done():
						return
					case <-syncer.Updates():
						renderFollowUpdate(cmd, syncer, session, filters)
					}
				}
			}()

			return followLoop(ctx, cmd, syncer, cfg)
		}),
	}

	cmd.Flags().StringVar(&filters.status, "status", "", "Filter by status (active_ai|pending_human|active_human|closed)")
	cmd.Flags().StringVar(&filters.channel, "channel", "", "Filter by channel")
	cmd.Flags().StringVar(&filters.assignee, "assignee", "", "Filter by assigned agent ID")
	cmd.Flags().BoolVar(&filters.unread, "unread", false, "Only conversations with an unanswered user message")
	cmd.Flags().StringVar(&filters.search, "search", "", "Fuzzy match on channel username and summary")
	flagAlias(cmd.Flags(), "status", "st")
	flagAlias(cmd.Flags(), "channel", "chn")
	flagAlias(cmd.Flags(), "assignee", "as")
	flagAlias(cmd.Flags(), "unread", "ur")
	flagAlias(cmd.Flags(), "search", "se")

	return cmd
}

// reconnectBackoff produces the wait before each re-dial: exponential up to
// the cap, starting over after a stream that ran long enough to count as
// healthy.
type reconnectBackoff struct {
	next time.Duration
}

func (b *reconnectBackoff) delay(ran time.Duration) time.Duration {
	if b.next == 0 || ran >= followHealthyRun {
		b.next = followBackoffInitial
	}
	d := b.next
	b.next *= 2
	if b.next > followBackoffMax {
		b.next = followBackoffMax
	}
	return d
}

// followLoop dials the change feed and feeds the syncer, reconnecting with
// exponential backoff. Each successful reconnect triggers a full refresh to
// cover the gap.
func followLoop(ctx context.Context, cmd *cobra.Command, syncer *inbox.Syncer, cfg config.ClientConfig) error {
	var backoff reconnectBackoff

	for {
		started := time.Now()
		err := followOnce(ctx, syncer, cfg)
		ran := time.Since(started)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			// Feed closed cleanly; treat like a drop and re-dial.
			err = fmt.Errorf("change feed closed")
		}

		wait := backoff.delay(ran)
		printIfNotQuiet(cmd, "Connection lost (%v), reconnecting in %s...\n", err, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if err := syncer.Refresh(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func followOnce(ctx context.Context, syncer *inbox.Syncer, cfg config.ClientConfig) error {
	rt, err := realtime.Connect(ctx, cfg.StoreURL, cfg.APIKey)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	for _, table := range []string{store.TableConversations, store.TableMessages} {
		if err := rt.Subscribe(ctx, table); err != nil {
			return err
		}
	}

	hbCtx, cancelHB := context.WithCancel(ctx)
	defer cancelHB()
	rt.StartHeartbeat(hbCtx, realtime.DefaultHeartbeatInterval, nil)

	return syncer.Run(ctx, rt.ListenWithTimeout(ctx, realtime.DefaultPingTimeout))
}

func renderFollowUpdate(cmd *cobra.Command, syncer *inbox.Syncer, session inbox.Session, filters inboxFilters) {
	views := filters.apply(inbox.VisibleTo(syncer.View(), session.Viewer))

	if outfmt.IsJSONL(cmd.Context()) {
		_ = printJSON(cmd, viewPayloads(views))
		return
	}
	if isJSON(cmd) {
		_ = printJSON(cmd, viewPayloads(views))
		return
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "--- %s ---\n", formatTimestamp(time.Now()))
	_ = renderInboxTable(cmd, views)
}
