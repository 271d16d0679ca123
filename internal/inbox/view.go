// Package inbox assembles raw store rows into the per-end-user conversation
// view the CLI renders, keeps that view live against the change feed, and
// performs the agent-side actions (reply, claim, assign, status changes).
package inbox

import (
	"sort"

	"github.com/azteclab/trueblue-cli/internal/store"
)

// ConversationView is one end-user thread: the canonical conversation row,
// its merged messages oldest first, and the resolved assigned agent.
type ConversationView struct {
	Conversation store.Conversation
	Messages     []store.Message
	Agent        *store.Profile
}

// BuildView consolidates raw rows into one view per end user.
//
// When ingestion has produced several conversation rows for the same
// channel user, the most recently updated row becomes canonical and the
// messages of every duplicate are merged into it. An assigned agent that
// cannot be resolved renders as unassigned rather than failing the build.
func BuildView(convRows []store.Conversation, msgRows []store.Message, profiles []store.Profile) []ConversationView {
	profilesByID := make(map[string]store.Profile, len(profiles))
	for _, p := range profiles {
		profilesByID[p.ID] = p
	}

	// Canonical conversation per channel user, plus the id -> user mapping
	// covering every row so duplicate rows' messages still land somewhere.
	canonical := make(map[string]store.Conversation)
	userByConvID := make(map[string]string, len(convRows))
	for _, c := range convRows {
		userByConvID[c.ID] = c.ChannelUserID
		cur, ok := canonical[c.ChannelUserID]
		if !ok || c.UpdatedAt.After(cur.UpdatedAt) {
			canonical[c.ChannelUserID] = c
		}
	}

	msgsByUser := make(map[string][]store.Message)
	for _, m := range msgRows {
		user, ok := userByConvID[m.ConversationID]
		if !ok {
			// Message for a conversation row we never saw; there is no
			// thread to attach it to.
			continue
		}
		msgsByUser[user] = append(msgsByUser[user], m)
	}

	views := make([]ConversationView, 0, len(canonical))
	for user, conv := range canonical {
		msgs := msgsByUser[user]
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		})
		if msgs == nil {
			msgs = []store.Message{}
		}

		view := ConversationView{Conversation: conv, Messages: msgs}
		if conv.AssignedAgentID != "" {
			if p, ok := profilesByID[conv.AssignedAgentID]; ok {
				view.Agent = &p
			}
		}
		views = append(views, view)
	}

	// Most recent first; ties break on channel user so the order is a pure
	// function of the input rows rather than map iteration.
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].Conversation, views[j].Conversation
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ChannelUserID < b.ChannelUserID
	})
	return views
}

// VisibleTo filters the view for a signed-in profile. Admins see everything;
// agents see their own assignments plus every conversation waiting for a
// human.
func VisibleTo(views []ConversationView, viewer store.Profile) []ConversationView {
	if viewer.Role == store.RoleAdmin {
		return views
	}
	out := make([]ConversationView, 0, len(views))
	for _, v := range views {
		if v.Conversation.AssignedAgentID == viewer.ID || v.Conversation.Status == store.StatusPendingHuman {
			out = append(out, v)
		}
	}
	return out
}
