package inbox

import (
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/azteclab/trueblue-cli/internal/store"
)

// previewLimit caps the last-message snippet length.
const previewLimit = 80

// HasUnread reports whether a thread needs agent attention: anything waiting
// for a human is always unread, otherwise the end user spoke last.
func HasUnread(v ConversationView) bool {
	if v.Conversation.Status == store.StatusPendingHuman {
		return true
	}
	if len(v.Messages) == 0 {
		return false
	}
	return v.Messages[len(v.Messages)-1].SenderRole == store.SenderUser
}

// Preview returns a single-line snippet of the last message.
func Preview(v ConversationView) string {
	if len(v.Messages) == 0 {
		return ""
	}
	text := v.Messages[len(v.Messages)-1].Content
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= previewLimit {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLimit-1]) + "…"
}

type viewSourceLower []ConversationView

func (s viewSourceLower) String(i int) string {
	c := s[i].Conversation
	return strings.ToLower(c.ChannelUsername + " " + c.ChannelUserID + " " + Preview(s[i]))
}
func (s viewSourceLower) Len() int { return len(s) }

// FilterViews returns the views matching a fuzzy query over the end user's
// name, channel id, and last-message preview, best match first. An empty
// query returns the input unchanged.
func FilterViews(views []ConversationView, query string) []ConversationView {
	query = strings.TrimSpace(query)
	if query == "" {
		return views
	}

	results := fuzzy.FindFrom(strings.ToLower(query), viewSourceLower(views))
	out := make([]ConversationView, 0, len(results))
	for _, r := range results {
		out = append(out, views[r.Index])
	}
	return out
}
