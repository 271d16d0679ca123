package cmd

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/azteclab/trueblue-cli/internal/inbox"
	"github.com/azteclab/trueblue-cli/internal/store"
)

func TestInboxListCommand(t *testing.T) {
	setupTestEnvWithHandler(t, inboxHandler())

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"inbox", "list"}); err != nil {
			t.Errorf("inbox list failed: %v", err)
		}
	})

	containsAll(t, output,
		"7c9e6679", "marisol", "telegram", "pending_human", "My refund never arrived",
		"0b1f3c2a", "ignacio", "whatsapp", "active_ai", "Your order ships tomorrow.")

	// The waiting thread sorts first and carries the unread marker.
	if strings.Index(output, "marisol") > strings.Index(output, "ignacio") {
		t.Errorf("expected most recently updated thread first:\n%s", output)
	}
}

func TestInboxListCommand_JSON(t *testing.T) {
	setupTestEnvWithHandler(t, inboxHandler())

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"inbox", "list", "--output", "json"}); err != nil {
			t.Errorf("inbox list --output json failed: %v", err)
		}
	})

	// List output is wrapped in an items envelope so jq .items[] always works.
	var payload struct {
		Items []struct {
			Conversation store.Conversation `json:"conversation"`
			Unread       bool               `json:"unread"`
			Preview      string             `json:"preview"`
			MessageCount int                `json:"message_count"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, output)
	}
	if len(payload.Items) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(payload.Items))
	}
	if payload.Items[0].Conversation.ID != convID {
		t.Errorf("first entry = %s, want %s", payload.Items[0].Conversation.ID, convID)
	}
	if !payload.Items[0].Unread {
		t.Error("pending_human thread should be unread")
	}
	if payload.Items[1].Unread {
		t.Error("answered active_ai thread should not be unread")
	}
	if payload.Items[1].MessageCount != 2 {
		t.Errorf("second entry message_count = %d, want 2", payload.Items[1].MessageCount)
	}
}

func TestInboxListCommand_StatusFilterPrefix(t *testing.T) {
	setupTestEnvWithHandler(t, inboxHandler())

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"inbox", "list", "--status", "pend"}); err != nil {
			t.Errorf("inbox list --status failed: %v", err)
		}
	})

	if !strings.Contains(output, "marisol") {
		t.Errorf("expected pending_human thread:\n%s", output)
	}
	if strings.Contains(output, "ignacio") {
		t.Errorf("active_ai thread should be filtered out:\n%s", output)
	}
}

func TestInboxListCommand_ChannelAndUnreadFilters(t *testing.T) {
	setupTestEnvWithHandler(t, inboxHandler())

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"inbox", "list", "--channel", "whatsapp"}); err != nil {
			t.Errorf("inbox list --channel failed: %v", err)
		}
	})
	if strings.Contains(output, "marisol") || !strings.Contains(output, "ignacio") {
		t.Errorf("channel filter wrong:\n%s", output)
	}

	output = captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"inbox", "list", "--unread"}); err != nil {
			t.Errorf("inbox list --unread failed: %v", err)
		}
	})
	if !strings.Contains(output, "marisol") || strings.Contains(output, "ignacio") {
		t.Errorf("unread filter wrong:\n%s", output)
	}
}

func TestInboxListCommand_Since(t *testing.T) {
	setupTestEnvWithHandler(t, inboxHandler())

	// conv1 was updated 2026-01-05, conv2 a day earlier.
	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"inbox", "list", "--since", "2026-01-05T00:00:00Z"}); err != nil {
			t.Errorf("inbox list --since failed: %v", err)
		}
	})
	if !strings.Contains(output, "marisol") || strings.Contains(output, "ignacio") {
		t.Errorf("since filter wrong:\n%s", output)
	}
}

func TestInboxListCommand_SinceInvalid(t *testing.T) {
	setupTestEnvWithHandler(t, inboxHandler())

	err := Execute(context.Background(), []string{"inbox", "list", "--since", "soonish"})
	if err == nil || !strings.Contains(err.Error(), "invalid time expression") {
		t.Errorf("err = %v", err)
	}
}

func TestInboxListCommand_InvalidStatus(t *testing.T) {
	setupTestEnvWithHandler(t, inboxHandler())

	err := Execute(context.Background(), []string{"inbox", "list", "--status", "archived"})
	if err == nil {
		t.Fatal("expected error for invalid status")
	}
	if !strings.Contains(err.Error(), "must be one of") {
		t.Errorf("error = %v", err)
	}
}

func TestInboxListCommand_AgentVisibility(t *testing.T) {
	setupTestEnvWithHandler(t, inboxHandler())
	// Sign in as the non-admin agent: only assignments and pending_human
	// threads are visible.
	t.Setenv("TRUEBLUE_EMAIL", "jones@example.com")

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"inbox", "list"}); err != nil {
			t.Errorf("inbox list failed: %v", err)
		}
	})

	if !strings.Contains(output, "marisol") {
		t.Errorf("pending_human thread should be visible to agents:\n%s", output)
	}
	if strings.Contains(output, "ignacio") {
		t.Errorf("unassigned active_ai thread should be hidden from agents:\n%s", output)
	}
}

func TestInboxShowCommand_ByPrefix(t *testing.T) {
	setupTestEnvWithHandler(t, inboxHandler())

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"inbox", "show", "7c9e6679"}); err != nil {
			t.Errorf("inbox show failed: %v", err)
		}
	})

	containsAll(t, output,
		"Conversation "+convID,
		"marisol (telegram)",
		"Status: pending_human",
		"user",
		"My refund never arrived")
}

func TestInboxShowCommand_NotFound(t *testing.T) {
	setupTestEnvWithHandler(t, inboxHandler())

	err := Execute(context.Background(), []string{"inbox", "show", "ffffffff"})
	if err == nil {
		t.Fatal("expected error for unknown conversation")
	}
	if got := ExitCode(err); got != exitNotFound {
		t.Errorf("exit code = %d, want %d", got, exitNotFound)
	}
}

func TestFindView(t *testing.T) {
	views := []inbox.ConversationView{
		{Conversation: store.Conversation{ID: "aaaa1111-1", ChannelUserID: "u1"}},
		{Conversation: store.Conversation{ID: "aaaa2222-2", ChannelUserID: "u2"}},
		{Conversation: store.Conversation{ID: "bbbb3333-3", ChannelUserID: "u3"}},
	}

	v, err := findView(views, "bbbb3333-3")
	if err != nil || v.Conversation.ID != "bbbb3333-3" {
		t.Errorf("exact match: view=%v err=%v", v, err)
	}

	v, err = findView(views, "bbbb")
	if err != nil || v.Conversation.ID != "bbbb3333-3" {
		t.Errorf("unique prefix: view=%v err=%v", v, err)
	}

	if _, err = findView(views, "aaaa"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("ambiguous prefix: err=%v", err)
	}

	_, err = findView(views, "cccc")
	if err == nil || !store.IsNotFound(err) {
		t.Errorf("missing id should be not_found: err=%v", err)
	}

	if _, err = findView(views, "  "); err == nil {
		t.Error("blank id should error")
	}
}

func TestInboxFiltersApply_Assignee(t *testing.T) {
	views := []inbox.ConversationView{
		{Conversation: store.Conversation{ID: "a", ChannelUserID: "u1", AssignedAgentID: agentID}},
		{Conversation: store.Conversation{ID: "b", ChannelUserID: "u2"}},
	}

	got := inboxFilters{assignee: agentID}.apply(views)
	if len(got) != 1 || got[0].Conversation.ID != "a" {
		t.Errorf("assignee filter = %v", got)
	}
}

func TestSenderLabel(t *testing.T) {
	tests := []struct {
		msg  store.Message
		want string
	}{
		{store.Message{SenderRole: store.SenderUser}, "user"},
		{store.Message{SenderRole: store.SenderAI}, "assistant"},
		{store.Message{SenderRole: store.SenderAgent}, "agent"},
		{store.Message{SenderRole: store.SenderAgent, RespondedByAgentID: agentID}, "agent bbbbbbbb"},
	}
	for _, tt := range tests {
		if got := senderLabel(tt.msg); got != tt.want {
			t.Errorf("senderLabel(%s/%s) = %q, want %q", tt.msg.SenderRole, tt.msg.RespondedByAgentID, got, tt.want)
		}
	}
}
