package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

const storedReplyBody = `[{"id": "22222222-0000-4000-8000-000000000001", "conversation_id": "7c9e6679-7425-40de-944b-e07fc1f90ae7", "content": "On it, give me a minute", "sender_role": "agent", "responded_by_agent_id": "aaaaaaaa-0000-4000-8000-000000000001", "created_at": "2026-01-05T10:10:00Z"}]`

func replyHandler(delivered *bool, deliveryStatus int) *routeHandler {
	return newRouteHandler().
		On("GET", "/rest/v1/profiles", jsonResponse(200, profilesBody)).
		On("GET", "/rest/v1/tb_conversations", conversationByID()).
		On("POST", "/rest/v1/tb_messages", jsonResponse(201, storedReplyBody)).
		On("PATCH", "/rest/v1/tb_conversations", jsonResponse(200, assignedConvBody(adminID, "active_human"))).
		On("POST", "/functions/v1/send-telegram-message", sawRequest(delivered, jsonResponse(deliveryStatus, `{}`)))
}

func TestReplyCommand_DryRun(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	output := captureStdout(t, func() {
		err := Execute(context.Background(), []string{"reply", convID, "--content", "On it", "--close", "--dry-run"})
		if err != nil {
			t.Errorf("reply --dry-run failed: %v", err)
		}
	})

	containsAll(t, output,
		"[dry-run] would reply to conversation 7c9e6679",
		"content: On it",
		"then: close the conversation",
		"No changes made.")
}

func TestReplyCommand(t *testing.T) {
	var delivered bool
	setupTestEnvWithHandler(t, replyHandler(&delivered, 200))

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"reply", convID, "--content", "On it, give me a minute"}); err != nil {
			t.Errorf("reply failed: %v", err)
		}
	})

	if !delivered {
		t.Error("expected a telegram delivery call")
	}
	containsAll(t, output,
		"Sent reply 22222222",
		"Conversation: "+convID,
		"Status: active_human")
}

func TestReplyCommand_StoresMessagePayload(t *testing.T) {
	var posted map[string]any
	handler := newRouteHandler().
		On("GET", "/rest/v1/profiles", jsonResponse(200, profilesBody)).
		On("GET", "/rest/v1/tb_conversations", conversationByID()).
		On("POST", "/rest/v1/tb_messages", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&posted)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(201)
			_, _ = w.Write([]byte(storedReplyBody))
		}).
		On("PATCH", "/rest/v1/tb_conversations", jsonResponse(200, assignedConvBody(adminID, "active_human"))).
		On("POST", "/functions/v1/send-telegram-message", jsonResponse(200, `{}`))
	setupTestEnvWithHandler(t, handler)

	captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"reply", convID, "-c", "On it, give me a minute"}); err != nil {
			t.Errorf("reply failed: %v", err)
		}
	})

	if posted["conversation_id"] != convID {
		t.Errorf("message body = %v, want conversation_id %s", posted, convID)
	}
	if posted["sender_role"] != "agent" {
		t.Errorf("message body = %v, want sender_role agent", posted)
	}
	if posted["responded_by_agent_id"] != adminID {
		t.Errorf("message body = %v, want responded_by_agent_id %s", posted, adminID)
	}
}

func TestReplyCommand_DeliveryFailureIsWarning(t *testing.T) {
	var delivered bool
	// A 400 from the relay function must not fail the command; the reply
	// row is already stored.
	setupTestEnvWithHandler(t, replyHandler(&delivered, 400))

	var stdout string
	stderr := captureStderr(t, func() {
		stdout = captureStdout(t, func() {
			if err := Execute(context.Background(), []string{"reply", convID, "--content", "still works"}); err != nil {
				t.Errorf("reply should succeed despite delivery failure: %v", err)
			}
		})
	})

	if !strings.Contains(stderr, "warning: reply stored but channel delivery failed") {
		t.Errorf("stderr missing delivery warning:\n%s", stderr)
	}
	if !strings.Contains(stdout, "Sent reply") {
		t.Errorf("stdout missing confirmation:\n%s", stdout)
	}
}

func TestReplyCommand_Close(t *testing.T) {
	var delivered bool
	handler := replyHandler(&delivered, 200)
	setupTestEnvWithHandler(t, handler)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"reply", convID, "--content", "Done, closing this out", "--close", "-o", "json"}); err != nil {
			t.Errorf("reply --close failed: %v", err)
		}
	})

	var payload struct {
		Action string `json:"action"`
		Closed bool   `json:"closed"`
	}
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, output)
	}
	if payload.Action != "replied" || !payload.Closed {
		t.Errorf("payload = %+v, want replied/closed", payload)
	}
}

func TestReplyCommand_RequiresContent(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	err := Execute(context.Background(), []string{"reply", convID})
	if err == nil {
		t.Fatal("expected error for missing --content")
	}
	if !strings.Contains(err.Error(), "--content or --template is required") {
		t.Errorf("error = %v", err)
	}
}

func TestReplyCommand_ContentTemplateExclusive(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	err := Execute(context.Background(), []string{"reply", convID, "--content", "hi", "--template", "Hold message"})
	if err == nil {
		t.Fatal("expected error for combining --content and --template")
	}
	if !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("error = %v", err)
	}
}

func TestReplyCommand_TemplateRendersAgentName(t *testing.T) {
	var posted map[string]any
	handler := newRouteHandler().
		On("GET", "/rest/v1/profiles", jsonResponse(200, profilesBody)).
		On("GET", "/rest/v1/tb_conversations", conversationByID()).
		On("POST", "/rest/v1/tb_messages", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&posted)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(201)
			_, _ = w.Write([]byte(storedReplyBody))
		}).
		On("PATCH", "/rest/v1/tb_conversations", jsonResponse(200, assignedConvBody(adminID, "active_human"))).
		On("POST", "/functions/v1/send-telegram-message", jsonResponse(200, `{}`))
	setupTestEnvWithHandler(t, handler)

	captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"reply", convID, "--template", "Personal greeting"}); err != nil {
			t.Errorf("reply --template failed: %v", err)
		}
	})

	if posted["content"] != "Hi! I'm Sam Smith, how can I help you today?" {
		t.Errorf("message body = %v, want the rendered greeting", posted)
	}
}

func TestReplyCommand_TemplateNotFound(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	err := Execute(context.Background(), []string{"reply", convID, "--template", "no such canned reply"})
	if err == nil {
		t.Fatal("expected error for unknown template")
	}
	if !strings.Contains(err.Error(), "template not found") {
		t.Errorf("error = %v", err)
	}
}
