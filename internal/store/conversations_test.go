package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListConversations(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		responseBody string
		expectError  bool
		expectCount  int
	}{
		{
			name:         "successful list",
			statusCode:   http.StatusOK,
			responseBody: `[{"id":"c1","channel_user_id":"u1","channel":"instagram","status":"active_ai"},{"id":"c2","channel_user_id":"u2","channel":"telegram","status":"closed"}]`,
			expectCount:  2,
		},
		{
			name:         "empty store",
			statusCode:   http.StatusOK,
			responseBody: `[]`,
			expectCount:  0,
		},
		{
			name:         "unauthorized",
			statusCode:   http.StatusUnauthorized,
			responseBody: `{"message":"JWT expired"}`,
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("Expected GET request, got %s", r.Method)
				}
				if r.URL.Path != "/rest/v1/tb_conversations" {
					t.Errorf("Unexpected path %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("order"); got != "updated_at.desc" {
					t.Errorf("Expected order=updated_at.desc, got %q", got)
				}
				if r.Header.Get("apikey") == "" {
					t.Error("Missing apikey header")
				}
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			client := New(server.URL, "test-key")
			result, err := client.Conversations().List(context.Background())

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if len(result) != tt.expectCount {
				t.Errorf("Expected %d conversations, got %d", tt.expectCount, len(result))
			}
		})
	}
}

func TestListConversationsRejectsMalformedRow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"id":"c1","channel":"instagram","status":"active_ai"}]`))
	}))
	defer server.Close()

	client := New(server.URL, "test-key")
	_, err := client.Conversations().List(context.Background())
	if err == nil {
		t.Fatal("Expected a row missing channel_user_id to be rejected")
	}
	if !IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestGetConversationNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// PostgREST returns an empty list for a filter with no matches.
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := New(server.URL, "test-key")
	_, err := client.Conversations().Get(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("Expected not_found error, got %v", err)
	}
}

func TestUpdateConversation(t *testing.T) {
	active := StatusActiveHuman
	agent := "agent-1"

	tests := []struct {
		name         string
		update       ConversationUpdate
		filter       ConversationFilter
		responseBody string
		expectError  bool
		expectCode   ErrorCode
		checkQuery   func(t *testing.T, r *http.Request)
		checkBody    func(t *testing.T, patch map[string]any)
	}{
		{
			name:         "status and assignment in one write",
			update:       ConversationUpdate{Status: &active, AssignedAgentID: &agent},
			responseBody: `[{"id":"c1","channel":"instagram","status":"active_human","assigned_agent_id":"agent-1"}]`,
			checkBody: func(t *testing.T, patch map[string]any) {
				if patch["status"] != "active_human" {
					t.Errorf("Expected status active_human, got %v", patch["status"])
				}
				if patch["assigned_agent_id"] != "agent-1" {
					t.Errorf("Expected assigned_agent_id agent-1, got %v", patch["assigned_agent_id"])
				}
			},
		},
		{
			name:         "clear assignment writes explicit null",
			update:       ConversationUpdate{ClearAssignment: true},
			responseBody: `[{"id":"c1","channel":"instagram","status":"active_ai"}]`,
			checkBody: func(t *testing.T, patch map[string]any) {
				v, present := patch["assigned_agent_id"]
				if !present || v != nil {
					t.Errorf("Expected assigned_agent_id null, got %v (present=%v)", v, present)
				}
			},
		},
		{
			name:         "claim guarded by unassigned filter",
			update:       ConversationUpdate{AssignedAgentID: &agent},
			filter:       ConversationFilter{Unassigned: true},
			responseBody: `[{"id":"c1","channel":"instagram","status":"pending_human","assigned_agent_id":"agent-1"}]`,
			checkQuery: func(t *testing.T, r *http.Request) {
				if got := r.URL.Query().Get("assigned_agent_id"); got != "is.null" {
					t.Errorf("Expected assigned_agent_id=is.null, got %q", got)
				}
			},
		},
		{
			name:         "zero rows means concurrent modification",
			update:       ConversationUpdate{AssignedAgentID: &agent},
			filter:       ConversationFilter{Unassigned: true},
			responseBody: `[]`,
			expectError:  true,
			expectCode:   ErrConflict,
		},
		{
			name:        "empty update rejected locally",
			update:      ConversationUpdate{},
			expectError: true,
			expectCode:  ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPatch {
					t.Errorf("Expected PATCH request, got %s", r.Method)
				}
				if got := r.URL.Query().Get("id"); got != "eq.c1" {
					t.Errorf("Expected id=eq.c1, got %q", got)
				}
				if got := r.Header.Get("Prefer"); got != "return=representation" {
					t.Errorf("Expected Prefer return=representation, got %q", got)
				}
				if tt.checkQuery != nil {
					tt.checkQuery(t, r)
				}
				if tt.checkBody != nil {
					var patch map[string]any
					if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
						t.Fatalf("Failed to decode patch body: %v", err)
					}
					tt.checkBody(t, patch)
				}
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			client := New(server.URL, "test-key")
			result, err := client.Conversations().Update(context.Background(), "c1", tt.update, tt.filter)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if tt.expectCode != "" && CodeFromError(err) != tt.expectCode {
					t.Errorf("Expected code %s, got %s", tt.expectCode, CodeFromError(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if result.ID != "c1" {
				t.Errorf("Expected returned row c1, got %s", result.ID)
			}
		})
	}
}
