package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// preferRepresentation asks the store to return the affected rows on writes,
// which is how zero-row conditional updates are detected.
const preferRepresentation = "return=representation"

// ConversationUpdate describes a partial update to a conversation row. Nil
// fields are left untouched; ClearAssignment writes an explicit null.
type ConversationUpdate struct {
	Status          *ConversationStatus
	AssignedAgentID *string
	ClearAssignment bool
}

func (u ConversationUpdate) payload() map[string]any {
	patch := map[string]any{}
	if u.Status != nil {
		patch["status"] = *u.Status
	}
	if u.ClearAssignment {
		patch["assigned_agent_id"] = nil
	} else if u.AssignedAgentID != nil {
		patch["assigned_agent_id"] = *u.AssignedAgentID
	}
	return patch
}

// ConversationFilter narrows which row a conditional update may touch.
// A zero filter matches on id alone.
type ConversationFilter struct {
	Status     *ConversationStatus
	Unassigned bool
}

func (f ConversationFilter) apply(query url.Values) {
	if f.Status != nil {
		query.Set("status", "eq."+string(*f.Status))
	}
	if f.Unassigned {
		query.Set("assigned_agent_id", "is.null")
	}
}

// List retrieves all conversations, most recently updated first.
func (s ConversationsService) List(ctx context.Context) ([]Conversation, error) {
	return listConversations(ctx, s)
}

func listConversations(ctx context.Context, r Requester) ([]Conversation, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "updated_at.desc")

	var result []Conversation
	if err := r.do(ctx, http.MethodGet, r.tablePath(TableConversations)+"?"+query.Encode(), nil, &result); err != nil {
		return nil, err
	}
	for i := range result {
		if err := result[i].Validate(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Get retrieves a single conversation by id.
func (s ConversationsService) Get(ctx context.Context, id string) (*Conversation, error) {
	return getConversation(ctx, s, id)
}

func getConversation(ctx context.Context, r Requester, id string) (*Conversation, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("id", "eq."+id)

	var result []Conversation
	if err := r.do(ctx, http.MethodGet, r.tablePath(TableConversations)+"?"+query.Encode(), nil, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, &StoreError{Code: ErrNotFound, StatusCode: http.StatusNotFound, Message: fmt.Sprintf("conversation %s not found", id)}
	}
	if err := result[0].Validate(); err != nil {
		return nil, err
	}
	return &result[0], nil
}

// Update applies a conditional partial update to a conversation. The update
// only lands when the filter still matches the row, which makes combined
// status and assignment changes atomic. Zero rows updated returns a conflict.
func (s ConversationsService) Update(ctx context.Context, id string, update ConversationUpdate, filter ConversationFilter) (*Conversation, error) {
	return updateConversation(ctx, s, id, update, filter)
}

func updateConversation(ctx context.Context, r Requester, id string, update ConversationUpdate, filter ConversationFilter) (*Conversation, error) {
	patch := update.payload()
	if len(patch) == 0 {
		return nil, &StoreError{Code: ErrValidation, Message: "conversation update has no fields"}
	}

	query := url.Values{}
	query.Set("id", "eq."+id)
	filter.apply(query)

	var result []Conversation
	if err := r.doPrefer(ctx, http.MethodPatch, r.tablePath(TableConversations)+"?"+query.Encode(), preferRepresentation, patch, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		// Row exists but the filter no longer matches, or the row is gone.
		// Either way the caller's precondition failed.
		return nil, &StoreError{Code: ErrConflict, StatusCode: http.StatusConflict, Message: fmt.Sprintf("conversation %s was modified concurrently", id)}
	}
	return &result[0], nil
}
