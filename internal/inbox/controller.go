package inbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/azteclab/trueblue-cli/internal/relay"
	"github.com/azteclab/trueblue-cli/internal/store"
)

// Session identifies who is acting and which profile is the AI assistant.
// Both are threaded explicitly; nothing in this package reads globals.
type Session struct {
	Viewer      store.Profile
	AssistantID string
}

// ConversationStore is the slice of the store the controller reads and writes.
type ConversationStore interface {
	Get(ctx context.Context, id string) (*store.Conversation, error)
	Update(ctx context.Context, id string, update store.ConversationUpdate, filter store.ConversationFilter) (*store.Conversation, error)
}

// MessageStore appends message rows.
type MessageStore interface {
	Append(ctx context.Context, msg store.NewMessage) (*store.Message, error)
}

// Deliverer sends a stored reply out on its channel.
type Deliverer interface {
	Deliver(ctx context.Context, d relay.Delivery) error
}

// Controller performs the agent-side actions. Writes go to the store first;
// the local view is patched only after the store confirms, and outbound
// channel delivery never rolls anything back.
type Controller struct {
	convs   ConversationStore
	msgs    MessageStore
	relay   Deliverer
	sync    *Syncer // optional; nil for one-shot commands
	session Session

	now func() time.Time
}

// NewController wires a controller over the store services.
func NewController(client *store.Client, deliverer Deliverer, syncer *Syncer, session Session) *Controller {
	return &Controller{
		convs:   client.Conversations(),
		msgs:    client.Messages(),
		relay:   deliverer,
		sync:    syncer,
		session: session,
		now:     time.Now,
	}
}

// ReplyResult is the outcome of SendReply. DeliveryWarning is non-nil when
// the reply was stored but could not be pushed out on the channel.
type ReplyResult struct {
	Message         store.Message
	Conversation    store.Conversation
	DeliveryWarning error
}

// SendReply stores an agent reply, moves the conversation to active_human
// (claiming it for the acting agent when unassigned), and then attempts
// channel delivery.
func (c *Controller) SendReply(ctx context.Context, conversationID, content string) (*ReplyResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &store.StoreError{Code: store.ErrValidation, Message: "reply content must not be empty"}
	}

	conv, err := c.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	msg, err := c.msgs.Append(ctx, store.NewMessage{
		ConversationID:     conv.ID,
		Content:            content,
		SenderRole:         store.SenderAgent,
		RespondedByAgentID: c.session.Viewer.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("store reply: %w", err)
	}

	// Status and assignment land in one store call.
	active := store.StatusActiveHuman
	update := store.ConversationUpdate{Status: &active}
	if !conv.Assigned() {
		viewer := c.session.Viewer.ID
		update.AssignedAgentID = &viewer
	}
	updated, err := c.convs.Update(ctx, conv.ID, update, store.ConversationFilter{})
	if err != nil {
		return nil, fmt.Errorf("update conversation after reply: %w", err)
	}

	c.patchLocal(updated.ID, Patch{
		Status:          &active,
		AssignedAgentID: update.AssignedAgentID,
		AppliedAt:       c.now(),
	})
	if c.sync != nil {
		c.sync.AppendLocal(*msg)
	}

	result := &ReplyResult{Message: *msg, Conversation: *updated}
	if err := c.relay.Deliver(ctx, relay.Delivery{
		ConversationID: conv.ID,
		Message:        content,
		Channel:        conv.Channel,
		SenderID:       conv.ChannelUserID,
		ChatID:         conv.ChatID,
	}); err != nil {
		// The reply is stored; the channel push is best-effort.
		result.DeliveryWarning = err
	}
	return result, nil
}

// SetStatus moves a conversation through the state machine, carrying the
// assignment side effects in the same store call: back to the assistant on
// active_ai, to the acting agent when reopening a closed conversation,
// untouched on close.
func (c *Controller) SetStatus(ctx context.Context, conversationID string, status store.ConversationStatus) (*store.Conversation, error) {
	normalized, err := store.ValidateConversationStatus(string(status))
	if err != nil {
		return nil, err
	}
	status = normalized

	conv, err := c.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	update := store.ConversationUpdate{Status: &status}
	switch status {
	case store.StatusActiveAI:
		if c.session.AssistantID != "" {
			assistant := c.session.AssistantID
			update.AssignedAgentID = &assistant
		} else {
			update.ClearAssignment = true
		}
	case store.StatusActiveHuman:
		if conv.Status == store.StatusClosed {
			viewer := c.session.Viewer.ID
			update.AssignedAgentID = &viewer
		}
	}

	updated, err := c.convs.Update(ctx, conv.ID, update, store.ConversationFilter{})
	if err != nil {
		return nil, err
	}

	c.patchLocal(updated.ID, Patch{
		Status:          &status,
		AssignedAgentID: update.AssignedAgentID,
		ClearAssignment: update.ClearAssignment,
		AppliedAt:       c.now(),
	})
	return updated, nil
}

// AssignAgent hands a conversation to a profile. Assigning the assistant
// returns the conversation to AI handling.
func (c *Controller) AssignAgent(ctx context.Context, conversationID, agentID string) (*store.Conversation, error) {
	if agentID == "" {
		return nil, &store.StoreError{Code: store.ErrValidation, Message: "agent id must not be empty"}
	}

	status := store.StatusActiveHuman
	if agentID == c.session.AssistantID {
		status = store.StatusActiveAI
	}

	updated, err := c.convs.Update(ctx, conversationID, store.ConversationUpdate{
		Status:          &status,
		AssignedAgentID: &agentID,
	}, store.ConversationFilter{})
	if err != nil {
		return nil, err
	}

	c.patchLocal(updated.ID, Patch{
		Status:          &status,
		AssignedAgentID: &agentID,
		AppliedAt:       c.now(),
	})
	return updated, nil
}

// Claim assigns a conversation to the acting agent. Two agents claiming the
// same conversation is last-write-wins; both converge via the change feed.
func (c *Controller) Claim(ctx context.Context, conversationID string) (*store.Conversation, error) {
	return c.AssignAgent(ctx, conversationID, c.session.Viewer.ID)
}

// Handoff returns a conversation to the assistant.
func (c *Controller) Handoff(ctx context.Context, conversationID string) (*store.Conversation, error) {
	return c.SetStatus(ctx, conversationID, store.StatusActiveAI)
}

// Close closes a conversation, leaving its assignment for the audit trail.
func (c *Controller) Close(ctx context.Context, conversationID string) (*store.Conversation, error) {
	return c.SetStatus(ctx, conversationID, store.StatusClosed)
}

// Reopen brings a closed conversation back under the acting agent.
func (c *Controller) Reopen(ctx context.Context, conversationID string) (*store.Conversation, error) {
	return c.SetStatus(ctx, conversationID, store.StatusActiveHuman)
}

func (c *Controller) patchLocal(conversationID string, patch Patch) {
	if c.sync == nil {
		return
	}
	c.sync.ApplyOptimistic(conversationID, patch)
}
