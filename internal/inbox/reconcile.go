package inbox

import (
	"time"

	"github.com/azteclab/trueblue-cli/internal/store"
)

// Patch records an optimistic local change applied after the store confirmed
// a write, so a change-feed event for the same row can be reconciled
// deterministically instead of clobbering newer local state with an older
// event that was still in flight.
type Patch struct {
	Status          *store.ConversationStatus
	AssignedAgentID *string
	ClearAssignment bool
	AppliedAt       time.Time
}

func (p *Patch) apply(c store.Conversation) store.Conversation {
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.ClearAssignment {
		c.AssignedAgentID = ""
	} else if p.AssignedAgentID != nil {
		c.AssignedAgentID = *p.AssignedAgentID
	}
	if p.AppliedAt.After(c.UpdatedAt) {
		c.UpdatedAt = p.AppliedAt
	}
	return c
}

// Reconcile merges a confirmed change-feed row into local state that may
// carry an optimistic patch. Last write wins on time: an event at least as
// new as the patch replaces the row outright; an older event is taken as
// the base truth with the patched fields re-applied on top.
func Reconcile(state store.Conversation, patch *Patch, event store.Conversation) store.Conversation {
	if patch == nil {
		if event.UpdatedAt.Before(state.UpdatedAt) {
			return state
		}
		return event
	}
	if !event.UpdatedAt.Before(patch.AppliedAt) {
		return event
	}
	return patch.apply(event)
}
