package store

import (
	"fmt"
	"strings"
	"time"
)

// Role is a profile role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

// ProfileStatus is a profile lifecycle state.
type ProfileStatus string

const (
	ProfilePending  ProfileStatus = "pending"
	ProfileActive   ProfileStatus = "active"
	ProfileInactive ProfileStatus = "inactive"
)

// ConversationStatus is a conversation state-machine state.
type ConversationStatus string

const (
	StatusActiveAI     ConversationStatus = "active_ai"
	StatusPendingHuman ConversationStatus = "pending_human"
	StatusActiveHuman  ConversationStatus = "active_human"
	StatusClosed       ConversationStatus = "closed"
)

// SenderRole identifies who authored a message.
type SenderRole string

const (
	SenderUser  SenderRole = "user"
	SenderAI    SenderRole = "ai"
	SenderAgent SenderRole = "agent"
)

// ValidateConversationStatus checks a status string against the four defined states.
func ValidateConversationStatus(s string) (ConversationStatus, error) {
	status := ConversationStatus(strings.TrimSpace(strings.ToLower(s)))
	switch status {
	case StatusActiveAI, StatusPendingHuman, StatusActiveHuman, StatusClosed:
		return status, nil
	}
	return "", &StoreError{
		Code:    ErrValidation,
		Message: fmt.Sprintf("invalid conversation status %q (valid: active_ai, pending_human, active_human, closed)", s),
	}
}

// ValidateRole checks a role string against the defined roles.
func ValidateRole(s string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(s)))
	switch role {
	case RoleAdmin, RoleAgent:
		return role, nil
	}
	return "", &StoreError{
		Code:    ErrValidation,
		Message: fmt.Sprintf("invalid role %q (valid: admin, agent)", s),
	}
}

// Profile is a row in the profiles table: a human agent, an admin, or the
// synthetic assistant identity.
type Profile struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id,omitempty"` // auth identity, empty until activation
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Role      Role          `json:"role"`
	Status    ProfileStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Validate checks the row shape after decoding. Untrusted store responses are
// rejected at this boundary rather than flowing into the aggregator.
func (p *Profile) Validate() error {
	if p.ID == "" {
		return &StoreError{Code: ErrValidation, Message: "profile row missing id"}
	}
	if p.Email == "" {
		return &StoreError{Code: ErrValidation, Message: fmt.Sprintf("profile %s missing email", p.ID)}
	}
	if _, err := ValidateRole(string(p.Role)); err != nil {
		return fmt.Errorf("profile %s: %w", p.ID, err)
	}
	switch p.Status {
	case ProfilePending, ProfileActive, ProfileInactive:
	default:
		return &StoreError{Code: ErrValidation, Message: fmt.Sprintf("profile %s has unknown status %q", p.ID, p.Status)}
	}
	return nil
}

// Conversation is a row in the tb_conversations table: one dialogue with one
// end-user on one channel. Duplicate rows for the same end-user can exist
// (ingestion races); the inbox aggregator consolidates them.
type Conversation struct {
	ID              string             `json:"id"`
	ChannelUserID   string             `json:"channel_user_id"`
	ChannelUsername string             `json:"channel_username,omitempty"`
	Channel         string             `json:"channel"`
	ChatID          string             `json:"chat_id,omitempty"` // channel-side chat handle for the relay
	Status          ConversationStatus `json:"status"`
	AssignedAgentID string             `json:"assigned_agent_id,omitempty"`
	Summary         string             `json:"summary,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Assigned reports whether the conversation has an assigned agent.
func (c *Conversation) Assigned() bool {
	return c.AssignedAgentID != ""
}

// Validate checks the row shape after decoding.
func (c *Conversation) Validate() error {
	if c.ID == "" {
		return &StoreError{Code: ErrValidation, Message: "conversation row missing id"}
	}
	if c.ChannelUserID == "" {
		return &StoreError{Code: ErrValidation, Message: fmt.Sprintf("conversation %s missing channel_user_id", c.ID)}
	}
	if _, err := ValidateConversationStatus(string(c.Status)); err != nil {
		return fmt.Errorf("conversation %s: %w", c.ID, err)
	}
	return nil
}

// Message is a row in the tb_messages table. Append-only: normal flow never
// mutates or deletes a message.
type Message struct {
	ID                 string     `json:"id"`
	ConversationID     string     `json:"conversation_id"`
	Content            string     `json:"content"`
	SenderRole         SenderRole `json:"sender_role"`
	RespondedByAgentID string     `json:"responded_by_agent_id,omitempty"`
	ChannelMessageID   string     `json:"channel_message_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Validate checks the row shape after decoding.
func (m *Message) Validate() error {
	if m.ID == "" {
		return &StoreError{Code: ErrValidation, Message: "message row missing id"}
	}
	if m.ConversationID == "" {
		return &StoreError{Code: ErrValidation, Message: fmt.Sprintf("message %s missing conversation_id", m.ID)}
	}
	switch m.SenderRole {
	case SenderUser, SenderAI, SenderAgent:
	default:
		return &StoreError{Code: ErrValidation, Message: fmt.Sprintf("message %s has unknown sender_role %q", m.ID, m.SenderRole)}
	}
	return nil
}

// NewMessage is the insert payload for a message row.
type NewMessage struct {
	ConversationID     string     `json:"conversation_id"`
	Content            string     `json:"content"`
	SenderRole         SenderRole `json:"sender_role"`
	RespondedByAgentID string     `json:"responded_by_agent_id,omitempty"`
}

// Validate checks the insert payload before it is sent.
func (m *NewMessage) Validate() error {
	if m.ConversationID == "" {
		return &StoreError{Code: ErrValidation, Message: "message requires a conversation_id"}
	}
	if strings.TrimSpace(m.Content) == "" {
		return &StoreError{Code: ErrValidation, Message: "message content must not be empty"}
	}
	switch m.SenderRole {
	case SenderUser, SenderAI, SenderAgent:
	default:
		return &StoreError{Code: ErrValidation, Message: fmt.Sprintf("unknown sender_role %q", m.SenderRole)}
	}
	return nil
}

// Invitation is a row in the user_invitations table: a one-time credential
// binding an email address to a role.
type Invitation struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Token     string    `json:"token"`
	InvitedBy string    `json:"invited_by,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// Usable reports whether the invitation can still be consumed at the given time.
func (i *Invitation) Usable(now time.Time) bool {
	return !i.Used && now.Before(i.ExpiresAt)
}
