package relay

import (
	"context"
	"fmt"

	"github.com/azteclab/trueblue-cli/internal/store"
)

const fnUserInvitation = "send-user-invitation"

// InviteOutcome is the result of requesting an invitation mail.
type InviteOutcome string

const (
	InviteSent          InviteOutcome = "sent"
	InviteAlreadyExists InviteOutcome = "already_exists"
	InviteFailed        InviteOutcome = "failed"
)

// SendInvitation is the mailer payload.
type SendInvitation struct {
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role"`
	InvitedBy string `json:"invitedBy,omitempty"`
	Token     string `json:"token"`
}

// SendInvite asks the mailer function to deliver an invitation. Already
// invited is a distinct outcome, not an error; every other failure returns
// InviteFailed with the error.
func (c *Client) SendInvite(ctx context.Context, inv SendInvitation) (InviteOutcome, error) {
	if inv.Email == "" || inv.Token == "" {
		return InviteFailed, fmt.Errorf("relay: invitation requires email and token")
	}

	if err := c.caller.CallFunction(ctx, fnUserInvitation, inv, nil); err != nil {
		if store.IsConflict(err) {
			return InviteAlreadyExists, nil
		}
		return InviteFailed, fmt.Errorf("relay: invitation mail for %s: %w", inv.Email, err)
	}
	return InviteSent, nil
}
