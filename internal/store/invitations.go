package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// invitationTTL is how long an invitation token stays valid.
const invitationTTL = 7 * 24 * time.Hour

// NewInvitation is the input to Create.
type NewInvitation struct {
	Email     string
	Role      Role
	InvitedBy string
	// Reissue stamps a fresh token and expiry onto an existing unused
	// invitation instead of returning it unchanged.
	Reissue bool
}

// Create inserts an invitation with a fresh token. When an unused invitation
// for the same email already exists that row is reused as-is, reported via
// the second return value, unless Reissue is set. A used invitation is a
// hard conflict.
func (s InvitationsService) Create(ctx context.Context, inv NewInvitation) (*Invitation, bool, error) {
	if inv.Email == "" {
		return nil, false, &StoreError{Code: ErrValidation, Message: "invitation requires an email"}
	}
	role, err := ValidateRole(string(inv.Role))
	if err != nil {
		return nil, false, err
	}

	email := strings.ToLower(inv.Email)
	row := map[string]any{
		"email":      email,
		"role":       role,
		"token":      uuid.NewString(),
		"expires_at": time.Now().UTC().Add(invitationTTL).Format(time.RFC3339),
		"used":       false,
	}
	if inv.InvitedBy != "" {
		row["invited_by"] = inv.InvitedBy
	}

	var result []Invitation
	err = s.doPrefer(ctx, http.MethodPost, s.tablePath(TableInvitations), preferRepresentation, row, &result)
	if err == nil {
		if len(result) == 0 {
			return nil, false, &StoreError{Code: ErrServerError, Message: "store returned no row for inserted invitation"}
		}
		return &result[0], false, nil
	}
	if !IsConflict(err) {
		return nil, false, err
	}

	if inv.Reissue {
		refreshed, err := s.reissue(ctx, email, role)
		if err != nil {
			return nil, false, err
		}
		return refreshed, true, nil
	}
	existing, err := s.pendingFor(ctx, email)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

// pendingFor fetches the existing unused invitation for an email. No row
// means the invite was already accepted.
func (s InvitationsService) pendingFor(ctx context.Context, email string) (*Invitation, error) {
	query := url.Values{}
	query.Set("email", "eq."+email)
	query.Set("used", "eq.false")

	var result []Invitation
	if err := s.do(ctx, http.MethodGet, s.tablePath(TableInvitations)+"?"+query.Encode(), nil, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, &StoreError{Code: ErrConflict, StatusCode: http.StatusConflict, Message: fmt.Sprintf("%s already accepted an invitation", email)}
	}
	return &result[0], nil
}

// reissue replaces the token and expiry on an existing unused invitation.
func (s InvitationsService) reissue(ctx context.Context, email string, role Role) (*Invitation, error) {
	query := url.Values{}
	query.Set("email", "eq."+email)
	query.Set("used", "eq.false")

	patch := map[string]any{
		"role":       role,
		"token":      uuid.NewString(),
		"expires_at": time.Now().UTC().Add(invitationTTL).Format(time.RFC3339),
	}

	var result []Invitation
	if err := s.doPrefer(ctx, http.MethodPatch, s.tablePath(TableInvitations)+"?"+query.Encode(), preferRepresentation, patch, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, &StoreError{Code: ErrConflict, StatusCode: http.StatusConflict, Message: fmt.Sprintf("%s already accepted an invitation", email)}
	}
	return &result[0], nil
}

// Consume marks an invitation used. The update is conditional on the token
// being unused and unexpired, so a token redeems at most once.
func (s InvitationsService) Consume(ctx context.Context, token string) (*Invitation, error) {
	if token == "" {
		return nil, &StoreError{Code: ErrValidation, Message: "invitation token must not be empty"}
	}

	query := url.Values{}
	query.Set("token", "eq."+token)
	query.Set("used", "eq.false")
	query.Set("expires_at", "gt."+time.Now().UTC().Format(time.RFC3339))

	var result []Invitation
	if err := s.doPrefer(ctx, http.MethodPatch, s.tablePath(TableInvitations)+"?"+query.Encode(), preferRepresentation, map[string]any{"used": true}, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, &StoreError{Code: ErrNotFound, StatusCode: http.StatusNotFound, Message: "invitation token is invalid, used, or expired"}
	}
	return &result[0], nil
}

// ListPending retrieves invitations that have not been used yet, newest first.
// Expired rows are included so admins can see and re-issue them.
func (s InvitationsService) ListPending(ctx context.Context) ([]Invitation, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("used", "eq.false")
	query.Set("order", "created_at.desc")

	var result []Invitation
	if err := s.do(ctx, http.MethodGet, s.tablePath(TableInvitations)+"?"+query.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}
