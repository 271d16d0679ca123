package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// NewProfile is the insert payload for a pending profile row. UserID stays
// empty until the invited person signs in for the first time.
type NewProfile struct {
	Email  string        `json:"email"`
	Name   string        `json:"name,omitempty"`
	Role   Role          `json:"role"`
	Status ProfileStatus `json:"status"`
}

// List retrieves every profile.
func (s ProfilesService) List(ctx context.Context) ([]Profile, error) {
	return listProfiles(ctx, s)
}

func listProfiles(ctx context.Context, r Requester) ([]Profile, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "created_at.asc")

	var result []Profile
	if err := r.do(ctx, http.MethodGet, r.tablePath(TableProfiles)+"?"+query.Encode(), nil, &result); err != nil {
		return nil, err
	}
	for i := range result {
		if err := result[i].Validate(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Get retrieves a profile by id.
func (s ProfilesService) Get(ctx context.Context, id string) (*Profile, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("id", "eq."+id)
	return getOneProfile(ctx, s, query, fmt.Sprintf("profile %s not found", id))
}

// GetByEmail retrieves a profile by its email address.
func (s ProfilesService) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("email", "eq."+strings.ToLower(email))
	return getOneProfile(ctx, s, query, fmt.Sprintf("no profile for %s", email))
}

func getOneProfile(ctx context.Context, r Requester, query url.Values, notFoundMsg string) (*Profile, error) {
	var result []Profile
	if err := r.do(ctx, http.MethodGet, r.tablePath(TableProfiles)+"?"+query.Encode(), nil, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, &StoreError{Code: ErrNotFound, StatusCode: http.StatusNotFound, Message: notFoundMsg}
	}
	if err := result[0].Validate(); err != nil {
		return nil, err
	}
	return &result[0], nil
}

// CreatePending inserts a pending profile for an invited email address.
func (s ProfilesService) CreatePending(ctx context.Context, p NewProfile) (*Profile, error) {
	if p.Email == "" {
		return nil, &StoreError{Code: ErrValidation, Message: "profile requires an email"}
	}
	role, err := ValidateRole(string(p.Role))
	if err != nil {
		return nil, err
	}
	p.Role = role
	p.Email = strings.ToLower(p.Email)
	p.Status = ProfilePending

	var result []Profile
	if err := s.doPrefer(ctx, http.MethodPost, s.tablePath(TableProfiles), preferRepresentation, p, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, &StoreError{Code: ErrServerError, Message: "store returned no row for inserted profile"}
	}
	return &result[0], nil
}

// Activate flips a pending profile to active and binds it to an auth user.
// The update is conditional on the row still being pending, so a profile
// activates exactly once even when two sign-ins race.
func (s ProfilesService) Activate(ctx context.Context, email, userID string) (*Profile, error) {
	query := url.Values{}
	query.Set("email", "eq."+strings.ToLower(email))
	query.Set("status", "eq."+string(ProfilePending))

	patch := map[string]any{
		"status":  ProfileActive,
		"user_id": userID,
	}

	var result []Profile
	if err := s.doPrefer(ctx, http.MethodPatch, s.tablePath(TableProfiles)+"?"+query.Encode(), preferRepresentation, patch, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, &StoreError{Code: ErrConflict, StatusCode: http.StatusConflict, Message: fmt.Sprintf("profile for %s is not pending", email)}
	}
	return &result[0], nil
}

// SetStatus changes a profile's lifecycle state.
func (s ProfilesService) SetStatus(ctx context.Context, id string, status ProfileStatus) (*Profile, error) {
	switch status {
	case ProfilePending, ProfileActive, ProfileInactive:
	default:
		return nil, &StoreError{Code: ErrValidation, Message: fmt.Sprintf("unknown profile status %q", status)}
	}

	query := url.Values{}
	query.Set("id", "eq."+id)

	var result []Profile
	if err := s.doPrefer(ctx, http.MethodPatch, s.tablePath(TableProfiles)+"?"+query.Encode(), preferRepresentation, map[string]any{"status": status}, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, &StoreError{Code: ErrNotFound, StatusCode: http.StatusNotFound, Message: fmt.Sprintf("profile %s not found", id)}
	}
	return &result[0], nil
}

// Update changes a profile's name or role.
func (s ProfilesService) Update(ctx context.Context, id string, name string, role Role) (*Profile, error) {
	patch := map[string]any{}
	if name != "" {
		patch["name"] = name
	}
	if role != "" {
		normalized, err := ValidateRole(string(role))
		if err != nil {
			return nil, err
		}
		patch["role"] = normalized
	}
	if len(patch) == 0 {
		return nil, &StoreError{Code: ErrValidation, Message: "profile update has no fields"}
	}

	query := url.Values{}
	query.Set("id", "eq."+id)

	var result []Profile
	if err := s.doPrefer(ctx, http.MethodPatch, s.tablePath(TableProfiles)+"?"+query.Encode(), preferRepresentation, patch, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, &StoreError{Code: ErrNotFound, StatusCode: http.StatusNotFound, Message: fmt.Sprintf("profile %s not found", id)}
	}
	return &result[0], nil
}
