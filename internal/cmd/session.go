package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/azteclab/trueblue-cli/internal/cache"
	"github.com/azteclab/trueblue-cli/internal/config"
	"github.com/azteclab/trueblue-cli/internal/inbox"
	"github.com/azteclab/trueblue-cli/internal/store"
)

// currentSession resolves the acting profile and the assistant identity for
// controller calls. The signed-in email comes from the saved account; the
// profile row behind it is looked up in the store (through the profile
// cache, so repeated commands don't refetch).
func currentSession(ctx context.Context, client *store.Client) (inbox.Session, error) {
	account, err := config.LoadAccount()
	if err != nil {
		return inbox.Session{}, err
	}
	if account.Email == "" {
		return inbox.Session{}, fmt.Errorf("no signed-in agent email; run 'tb auth login' with --email")
	}

	viewer, err := lookupProfileByEmail(ctx, client, account.Email)
	if err != nil {
		return inbox.Session{}, err
	}
	if viewer.Status != store.ProfileActive {
		return inbox.Session{}, &store.StoreError{
			Code:    store.ErrForbidden,
			Message: fmt.Sprintf("profile for %s is %s, not active", account.Email, viewer.Status),
		}
	}

	return inbox.Session{Viewer: *viewer, AssistantID: account.AssistantID}, nil
}

// lookupProfileByEmail finds a profile via the cached profile list, falling
// back to a direct store lookup on a cache miss for that email.
func lookupProfileByEmail(ctx context.Context, client *store.Client, email string) (*store.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	backend := profileCache(client.BaseURL)
	var cached []store.Profile
	if backend.Get(&cached) {
		for i := range cached {
			if strings.ToLower(cached[i].Email) == email {
				return &cached[i], nil
			}
		}
	}

	profiles, err := client.Profiles().List(ctx)
	if err != nil {
		return nil, err
	}
	backend.Put(profiles)

	for i := range profiles {
		if strings.ToLower(profiles[i].Email) == email {
			return &profiles[i], nil
		}
	}
	return nil, &store.StoreError{
		Code:    store.ErrNotFound,
		Message: fmt.Sprintf("no profile for %s", email),
	}
}

// cachedProfiles lists profiles through the cache.
func cachedProfiles(ctx context.Context, client *store.Client) ([]store.Profile, error) {
	backend := profileCache(client.BaseURL)
	var cached []store.Profile
	if backend.Get(&cached) {
		return cached, nil
	}
	profiles, err := client.Profiles().List(ctx)
	if err != nil {
		return nil, err
	}
	backend.Put(profiles)
	return profiles, nil
}

func profileCache(storeURL string) cache.Backend {
	return cache.Open(resolveCacheDir(), "profiles", storeURL)
}

func resolveCacheDir() string {
	if dir := strings.TrimSpace(os.Getenv("TRUEBLUE_CACHE_DIR")); dir != "" {
		return dir
	}
	dir, err := cache.DefaultDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return ""
		}
		return filepath.Join(home, ".trueblue", "cache")
	}
	return dir
}
