// Package config stores hosted-store credentials in the OS keychain (or an
// encrypted file on headless machines) and resolves them together with
// environment variables and flag overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const (
	serviceName       = "trueblue-cli"
	accountKey        = "default"
	defaultProfile    = "default"
	profilePrefix     = "profile:"
	profileIndexKey   = "profiles_index"
	currentProfileKey = "current_profile"
)

// Account holds the hosted-store connection details for one environment.
type Account struct {
	StoreURL    string `json:"store_url"`
	APIKey      string `json:"api_key"`
	AuthToken   string `json:"auth_token,omitempty"` // session bearer from auth login
	Email       string `json:"email,omitempty"`      // signed-in agent email
	AssistantID string `json:"assistant_id,omitempty"`
}

// ErrNotConfigured is returned when no account is configured
var ErrNotConfigured = errors.New("trueblue not configured - run 'tb auth login' first")

// credentialStore wraps a keyring with the JSON item plumbing the profile
// operations share.
type credentialStore struct {
	ring keyring.Keyring
}

func openStore() (*credentialStore, error) {
	ring, err := openKeyring(keyringConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return &credentialStore{ring: ring}, nil
}

func (s *credentialStore) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.ring.Set(keyring.Item{Key: key, Data: data})
}

// The default profile lives under the bare account key; named profiles get
// a prefixed key so they never collide with the index entries.
func profileKey(name string) string {
	if name == "" || name == defaultProfile {
		return accountKey
	}
	return profilePrefix + name
}

func (s *credentialStore) profiles() ([]string, error) {
	item, err := s.ring.Get(profileIndexKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile index: %w", err)
	}
	var profiles []string
	if err := json.Unmarshal(item.Data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile index: %w", err)
	}
	return profiles, nil
}

func (s *credentialStore) saveProfiles(profiles []string) error {
	if err := s.setJSON(profileIndexKey, profiles); err != nil {
		return fmt.Errorf("failed to save profile index: %w", err)
	}
	return nil
}

func normalizeProfiles(profiles []string) []string {
	seen := make(map[string]struct{}, len(profiles))
	var out []string
	for _, p := range profiles {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// SaveAccount stores credentials under the default profile.
func SaveAccount(account Account) error {
	return SaveProfile(defaultProfile, account)
}

// LoadAccount retrieves the account credentials. Environment variables win
// over the keychain so CI and scripts never touch a keyring.
func LoadAccount() (Account, error) {
	if storeURL := strings.TrimSpace(os.Getenv("TRUEBLUE_STORE_URL")); storeURL != "" {
		apiKey := strings.TrimSpace(os.Getenv("TRUEBLUE_API_KEY"))
		if apiKey == "" {
			return Account{}, fmt.Errorf("environment variables TRUEBLUE_STORE_URL and TRUEBLUE_API_KEY must both be set")
		}
		return Account{
			StoreURL:    strings.TrimSuffix(storeURL, "/"),
			APIKey:      apiKey,
			AuthToken:   strings.TrimSpace(os.Getenv("TRUEBLUE_AUTH_TOKEN")),
			Email:       strings.TrimSpace(os.Getenv("TRUEBLUE_EMAIL")),
			AssistantID: strings.TrimSpace(os.Getenv("TRUEBLUE_ASSISTANT_ID")),
		}, nil
	}

	profile := strings.TrimSpace(os.Getenv("TRUEBLUE_PROFILE"))
	if profile == "" {
		current, err := CurrentProfile()
		if err != nil {
			return Account{}, err
		}
		profile = current
	}
	return LoadProfile(profile)
}

// SaveProfile stores credentials under a named profile and makes it current.
func SaveProfile(profile string, account Account) error {
	if profile == "" {
		profile = defaultProfile
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	if err := store.setJSON(profileKey(profile), account); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	profiles, err := store.profiles()
	if err != nil {
		return err
	}
	if err := store.saveProfiles(normalizeProfiles(append(profiles, profile))); err != nil {
		return err
	}

	return SetCurrentProfile(profile)
}

// LoadProfile retrieves credentials for a named profile.
func LoadProfile(profile string) (Account, error) {
	store, err := openStore()
	if err != nil {
		return Account{}, err
	}

	item, err := store.ring.Get(profileKey(profile))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return Account{}, ErrNotConfigured
	}
	if err != nil {
		return Account{}, fmt.Errorf("failed to get profile: %w", err)
	}

	var account Account
	if err := json.Unmarshal(item.Data, &account); err != nil {
		return Account{}, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return account, nil
}

// DeleteAccount removes the default profile's credentials.
func DeleteAccount() error {
	return DeleteProfile(defaultProfile)
}

// DeleteProfile removes a stored profile. When the deleted profile was
// current, the first remaining profile (or the default) becomes current.
func DeleteProfile(profile string) error {
	if profile == "" {
		profile = defaultProfile
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	if err := store.ring.Remove(profileKey(profile)); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("failed to remove profile: %w", err)
	}

	profiles, err := store.profiles()
	if err != nil {
		return err
	}
	var remaining []string
	for _, p := range profiles {
		if p != profile {
			remaining = append(remaining, p)
		}
	}
	if err := store.saveProfiles(remaining); err != nil {
		return err
	}

	if current, err := CurrentProfile(); err == nil && current == profile {
		next := defaultProfile
		if len(remaining) > 0 {
			next = remaining[0]
		}
		_ = SetCurrentProfile(next)
	}

	return nil
}

// HasAccount reports whether any usable credentials are available.
func HasAccount() bool {
	_, err := LoadAccount()
	return err == nil
}

// ListProfiles returns the known profile names. An account saved before
// profiles existed shows up as the default profile.
func ListProfiles() ([]string, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}

	profiles, err := store.profiles()
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		if _, err := store.ring.Get(accountKey); err == nil {
			return []string{defaultProfile}, nil
		}
	}
	return profiles, nil
}

// CurrentProfile returns the active profile name.
func CurrentProfile() (string, error) {
	store, err := openStore()
	if err != nil {
		return "", err
	}

	item, err := store.ring.Get(currentProfileKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return defaultProfile, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get current profile: %w", err)
	}
	return string(item.Data), nil
}

// SetCurrentProfile sets the active profile name.
func SetCurrentProfile(profile string) error {
	if profile == "" {
		profile = defaultProfile
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	return store.ring.Set(keyring.Item{Key: currentProfileKey, Data: []byte(profile)})
}
