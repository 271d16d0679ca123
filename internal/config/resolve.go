package config

import (
	"fmt"
	"os"
	"strings"
)

// ClientConfig contains resolved store client settings.
type ClientConfig struct {
	StoreURL    string
	APIKey      string
	AuthToken   string
	AssistantID string
}

// ResolveClientConfig resolves store client settings with flag overrides.
// Precedence: flags, then environment, then the stored profile.
func ResolveClientConfig(storeURLOverride, apiKeyOverride string) (ClientConfig, error) {
	var cfg ClientConfig

	if account, err := LoadAccount(); err == nil {
		cfg.StoreURL = account.StoreURL
		cfg.APIKey = account.APIKey
		cfg.AuthToken = account.AuthToken
		cfg.AssistantID = account.AssistantID
	}

	if storeURLOverride != "" {
		cfg.StoreURL = strings.TrimSuffix(storeURLOverride, "/")
	}
	if apiKeyOverride != "" {
		cfg.APIKey = apiKeyOverride
	}
	if assistant := strings.TrimSpace(os.Getenv("TRUEBLUE_ASSISTANT_ID")); assistant != "" {
		cfg.AssistantID = assistant
	}

	if cfg.StoreURL == "" {
		return ClientConfig{}, fmt.Errorf("store URL not configured (set TRUEBLUE_STORE_URL, run 'tb auth login', or pass --store-url)")
	}
	if cfg.APIKey == "" {
		return ClientConfig{}, fmt.Errorf("API key not configured (set TRUEBLUE_API_KEY, run 'tb auth login', or pass --api-key)")
	}

	return cfg, nil
}
