package cmd

import (
	"fmt"
	"time"

	"github.com/azteclab/trueblue-cli/internal/config"
	"github.com/azteclab/trueblue-cli/internal/relay"
	"github.com/azteclab/trueblue-cli/internal/store"
)

type clientFactory struct {
	timeout   time.Duration
	userAgent string
}

func newClientFactory() *clientFactory {
	return &clientFactory{
		timeout:   flags.Timeout,
		userAgent: fmt.Sprintf("trueblue-cli/%s", version),
	}
}

func (f *clientFactory) account() (*store.Client, error) {
	cfg, err := config.ResolveClientConfig(flags.StoreURL, flags.APIKey)
	if err != nil {
		return nil, err
	}
	return f.newClient(cfg), nil
}

func (f *clientFactory) newClient(cfg config.ClientConfig) *store.Client {
	client := store.New(cfg.StoreURL, cfg.APIKey)
	client.AuthToken = cfg.AuthToken
	if f.timeout > 0 {
		client.HTTP.Timeout = f.timeout
	}
	if f.userAgent != "" {
		client.UserAgent = f.userAgent
	}
	applyRetryOverrides(client)
	return client
}

// relayClient wires the outbound delivery client over the store's
// function endpoint.
func relayClient(client *store.Client) *relay.Client {
	return relay.New(client)
}

func applyRetryOverrides(client *store.Client) {
	cfg := client.RetryConfig

	if flags.MaxRateLimitRetriesSet {
		cfg.MaxRateLimitRetries = flags.MaxRateLimitRetries
	}
	if flags.Max5xxRetriesSet {
		cfg.Max5xxRetries = flags.Max5xxRetries
	}
	if flags.RateLimitDelaySet {
		cfg.RateLimitBaseDelay = flags.RateLimitDelay
	}
	if flags.ServerErrorDelaySet {
		cfg.ServerErrorRetryDelay = flags.ServerErrorDelay
	}

	client.RetryConfig = cfg
}
