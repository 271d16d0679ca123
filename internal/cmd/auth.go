package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/azteclab/trueblue-cli/internal/config"
	"github.com/azteclab/trueblue-cli/internal/validation"
)

// newAuthCmd returns the auth command with subcommands
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auth",
		Aliases: []string{"au"},
		Short:   "Manage authentication credentials",
		Long:    "Configure and manage store credentials kept securely in your OS keychain.",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

// newAuthLoginCmd creates the auth login command
func newAuthLoginCmd() *cobra.Command {
	var (
		storeURL    string
		apiKey      string
		email       string
		inviteToken string
		assistantID string
		profile     string
		envFile     string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save store credentials",
		Long: strings.TrimSpace(`
Save store credentials securely to your OS keychain.

You'll need:
- Store URL: the hosted store endpoint (e.g. https://store.example.com)
- API Key: issued for your workspace
- Email: the agent identity you act as

If you were invited by an admin, pass --invite-token to redeem the
invitation; this activates your pending profile in one step.
`),
		Example: strings.TrimSpace(`
  # Plain login with flags
  tb auth login --store-url https://store.example.com --api-key KEY --email me@example.com

  # First login from an invitation mail
  tb auth login --store-url https://store.example.com --api-key KEY --email me@example.com --invite-token TOKEN

  # Load credentials from a .env file
  tb auth login --env-file .env

  # Save to a named profile
  tb auth login --store-url https://store.example.com --api-key KEY --email me@example.com --profile staging
`),
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if envFile != "" {
				envVars, err := loadAuthEnvFile(envFile)
				if err != nil {
					return err
				}
				applyAuthEnvFileRuntimeVars(envVars)

				if storeURL == "" {
					storeURL = strings.TrimSpace(envVars["TRUEBLUE_STORE_URL"])
				}
				if apiKey == "" {
					apiKey = strings.TrimSpace(envVars["TRUEBLUE_API_KEY"])
				}
				if email == "" {
					email = strings.TrimSpace(envVars["TRUEBLUE_EMAIL"])
				}
				if assistantID == "" {
					assistantID = strings.TrimSpace(envVars["TRUEBLUE_ASSISTANT_ID"])
				}
				if !cmd.Flags().Changed("profile") {
					if envProfile := strings.TrimSpace(envVars["TRUEBLUE_PROFILE"]); envProfile != "" {
						profile = envProfile
					}
				}
			}

			if storeURL == "" {
				return fmt.Errorf("--store-url is required")
			}
			if apiKey == "" {
				return fmt.Errorf("--api-key is required")
			}
			if email != "" {
				if err := validation.ValidateEmailFormat(email); err != nil {
					return err
				}
			}

			// Normalize URL (remove trailing slash)
			storeURL = strings.TrimSuffix(storeURL, "/")

			// Validate URL to prevent SSRF attacks
			if err := validation.ValidateStoreURL(storeURL); err != nil {
				return fmt.Errorf("invalid URL: %w", err)
			}

			account := config.Account{
				StoreURL:    storeURL,
				APIKey:      apiKey,
				Email:       strings.ToLower(strings.TrimSpace(email)),
				AssistantID: assistantID,
			}

			// Redeem the invitation before saving, so a bad token leaves
			// the keychain untouched.
			if inviteToken != "" {
				if account.Email == "" {
					return fmt.Errorf("--invite-token requires --email")
				}
				client := newClientFactory().newClient(config.ClientConfig{
					StoreURL: storeURL,
					APIKey:   apiKey,
				})
				ctx := cmdContext(cmd)
				inv, err := client.Invitations().Consume(ctx, inviteToken)
				if err != nil {
					return fmt.Errorf("failed to redeem invitation: %w", err)
				}
				if !strings.EqualFold(inv.Email, account.Email) {
					return fmt.Errorf("invitation was issued to %s, not %s", inv.Email, account.Email)
				}
				// The redeemed invitation id is the auth binding recorded
				// on the profile row.
				activated, err := client.Profiles().Activate(ctx, inv.Email, inv.ID)
				if err != nil {
					return fmt.Errorf("invitation redeemed but profile activation failed: %w", err)
				}
				printAction(cmd, "Activated", "profile", activated.ID, activated.Name)
			}

			if err := config.SaveProfile(profile, account); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Credentials saved successfully!")
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Store URL: %s\n", storeURL)
			if account.Email != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Email: %s\n", account.Email)
			}
			if profile != "" && profile != "default" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Profile: %s\n", profile)
			}

			return nil
		}),
	}

	cmd.Flags().StringVar(&storeURL, "store-url", "", "Store base URL (e.g. https://store.example.com)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Store API key")
	cmd.Flags().StringVar(&email, "email", "", "Agent email identity")
	cmd.Flags().StringVar(&inviteToken, "invite-token", "", "One-time invitation token to redeem")
	cmd.Flags().StringVar(&assistantID, "assistant-id", "", "Profile ID of the AI assistant (optional)")
	cmd.Flags().StringVar(&profile, "profile", "default", "Profile name to save credentials under")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Load TRUEBLUE_* values from a .env file")
	flagAlias(cmd.Flags(), "store-url", "su")
	flagAlias(cmd.Flags(), "api-key", "ak")
	flagAlias(cmd.Flags(), "email", "em")
	flagAlias(cmd.Flags(), "invite-token", "it")
	flagAlias(cmd.Flags(), "assistant-id", "asst")
	flagAlias(cmd.Flags(), "profile", "pf")
	flagAlias(cmd.Flags(), "env-file", "env")

	return cmd
}

func loadAuthEnvFile(path string) (map[string]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("--env-file requires a file path")
	}

	envVars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read --env-file %q: %w", path, err)
	}

	return envVars, nil
}

// applyAuthEnvFileRuntimeVars copies keyring/runtime settings from --env-file
// into process environment when they are not already exported.
func applyAuthEnvFileRuntimeVars(envVars map[string]string) {
	keys := []string{
		"TB_KEYRING_BACKEND",
		"TB_KEYRING_PASSWORD",
		"TB_CREDENTIALS_DIR",
		"TRUEBLUE_KEYRING_BACKEND",
		"TRUEBLUE_KEYRING_PASSWORD",
		"TRUEBLUE_CREDENTIALS_DIR",
	}

	for _, key := range keys {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		value := strings.TrimSpace(envVars[key])
		if value == "" {
			continue
		}
		_ = os.Setenv(key, value)
	}
}

// newAuthStatusCmd creates the auth status command
func newAuthStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show current authentication configuration",
		Long:  "Display the currently saved store configuration (API key is masked for security).",
		Example: strings.TrimSpace(`
  # Check authentication status
  tb auth status

  # JSON output for scripting
  tb auth status --json
`),
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			envStoreURL := strings.TrimSpace(os.Getenv("TRUEBLUE_STORE_URL"))
			envAPIKey := strings.TrimSpace(os.Getenv("TRUEBLUE_API_KEY"))
			usingEnv := envStoreURL != "" || envAPIKey != ""

			account, err := config.LoadAccount()
			if err != nil {
				if err == config.ErrNotConfigured {
					if isJSON(cmd) {
						return printJSON(cmd, map[string]any{
							"authenticated": false,
							"message":       "Not authenticated. Run 'tb auth login' to configure credentials.",
						})
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Not authenticated.")
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Run 'tb auth login' to configure credentials.")
					return nil
				}
				return fmt.Errorf("failed to load credentials: %w", err)
			}

			var profile string
			if !usingEnv {
				if current, err := config.CurrentProfile(); err == nil {
					profile = current
				}
			}

			if isJSON(cmd) {
				payload := map[string]any{
					"authenticated": true,
					"store_url":     account.StoreURL,
					"api_key":       maskToken(account.APIKey),
					"source":        map[bool]string{true: "env", false: "keychain"}[usingEnv],
				}
				if account.Email != "" {
					payload["email"] = account.Email
				}
				if account.AssistantID != "" {
					payload["assistant_id"] = account.AssistantID
				}
				if profile != "" {
					payload["profile"] = profile
				}
				return printJSON(cmd, payload)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Authenticated")
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Store URL: %s\n", account.StoreURL)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  API Key: %s\n", maskToken(account.APIKey))
			if account.Email != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Email: %s\n", account.Email)
			}
			if account.AssistantID != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Assistant: %s\n", account.AssistantID)
			}
			if profile != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Profile: %s\n", profile)
			}
			if usingEnv {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "  Source: env")
			}

			return nil
		}),
	}

	return cmd
}

// newAuthLogoutCmd creates the auth logout command
func newAuthLogoutCmd() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove credentials from keychain",
		Long:  "Delete the stored credentials from your OS keychain.",
		Example: strings.TrimSpace(`
  # Remove stored credentials
  tb auth logout
`),
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if profile == "" {
				current, err := config.CurrentProfile()
				if err == nil {
					profile = current
				}
			}

			if err := config.DeleteProfile(profile); err != nil {
				if err == config.ErrNotConfigured {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No stored credentials to remove.")
					return nil
				}
				return fmt.Errorf("failed to remove credentials: %w", err)
			}

			if profile != "" && profile != "default" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Credentials removed for profile %q.\n", profile)
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Credentials removed.")
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&profile, "profile", "", "Profile to remove (default: current)")
	flagAlias(cmd.Flags(), "profile", "pf")

	return cmd
}

// maskToken masks a secret for display, keeping the first and last 4
// characters of long values.
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
