package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/azteclab/trueblue-cli/internal/store"
)

// HandleError processes an error and returns a user-friendly message with suggestions
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder

	var storeErr *store.StoreError

	switch {
	case errors.As(err, &storeErr):
		writeStoreErrorMessage(&msg, storeErr)

	case strings.Contains(err.Error(), "connection refused"):
		msg.WriteString("Connection refused.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check if the store endpoint is reachable\n")
		msg.WriteString("  - Verify the URL: tb auth status\n")
		msg.WriteString("  - Check your network connection\n")

	case strings.Contains(err.Error(), "no such host"):
		msg.WriteString("DNS resolution failed.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check the store URL spelling\n")
		msg.WriteString("  - Verify your DNS settings\n")

	case strings.Contains(err.Error(), "certificate"):
		msg.WriteString("TLS certificate error.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Verify the server's SSL certificate\n")
		msg.WriteString("  - Check if the certificate is expired\n")
		msg.WriteString("  - Ensure you're using https:// correctly\n")

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	return msg.String()
}

func writeStoreErrorMessage(msg *strings.Builder, storeErr *store.StoreError) {
	fmt.Fprintf(msg, "Store error (%s): %s\n\n", storeErr.Code, storeErr.Message)
	msg.WriteString("Suggestions:\n")

	switch storeErr.Code {
	case store.ErrBadRequest, store.ErrValidation:
		msg.WriteString("  - Check your input values\n")
		msg.WriteString("  - Use --debug to see the full request\n")

	case store.ErrUnauthorized:
		msg.WriteString("  - Your API key may be invalid or expired\n")
		msg.WriteString("  - Run: tb auth login\n")

	case store.ErrForbidden:
		msg.WriteString("  - You don't have permission for this action\n")
		msg.WriteString("  - Check your profile role with: tb agents list\n")

	case store.ErrNotFound:
		msg.WriteString("  - The resource doesn't exist\n")
		msg.WriteString("  - Check the ID is correct\n")
		msg.WriteString("  - List conversations with: tb inbox list\n")

	case store.ErrConflict:
		msg.WriteString("  - Someone else changed this resource first\n")
		msg.WriteString("  - Refresh with: tb inbox list\n")
		msg.WriteString("  - Retry the action against the current state\n")

	case store.ErrRateLimited:
		msg.WriteString("  - Too many requests\n")
		msg.WriteString("  - Wait and retry in a few seconds\n")

	case store.ErrServerError:
		msg.WriteString("  - Store-side error - not your fault\n")
		msg.WriteString("  - Wait and retry\n")

	case store.ErrTimeout:
		msg.WriteString("  - The request timed out\n")
		msg.WriteString("  - Retry, or raise the limit with --timeout\n")

	default:
		msg.WriteString("  - Use --debug for more details\n")
	}
}

// ExitWithError prints error with suggestions and exits
func ExitWithError(err error) {
	if err == nil {
		return
	}
	_, _ = fmt.Fprint(os.Stderr, HandleError(err))
	os.Exit(ExitCode(err))
}
