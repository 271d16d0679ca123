package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Input length limits to prevent resource exhaustion
const (
	MaxNameLength    = 255
	MaxEmailLength   = 320    // RFC 5321: 64 chars (local) + 1 (@) + 255 (domain) = 320
	MaxMessageLength = 100000 // 100KB for message content
	MaxIDLength      = 64
)

// ValidateName validates an agent display name length
func ValidateName(name string) error {
	if name == "" {
		return nil // Empty names are allowed (field is optional in some contexts)
	}

	length := utf8.RuneCountInString(name)
	if length > MaxNameLength {
		return fmt.Errorf("name exceeds maximum length of %d characters (got %d)", MaxNameLength, length)
	}

	return nil
}

// ValidateEmail validates an email address length
func ValidateEmail(email string) error {
	if email == "" {
		return nil // Empty emails are allowed (field is optional in some contexts)
	}

	length := utf8.RuneCountInString(email)
	if length > MaxEmailLength {
		return fmt.Errorf("email exceeds maximum length of %d characters (got %d)", MaxEmailLength, length)
	}

	return nil
}

// ValidateMessageContent validates message content length.
// Empty content is rejected by the callers that require it; length alone
// is checked here.
func ValidateMessageContent(content string) error {
	if content == "" {
		return nil
	}

	// Byte length: content is transmitted as UTF-8.
	length := len(content)
	if length > MaxMessageLength {
		return fmt.Errorf("message content exceeds maximum size of %d bytes (got %d)", MaxMessageLength, length)
	}

	return nil
}

// ValidateEmailFormat validates the format of an email address.
// Returns nil for empty emails (optional field).
func ValidateEmailFormat(email string) error {
	if email == "" {
		return nil // Optional field
	}
	_, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	return nil
}

// ValidateID checks a record identifier: non-empty after trimming and
// within a sane length bound.
func ValidateID(id string, fieldName string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("invalid %s: exceeds maximum length of %d characters", fieldName, MaxIDLength)
	}
	return nil
}
