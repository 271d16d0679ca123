package cmd

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func TestNormalizeEnum(t *testing.T) {
	valid := []string{"active_ai", "pending_human", "active_human", "closed"}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{name: "exact", input: "closed", want: "closed"},
		{name: "case and whitespace", input: "  CLOSED ", want: "closed"},
		{name: "unique prefix", input: "pend", want: "pending_human"},
		{name: "shortest unique prefix", input: "c", want: "closed"},
		{name: "ambiguous prefix", input: "active", wantErr: "ambiguous"},
		{name: "no match", input: "archived", wantErr: "must be one of"},
		{name: "empty", input: "", wantErr: "requires one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeEnum("status", tt.input, valid)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("normalizeEnum(%q) err = %v, want containing %q", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeEnum(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("normalizeEnum(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"7c9e6679-7425-40de-944b-e07fc1f90ae7", "7c9e6679"},
		{"abc", "abc"},
		{"abcdefghijkl", "abcdefgh"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortID(tt.in); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	got := truncate("a long line that should definitely be cut somewhere", 20)
	if len([]rune(got)) != 20 || !strings.HasSuffix(got, "…") {
		t.Errorf("truncate long = %q (len %d)", got, len([]rune(got)))
	}
	if got := truncate("line\nwith\nbreaks", 48); got != "line with breaks" {
		t.Errorf("truncate newlines = %q", got)
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "*****"},
		{"12345678", "********"},
		{"sk-abcdef1234567890", "sk-a***********7890"},
	}
	for _, tt := range tests {
		if got := maskToken(tt.in); got != tt.want {
			t.Errorf("maskToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHandledErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	handled := &handledError{err: inner, exitCode: 4}

	if !errors.Is(handled, errAlreadyHandled) {
		t.Error("handledError should unwrap to errAlreadyHandled")
	}
	if handled.Error() != "boom" {
		t.Errorf("Error() = %q, want %q", handled.Error(), "boom")
	}
	if handled.ExitCode() != 4 {
		t.Errorf("ExitCode() = %d, want 4", handled.ExitCode())
	}
}

func TestFormatTimestamps(t *testing.T) {
	setTimeLocation(time.UTC)
	defer setTimeLocation(nil)

	ts := time.Date(2026, 1, 5, 10, 5, 42, 0, time.UTC)
	if got := formatTimestamp(ts); got != "2026-01-05 10:05:42" {
		t.Errorf("formatTimestamp = %q", got)
	}
	if got := formatTimestampShort(ts); got != "2026-01-05 10:05" {
		t.Errorf("formatTimestampShort = %q", got)
	}
	if got := formatDate(ts); got != "2026-01-05" {
		t.Errorf("formatDate = %q", got)
	}
}

func TestFlagAlias_MarksCanonicalChanged(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var status string
	fs.StringVar(&status, "status", "", "")
	flagAlias(fs, "status", "st")

	if err := fs.Parse([]string{"--st", "closed"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if status != "closed" {
		t.Errorf("status = %q, want closed", status)
	}
	if !fs.Changed("status") {
		t.Error("setting the alias should mark the canonical flag Changed")
	}

	alias := fs.Lookup("st")
	if alias == nil {
		t.Fatal("alias flag not registered")
	}
	if !alias.Hidden {
		t.Error("alias should be hidden")
	}
	if ann := alias.Annotations["alias-of"]; len(ann) != 1 || ann[0] != "status" {
		t.Errorf("alias-of annotation = %v", ann)
	}
}

func TestFlagAlias_UnknownFlagPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown canonical flag")
		}
	}()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flagAlias(fs, "nope", "np")
}

func TestFlagOrAliasChanged(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
		c.Flags().String("channel", "", "")
		flagAlias(c.Flags(), "channel", "chn")
		return c
	}

	c := newCmd()
	c.SetArgs([]string{"--chn", "telegram"})
	if err := c.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !flagOrAliasChanged(c, "channel") {
		t.Error("alias set: flagOrAliasChanged should be true")
	}

	c = newCmd()
	c.SetArgs([]string{})
	if err := c.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if flagOrAliasChanged(c, "channel") {
		t.Error("nothing set: flagOrAliasChanged should be false")
	}
}
