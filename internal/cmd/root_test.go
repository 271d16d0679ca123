package cmd

import (
	"context"
	"strings"
	"testing"
)

func TestRootHelp(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{}); err != nil {
			t.Errorf("bare tb failed: %v", err)
		}
	})

	containsAll(t, output,
		"tb — CLI for the TrueBlue support inbox",
		"CORE COMMANDS",
		"inbox list",
		"MANAGEMENT COMMANDS")
}

func TestRootUnknownCommand_Suggests(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	var execErr error
	stderr := captureStderr(t, func() {
		execErr = Execute(context.Background(), []string{"inbxo"})
	})

	if execErr == nil {
		t.Fatal("expected error for unknown command")
	}
	if ExitCode(execErr) != exitUsage {
		t.Errorf("exit code = %d, want %d", ExitCode(execErr), exitUsage)
	}
	containsAll(t, stderr, `unknown command "inbxo"`, `Did you mean "inbox"?`)
}

func TestRootUnknownCommand_NoSuggestion(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	var execErr error
	stderr := captureStderr(t, func() {
		execErr = Execute(context.Background(), []string{"zzzzzzzzz"})
	})

	if execErr == nil {
		t.Fatal("expected error for unknown command")
	}
	if strings.Contains(stderr, "Did you mean") {
		t.Errorf("no suggestion expected, got %q", stderr)
	}
}

func TestRootUnknownFlag_Suggests(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	var execErr error
	stderr := captureStderr(t, func() {
		execErr = Execute(context.Background(), []string{"inbox", "list", "--chanel", "telegram"})
	})

	if execErr == nil {
		t.Fatal("expected error for unknown flag")
	}
	containsAll(t, stderr,
		"unknown flag: --chanel",
		`Did you mean "--channel"?`,
		`Run "tb inbox list --help" to see supported flags.`)
}

func TestRootJSONOutputConflict(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	err := Execute(context.Background(), []string{"version", "--json", "--output", "text"})
	if err == nil || !strings.Contains(err.Error(), "--json conflicts with --output text") {
		t.Errorf("err = %v", err)
	}
}

func TestRootJSONShorthand(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"version", "-j"}); err != nil {
			t.Errorf("version -j failed: %v", err)
		}
	})

	if !strings.Contains(output, `"version"`) {
		t.Errorf("expected JSON output, got %q", output)
	}
}

func TestRootQuietSuppressesOutput(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"version", "--quiet"}); err != nil {
			t.Errorf("version --quiet failed: %v", err)
		}
	})

	if strings.TrimSpace(output) != "" {
		t.Errorf("quiet run should print nothing, got %q", output)
	}
}

func TestRootQueryFileConflicts(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	err := Execute(context.Background(), []string{"version", "--query-file", "any.jq", "--jq", "."})
	if err == nil || !strings.Contains(err.Error(), "--query-file cannot be used with --query or --jq") {
		t.Errorf("err = %v", err)
	}
}

func TestRootInvalidOutputFormat(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	err := Execute(context.Background(), []string{"version", "--output", "yaml"})
	if err == nil || !strings.Contains(err.Error(), "yaml") {
		t.Errorf("err = %v", err)
	}
}
