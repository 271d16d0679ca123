package dryrun

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestWithDryRun(t *testing.T) {
	ctx := WithDryRun(context.Background(), true)
	if !IsEnabled(ctx) {
		t.Error("IsEnabled should return true when dry-run is enabled")
	}
}

func TestIsEnabled_DefaultFalse(t *testing.T) {
	if IsEnabled(context.Background()) {
		t.Error("IsEnabled should return false by default")
	}
}

func TestWithDryRun_Disabled(t *testing.T) {
	ctx := WithDryRun(context.Background(), false)
	if IsEnabled(ctx) {
		t.Error("IsEnabled should return false when dry-run is explicitly disabled")
	}
}

func TestPreview_Write(t *testing.T) {
	p := &Preview{
		Operation: "close",
		Resource:  "conversation 7c9e6679",
		Details: []Detail{
			{"status", "closed"},
			{"agent", "7c9e6679"},
		},
	}

	var buf bytes.Buffer
	p.Write(&buf)

	output := buf.String()
	if !strings.Contains(output, "[dry-run] would close conversation 7c9e6679") {
		t.Errorf("missing header in %q", output)
	}
	// Details keep their insertion order.
	if strings.Index(output, "status: closed") > strings.Index(output, "agent: 7c9e6679") {
		t.Errorf("details out of order in %q", output)
	}
	if !strings.Contains(output, "No changes made.") {
		t.Errorf("missing footer in %q", output)
	}
}

func TestPreview_WriteMinimal(t *testing.T) {
	p := &Preview{Operation: "claim", Resource: "conversation 0b1f3c2a"}

	var buf bytes.Buffer
	p.Write(&buf)

	output := buf.String()
	if !strings.Contains(output, "[dry-run] would claim conversation 0b1f3c2a") {
		t.Errorf("output = %q", output)
	}
	if !strings.Contains(output, "No changes made.") {
		t.Errorf("output = %q", output)
	}
}
