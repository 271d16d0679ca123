package resolve_test

import (
	"strings"
	"testing"

	"github.com/azteclab/trueblue-cli/internal/resolve"
)

func TestAmbiguousErrorString(t *testing.T) {
	err := &resolve.AmbiguousError{
		Query: "support",
		Matches: []resolve.Match{
			{ID: "agent-1", Name: "Support US"},
			{ID: "agent-2", Name: "Support EU"},
		},
	}

	msg := err.Error()
	if !strings.Contains(msg, `ambiguous match for "support"`) {
		t.Fatalf("missing query in error message: %q", msg)
	}
	if !strings.Contains(msg, "agent-1: Support US") || !strings.Contains(msg, "agent-2: Support EU") {
		t.Fatalf("missing candidates in error message: %q", msg)
	}
}
