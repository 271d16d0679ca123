package outfmt

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestQueryContext(t *testing.T) {
	if GetQuery(context.Background()) != "" {
		t.Error("GetQuery should default to an empty string")
	}
	ctx := WithQuery(context.Background(), ".items[].status")
	if GetQuery(ctx) != ".items[].status" {
		t.Error("GetQuery should return the query set with WithQuery")
	}
}

func TestWriteJSONFiltered(t *testing.T) {
	conv := map[string]string{"id": "7c9e6679", "status": "open"}

	tests := []struct {
		name    string
		data    any
		query   string
		compact bool
		want    string // substring of the output
	}{
		{"no query", conv, "", false, `"status": "open"`},
		{"field query", conv, ".status", false, `"open"`},
		{"slice gets items envelope", []string{"open", "closed"}, "", false, `"items"`},
		{"compact object query", map[string]any{"id": "7c9e6679", "tags": []int{1, 2}}, "{i: .id, t: .tags}", true, `"i":"7c9e6679"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteJSONFiltered(&buf, tt.data, tt.query, tt.compact); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q does not contain %q", out, tt.want)
			}
			if tt.compact && strings.Contains(strings.TrimSpace(out), "\n") {
				t.Errorf("compact output should be a single line, got: %s", out)
			}
			if !tt.compact && !strings.Contains(out, "\n") {
				t.Errorf("default output should be indented, got: %s", out)
			}
		})
	}
}

func TestWriteJSONFilteredInvalidQuery(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSONFiltered(&buf, map[string]string{"id": "7c9e6679"}, "invalid[[[", false); err == nil {
		t.Error("expected error for invalid query")
	}
}

func TestApplyQuery(t *testing.T) {
	conv := map[string]string{"id": "7c9e6679", "status": "open"}

	// Empty query returns the value unchanged.
	result, err := ApplyQuery(conv, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m, ok := result.(map[string]string); !ok || m["status"] != "open" {
		t.Errorf("empty query should return the input, got %v", result)
	}

	// Field lookup.
	result, err = ApplyQuery(conv, ".status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "open" {
		t.Errorf("expected 'open', got %v", result)
	}

	// Slices are queried through the items envelope.
	agents := []map[string]string{{"name": "Ana Ruiz"}, {"name": "Sam Smith"}}
	result, err = ApplyQuery(agents, ".items[1].name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "Sam Smith" {
		t.Errorf("expected 'Sam Smith', got %v", result)
	}

	if _, err := ApplyQuery(conv, "invalid[[["); err == nil {
		t.Error("expected error for invalid query")
	}
}

func TestWriteJSONFilteredRawMessageUnchanged(t *testing.T) {
	raw := json.RawMessage(`{"it":"literal","items":"canonical"}`)
	original := append([]byte(nil), raw...)

	var buf bytes.Buffer
	if err := WriteJSONFiltered(&buf, raw, `.["it"]`, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.TrimSpace(buf.String()) != `"literal"` {
		t.Fatalf("expected literal lookup result, got %q", buf.String())
	}
	if !bytes.Equal(raw, original) {
		t.Fatalf("raw JSON payload was mutated: got %s want %s", raw, original)
	}
}
