package outfmt

import (
	"encoding/json"
	"testing"
)

// marshalItems normalizes v and returns the decoded "items" array, failing
// the test when the envelope is missing or malformed.
func marshalItems(t *testing.T, v any) []any {
	t.Helper()
	data, err := json.Marshal(normalizeJSONOutput(v))
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("json.Unmarshal failed: %v", err)
	}
	items, ok := parsed["items"]
	if !ok {
		t.Fatal("expected items key in output")
	}
	arr, ok := items.([]any)
	if !ok {
		t.Fatalf("items should be an array, got %T", items)
	}
	return arr
}

func TestNormalizeWrapsSlices(t *testing.T) {
	type conversation struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}

	convs := []conversation{{"7c9e6679", "open"}, {"16fd2706", "closed"}}
	if arr := marshalItems(t, convs); len(arr) != 2 {
		t.Fatalf("items should have 2 elements, got %d", len(arr))
	}

	// Empty and nil slices must both render as "items": [], never null.
	if arr := marshalItems(t, []conversation{}); len(arr) != 0 {
		t.Fatalf("items should be an empty array, got %v", arr)
	}
	var nilSlice []conversation
	if arr := marshalItems(t, nilSlice); len(arr) != 0 {
		t.Fatalf("nil slice should become an empty array, got %v", arr)
	}
}

func TestNormalizePassThrough(t *testing.T) {
	if normalizeJSONOutput(nil) != nil {
		t.Fatal("nil input should pass through")
	}

	m := map[string]any{"unread": 3}
	if _, ok := normalizeJSONOutput(m).(map[string]any); !ok {
		t.Fatal("map input should pass through unwrapped")
	}

	raw := json.RawMessage(`[1,2,3]`)
	if _, ok := normalizeJSONOutput(raw).(json.RawMessage); !ok {
		t.Fatal("raw JSON should pass through unwrapped")
	}
}
