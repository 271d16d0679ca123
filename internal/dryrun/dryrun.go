// Package dryrun lets mutation commands preview what they would change
// without calling the store.
package dryrun

import (
	"context"
	"fmt"
	"io"
)

type contextKey struct{}

// WithDryRun returns a context with dry-run mode enabled/disabled.
func WithDryRun(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, contextKey{}, enabled)
}

// IsEnabled reports whether dry-run mode is enabled on ctx.
func IsEnabled(ctx context.Context) bool {
	v, _ := ctx.Value(contextKey{}).(bool)
	return v
}

// Detail is one field of a previewed mutation, printed in order.
type Detail struct {
	Key   string
	Value string
}

// Preview describes a store mutation that was skipped in dry-run mode.
type Preview struct {
	Operation string // e.g. "close", "reply to"
	Resource  string // e.g. "conversation 7c9e6679"
	Details   []Detail
}

// Write renders the preview.
func (p *Preview) Write(w io.Writer) {
	_, _ = fmt.Fprintf(w, "[dry-run] would %s %s\n", p.Operation, p.Resource)
	for _, d := range p.Details {
		_, _ = fmt.Fprintf(w, "  %s: %s\n", d.Key, d.Value)
	}
	_, _ = fmt.Fprintln(w, "No changes made.")
}
