package iocontext

import (
	"bytes"
	"context"
	"testing"
)

func TestStreamsRoundTrip(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	ctx := WithIO(context.Background(), &IO{Out: out, ErrOut: errOut})
	if got := GetIO(ctx); got.Out != out || got.ErrOut != errOut {
		t.Error("GetIO should return the streams set with WithIO")
	}
}

func TestGetIODefaults(t *testing.T) {
	streams := GetIO(context.Background())
	if streams == nil || streams.Out == nil || streams.ErrOut == nil || streams.In == nil {
		t.Error("GetIO without WithIO should fall back to the process stdio")
	}

	// A nil value stored on the context must not shadow the fallback.
	ctx := WithIO(context.Background(), nil)
	if got := GetIO(ctx); got == nil || got.Out == nil {
		t.Error("GetIO should fall back when a nil IO was stored")
	}
}
