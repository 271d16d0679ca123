package store

import "context"

// PathResolver builds endpoint URLs for the hosted store, abstracting the
// base URL and API version so services can construct paths without knowing
// connection details.
type PathResolver interface {
	// tablePath returns the full URL for a table endpoint.
	// Example: tablePath("tb_conversations") -> "{base}/rest/v1/tb_conversations"
	tablePath(table string) string

	// functionPath returns the full URL for a hosted function endpoint.
	// Example: functionPath("send-to-channel") -> "{base}/functions/v1/send-to-channel"
	functionPath(name string) string
}

// HTTPExecutor executes requests against the store, handling JSON
// serialization, retries, and error mapping. Mocked in service tests.
type HTTPExecutor interface {
	// do executes a request. body is marshaled to JSON if non-nil; the
	// response is unmarshaled into result if non-nil.
	do(ctx context.Context, method, url string, body any, result any) error

	// doPrefer is do with extra Prefer header values (return=representation
	// for writes that need the row back, resolution=merge-duplicates, ...).
	doPrefer(ctx context.Context, method, url string, prefer string, body any, result any) error
}

// Requester combines PathResolver and HTTPExecutor; it is the seam the
// per-table services depend on.
type Requester interface {
	PathResolver
	HTTPExecutor
}
