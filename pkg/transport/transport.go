// Package transport performs the actual network fetches against the
// backing store. Implementations exist for plain HTTP and S3-compatible
// object stores. Content fetches are never retried here: a single
// failure is a terminal result for that call, and callers decide
// whether to try again later.
package transport

import "context"

// Transport fetches raw bytes or byte counts for a resource locator.
// A locator is the already-mapped remote key, not a filesystem path.
type Transport interface {
	// FetchSize obtains the content length without downloading the
	// full body.
	FetchSize(ctx context.Context, locator string) (int64, error)

	// FetchBytes downloads the complete content as a buffer.
	FetchBytes(ctx context.Context, locator string) ([]byte, error)
}
