// Package httpfs implements a read-only virtual filesystem over a
// static metadata index, fetching file content on demand through a
// pluggable transport and keeping it resident for the process
// lifetime. The backing store is assumed immutable: content is
// downloaded at most once per path (until an explicit invalidation)
// and never written back.
package httpfs

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/thiagodp/BrowserFS/pkg/fserr"
	"github.com/thiagodp/BrowserFS/pkg/index"
	"github.com/thiagodp/BrowserFS/pkg/logging"
	"github.com/thiagodp/BrowserFS/pkg/metrics"
	"github.com/thiagodp/BrowserFS/pkg/transport"
)

// Config holds filesystem configuration.
type Config struct {
	// Index is the pre-built path table.
	Index *index.Index

	// Transport fetches content bytes and sizes.
	Transport transport.Transport

	// Prefix is prepended to every mapped locator. Normalized to end
	// in "/" when set.
	Prefix string
}

// FileSystem is the adapter core. All operations are safe for
// concurrent use; per-file stat records are deliberately unlocked
// because duplicate fetches of the same static path produce identical
// bytes.
type FileSystem struct {
	idx    *index.Index
	tr     transport.Transport
	prefix string

	sizeProbes     atomic.Int64
	contentFetches atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	invalidations  atomic.Int64
}

// New creates a FileSystem over an index and a transport.
func New(cfg Config) (*FileSystem, error) {
	if cfg.Index == nil {
		return nil, fserr.New(fserr.InvalidArgument, "(index)")
	}
	if cfg.Transport == nil {
		return nil, fserr.New(fserr.InvalidArgument, "(transport)")
	}

	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	metrics.SetIndexSize(cfg.Index.Len())

	return &FileSystem{
		idx:    cfg.Index,
		tr:     cfg.Transport,
		prefix: prefix,
	}, nil
}

// Capabilities describes what the filesystem supports.
type Capabilities struct {
	ReadOnly      bool
	SupportsLinks bool
	SupportsProps bool
	Synchronous   bool
}

// Capabilities returns the static capability flags.
func (f *FileSystem) Capabilities() Capabilities {
	return Capabilities{ReadOnly: true, Synchronous: true}
}

// Index returns the underlying metadata index.
func (f *FileSystem) Index() *index.Index {
	return f.idx
}

// locator maps a filesystem path to its remote key: exactly one
// leading separator is stripped and the configured prefix prepended.
// Pure and stable: the same path always maps to the same locator.
func (f *FileSystem) locator(path string) string {
	return f.prefix + strings.TrimPrefix(path, "/")
}

// Stats is a snapshot of filesystem counters.
type Stats struct {
	SizeProbes     int64
	ContentFetches int64
	CacheHits      int64
	CacheMisses    int64
	Invalidations  int64
}

// Stats returns a snapshot of the filesystem counters.
func (f *FileSystem) Stats() Stats {
	return Stats{
		SizeProbes:     f.sizeProbes.Load(),
		ContentFetches: f.contentFetches.Load(),
		CacheHits:      f.cacheHits.Load(),
		CacheMisses:    f.cacheMisses.Load(),
		Invalidations:  f.invalidations.Load(),
	}
}

// resolveFile looks up a path expecting a file node.
func (f *FileSystem) resolveFile(path string) (*index.Node, error) {
	n, ok := f.idx.Lookup(path)
	if !ok {
		return nil, fserr.New(fserr.FileNotFound, path)
	}
	if n.IsDir() {
		return nil, fserr.New(fserr.IsADirectory, path)
	}
	return n, nil
}

// materialize ensures the node's content is resident, downloading it
// if needed. Size and content are written together, once, only after
// a fully successful fetch: a failed fetch leaves the record exactly
// as before.
func (f *FileSystem) materialize(ctx context.Context, n *index.Node) error {
	st := n.Stat()
	if st.Materialized() {
		f.cacheHits.Add(1)
		metrics.RecordCacheHit()
		return nil
	}

	f.cacheMisses.Add(1)
	metrics.RecordCacheMiss()

	data, err := f.tr.FetchBytes(ctx, f.locator(n.Path()))
	if err != nil {
		return err
	}

	f.contentFetches.Add(1)
	st.Size = int64(len(data))
	st.Content = data
	return nil
}

// InvalidateAll clears the materialized content of every file node,
// forcing a re-fetch on next access. The hierarchy and already-known
// sizes are kept.
func (f *FileSystem) InvalidateAll() {
	count := 0
	f.idx.Files(func(n *index.Node) {
		if n.Stat().Content != nil {
			count++
		}
		n.Stat().Content = nil
	})

	f.invalidations.Add(1)
	metrics.RecordInvalidation()
	logging.Info("cache invalidated", logging.Int64("dropped", int64(count)))
}
