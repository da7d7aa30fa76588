// Package index provides the path-to-node table built from a listing
// document. The table is immutable after Build; only the per-file Stat
// records mutate as sizes and content are discovered.
package index

import (
	"sort"
	"strings"
	"time"

	"github.com/thiagodp/BrowserFS/pkg/models"
)

// Stat is the per-file cache record. Size and Content are each written
// at most once per lifetime (Invalidate excepted); a failed fetch leaves
// the record untouched. The record is deliberately unlocked: concurrent
// fetchers of the same static path compute identical results, so a
// duplicate write is benign.
type Stat struct {
	Size    int64 // models.SizeUnknown until probed or downloaded
	ModTime time.Time
	Content []byte // nil until the file is materialized
}

// SizeKnown reports whether the size has been discovered.
func (s *Stat) SizeKnown() bool {
	return s.Size != models.SizeUnknown
}

// Materialized reports whether the content buffer is resident.
func (s *Stat) Materialized() bool {
	return s.Content != nil
}

// Clone returns an independent snapshot of the record. The content
// buffer is shared: it is immutable once set.
func (s *Stat) Clone() Stat {
	return Stat{Size: s.Size, ModTime: s.ModTime, Content: s.Content}
}

// Node is a file or directory entry. The two cases are closed: a node
// is either a directory (ordered child names, no content) or a file
// (a Stat record, no children).
type Node struct {
	name     string
	path     string
	dir      bool
	children []string
	stat     Stat
}

// Name returns the base name of the node.
func (n *Node) Name() string { return n.name }

// Path returns the full path of the node.
func (n *Node) Path() string { return n.path }

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool { return n.dir }

// Children returns the ordered child names of a directory node. The
// returned slice must not be mutated.
func (n *Node) Children() []string { return n.children }

// Stat returns the node's canonical stat record.
func (n *Node) Stat() *Stat { return &n.stat }

// Index maps normalized paths to nodes.
type Index struct {
	nodes map[string]*Node
	files []*Node // file nodes only, for bulk operations
}

// Build flattens a listing document into an Index. Child order is
// preserved exactly as listed and duplicate paths keep their first
// entry. Listing sizes of zero are treated as unknown; a genuinely
// empty file just costs one size probe.
func Build(root *models.ListNode) *Index {
	idx := &Index{nodes: make(map[string]*Node)}
	if root != nil {
		idx.add(root)
	}
	return idx
}

func (idx *Index) add(ln *models.ListNode) *Node {
	path := Normalize(ln.Path)
	if _, ok := idx.nodes[path]; ok {
		// Malformed listings can repeat a path. The first entry wins;
		// the duplicate (and its subtree) is dropped so every indexed
		// node stays reachable by lookup.
		return nil
	}

	size := ln.Size
	if !ln.IsDir && size <= 0 {
		size = models.SizeUnknown
	}

	n := &Node{
		name: ln.Name,
		path: path,
		dir:  ln.IsDir,
		stat: Stat{Size: size, ModTime: ln.ModTime},
	}
	idx.nodes[path] = n
	if ln.IsDir {
		n.stat.Size = 0
		n.children = make([]string, 0, len(ln.Children))
		for _, child := range ln.Children {
			if c := idx.add(child); c != nil {
				n.children = append(n.children, c.name)
			}
		}
	} else {
		idx.files = append(idx.files, n)
	}
	return n
}

// Lookup resolves a path to its node.
func (idx *Index) Lookup(path string) (*Node, bool) {
	n, ok := idx.nodes[Normalize(path)]
	return n, ok
}

// Files calls fn for every file node.
func (idx *Index) Files(fn func(*Node)) {
	for _, n := range idx.files {
		fn(n)
	}
}

// Len returns the total node count.
func (idx *Index) Len() int {
	return len(idx.nodes)
}

// Paths returns all indexed paths in sorted order.
func (idx *Index) Paths() []string {
	paths := make([]string, 0, len(idx.nodes))
	for p := range idx.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Normalize canonicalizes a lookup path: a leading slash is ensured
// and a trailing slash is dropped (the root stays "/").
func Normalize(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimSuffix(path, "/")
}
