package httpfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/thiagodp/BrowserFS/pkg/fserr"
	"github.com/thiagodp/BrowserFS/pkg/index"
	"github.com/thiagodp/BrowserFS/pkg/models"
)

// fakeTransport serves from an in-memory map and counts calls.
type fakeTransport struct {
	mu       sync.Mutex
	objects  map[string][]byte
	locators []string

	sizeCalls atomic.Int32
	byteCalls atomic.Int32
	failWith  error
}

func (t *fakeTransport) FetchSize(ctx context.Context, locator string) (int64, error) {
	t.sizeCalls.Add(1)
	t.record(locator)
	if t.failWith != nil {
		return 0, t.failWith
	}
	data, ok := t.objects[locator]
	if !ok {
		return 0, fserr.New(fserr.FileNotFound, locator)
	}
	return int64(len(data)), nil
}

func (t *fakeTransport) FetchBytes(ctx context.Context, locator string) ([]byte, error) {
	t.byteCalls.Add(1)
	t.record(locator)
	if t.failWith != nil {
		return nil, t.failWith
	}
	data, ok := t.objects[locator]
	if !ok {
		return nil, fserr.New(fserr.FileNotFound, locator)
	}
	return data, nil
}

func (t *fakeTransport) record(locator string) {
	t.mu.Lock()
	t.locators = append(t.locators, locator)
	t.mu.Unlock()
}

func testFS(t *testing.T, prefix string) (*FileSystem, *fakeTransport) {
	t.Helper()

	root := &models.ListNode{
		Name: "/", Path: "/", IsDir: true,
		Children: []*models.ListNode{
			{Name: "a.txt", Path: "/a.txt"},
			{Name: "b.txt", Path: "/b.txt"},
			{Name: "docs", Path: "/docs", IsDir: true, Children: []*models.ListNode{
				{Name: "readme.md", Path: "/docs/readme.md"},
			}},
		},
	}

	// Key objects under the same normalized prefix the adapter sends.
	keyPrefix := prefix
	if keyPrefix != "" && !strings.HasSuffix(keyPrefix, "/") {
		keyPrefix += "/"
	}
	tr := &fakeTransport{objects: map[string][]byte{
		keyPrefix + "a.txt":          []byte("hello"),
		keyPrefix + "b.txt":          []byte("world!"),
		keyPrefix + "docs/readme.md": []byte("# readme"),
	}}

	fsys, err := New(Config{Index: index.Build(root), Transport: tr, Prefix: prefix})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fsys, tr
}

func TestStat_SizeProbeOnly(t *testing.T) {
	fsys, tr := testFS(t, "")
	ctx := context.Background()

	info, err := fsys.Stat(ctx, "/a.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("Size() = %d, want 5", info.Size())
	}
	if got := tr.sizeCalls.Load(); got != 1 {
		t.Errorf("size calls = %d, want 1", got)
	}
	if got := tr.byteCalls.Load(); got != 0 {
		t.Errorf("stat must not download content, byte calls = %d", got)
	}

	// Size now known: a second stat performs no fetch at all.
	if _, err := fsys.Stat(ctx, "/a.txt"); err != nil {
		t.Fatalf("second Stat: %v", err)
	}
	if got := tr.sizeCalls.Load(); got != 1 {
		t.Errorf("size calls after second stat = %d, want 1", got)
	}
}

func TestStat_Directory(t *testing.T) {
	fsys, tr := testFS(t, "")

	info, err := fsys.Stat(context.Background(), "/docs")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() {
		t.Error("IsDir() = false for directory")
	}
	if tr.sizeCalls.Load()+tr.byteCalls.Load() != 0 {
		t.Error("directory stat should not touch the network")
	}
}

func TestStat_NotFound(t *testing.T) {
	fsys, _ := testFS(t, "")

	_, err := fsys.Stat(context.Background(), "/missing")
	if !fserr.Is(err, fserr.FileNotFound) {
		t.Errorf("expected FileNotFound, got %v", err)
	}
}

func TestOpen_DownloadsOnce(t *testing.T) {
	fsys, tr := testFS(t, "")
	ctx := context.Background()

	file, err := fsys.Open(ctx, "/a.txt", DefaultFlags)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	file.Close()

	if !bytes.Equal(data, []byte("hello")) {
		t.Errorf("content = %q, want %q", data, "hello")
	}
	if got := tr.byteCalls.Load(); got != 1 {
		t.Fatalf("byte calls = %d, want 1", got)
	}

	// Second open reuses the materialized content.
	file2, err := fsys.Open(ctx, "/a.txt", DefaultFlags)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	data2, _ := io.ReadAll(file2)
	file2.Close()

	if !bytes.Equal(data, data2) {
		t.Errorf("second open returned different bytes: %q vs %q", data, data2)
	}
	if got := tr.byteCalls.Load(); got != 1 {
		t.Errorf("byte calls after second open = %d, want 1", got)
	}

	stats := fsys.Stats()
	if stats.CacheHits != 1 || stats.CacheMisses != 1 {
		t.Errorf("stats hits=%d misses=%d, want 1/1", stats.CacheHits, stats.CacheMisses)
	}
}

func TestStatAfterOpen_NoProbe(t *testing.T) {
	fsys, tr := testFS(t, "")
	ctx := context.Background()

	if _, err := fsys.Open(ctx, "/a.txt", DefaultFlags); err != nil {
		t.Fatalf("Open: %v", err)
	}

	info, err := fsys.Stat(ctx, "/a.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("Size() = %d, want 5", info.Size())
	}
	if got := tr.sizeCalls.Load(); got != 0 {
		t.Errorf("stat after open should not probe, size calls = %d", got)
	}
}

func TestOpen_WriteIntentDenied(t *testing.T) {
	fsys, tr := testFS(t, "")
	ctx := context.Background()

	for _, access := range []AccessMode{WriteAccess, ReadWriteAccess} {
		for _, action := range []ExistsAction{ExistsNop, ExistsThrow, ExistsTruncate} {
			_, err := fsys.Open(ctx, "/a.txt", OpenFlags{Access: access, OnExists: action})
			if !fserr.Is(err, fserr.PermissionDenied) {
				t.Errorf("access=%d action=%d: expected PermissionDenied, got %v",
					access, action, err)
			}
		}
	}

	// Rejected before path resolution, so even absent paths deny.
	_, err := fsys.Open(ctx, "/missing", OpenFlags{Access: WriteAccess})
	if !fserr.Is(err, fserr.PermissionDenied) {
		t.Errorf("write open of missing path: expected PermissionDenied, got %v", err)
	}

	if tr.byteCalls.Load() != 0 {
		t.Error("denied opens must not fetch")
	}
}

func TestOpen_ExistsActions(t *testing.T) {
	fsys, _ := testFS(t, "")
	ctx := context.Background()

	tests := []struct {
		action ExistsAction
		kind   fserr.Kind
		ok     bool
	}{
		{ExistsNop, 0, true},
		{ExistsThrow, fserr.AlreadyExists, false},
		{ExistsTruncate, fserr.AlreadyExists, false},
		{ExistsAction(42), fserr.InvalidArgument, false},
	}

	for _, tt := range tests {
		_, err := fsys.Open(ctx, "/a.txt", OpenFlags{OnExists: tt.action})
		if tt.ok {
			if err != nil {
				t.Errorf("action=%d: unexpected error %v", tt.action, err)
			}
			continue
		}
		if !fserr.Is(err, tt.kind) {
			t.Errorf("action=%d: expected %v, got %v", tt.action, tt.kind, err)
		}
	}
}

func TestOpen_Directory(t *testing.T) {
	fsys, _ := testFS(t, "")

	_, err := fsys.Open(context.Background(), "/docs", DefaultFlags)
	if !fserr.Is(err, fserr.IsADirectory) {
		t.Errorf("expected IsADirectory, got %v", err)
	}
}

func TestReaddir(t *testing.T) {
	fsys, tr := testFS(t, "")

	names, err := fsys.Readdir("/")
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	want := []string{"a.txt", "b.txt", "docs"}
	if len(names) != len(want) {
		t.Fatalf("Readdir = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Readdir[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if _, err := fsys.Readdir("/a.txt"); !fserr.Is(err, fserr.NotADirectory) {
		t.Errorf("Readdir on file: expected NotADirectory, got %v", err)
	}
	if _, err := fsys.Readdir("/missing"); !fserr.Is(err, fserr.FileNotFound) {
		t.Errorf("Readdir on absent path: expected FileNotFound, got %v", err)
	}
	if tr.sizeCalls.Load()+tr.byteCalls.Load() != 0 {
		t.Error("readdir should not touch the network")
	}
}

func TestReadFile_MatchesOpenReadClose(t *testing.T) {
	fsys, _ := testFS(t, "")
	ctx := context.Background()

	fast, err := fsys.ReadFile(ctx, "/b.txt", DefaultFlags)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	file, err := fsys.Open(ctx, "/b.txt", DefaultFlags)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	manual, err := io.ReadAll(file)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !bytes.Equal(fast, manual) {
		t.Errorf("ReadFile = %q, manual compose = %q", fast, manual)
	}
}

func TestReadFileString(t *testing.T) {
	fsys, _ := testFS(t, "")

	s, err := fsys.ReadFileString(context.Background(), "/a.txt", DefaultFlags)
	if err != nil {
		t.Fatalf("ReadFileString: %v", err)
	}
	if s != "hello" {
		t.Errorf("ReadFileString = %q, want %q", s, "hello")
	}
}

func TestReadFileString_InvalidUTF8(t *testing.T) {
	fsys, tr := testFS(t, "")
	tr.objects["a.txt"] = []byte{0x68, 0x69, 0xff, 0xfe}

	_, err := fsys.ReadFileString(context.Background(), "/a.txt", DefaultFlags)
	if !fserr.Is(err, fserr.InvalidArgument) {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}

	// The raw bytes stay reachable through ReadFile.
	data, err := fsys.ReadFile(context.Background(), "/a.txt", DefaultFlags)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(data, []byte{0x68, 0x69, 0xff, 0xfe}) {
		t.Errorf("content = %v, want raw bytes", data)
	}
}

func TestPreload(t *testing.T) {
	fsys, tr := testFS(t, "")
	ctx := context.Background()

	buf := []byte("injected")
	if err := fsys.Preload("/a.txt", buf); err != nil {
		t.Fatalf("Preload: %v", err)
	}

	info, err := fsys.Stat(ctx, "/a.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != int64(len(buf)) {
		t.Errorf("Size() = %d, want %d", info.Size(), len(buf))
	}

	data, err := fsys.ReadFile(ctx, "/a.txt", DefaultFlags)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(data, buf) {
		t.Errorf("content = %q, want %q", data, buf)
	}

	if tr.sizeCalls.Load()+tr.byteCalls.Load() != 0 {
		t.Errorf("preloaded file must not fetch, got %d size + %d byte calls",
			tr.sizeCalls.Load(), tr.byteCalls.Load())
	}

	// The injected buffer is copied: caller mutation is invisible.
	buf[0] = 'X'
	data, _ = fsys.ReadFile(ctx, "/a.txt", DefaultFlags)
	if data[0] != 'i' {
		t.Error("preload shares the caller's buffer")
	}
}

func TestPreload_Errors(t *testing.T) {
	fsys, _ := testFS(t, "")

	if err := fsys.Preload("/docs", []byte("x")); !fserr.Is(err, fserr.IsADirectory) {
		t.Errorf("preload dir: expected IsADirectory, got %v", err)
	}
	if err := fsys.Preload("/missing", []byte("x")); !fserr.Is(err, fserr.FileNotFound) {
		t.Errorf("preload absent: expected FileNotFound, got %v", err)
	}
}

func TestInvalidateAll(t *testing.T) {
	fsys, tr := testFS(t, "")
	ctx := context.Background()

	first, err := fsys.ReadFile(ctx, "/a.txt", DefaultFlags)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := tr.byteCalls.Load(); got != 1 {
		t.Fatalf("byte calls = %d, want 1", got)
	}

	fsys.InvalidateAll()

	second, err := fsys.ReadFile(ctx, "/a.txt", DefaultFlags)
	if err != nil {
		t.Fatalf("ReadFile after invalidate: %v", err)
	}
	if got := tr.byteCalls.Load(); got != 2 {
		t.Errorf("byte calls after invalidate = %d, want 2", got)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("static store: content changed across invalidation: %q vs %q", first, second)
	}
}

func TestInvalidateAll_KeepsSizes(t *testing.T) {
	fsys, tr := testFS(t, "")
	ctx := context.Background()

	if _, err := fsys.ReadFile(ctx, "/a.txt", DefaultFlags); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	fsys.InvalidateAll()

	// Size survived the invalidation, so stat needs no probe.
	info, err := fsys.Stat(ctx, "/a.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("Size() = %d, want 5", info.Size())
	}
	if got := tr.sizeCalls.Load(); got != 0 {
		t.Errorf("size calls = %d, want 0 (size retained)", got)
	}
}

func TestFailedFetchLeavesRecordClean(t *testing.T) {
	fsys, tr := testFS(t, "")
	ctx := context.Background()

	tr.failWith = fserr.Wrap(fserr.TransportFailure, "a.txt", errors.New("boom"))

	if _, err := fsys.Open(ctx, "/a.txt", DefaultFlags); !fserr.Is(err, fserr.TransportFailure) {
		t.Fatalf("expected TransportFailure, got %v", err)
	}

	n, _ := fsys.Index().Lookup("/a.txt")
	if n.Stat().Materialized() || n.Stat().SizeKnown() {
		t.Error("failed fetch must leave the record untouched")
	}

	// A fresh call after recovery succeeds.
	tr.failWith = nil
	data, err := fsys.ReadFile(ctx, "/a.txt", DefaultFlags)
	if err != nil {
		t.Fatalf("ReadFile after recovery: %v", err)
	}
	if !bytes.Equal(data, []byte("hello")) {
		t.Errorf("content = %q, want %q", data, "hello")
	}
}

func TestLocatorMapping(t *testing.T) {
	// A bare prefix gains a trailing separator; an already-slashed one
	// passes through unchanged.
	for _, prefix := range []string{"static/assets", "static/assets/"} {
		fsys, tr := testFS(t, prefix)
		ctx := context.Background()

		if _, err := fsys.ReadFile(ctx, "/a.txt", DefaultFlags); err != nil {
			t.Fatalf("prefix %q: ReadFile: %v", prefix, err)
		}

		tr.mu.Lock()
		if len(tr.locators) != 1 || tr.locators[0] != "static/assets/a.txt" {
			t.Errorf("prefix %q: locators = %v, want [static/assets/a.txt]", prefix, tr.locators)
		}
		tr.mu.Unlock()
	}
}

func TestCapabilities(t *testing.T) {
	fsys, _ := testFS(t, "")

	caps := fsys.Capabilities()
	if !caps.ReadOnly {
		t.Error("ReadOnly = false")
	}
	if !caps.Synchronous {
		t.Error("Synchronous = false")
	}
	if caps.SupportsLinks || caps.SupportsProps {
		t.Error("links/props should be unsupported")
	}
}
