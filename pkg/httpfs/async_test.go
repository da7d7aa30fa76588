package httpfs

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/thiagodp/BrowserFS/pkg/fserr"
)

// Blocking and non-blocking calls must agree byte-for-byte against a
// fresh, un-cached index.
func TestAsyncMatchesBlocking(t *testing.T) {
	ctx := context.Background()

	asyncFS, _ := testFS(t, "")
	blockFS, _ := testFS(t, "")

	var (
		asyncInfo FileInfo
		asyncData []byte
		wg        sync.WaitGroup
	)

	wg.Add(2)
	asyncFS.StatAsync(ctx, "/a.txt", func(info FileInfo, err error) {
		defer wg.Done()
		if err != nil {
			t.Errorf("StatAsync: %v", err)
			return
		}
		asyncInfo = info
	})
	asyncFS.ReadFileAsync(ctx, "/b.txt", DefaultFlags, func(data []byte, err error) {
		defer wg.Done()
		if err != nil {
			t.Errorf("ReadFileAsync: %v", err)
			return
		}
		asyncData = data
	})
	wg.Wait()

	blockInfo, err := blockFS.Stat(ctx, "/a.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	blockData, err := blockFS.ReadFile(ctx, "/b.txt", DefaultFlags)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if asyncInfo.Size() != blockInfo.Size() {
		t.Errorf("async size %d != blocking size %d", asyncInfo.Size(), blockInfo.Size())
	}
	if !bytes.Equal(asyncData, blockData) {
		t.Errorf("async content %q != blocking content %q", asyncData, blockData)
	}
}

func TestAsyncCallbackExactlyOnce(t *testing.T) {
	fsys, _ := testFS(t, "")

	calls := make(chan error, 2)
	fsys.OpenAsync(context.Background(), "/missing", DefaultFlags, func(f *File, err error) {
		if f != nil && err != nil {
			t.Error("callback got both a result and an error")
		}
		calls <- err
	})

	err := <-calls
	if !fserr.Is(err, fserr.FileNotFound) {
		t.Errorf("expected FileNotFound, got %v", err)
	}

	select {
	case <-calls:
		t.Fatal("callback fired twice")
	default:
	}
}

func TestPreloadAsync(t *testing.T) {
	fsys, tr := testFS(t, "")

	done := make(chan error, 1)
	fsys.PreloadAsync("/a.txt", []byte("async-injected"), func(err error) {
		done <- err
	})
	if err := <-done; err != nil {
		t.Fatalf("PreloadAsync: %v", err)
	}

	data, err := fsys.ReadFile(context.Background(), "/a.txt", DefaultFlags)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "async-injected" {
		t.Errorf("content = %q", data)
	}
	if tr.byteCalls.Load() != 0 {
		t.Error("preloaded file should not fetch")
	}
}

func TestReaddirAsync(t *testing.T) {
	fsys, _ := testFS(t, "")

	done := make(chan []string, 1)
	fsys.ReaddirAsync("/docs", func(names []string, err error) {
		if err != nil {
			t.Errorf("ReaddirAsync: %v", err)
		}
		done <- names
	})

	names := <-done
	if len(names) != 1 || names[0] != "readme.md" {
		t.Errorf("names = %v, want [readme.md]", names)
	}
}
