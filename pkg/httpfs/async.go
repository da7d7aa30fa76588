package httpfs

import "context"

// Non-blocking variants of the core operations. Each runs the same
// algorithm as its blocking counterpart on a fresh goroutine and
// delivers the outcome to the callback exactly once, with either a
// result or an error, never both. Concurrent calls for different
// paths complete in whatever order the transport finishes them; there
// is no ordering guarantee between them.

// StatAsync is the non-blocking form of Stat.
func (f *FileSystem) StatAsync(ctx context.Context, path string, cb func(FileInfo, error)) {
	go func() {
		cb(f.Stat(ctx, path))
	}()
}

// OpenAsync is the non-blocking form of Open.
func (f *FileSystem) OpenAsync(ctx context.Context, path string, flags OpenFlags, cb func(*File, error)) {
	go func() {
		cb(f.Open(ctx, path, flags))
	}()
}

// ReaddirAsync is the non-blocking form of Readdir.
func (f *FileSystem) ReaddirAsync(path string, cb func([]string, error)) {
	go func() {
		cb(f.Readdir(path))
	}()
}

// ReadFileAsync is the non-blocking form of ReadFile.
func (f *FileSystem) ReadFileAsync(ctx context.Context, path string, flags OpenFlags, cb func([]byte, error)) {
	go func() {
		cb(f.ReadFile(ctx, path, flags))
	}()
}

// PreloadAsync is the non-blocking form of Preload.
func (f *FileSystem) PreloadAsync(path string, data []byte, cb func(error)) {
	go func() {
		cb(f.Preload(path, data))
	}()
}
