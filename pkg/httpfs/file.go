package httpfs

import (
	"io"
	"io/fs"
	"time"

	"github.com/thiagodp/BrowserFS/pkg/fserr"
	"github.com/thiagodp/BrowserFS/pkg/index"
)

// FileInfo is a point-in-time attribute snapshot. Implements
// io/fs.FileInfo.
type FileInfo struct {
	name    string
	size    int64
	modTime time.Time
	dir     bool
}

func (fi FileInfo) Name() string       { return fi.name }
func (fi FileInfo) Size() int64        { return fi.size }
func (fi FileInfo) ModTime() time.Time { return fi.modTime }
func (fi FileInfo) IsDir() bool        { return fi.dir }
func (fi FileInfo) Sys() any           { return nil }

func (fi FileInfo) Mode() fs.FileMode {
	if fi.dir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

// File is a read-only, seekable handle over fully materialized
// content. It is a snapshot: invalidating or re-fetching the canonical
// record never affects a handle already issued. Close releases nothing
// and is safe to call any number of times.
type File struct {
	info FileInfo
	data []byte
	off  int64
}

var (
	_ io.ReadSeekCloser = (*File)(nil)
	_ io.ReaderAt       = (*File)(nil)
)

func newFile(name string, st index.Stat) *File {
	return &File{
		info: FileInfo{
			name:    name,
			size:    st.Size,
			modTime: st.ModTime,
		},
		data: st.Content,
	}
}

// Stat returns the snapshot taken when the handle was created.
func (f *File) Stat() (fs.FileInfo, error) {
	return f.info, nil
}

// Read reads from the current offset.
func (f *File) Read(p []byte) (int, error) {
	if f.off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.off:])
	f.off += int64(n)
	return n, nil
}

// ReadAt reads len(p) bytes starting at off.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fserr.New(fserr.InvalidArgument, f.info.name)
	}
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek sets the offset for the next Read.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.off + offset
	case io.SeekEnd:
		abs = int64(len(f.data)) + offset
	default:
		return 0, fserr.New(fserr.InvalidArgument, f.info.name)
	}
	if abs < 0 {
		return 0, fserr.New(fserr.InvalidArgument, f.info.name)
	}
	f.off = abs
	return abs, nil
}

// Close is a no-op: no descriptor is held open. Idempotent.
func (f *File) Close() error {
	return nil
}
