package httpfs

import (
	"context"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/thiagodp/BrowserFS/pkg/fserr"
	"github.com/thiagodp/BrowserFS/pkg/index"
	"github.com/thiagodp/BrowserFS/pkg/logging"
)

// Stat returns a snapshot of a node's attributes. For files whose
// content has not been materialized the size is discovered with a
// lightweight probe, so callers never pay a full download for a stat.
func (f *FileSystem) Stat(ctx context.Context, path string) (FileInfo, error) {
	n, ok := f.idx.Lookup(path)
	if !ok {
		return FileInfo{}, fserr.New(fserr.FileNotFound, path)
	}
	if n.IsDir() {
		return infoOf(n), nil
	}

	st := n.Stat()
	if !st.Materialized() && !st.SizeKnown() {
		size, err := f.tr.FetchSize(ctx, f.locator(n.Path()))
		if err != nil {
			return FileInfo{}, err
		}
		f.sizeProbes.Add(1)
		st.Size = size
	}

	return infoOf(n), nil
}

// Open opens a file for reading and returns a handle over its
// materialized content. Write intent is rejected unconditionally;
// of the exists actions only ExistsNop can succeed, since creation
// and truncation are meaningless on an immutable store.
func (f *FileSystem) Open(ctx context.Context, path string, flags OpenFlags) (*File, error) {
	if flags.wantsWrite() {
		return nil, fserr.New(fserr.PermissionDenied, path)
	}

	n, err := f.resolveFile(path)
	if err != nil {
		return nil, err
	}

	switch flags.OnExists {
	case ExistsNop:
		// Open for use, keeping existing content.
	case ExistsThrow, ExistsTruncate:
		return nil, fserr.New(fserr.AlreadyExists, path)
	default:
		return nil, fserr.New(fserr.InvalidArgument, path)
	}

	if err := f.materialize(ctx, n); err != nil {
		return nil, err
	}

	return newFile(n.Name(), n.Stat().Clone()), nil
}

// Readdir returns the ordered child names of a directory, exactly as
// established when the index was built. No network interaction.
func (f *FileSystem) Readdir(path string) ([]string, error) {
	n, ok := f.idx.Lookup(path)
	if !ok {
		return nil, fserr.New(fserr.FileNotFound, path)
	}
	if !n.IsDir() {
		return nil, fserr.New(fserr.NotADirectory, path)
	}
	return n.Children(), nil
}

// ReadFile is the documented fast path for open, read everything,
// close. The handle is always closed, exactly once, even when the
// read fails; a read error is reported before a close error.
func (f *FileSystem) ReadFile(ctx context.Context, path string, flags OpenFlags) (data []byte, err error) {
	file, err := f.Open(ctx, path, flags)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			if err != nil {
				err = errors.Join(err, cerr)
			} else {
				err = cerr
			}
		}
	}()

	data, err = io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ReadFileString reads a whole file and decodes it as UTF-8 text.
func (f *FileSystem) ReadFileString(ctx context.Context, path string, flags OpenFlags) (string, error) {
	data, err := f.ReadFile(ctx, path, flags)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fserr.New(fserr.InvalidArgument, path)
	}
	return string(data), nil
}

// Preload injects content for a file directly, short-circuiting all
// future fetches for that path. The buffer is copied.
func (f *FileSystem) Preload(path string, data []byte) error {
	n, err := f.resolveFile(path)
	if err != nil {
		return err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	st := n.Stat()
	st.Size = int64(len(buf))
	st.Content = buf

	logging.Debug("preloaded", logging.String("path", n.Path()),
		logging.Int64("size", st.Size))
	return nil
}

func infoOf(n *index.Node) FileInfo {
	st := n.Stat()
	return FileInfo{
		name:    n.Name(),
		size:    st.Size,
		modTime: st.ModTime,
		dir:     n.IsDir(),
	}
}
