// Package fusefs mounts the adapter as a read-only FUSE filesystem.
package fusefs

import (
	"context"
	"fmt"
	"os"
	"path"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	gofuse "github.com/hanwen/go-fuse/v2/fuse"

	"github.com/thiagodp/BrowserFS/pkg/fserr"
	"github.com/thiagodp/BrowserFS/pkg/httpfs"
	"github.com/thiagodp/BrowserFS/pkg/logging"
)

// Node is a file or directory exposed over FUSE. All content access
// goes through the adapter, so the first read of a file triggers its
// one-time download.
type Node struct {
	fs.Inode

	fsys *httpfs.FileSystem
	path string
}

// NewRoot creates the root node for a mount.
func NewRoot(fsys *httpfs.FileSystem) *Node {
	return &Node{fsys: fsys, path: "/"}
}

// Mount mounts the filesystem at the given path.
func Mount(mountPoint string, fsys *httpfs.FileSystem) (*gofuse.Server, error) {
	if err := os.MkdirAll(mountPoint, 0755); err != nil {
		return nil, fmt.Errorf("create mount point: %w", err)
	}

	opts := &fs.Options{
		MountOptions: gofuse.MountOptions{
			AllowOther: false,
			FsName:     "browserfs",
			Name:       "browserfs",
		},
		UID: uint32(os.Getuid()),
		GID: uint32(os.Getgid()),
	}

	server, err := fs.Mount(mountPoint, NewRoot(fsys), opts)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	return server, nil
}

var _ fs.InodeEmbedder = (*Node)(nil)
var _ fs.NodeGetattrer = (*Node)(nil)
var _ fs.NodeLookuper = (*Node)(nil)
var _ fs.NodeReaddirer = (*Node)(nil)
var _ fs.NodeOpener = (*Node)(nil)
var _ fs.NodeReader = (*Node)(nil)

// errnoOf maps adapter error kinds onto errnos.
func errnoOf(err error) syscall.Errno {
	kind, ok := fserr.KindOf(err)
	if !ok {
		return syscall.EIO
	}
	switch kind {
	case fserr.FileNotFound:
		return syscall.ENOENT
	case fserr.NotADirectory:
		return syscall.ENOTDIR
	case fserr.IsADirectory:
		return syscall.EISDIR
	case fserr.AlreadyExists:
		return syscall.EEXIST
	case fserr.PermissionDenied:
		return syscall.EACCES
	case fserr.InvalidArgument:
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}

func fillAttr(info httpfs.FileInfo, attr *gofuse.Attr) {
	if info.IsDir() {
		attr.Mode = 0555 | syscall.S_IFDIR
	} else {
		attr.Mode = 0444 | syscall.S_IFREG
	}
	if size := info.Size(); size > 0 {
		attr.Size = uint64(size)
	}
	mtime := uint64(info.ModTime().Unix())
	attr.Mtime = mtime
	attr.Atime = mtime
	attr.Ctime = mtime
	attr.Uid = uint32(os.Getuid())
	attr.Gid = uint32(os.Getgid())
}

// Getattr returns node attributes. Sizes not yet known are discovered
// with a probe; content is never downloaded here.
func (n *Node) Getattr(ctx context.Context, fh fs.FileHandle, out *gofuse.AttrOut) syscall.Errno {
	info, err := n.fsys.Stat(ctx, n.path)
	if err != nil {
		return errnoOf(err)
	}
	fillAttr(info, &out.Attr)
	return 0
}

// Lookup finds a child by name.
func (n *Node) Lookup(ctx context.Context, name string, out *gofuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childPath := path.Join(n.path, name)

	info, err := n.fsys.Stat(ctx, childPath)
	if err != nil {
		return nil, errnoOf(err)
	}

	child := &Node{fsys: n.fsys, path: childPath}
	fillAttr(info, &out.Attr)

	return n.NewInode(ctx, child, fs.StableAttr{Mode: out.Attr.Mode}), 0
}

// Readdir lists directory contents in listing order.
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := n.fsys.Readdir(n.path)
	if err != nil {
		return nil, errnoOf(err)
	}

	entries := make([]gofuse.DirEntry, 0, len(names))
	for _, name := range names {
		mode := uint32(syscall.S_IFREG)
		if node, ok := n.fsys.Index().Lookup(path.Join(n.path, name)); ok && node.IsDir() {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, gofuse.DirEntry{Name: name, Mode: mode})
	}

	return fs.NewListDirStream(entries), 0
}

// Open materializes the file and returns a handle over its snapshot.
// Writes are rejected before any network work happens.
func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}

	file, err := n.fsys.Open(ctx, n.path, httpfs.DefaultFlags)
	if err != nil {
		logging.Error("open failed", logging.String("path", n.path), logging.Err(err))
		return nil, 0, errnoOf(err)
	}

	return &fileHandle{file: file}, gofuse.FOPEN_KEEP_CACHE, 0
}

// Read reads from the materialized snapshot.
func (n *Node) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (gofuse.ReadResult, syscall.Errno) {
	handle, ok := fh.(*fileHandle)
	if !ok {
		return nil, syscall.EIO
	}

	read, err := handle.file.ReadAt(dest, off)
	if err != nil && read == 0 {
		// EOF reads return empty results, not errors.
		return gofuse.ReadResultData(nil), 0
	}
	return gofuse.ReadResultData(dest[:read]), 0
}

type fileHandle struct {
	file *httpfs.File
}
