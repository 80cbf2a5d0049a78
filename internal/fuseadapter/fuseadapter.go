//go:build fuse

// Package fuseadapter translates go-fuse's node callbacks to calls on a
// rufs.Driver. It is the kernel-side plumbing the core driver treats as an
// external collaborator: it attaches a real FUSE mount to the synchronous
// operations in the rufs package, and is not built or exercised by default.
package fuseadapter

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/dargueta/rufs"
)

// Root is the FUSE-facing node wrapping a mounted rufs.Driver. Every node
// in the tree carries the same Driver and its own resolved path; rufs has
// no notion of open file handles beyond an inode number, so Lookup just
// re-resolves on every call.
type Root struct {
	fs.Inode
	Driver *rufs.Driver
	Path   string
}

var _ fs.NodeGetattrer = (*Root)(nil)
var _ fs.NodeLookuper = (*Root)(nil)
var _ fs.NodeReaddirer = (*Root)(nil)
var _ fs.NodeOpener = (*Root)(nil)
var _ fs.NodeReader = (*Root)(nil)
var _ fs.NodeWriter = (*Root)(nil)
var _ fs.NodeMkdirer = (*Root)(nil)
var _ fs.NodeCreater = (*Root)(nil)

// errnoOf maps a rufs.DriverError to the syscall.Errno go-fuse expects.
func errnoOf(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	if de, ok := err.(*rufs.DriverError); ok {
		return de.Errno
	}
	return syscall.EIO
}

func childPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func (n *Root) child(name string) *Root {
	return &Root{Driver: n.Driver, Path: childPath(n.Path, name)}
}

// Getattr fills out attr from the rufs inode's attribute record.
func (n *Root) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	stat, err := n.Driver.GetAttributes(n.Path)
	if err != nil {
		return errnoOf(err)
	}

	out.Mode = stat.Mode
	out.Size = uint64(stat.Size)
	out.Nlink = stat.Nlink
	out.Uid = stat.Uid
	out.Gid = stat.Gid
	out.SetTimes(&stat.AccessTime, &stat.ModTime, nil)
	return 0
}

// Lookup resolves name under this directory and returns a child node for
// it.
func (n *Root) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	child := n.child(name)
	stat, err := n.Driver.GetAttributes(child.Path)
	if err != nil {
		return nil, errnoOf(err)
	}

	out.Mode = stat.Mode
	out.Size = uint64(stat.Size)
	mode := uint32(syscall.S_IFREG)
	if stat.IsDirectory {
		mode = syscall.S_IFDIR
	}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: mode}), 0
}

// Readdir lists the directory's entries. rufs reports names only, so
// every entry is published with mode 0 and an arbitrary (but stable)
// inode hint.
func (n *Root) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := n.Driver.ReadDirectory(n.Path)
	if err != nil {
		return nil, errnoOf(err)
	}

	entries := make([]fuse.DirEntry, len(names))
	for i, name := range names {
		entries[i] = fuse.DirEntry{Name: name}
	}
	return fs.NewListDirStream(entries), 0
}

// Open just verifies the path resolves to a regular file; rufs has no
// separate file-handle concept beyond the resolved inode number.
func (n *Root) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if _, err := n.Driver.OpenFile(n.Path); err != nil {
		return nil, 0, errnoOf(err)
	}
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

// Read serves a byte range directly from the backing image.
func (n *Root) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := n.Driver.ReadFile(n.Path, len(dest), int(off))
	if err != nil {
		return nil, errnoOf(err)
	}
	return fuse.ReadResultData(data), 0
}

// Write writes a byte range directly to the backing image.
func (n *Root) Write(ctx context.Context, fh fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	written, err := n.Driver.WriteFile(n.Path, data, len(data), int(off))
	if err != nil {
		return uint32(written), errnoOf(err)
	}
	return uint32(written), 0
}

// Mkdir creates a subdirectory and returns a node for it.
func (n *Root) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	child := n.child(name)
	if err := n.Driver.MakeDirectory(child.Path, uint16(mode&0o777)); err != nil {
		return nil, errnoOf(err)
	}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR}), 0
}

// Create creates a new regular file and returns a node for it.
func (n *Root) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	child := n.child(name)
	if _, err := n.Driver.CreateFile(child.Path, uint16(mode&0o777)); err != nil {
		return nil, nil, 0, errnoOf(err)
	}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG}), nil, 0, 0
}
