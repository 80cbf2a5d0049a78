package pathresolve_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/dargueta/rufs/internal/blockio"
	"github.com/dargueta/rufs/internal/dirent"
	"github.com/dargueta/rufs/internal/inode"
	"github.com/dargueta/rufs/internal/pathresolve"
)

const testBlockSize = 1024

type fakeAllocator struct{ next uint32 }

func (f *fakeAllocator) AllocateBlock() (uint32, error) {
	f.next++
	return f.next + 99, nil
}

type memTable struct {
	inodes map[uint32]inode.RawInode
}

func (m *memTable) Read(ino uint32) (inode.RawInode, error) {
	return m.inodes[ino], nil
}

func (m *memTable) Write(ino uint32, raw *inode.RawInode) {
	m.inodes[ino] = *raw
}

func TestResolve_Root(t *testing.T) {
	dev := blockio.New(bytesextra.NewReadWriteSeeker(make([]byte, 32*testBlockSize)), testBlockSize)
	table := &memTable{inodes: map[uint32]inode.RawInode{0: {Self: 0, Valid: 1}}}

	got, ino, err := pathresolve.Resolve(dev, testBlockSize, dirent.Size(), table, "/", 0)
	require.NoError(t, err)
	require.EqualValues(t, 0, ino)
	require.EqualValues(t, 0, got.Self)
}

func TestResolve_NestedComponent(t *testing.T) {
	dev := blockio.New(bytesextra.NewReadWriteSeeker(make([]byte, 32*testBlockSize)), testBlockSize)
	alloc := &fakeAllocator{}

	root := inode.RawInode{Self: 0, Valid: 1}
	child := inode.RawInode{Self: 1, Valid: 1}

	require.NoError(t, dirent.Add(dev, testBlockSize, dirent.Size(), alloc, &root, 1, "a"))

	table := &memTable{inodes: map[uint32]inode.RawInode{0: root, 1: child}}

	got, ino, err := pathresolve.Resolve(dev, testBlockSize, dirent.Size(), table, "/a", 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, ino)
	require.EqualValues(t, 1, got.Self)
}

func TestResolve_MissingComponentFails(t *testing.T) {
	dev := blockio.New(bytesextra.NewReadWriteSeeker(make([]byte, 32*testBlockSize)), testBlockSize)
	table := &memTable{inodes: map[uint32]inode.RawInode{0: {Self: 0, Valid: 1}}}

	_, _, err := pathresolve.Resolve(dev, testBlockSize, dirent.Size(), table, "/nope", 0)
	require.ErrorIs(t, err, pathresolve.ErrNotFound)
}
