package dirent_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/dargueta/rufs/internal/blockio"
	"github.com/dargueta/rufs/internal/dirent"
	"github.com/dargueta/rufs/internal/inode"
)

const testBlockSize = 1024

type fakeAllocator struct {
	next uint32
}

func (f *fakeAllocator) AllocateBlock() (uint32, error) {
	f.next++
	return f.next + 99, nil
}

func newDevice(t *testing.T) *blockio.Device {
	t.Helper()
	buf := make([]byte, 32*testBlockSize)
	return blockio.New(bytesextra.NewReadWriteSeeker(buf), testBlockSize)
}

func TestAddThenFind(t *testing.T) {
	dev := newDevice(t)
	direntSize := dirent.Size()
	alloc := &fakeAllocator{}

	parent := inode.RawInode{Self: 0, Valid: 1}

	require.NoError(t, dirent.Add(dev, testBlockSize, direntSize, alloc, &parent, 1, "a"))
	require.NoError(t, dirent.Add(dev, testBlockSize, direntSize, alloc, &parent, 2, "b"))

	got, err := dirent.Find(dev, testBlockSize, direntSize, &parent, "b")
	require.NoError(t, err)
	require.EqualValues(t, 2, got.Inode)

	_, err = dirent.Find(dev, testBlockSize, direntSize, &parent, "missing")
	require.ErrorIs(t, err, dirent.ErrNotFound)
}

func TestAdd_DuplicateNameFails(t *testing.T) {
	dev := newDevice(t)
	direntSize := dirent.Size()
	alloc := &fakeAllocator{}

	parent := inode.RawInode{Self: 0, Valid: 1}
	require.NoError(t, dirent.Add(dev, testBlockSize, direntSize, alloc, &parent, 1, "a"))

	err := dirent.Add(dev, testBlockSize, direntSize, alloc, &parent, 2, "a")
	require.ErrorIs(t, err, dirent.ErrExists)
}

func TestAdd_GrowsByOneBlockAtATime(t *testing.T) {
	dev := newDevice(t)
	direntSize := dirent.Size()
	alloc := &fakeAllocator{}

	parent := inode.RawInode{Self: 0, Valid: 1}
	direntsPerBlock := testBlockSize / direntSize

	for i := 0; i < direntsPerBlock; i++ {
		name := string(rune('a' + i))
		require.NoError(t, dirent.Add(dev, testBlockSize, direntSize, alloc, &parent, uint32(i+1), name))
	}
	require.NotZero(t, parent.Direct[0])
	require.Zero(t, parent.Direct[1])
	require.EqualValues(t, testBlockSize, parent.Size)

	// One more entry must spill into a second block.
	require.NoError(t, dirent.Add(dev, testBlockSize, direntSize, alloc, &parent, 999, "overflow"))
	require.NotZero(t, parent.Direct[1])
	require.EqualValues(t, testBlockSize*2, parent.Size)
}

func TestForEach_EnumeratesAllValidNames(t *testing.T) {
	dev := newDevice(t)
	direntSize := dirent.Size()
	alloc := &fakeAllocator{}

	parent := inode.RawInode{Self: 0, Valid: 1}
	require.NoError(t, dirent.Add(dev, testBlockSize, direntSize, alloc, &parent, 1, "."))
	require.NoError(t, dirent.Add(dev, testBlockSize, direntSize, alloc, &parent, 2, "a"))

	var names []string
	require.NoError(t, dirent.ForEach(dev, testBlockSize, direntSize, &parent, func(name string) {
		names = append(names, name)
	}))
	require.ElementsMatch(t, []string{".", "a"}, names)
}
