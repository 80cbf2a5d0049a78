package alloc_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/dargueta/rufs/internal/alloc"
	"github.com/dargueta/rufs/internal/blockio"
)

const testBlockSize = 1024

func newDevice(t *testing.T) *blockio.Device {
	t.Helper()
	buf := make([]byte, 8*testBlockSize)
	return blockio.New(bytesextra.NewReadWriteSeeker(buf), testBlockSize)
}

func TestAllocateInode_AscendingFirstFit(t *testing.T) {
	dev := newDevice(t)

	first, err := alloc.AllocateInode(dev, testBlockSize, 1, 64)
	require.NoError(t, err)
	require.EqualValues(t, 0, first)

	second, err := alloc.AllocateInode(dev, testBlockSize, 1, 64)
	require.NoError(t, err)
	require.EqualValues(t, 1, second)

	third, err := alloc.AllocateInode(dev, testBlockSize, 1, 64)
	require.NoError(t, err)
	require.EqualValues(t, 2, third)
}

func TestAllocateBlock_OffsetsByDataRegionStart(t *testing.T) {
	dev := newDevice(t)

	first, err := alloc.AllocateBlock(dev, testBlockSize, 2, 64, 10)
	require.NoError(t, err)
	require.EqualValues(t, 10, first)

	second, err := alloc.AllocateBlock(dev, testBlockSize, 2, 64, 10)
	require.NoError(t, err)
	require.EqualValues(t, 11, second)
}

func TestAllocateInode_NoSpace(t *testing.T) {
	dev := newDevice(t)

	for i := 0; i < 8; i++ {
		_, err := alloc.AllocateInode(dev, testBlockSize, 1, 8)
		require.NoError(t, err)
	}

	_, err := alloc.AllocateInode(dev, testBlockSize, 1, 8)
	require.ErrorIs(t, err, alloc.ErrNoSpace)
}
