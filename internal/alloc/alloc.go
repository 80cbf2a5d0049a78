// Package alloc implements the inode and data-block allocators: first-fit
// scans over the on-disk inode and data bitmaps, read-modify-write against
// the block I/O port on every call. Unlike an in-memory allocator, no
// bitmap state is kept resident between calls.
package alloc

import (
	"errors"

	"github.com/dargueta/rufs/internal/bitmap"
	"github.com/dargueta/rufs/internal/blockio"
)

// ErrNoSpace is returned when a bitmap has no free bit to allocate.
var ErrNoSpace = errors.New("alloc: no space left")

// AllocateInode finds the lowest-numbered free inode, marks it used in the
// inode bitmap, and returns its number. Tie-break is strictly ascending
// index order.
func AllocateInode(dev *blockio.Device, blockSize int, bitmapBlock uint32, iMax int) (uint32, error) {
	return allocate(dev, blockSize, bitmapBlock, iMax)
}

// AllocateBlock finds the lowest-numbered free data block, marks it used in
// the data bitmap, and returns its absolute block number
// (dataRegionStart + index).
func AllocateBlock(dev *blockio.Device, blockSize int, bitmapBlock uint32, dMax int, dataRegionStart uint32) (uint32, error) {
	idx, err := allocate(dev, blockSize, bitmapBlock, dMax)
	if err != nil {
		return 0, err
	}
	return dataRegionStart + idx, nil
}

func allocate(dev *blockio.Device, blockSize int, bitmapBlock uint32, maxUnits int) (uint32, error) {
	buf := make([]byte, blockSize)
	if err := dev.ReadBlock(bitmapBlock, buf); err != nil && err != blockio.ErrShortRead {
		return 0, err
	}

	idx := bitmap.FindFirstClear(buf, maxUnits)
	if idx < 0 {
		return 0, ErrNoSpace
	}

	bitmap.Set(buf, idx)
	if err := dev.WriteBlock(bitmapBlock, buf); err != nil {
		return 0, err
	}
	return uint32(idx), nil
}
