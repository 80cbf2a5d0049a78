// Package superblock is the in-memory mirror of the on-disk descriptor at
// block 0: written once at format time, read once at mount.
package superblock

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/noxer/bytewriter"
)

// Superblock mirrors the fixed-size record stored in block 0.
type Superblock struct {
	Magic            uint32
	BlockSize        uint32
	IMax             uint32
	DMax             uint32
	InodeBitmapBlock uint32
	DataBitmapBlock  uint32
	InodeRegionStart uint32
	DataRegionStart  uint32
	InodeSize        uint32
	InodesPerBlock   uint32
	DirentSize       uint32
	DirentsPerBlock  uint32
}

// Layout computes a Superblock's derived fields from the raw geometry
// parameters. It is the single place the block-layout math lives; both
// Format and anything that wants to reason about capacity ahead of time
// call it.
func Layout(magic uint32, blockSize, iMax, dMax, inodeSize, direntSize uint32) Superblock {
	inodesPerBlock := blockSize / inodeSize
	inodeRegionBlocks := ceilDiv(iMax, inodesPerBlock)
	dataRegionStart := 3 + inodeRegionBlocks

	return Superblock{
		Magic:            magic,
		BlockSize:        blockSize,
		IMax:             iMax,
		DMax:             dMax,
		InodeBitmapBlock: 1,
		DataBitmapBlock:  2,
		InodeRegionStart: 3,
		DataRegionStart:  dataRegionStart,
		InodeSize:        inodeSize,
		InodesPerBlock:   inodesPerBlock,
		DirentSize:       direntSize,
		DirentsPerBlock:  blockSize / direntSize,
	}
}

func ceilDiv(n, d uint32) uint32 {
	return (n + d - 1) / d
}

// Encode writes the superblock as exactly BlockSize bytes directly into a
// freshly allocated block-sized slice. The tail of the block beyond the
// fixed record is left zero-filled.
func (sb *Superblock) Encode(blockSize int) ([]byte, error) {
	if binary.Size(sb) > blockSize {
		return nil, fmt.Errorf("superblock: encoded size %d exceeds block size %d", binary.Size(sb), blockSize)
	}

	block := make([]byte, blockSize)
	writer := bytewriter.New(block)
	if err := binary.Write(writer, binary.LittleEndian, sb); err != nil {
		return nil, err
	}
	return block, nil
}

// Decode reads a superblock out of a full block's worth of bytes.
func Decode(block []byte) (Superblock, error) {
	var sb Superblock
	reader := bytes.NewReader(block)
	if err := binary.Read(reader, binary.LittleEndian, &sb); err != nil {
		return Superblock{}, err
	}
	return sb, nil
}
