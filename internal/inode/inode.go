// Package inode is the inode table: reading and writing a single inode by
// number, computing its block and in-block offset from the superblock's
// layout constants. This is readi/writei.
package inode

import (
	"bytes"
	"encoding/binary"

	"github.com/dargueta/rufs/internal/blockio"
)

// File type bits occupying the upper bits of Type, alongside the 9-bit
// permission mask in the low bits. These values must match the rufs
// package's S_IFDIR/S_IFREG constants.
const (
	TypeDir  = 0x4000
	TypeReg  = 0x8000
	TypeMask = TypeDir | TypeReg
)

// NumDirect and NumIndirect mirror the rufs package's layout constants;
// duplicated here so this package has no dependency on the root package.
const (
	NumDirect   = 16
	NumIndirect = 8
)

// Stat is the embedded, opaque fixed-size record holding owner, group,
// mode, link count, size, and timestamps. Size and Nlink are mirrored in
// lockstep with RawInode's own Size and Nlink fields.
type Stat struct {
	Uid        uint32
	Gid        uint32
	Mode       uint32
	Nlink      uint32
	Size       uint64
	AccessTime int64
	ModTime    int64
}

// RawInode is the on-disk inode record, written with its bytes laid out
// exactly as in memory.
type RawInode struct {
	Self     uint32
	Valid    uint8
	_        [3]byte
	Size     uint64
	Type     uint16
	Nlink    uint16
	Direct   [NumDirect]uint32
	Indirect [NumIndirect]uint32
	Stat     Stat
}

// Size returns sizeof(RawInode) as laid out by encoding/binary.
func Size() int {
	return binary.Size(RawInode{})
}

// IsDir reports whether the inode's type word carries the directory bit.
func (r *RawInode) IsDir() bool {
	return r.Type&TypeMask == TypeDir
}

// Table reads and writes inodes against a mounted device, given the
// superblock's inode region layout.
type Table struct {
	Dev              *blockio.Device
	BlockSize        int
	InodeRegionStart uint32
	InodeSize        int
	InodesPerBlock   int
}

func (t *Table) location(ino uint32) (block uint32, offset int) {
	perBlock := uint32(t.InodesPerBlock)
	block = t.InodeRegionStart + ino/perBlock
	offset = int(ino%perBlock) * t.InodeSize
	return block, offset
}

// Read loads a single inode record by number.
func (t *Table) Read(ino uint32) (RawInode, error) {
	block, offset := t.location(ino)

	buf := make([]byte, t.BlockSize)
	if err := t.Dev.ReadBlock(block, buf); err != nil {
		return RawInode{}, err
	}

	var raw RawInode
	reader := bytes.NewReader(buf[offset : offset+t.InodeSize])
	if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
		return RawInode{}, err
	}
	return raw, nil
}

// Write overwrites a single inode slot, preserving its neighbors in the
// same block (read-modify-write).
func (t *Table) Write(ino uint32, raw *RawInode) error {
	block, offset := t.location(ino)

	buf := make([]byte, t.BlockSize)
	if err := t.Dev.ReadBlock(block, buf); err != nil && err != blockio.ErrShortRead {
		return err
	}

	out := new(bytes.Buffer)
	if err := binary.Write(out, binary.LittleEndian, raw); err != nil {
		return err
	}
	copy(buf[offset:offset+t.InodeSize], out.Bytes())

	return t.Dev.WriteBlock(block, buf)
}
