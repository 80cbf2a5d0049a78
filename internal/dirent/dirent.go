// Package dirent is the directory engine: it locates, inserts, and
// enumerates directory entries inside the data blocks addressed by a
// directory inode's direct pointers. It grows a directory by allocating
// one new data block at a time; indirect pointers are never used.
package dirent

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"

	"github.com/dargueta/rufs/internal/blockio"
	"github.com/dargueta/rufs/internal/inode"
)

// NameCapacity is the maximum byte length of a stored name, excluding the
// terminating null.
const NameCapacity = 207

// ErrNotFound is returned by Find when no matching entry exists.
var ErrNotFound = errors.New("dirent: not found")

// ErrExists is returned by Add when the name is already present.
var ErrExists = errors.New("dirent: already exists")

// ErrNoSpace is returned by Add when every direct pointer is in use and
// none has room for another entry.
var ErrNoSpace = errors.New("dirent: no space in directory")

// Dirent is one fixed-size slot in a directory-entry block.
type Dirent struct {
	Inode   uint32
	Valid   uint8
	NameLen uint8
	Name    [NameCapacity]byte
}

// Size returns sizeof(Dirent) as laid out by encoding/binary.
func Size() int {
	return binary.Size(Dirent{})
}

func newDirent(ino uint32, name string) Dirent {
	var d Dirent
	d.Inode = ino
	d.Valid = 1
	d.NameLen = uint8(len(name))
	copy(d.Name[:], name)
	return d
}

// name returns the entry's name, delimited by its trailing null byte (not
// by NameLen), matching dir_find's strcmp-against-null-terminated-name
// comparison.
func (d *Dirent) name() string {
	n := bytes.IndexByte(d.Name[:], 0)
	if n < 0 {
		n = len(d.Name)
	}
	return string(d.Name[:n])
}

// Allocator is the subset of internal/alloc this package needs, to avoid a
// direct dependency cycle on the allocator's own dependencies.
type Allocator interface {
	AllocateBlock() (uint32, error)
}

func decodeBlock(buf []byte, direntSize int) []Dirent {
	count := len(buf) / direntSize
	out := make([]Dirent, count)
	for i := 0; i < count; i++ {
		reader := bytes.NewReader(buf[i*direntSize : (i+1)*direntSize])
		binary.Read(reader, binary.LittleEndian, &out[i])
	}
	return out
}

func encodeBlock(entries []Dirent, blockSize int) []byte {
	buf := new(bytes.Buffer)
	for i := range entries {
		binary.Write(buf, binary.LittleEndian, &entries[i])
	}
	out := make([]byte, blockSize)
	copy(out, buf.Bytes())
	return out
}

// Find looks up name among parent's direct pointers, in order, and returns
// the matching entry.
func Find(dev *blockio.Device, blockSize, direntSize int, parent *inode.RawInode, name string) (Dirent, error) {
	buf := make([]byte, blockSize)

	for i := 0; i < inode.NumDirect; i++ {
		ptr := parent.Direct[i]
		if ptr == 0 {
			continue
		}
		if err := dev.ReadBlock(ptr, buf); err != nil && err != blockio.ErrShortRead {
			return Dirent{}, err
		}
		for _, d := range decodeBlock(buf, direntSize) {
			if d.Valid == 1 && d.name() == name {
				return d, nil
			}
		}
	}
	return Dirent{}, ErrNotFound
}

// Add inserts a new entry for childIno under name into parent, mutating
// parent in memory (size, direct pointers) and the on-disk directory
// blocks. The caller is responsible for persisting parent afterward via
// the inode table.
func Add(dev *blockio.Device, blockSize, direntSize int, alloc Allocator, parent *inode.RawInode, childIno uint32, name string) error {
	if len(name) > NameCapacity {
		return errors.New("dirent: name too long")
	}

	if _, err := Find(dev, blockSize, direntSize, parent, name); err == nil {
		return ErrExists
	} else if err != ErrNotFound {
		return err
	}

	buf := make([]byte, blockSize)
	direntsPerBlock := blockSize / direntSize
	now := time.Now().Unix()

	for i := 0; i < inode.NumDirect; i++ {
		ptr := parent.Direct[i]
		if ptr != 0 {
			if err := dev.ReadBlock(ptr, buf); err != nil && err != blockio.ErrShortRead {
				return err
			}
			entries := decodeBlock(buf, direntSize)
			for j := range entries {
				if entries[j].Valid == 0 {
					entries[j] = newDirent(childIno, name)
					parent.Stat.AccessTime = now
					parent.Stat.ModTime = now
					return dev.WriteBlock(ptr, encodeBlock(entries, blockSize))
				}
			}
			continue
		}

		newBlock, err := alloc.AllocateBlock()
		if err != nil {
			return err
		}
		parent.Direct[i] = newBlock
		parent.Size += uint64(blockSize)
		parent.Stat.Size = parent.Size
		parent.Stat.AccessTime = now
		parent.Stat.ModTime = now

		entries := make([]Dirent, direntsPerBlock)
		entries[0] = newDirent(childIno, name)
		return dev.WriteBlock(newBlock, encodeBlock(entries, blockSize))
	}

	return ErrNoSpace
}

// ForEach enumerates every valid entry's name across inode's direct
// pointers, in order.
func ForEach(dev *blockio.Device, blockSize, direntSize int, dirInode *inode.RawInode, sink func(name string)) error {
	buf := make([]byte, blockSize)

	for i := 0; i < inode.NumDirect; i++ {
		ptr := dirInode.Direct[i]
		if ptr == 0 {
			continue
		}
		if err := dev.ReadBlock(ptr, buf); err != nil && err != blockio.ErrShortRead {
			return err
		}
		for _, d := range decodeBlock(buf, direntSize) {
			if d.Valid == 1 {
				sink(d.name())
			}
		}
	}
	return nil
}
