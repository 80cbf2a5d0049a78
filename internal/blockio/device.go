// Package blockio is the block I/O port: opaque fixed-size block reads and
// writes against a backing file. It has no notion of superblocks, inodes,
// or directories; callers address it purely by block number.
package blockio

import (
	"errors"
	"io"
	"os"
)

// ErrShortRead is returned by ReadBlock when the requested block lies
// beyond the backing file's current length. The caller's buffer is still
// zeroed, matching a read of a block that was never written.
var ErrShortRead = errors.New("blockio: short read")

// ErrWrongSize is returned when a caller passes a buffer that isn't
// exactly one block long.
var ErrWrongSize = errors.New("blockio: buffer is not exactly one block")

// Device is a single backing file addressed in units of BlockSize bytes.
// It holds one descriptor for the lifetime of the mount and performs no
// read-ahead or write-back caching: every ReadBlock/WriteBlock call does
// exactly one seek and one I/O operation.
type Device struct {
	BlockSize int
	stream    io.ReadWriteSeeker
	closer    io.Closer
}

// Init creates a fresh, zero-filled backing file of totalSize bytes at
// path, truncating any existing file there, and returns a Device over it.
func Init(path string, blockSize int, totalSize int64) (*Device, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := file.Truncate(totalSize); err != nil {
		file.Close()
		return nil, err
	}
	return &Device{BlockSize: blockSize, stream: file, closer: file}, nil
}

// Open opens an existing backing file at path for reading and writing.
func Open(path string, blockSize int) (*Device, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &Device{BlockSize: blockSize, stream: file, closer: file}, nil
}

// New wraps an already-open stream (e.g. a bytesextra-backed in-memory
// image in tests) as a Device. The stream is not closed by Close.
func New(stream io.ReadWriteSeeker, blockSize int) *Device {
	return &Device{BlockSize: blockSize, stream: stream}
}

// Close releases the backing file descriptor, if this Device owns one.
func (d *Device) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

func (d *Device) offsetOf(blockNum uint32) int64 {
	return int64(blockNum) * int64(d.BlockSize)
}

// ReadBlock reads exactly one block into buf, which must be BlockSize bytes
// long. A block past the backing file's current length zeroes buf and
// returns ErrShortRead rather than an I/O error.
func (d *Device) ReadBlock(blockNum uint32, buf []byte) error {
	if len(buf) != d.BlockSize {
		return ErrWrongSize
	}

	if _, err := d.stream.Seek(d.offsetOf(blockNum), io.SeekStart); err != nil {
		for i := range buf {
			buf[i] = 0
		}
		return ErrShortRead
	}

	n, err := io.ReadFull(d.stream, buf)
	if n < len(buf) {
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		return ErrShortRead
	}
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

// WriteBlock writes exactly one block from buf, which must be BlockSize
// bytes long, at blockNum.
func (d *Device) WriteBlock(blockNum uint32, buf []byte) error {
	if len(buf) != d.BlockSize {
		return ErrWrongSize
	}

	if _, err := d.stream.Seek(d.offsetOf(blockNum), io.SeekStart); err != nil {
		return err
	}

	_, err := d.stream.Write(buf)
	return err
}
