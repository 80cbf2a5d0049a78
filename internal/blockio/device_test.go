package blockio_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/dargueta/rufs/internal/blockio"
)

const testBlockSize = 1024

func newMemDevice(t *testing.T, numBlocks int) *blockio.Device {
	t.Helper()
	buf := make([]byte, numBlocks*testBlockSize)
	stream := bytesextra.NewReadWriteSeeker(buf)
	return blockio.New(stream, testBlockSize)
}

func TestDevice_WriteThenReadBlock(t *testing.T) {
	dev := newMemDevice(t, 4)

	written := make([]byte, testBlockSize)
	for i := range written {
		written[i] = byte(i % 251)
	}
	require.NoError(t, dev.WriteBlock(2, written))

	readBack := make([]byte, testBlockSize)
	require.NoError(t, dev.ReadBlock(2, readBack))
	require.Equal(t, written, readBack)
}

func TestDevice_ReadBlockPastEndZeroesBuffer(t *testing.T) {
	dev := newMemDevice(t, 2)

	buf := make([]byte, testBlockSize)
	for i := range buf {
		buf[i] = 0xFF
	}

	err := dev.ReadBlock(5, buf)
	require.ErrorIs(t, err, blockio.ErrShortRead)
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
}

func TestDevice_ReadBlockWrongSizeBuffer(t *testing.T) {
	dev := newMemDevice(t, 2)
	err := dev.ReadBlock(0, make([]byte, testBlockSize-1))
	require.ErrorIs(t, err, blockio.ErrWrongSize)
}

func TestDevice_UnwrittenBlockReadsZeroed(t *testing.T) {
	dev := newMemDevice(t, 2)
	buf := make([]byte, testBlockSize)
	require.NoError(t, dev.ReadBlock(1, buf))
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
}
