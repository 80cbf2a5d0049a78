package superblock_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dargueta/rufs/internal/superblock"
)

func TestLayout_ComputesDataRegionStart(t *testing.T) {
	sb := superblock.Layout(0x52554653, 1024, 1024, 30720, 153, 213)

	require.EqualValues(t, 1, sb.InodeBitmapBlock)
	require.EqualValues(t, 2, sb.DataBitmapBlock)
	require.EqualValues(t, 3, sb.InodeRegionStart)
	require.Greater(t, sb.DataRegionStart, sb.InodeRegionStart)
	require.EqualValues(t, 1024/153, sb.InodesPerBlock)
	require.EqualValues(t, 1024/213, sb.DirentsPerBlock)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sb := superblock.Layout(0x52554653, 1024, 1024, 30720, 153, 213)

	block, err := sb.Encode(1024)
	require.NoError(t, err)
	require.Len(t, block, 1024)

	decoded, err := superblock.Decode(block)
	require.NoError(t, err)
	require.Equal(t, sb, decoded)
}
