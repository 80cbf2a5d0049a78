package rufs

// Compile-time layout constants. These define the on-disk format; two
// images are only interoperable if both sides agree on every value here.
const (
	// BlockSize is B, the fixed unit of backing-file I/O.
	BlockSize = 1024

	// NumDirect is N_d, the number of direct block pointers per inode.
	NumDirect = 16

	// NumIndirect is N_i, the number of indirect pointers per inode. They
	// are reserved in the layout and never populated by this driver.
	NumIndirect = 8

	// NameCapacity is the maximum number of bytes (excluding the
	// terminating null) a directory entry's name field can hold.
	NameCapacity = 207

	// MaxFileSize is the largest byte offset a regular file's direct
	// pointers can address: N_d * B.
	MaxFileSize = NumDirect * BlockSize

	// Magic identifies a valid superblock.
	Magic = 0x52554653 // "RUFS"

	// InodeBitmapBlock and DataBitmapBlock are fixed block numbers,
	// independent of I_max/D_max.
	InodeBitmapBlock = 1
	DataBitmapBlock  = 2

	// InodeRegionStart is the first block of the inode table.
	InodeRegionStart = 3

	// DefaultIMax and DefaultDMax are the reference configuration's inode
	// and data block counts. The layout they produce fits within a 32 MiB
	// image (the reference total disk size).
	DefaultIMax = 1024
	DefaultDMax = 30720

	// DefaultTotalSize is the reference total disk size. Format does not
	// use it: it sizes a new backing file to DataRegionStart+D_max blocks,
	// which for the default counts is 30894 blocks, less than 32 MiB.
	DefaultTotalSize = 32 * 1024 * 1024
)
