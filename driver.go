package rufs

import (
	"os"
	posixpath "path"
	"time"

	"github.com/dargueta/rufs/internal/alloc"
	"github.com/dargueta/rufs/internal/bitmap"
	"github.com/dargueta/rufs/internal/blockio"
	"github.com/dargueta/rufs/internal/dirent"
	"github.com/dargueta/rufs/internal/inode"
	"github.com/dargueta/rufs/internal/pathresolve"
	"github.com/dargueta/rufs/internal/superblock"
)

// RootInode is the always-valid inode number of the root directory.
const RootInode = 0

// FileStat is the attribute record GetAttributes copies its output into:
// owner, group, mode, size, link count, access and modification times.
type FileStat struct {
	Uid         uint32
	Gid         uint32
	Mode        uint32
	Nlink       uint32
	Size        int64
	AccessTime  time.Time
	ModTime     time.Time
	IsDirectory bool
}

// FSStat is a read-only summary of free inode and data-block counts,
// computed from the mounted bitmaps. It is not part of the on-disk format.
type FSStat struct {
	TotalInodes uint32
	FreeInodes  uint32
	TotalBlocks uint32
	FreeBlocks  uint32
}

// Driver is the mounted file system: the backing device and the in-memory
// superblock mirror are its only mount-lifetime state. Every method runs
// to completion synchronously; Driver is not safe for concurrent use.
type Driver struct {
	path  string
	dev   *blockio.Device
	sb    superblock.Superblock
	table inode.Table
}

// NewDriver creates an unmounted Driver bound to the backing file at path.
func NewDriver(path string) *Driver {
	return &Driver{path: path}
}

// NewDriverFromDevice creates a Driver bound to an already-open device
// instead of a backing file path, e.g. a bytesextra-backed in-memory image
// in a test. Call Format or Mount on the result exactly as with NewDriver.
func NewDriverFromDevice(dev *blockio.Device) *Driver {
	return &Driver{dev: dev}
}

func (d *Driver) allocator(bitmapBlock uint32, maxUnits int) func() (uint32, error) {
	return func() (uint32, error) {
		ino, err := alloc.AllocateInode(d.dev, int(d.sb.BlockSize), bitmapBlock, maxUnits)
		if err == alloc.ErrNoSpace {
			return 0, ErrNoSpace
		}
		return ino, err
	}
}

type blockAllocator struct {
	dev             *blockio.Device
	blockSize       int
	dataBitmapBlock uint32
	dMax            int
	dataRegionStart uint32
}

func (a blockAllocator) AllocateBlock() (uint32, error) {
	ptr, err := alloc.AllocateBlock(a.dev, a.blockSize, a.dataBitmapBlock, a.dMax, a.dataRegionStart)
	if err == alloc.ErrNoSpace {
		return 0, ErrNoSpace
	}
	return ptr, err
}

func (d *Driver) blockAlloc() blockAllocator {
	return blockAllocator{
		dev:             d.dev,
		blockSize:       int(d.sb.BlockSize),
		dataBitmapBlock: d.sb.DataBitmapBlock,
		dMax:            int(d.sb.DMax),
		dataRegionStart: d.sb.DataRegionStart,
	}
}

// addDirent inserts name into dir, mapping the directory engine's internal
// sentinel errors to the package's exported ones.
func (d *Driver) addDirent(dir *inode.RawInode, childIno uint32, name string) error {
	err := dirent.Add(d.dev, int(d.sb.BlockSize), int(d.sb.DirentSize), d.blockAlloc(), dir, childIno, name)
	switch err {
	case dirent.ErrExists:
		return ErrExists
	case dirent.ErrNoSpace:
		return ErrNoSpace
	default:
		return err
	}
}

func (d *Driver) refreshTable() {
	d.table = inode.Table{
		Dev:              d.dev,
		BlockSize:        int(d.sb.BlockSize),
		InodeRegionStart: d.sb.InodeRegionStart,
		InodeSize:        int(d.sb.InodeSize),
		InodesPerBlock:   int(d.sb.InodesPerBlock),
	}
}

// Mount opens the backing file if it exists and reads its superblock, or
// formats a fresh image with the reference geometry if it doesn't. A
// Driver created with NewDriverFromDevice already has its device open;
// Mount reads its superblock directly rather than touching a path.
func (d *Driver) Mount() error {
	if d.dev == nil {
		if _, err := os.Stat(d.path); err != nil {
			if os.IsNotExist(err) {
				return d.Format(DefaultIMax, DefaultDMax)
			}
			return err
		}

		dev, err := blockio.Open(d.path, BlockSize)
		if err != nil {
			return err
		}
		d.dev = dev
	}

	block := make([]byte, BlockSize)
	if err := d.dev.ReadBlock(0, block); err != nil {
		return ErrFileSystemCorrupted.WithMessage(err.Error())
	}
	sb, err := superblock.Decode(block)
	if err != nil {
		return ErrFileSystemCorrupted.WithMessage(err.Error())
	}
	if sb.Magic != Magic {
		return ErrFileSystemCorrupted
	}
	d.sb = sb
	d.refreshTable()
	return nil
}

// Format initializes a fresh image, writes the superblock, clears both
// bitmaps, allocates inode 0 and its first data block, and inserts the
// root directory's "." entry. A Driver created with NewDriver creates its
// backing file at the bound path; one created with NewDriverFromDevice
// formats the device it was given instead.
func (d *Driver) Format(iMax, dMax uint32) error {
	sb := superblock.Layout(Magic, BlockSize, iMax, dMax, uint32(inode.Size()), uint32(dirent.Size()))

	if d.dev == nil {
		totalSize := int64(sb.DataRegionStart+dMax) * BlockSize
		dev, err := blockio.Init(d.path, BlockSize, totalSize)
		if err != nil {
			return err
		}
		d.dev = dev
	}
	d.sb = sb
	d.refreshTable()

	sbBlock, err := sb.Encode(BlockSize)
	if err != nil {
		return err
	}
	if err := d.dev.WriteBlock(0, sbBlock); err != nil {
		return err
	}

	emptyBitmap := make([]byte, BlockSize)
	if err := d.dev.WriteBlock(sb.InodeBitmapBlock, emptyBitmap); err != nil {
		return err
	}
	if err := d.dev.WriteBlock(sb.DataBitmapBlock, make([]byte, BlockSize)); err != nil {
		return err
	}

	rootIno, err := d.allocator(sb.InodeBitmapBlock, int(sb.IMax))()
	if err != nil {
		return err
	}
	if rootIno != RootInode {
		return ErrFileSystemCorrupted.WithMessage("root inode did not allocate as inode 0")
	}

	now := time.Now()
	root := inode.RawInode{
		Self:  RootInode,
		Valid: 1,
		Type:  inode.TypeDir | ModeDirDefault,
		Nlink: 1,
		Stat: inode.Stat{
			Mode:       uint32(ModeDirDefault),
			Nlink:      1,
			AccessTime: now.Unix(),
			ModTime:    now.Unix(),
		},
	}

	if err := d.addDirent(&root, RootInode, "."); err != nil {
		return err
	}
	root.Stat.Size = root.Size

	return d.table.Write(RootInode, &root)
}

// Unmount releases the backing file descriptor and clears all in-memory
// state.
func (d *Driver) Unmount() error {
	if d.dev == nil {
		return nil
	}
	err := d.dev.Close()
	d.dev = nil
	d.sb = superblock.Superblock{}
	return err
}

func toStat(raw *inode.RawInode) FileStat {
	return FileStat{
		Uid:         raw.Stat.Uid,
		Gid:         raw.Stat.Gid,
		Mode:        uint32(raw.Type),
		Nlink:       uint32(raw.Nlink),
		Size:        int64(raw.Size),
		AccessTime:  time.Unix(raw.Stat.AccessTime, 0),
		ModTime:     time.Unix(raw.Stat.ModTime, 0),
		IsDirectory: raw.IsDir(),
	}
}

func (d *Driver) resolve(path string) (inode.RawInode, uint32, error) {
	raw, ino, err := pathresolve.Resolve(d.dev, int(d.sb.BlockSize), int(d.sb.DirentSize), &d.table, path, RootInode)
	if err != nil {
		return inode.RawInode{}, 0, ErrNotFound.WithMessage(err.Error())
	}
	return raw, ino, nil
}

// GetAttributes resolves path and returns its attributes, touching the
// inode's access and modification times in the process.
func (d *Driver) GetAttributes(path string) (FileStat, error) {
	raw, ino, err := d.resolve(path)
	if err != nil {
		return FileStat{}, err
	}

	now := time.Now().Unix()
	raw.Stat.AccessTime = now
	raw.Stat.ModTime = now
	if err := d.table.Write(ino, &raw); err != nil {
		return FileStat{}, err
	}

	return toStat(&raw), nil
}

// OpenDirectory resolves path and returns the inode number identifying it
// for a subsequent ReadDirectory call.
func (d *Driver) OpenDirectory(path string) (uint32, error) {
	raw, ino, err := d.resolve(path)
	if err != nil {
		return 0, err
	}
	if !raw.IsDir() {
		return 0, ErrNotDirectory
	}
	return ino, nil
}

// ReadDirectory resolves path and returns the names of every entry in it.
func (d *Driver) ReadDirectory(path string) ([]string, error) {
	raw, _, err := d.resolve(path)
	if err != nil {
		return nil, err
	}
	if !raw.IsDir() {
		return nil, ErrNotDirectory
	}

	var names []string
	err = dirent.ForEach(d.dev, int(d.sb.BlockSize), int(d.sb.DirentSize), &raw, func(name string) {
		names = append(names, name)
	})
	return names, err
}

// splitParentLeaf splits path into its parent directory and leaf name
// using the usual POSIX dirname/basename rules, with the special case that
// a parent of "/" yields the tail of path after the leading slash as the
// leaf.
func splitParentLeaf(path string) (parent, leaf string) {
	parent, leaf = posixpath.Split(path)
	if parent != "/" && len(parent) > 1 {
		parent = posixpath.Clean(parent)
	}
	return parent, leaf
}

// MakeDirectory creates a new directory at path with the given permission
// bits.
func (d *Driver) MakeDirectory(path string, mode uint16) error {
	parentPath, leaf := splitParentLeaf(path)

	parent, parentIno, err := d.resolve(parentPath)
	if err != nil {
		return err
	}

	if _, err := dirent.Find(d.dev, int(d.sb.BlockSize), int(d.sb.DirentSize), &parent, leaf); err == nil {
		return ErrExists
	}

	childIno, err := d.allocator(d.sb.InodeBitmapBlock, int(d.sb.IMax))()
	if err != nil {
		return err
	}

	if err := d.addDirent(&parent, childIno, leaf); err != nil {
		return err
	}
	parent.Nlink++
	parent.Stat.Nlink = uint32(parent.Nlink)
	if err := d.table.Write(parentIno, &parent); err != nil {
		return err
	}

	now := time.Now().Unix()
	child := inode.RawInode{
		Self:  childIno,
		Valid: 1,
		Type:  inode.TypeDir | mode,
		Nlink: 2,
		Stat: inode.Stat{
			Mode:       uint32(mode),
			Nlink:      2,
			AccessTime: now,
			ModTime:    now,
		},
	}

	if err := d.addDirent(&child, childIno, "."); err != nil {
		return err
	}
	if err := d.addDirent(&child, parentIno, ".."); err != nil {
		return err
	}
	child.Stat.Size = child.Size

	return d.table.Write(childIno, &child)
}

// CreateFile creates a new, empty regular file at path with the given
// permission bits and publishes a handle (its inode number) identifying
// it.
func (d *Driver) CreateFile(path string, mode uint16) (uint32, error) {
	parentPath, leaf := splitParentLeaf(path)

	parent, parentIno, err := d.resolve(parentPath)
	if err != nil {
		return 0, err
	}

	if _, err := dirent.Find(d.dev, int(d.sb.BlockSize), int(d.sb.DirentSize), &parent, leaf); err == nil {
		return 0, ErrExists
	}

	childIno, err := d.allocator(d.sb.InodeBitmapBlock, int(d.sb.IMax))()
	if err != nil {
		return 0, err
	}

	if err := d.addDirent(&parent, childIno, leaf); err != nil {
		return 0, err
	}
	if err := d.table.Write(parentIno, &parent); err != nil {
		return 0, err
	}

	now := time.Now().Unix()
	child := inode.RawInode{
		Self:  childIno,
		Valid: 1,
		Type:  inode.TypeReg | mode,
		Nlink: 1,
		Stat: inode.Stat{
			Mode:       uint32(mode),
			Nlink:      1,
			AccessTime: now,
			ModTime:    now,
		},
	}
	if err := d.table.Write(childIno, &child); err != nil {
		return 0, err
	}
	return childIno, nil
}

// OpenFile resolves path and returns its inode number as a handle.
func (d *Driver) OpenFile(path string) (uint32, error) {
	raw, ino, err := d.resolve(path)
	if err != nil {
		return 0, err
	}
	if raw.IsDir() {
		return 0, ErrIsDirectory
	}
	return ino, nil
}

// blockRange computes the inclusive range of direct-pointer indices a read
// or write of size bytes at offset touches, and the byte offset within the
// first block. size must be > 0.
func blockRange(offset, size int) (startBlock, endBlock, intraOffset int) {
	startBlock = offset / BlockSize
	endBlock = (offset + size - 1) / BlockSize
	intraOffset = offset % BlockSize
	return startBlock, endBlock, intraOffset
}

// ReadFile resolves path and reads size bytes starting at offset.
func (d *Driver) ReadFile(path string, size, offset int) ([]byte, error) {
	raw, _, err := d.resolve(path)
	if err != nil {
		return nil, err
	}
	if offset < 0 || size < 0 || offset+size > MaxFileSize {
		return nil, ErrTooLarge
	}
	if size == 0 {
		return nil, nil
	}

	startBlock, endBlock, intraOffset := blockRange(offset, size)
	out := make([]byte, 0, size)
	buf := make([]byte, BlockSize)

	for k := startBlock; k <= endBlock; k++ {
		ptr := raw.Direct[k]
		if ptr != 0 {
			if err := d.dev.ReadBlock(ptr, buf); err != nil && err != blockio.ErrShortRead {
				return nil, err
			}
		} else {
			for i := range buf {
				buf[i] = 0
			}
		}

		switch {
		case startBlock == endBlock:
			out = append(out, buf[intraOffset:intraOffset+size]...)
		case k == startBlock:
			out = append(out, buf[intraOffset:]...)
		case k == endBlock:
			remaining := size - len(out)
			out = append(out, buf[:remaining]...)
		default:
			out = append(out, buf...)
		}
	}

	return out, nil
}

// WriteFile resolves path and writes buf (size bytes) starting at offset,
// allocating new data blocks for any block index the file does not yet
// own.
func (d *Driver) WriteFile(path string, buf []byte, size, offset int) (int, error) {
	raw, ino, err := d.resolve(path)
	if err != nil {
		return 0, err
	}
	if offset < 0 || size < 0 || offset+size > MaxFileSize {
		return 0, ErrTooLarge
	}
	if size == 0 {
		return 0, nil
	}

	startBlock, endBlock, intraOffset := blockRange(offset, size)
	allocator := d.blockAlloc()

	for k := startBlock; k <= endBlock; k++ {
		if raw.Direct[k] == 0 {
			blockNum, err := allocator.AllocateBlock()
			if err != nil {
				return 0, err
			}
			raw.Direct[k] = blockNum
			raw.Size += BlockSize
			raw.Stat.Size = raw.Size
		}
	}

	block := make([]byte, BlockSize)
	written := 0

	for k := startBlock; k <= endBlock; k++ {
		if err := d.dev.ReadBlock(raw.Direct[k], block); err != nil && err != blockio.ErrShortRead {
			return written, err
		}

		var src []byte
		var at int
		switch {
		case startBlock == endBlock:
			src, at = buf, intraOffset
		case k == startBlock:
			src, at = buf[:BlockSize-intraOffset], intraOffset
		case k == endBlock:
			src, at = buf[written:size], 0
		default:
			src, at = buf[written:written+BlockSize], 0
		}
		copy(block[at:], src)
		written += len(src)

		if err := d.dev.WriteBlock(raw.Direct[k], block); err != nil {
			return written, err
		}
	}

	now := time.Now().Unix()
	raw.Stat.AccessTime = now
	raw.Stat.ModTime = now
	if err := d.table.Write(ino, &raw); err != nil {
		return written, err
	}

	return written, nil
}

// Stat summarizes the mounted image's free inode and data-block counts.
func (d *Driver) Stat() (FSStat, error) {
	inodeBitmap := make([]byte, d.sb.BlockSize)
	if err := d.dev.ReadBlock(d.sb.InodeBitmapBlock, inodeBitmap); err != nil && err != blockio.ErrShortRead {
		return FSStat{}, err
	}
	dataBitmap := make([]byte, d.sb.BlockSize)
	if err := d.dev.ReadBlock(d.sb.DataBitmapBlock, dataBitmap); err != nil && err != blockio.ErrShortRead {
		return FSStat{}, err
	}

	stat := FSStat{TotalInodes: d.sb.IMax, TotalBlocks: d.sb.DMax}
	for i := uint32(0); i < d.sb.IMax; i++ {
		if !bitmap.Get(inodeBitmap, int(i)) {
			stat.FreeInodes++
		}
	}
	for i := uint32(0); i < d.sb.DMax; i++ {
		if !bitmap.Get(dataBitmap, int(i)) {
			stat.FreeBlocks++
		}
	}
	return stat, nil
}

// Additional FUSE-adjacent operations the host may invoke. The source
// these are grounded on (rufs_release, rufs_releasedir, rufs_flush,
// rufs_utimens, rufs_truncate) does nothing but return success for all of
// them.

// Release accepts and succeeds without side effect.
func (d *Driver) Release(uint32) error { return nil }

// ReleaseDir accepts and succeeds without side effect.
func (d *Driver) ReleaseDir(uint32) error { return nil }

// Flush accepts and succeeds without side effect.
func (d *Driver) Flush(uint32) error { return nil }

// Utimens accepts and succeeds without side effect.
func (d *Driver) Utimens(string, time.Time, time.Time) error { return nil }

// Truncate accepts and succeeds without side effect; removal and
// truncation are not implemented by this core.
func (d *Driver) Truncate(string, int64) error { return nil }

// Unlink accepts and succeeds without side effect.
func (d *Driver) Unlink(string) error { return nil }

// Rmdir accepts and succeeds without side effect.
func (d *Driver) Rmdir(string) error { return nil }
