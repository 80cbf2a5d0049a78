// Package pathresolve walks an absolute path one component at a time,
// using the directory engine to descend from a starting inode. There is
// no recursion and no symlink following.
package pathresolve

import (
	"errors"
	"strings"

	"github.com/dargueta/rufs/internal/blockio"
	"github.com/dargueta/rufs/internal/dirent"
	"github.com/dargueta/rufs/internal/inode"
)

// ErrNotFound is returned when a path component doesn't exist in its
// parent directory.
var ErrNotFound = errors.New("pathresolve: no such entry")

// Table is the subset of internal/inode's Table this package needs.
type Table interface {
	Read(ino uint32) (inode.RawInode, error)
}

// Resolve walks path component by component starting at startIno, using
// dir_find at each step, and returns the final inode record and its
// number.
func Resolve(dev *blockio.Device, blockSize, direntSize int, table Table, path string, startIno uint32) (inode.RawInode, uint32, error) {
	current, err := table.Read(startIno)
	if err != nil {
		return inode.RawInode{}, 0, err
	}
	currentIno := startIno

	if path == "/" {
		return current, currentIno, nil
	}

	for _, component := range splitComponents(path) {
		entry, err := dirent.Find(dev, blockSize, direntSize, &current, component)
		if err != nil {
			if errors.Is(err, dirent.ErrNotFound) {
				return inode.RawInode{}, 0, ErrNotFound
			}
			return inode.RawInode{}, 0, err
		}

		current, err = table.Read(entry.Inode)
		if err != nil {
			return inode.RawInode{}, 0, err
		}
		currentIno = entry.Inode
	}

	return current, currentIno, nil
}

// splitComponents splits path on '/', skipping leading slashes between
// components and dropping a trailing empty component.
func splitComponents(path string) []string {
	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
