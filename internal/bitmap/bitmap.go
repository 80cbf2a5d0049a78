// Package bitmap packs and unpacks variable-width bitmaps into byte slices
// addressable by bit index. It performs no I/O: callers read a block into
// a byte slice, operate on it here, and write it back themselves.
package bitmap

import bitmap "github.com/boljen/go-bitmap"

// Get reports whether bit i of b is set.
func Get(b []byte, i int) bool {
	return bitmap.Bitmap(b).Get(i)
}

// Set marks bit i of b as used.
func Set(b []byte, i int) {
	bitmap.Bitmap(b).Set(i, true)
}

// Clear marks bit i of b as free.
func Clear(b []byte, i int) {
	bitmap.Bitmap(b).Set(i, false)
}

// SizeInBytes returns the number of bytes needed to hold numBits bits.
func SizeInBytes(numBits int) int {
	return (numBits + 7) / 8
}

// FindFirstClear scans bits [0, numBits) in ascending order and returns the
// index of the first clear one. It returns -1 if every bit is set.
func FindFirstClear(b []byte, numBits int) int {
	bm := bitmap.Bitmap(b)
	for i := 0; i < numBits; i++ {
		if !bm.Get(i) {
			return i
		}
	}
	return -1
}
