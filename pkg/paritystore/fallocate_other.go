//go:build !linux

package paritystore

import "os"

// fallocate falls back to a plain truncate on platforms without a
// native pre-allocation syscall wired in.
func fallocate(f *os.File, size int64) error {
	return f.Truncate(size)
}
