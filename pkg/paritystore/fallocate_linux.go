//go:build linux

package paritystore

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocate pre-allocates size bytes of physical storage for f, growing
// or shrinking it to exactly size bytes.
func fallocate(f *os.File, size int64) error {
	fi, err := f.Stat()
	if err != nil {
		return err
	}

	if size <= fi.Size() {
		return f.Truncate(size)
	}

	if err := unix.Fallocate(int(f.Fd()), 0, 0, size); err != nil {
		// Some filesystems (tmpfs, overlay variants) don't support
		// fallocate; fall back to a plain truncate.
		return f.Truncate(size)
	}
	return nil
}
