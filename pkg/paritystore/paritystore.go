// Package paritystore implements the parity-file abstraction: one Store
// per parity level, backed by a plain file on the local filesystem, with
// block-granular read/write, sync, and size-changing operations.
package paritystore

import (
	"fmt"
	"os"
)

// Config configures a parity Store.
type Config struct {
	// Dir is the directory holding parity files.
	Dir string
	// FileMode is the permission used when creating a new parity file.
	FileMode os.FileMode
	// SkipFallocate disables physical pre-allocation on Chsize.
	SkipFallocate bool
}

// DefaultConfig returns sensible defaults for Config.
func DefaultConfig(dir string) Config {
	return Config{Dir: dir, FileMode: 0o644}
}

// Store is one parity level's backing file.
type Store struct {
	cfg       Config
	level     int
	blockSize int
	path      string
	file      *os.File
}

// Create opens (creating if necessary) the parity file for level in
// cfg.Dir, named "parity.<level>".
func Create(cfg Config, level, blockSize int) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("paritystore: mkdir %s: %w", cfg.Dir, err)
	}

	path := levelPath(cfg.Dir, level)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, cfg.FileMode)
	if err != nil {
		return nil, fmt.Errorf("paritystore: open %s: %w", path, err)
	}

	return &Store{cfg: cfg, level: level, blockSize: blockSize, path: path, file: f}, nil
}

func levelPath(dir string, level int) string {
	return fmt.Sprintf("%s/parity.%d", dir, level)
}

// AllocatedSize returns the current size of the parity file, in blocks.
func (s *Store) AllocatedSize() (uint64, error) {
	fi, err := s.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("paritystore: stat %s: %w", s.path, err)
	}
	return uint64(fi.Size()) / uint64(s.blockSize), nil
}

// UsedSize returns the number of blocks the caller has marked in use,
// here simply the allocated size since this store does not track sparse
// holes separately.
func (s *Store) UsedSize() (uint64, error) {
	return s.AllocatedSize()
}

// Overflow reports whether size blocks would overflow the addressable
// range of this store's block size; parity files are plain files so this
// is always false in practice, but the hook exists for callers that
// impose an external cap.
func (s *Store) Overflow(size uint64) bool {
	return false
}

// Chsize resizes the parity file to hold exactly blocks blocks, either
// truncating or extending, pre-allocating the new space unless
// SkipFallocate is set.
func (s *Store) Chsize(blocks uint64) error {
	size := int64(blocks) * int64(s.blockSize)
	if !s.cfg.SkipFallocate {
		if err := fallocate(s.file, size); err != nil {
			return fmt.Errorf("paritystore: fallocate %s: %w", s.path, err)
		}
		return nil
	}
	if err := s.file.Truncate(size); err != nil {
		return fmt.Errorf("paritystore: truncate %s: %w", s.path, err)
	}
	return nil
}

// ReadBlock reads the block at index into buf, which must be exactly
// blockSize bytes.
func (s *Store) ReadBlock(index uint64, buf []byte) error {
	off := int64(index) * int64(s.blockSize)
	_, err := s.file.ReadAt(buf, off)
	if err != nil {
		return fmt.Errorf("paritystore: read %s at block %d: %w", s.path, index, err)
	}
	return nil
}

// WriteBlock writes buf, which must be exactly blockSize bytes, to the
// block at index.
func (s *Store) WriteBlock(index uint64, buf []byte) error {
	off := int64(index) * int64(s.blockSize)
	_, err := s.file.WriteAt(buf, off)
	if err != nil {
		return fmt.Errorf("paritystore: write %s at block %d: %w", s.path, index, err)
	}
	return nil
}

// Sync fsyncs the parity file to durable storage.
func (s *Store) Sync() error {
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("paritystore: sync %s: %w", s.path, err)
	}
	return nil
}

// Close closes the parity file.
func (s *Store) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
