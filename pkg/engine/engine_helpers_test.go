package engine

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/goparity/goparity/pkg/blockinfo"
	"github.com/goparity/goparity/pkg/content"
	"github.com/goparity/goparity/pkg/disk"
	"github.com/goparity/goparity/pkg/paritystore"
)

// testBlockSize is deliberately tiny so fixtures stay readable.
const testBlockSize = 16

// statFile stats a file the way handle.Open does, so tests can populate
// block.File metadata that will satisfy ensureOpen's StatEqual check.
func statFile(t *testing.T, dir, name string) (size uint64, mtimeSec, mtimeNsec int64, inode uint64) {
	t.Helper()
	fi, err := os.Stat(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Stat(%s) error = %v", name, err)
	}
	size = uint64(fi.Size())
	sys, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		t.Fatalf("Stat(%s): Sys() not a *syscall.Stat_t", name)
	}
	return size, sys.Mtim.Sec, sys.Mtim.Nsec, sys.Ino
}

// writeDiskFile creates a regular file containing data under dir/name,
// creating parent directories as needed, and returns its stat fields.
func writeDiskFile(t *testing.T, dir, name string, data []byte) (size uint64, mtimeSec, mtimeNsec int64, inode uint64) {
	t.Helper()
	full := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("MkdirAll error = %v", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}
	return statFile(t, dir, name)
}

// makeDisks creates n empty disks, each backed by its own temp directory.
func makeDisks(t *testing.T, n int) *disk.Map {
	t.Helper()
	disks := make([]*disk.Disk, n)
	for i := range disks {
		dir := t.TempDir()
		disks[i] = disk.New("disk"+string(rune('0'+i)), dir)
	}
	return disk.NewMap(disks...)
}

// makeParity creates level parity stores, all Chsize'd to hold blockCount
// blocks of testBlockSize bytes.
func makeParity(t *testing.T, level int, blockCount uint64) []*paritystore.Store {
	t.Helper()
	dir := t.TempDir()
	stores := make([]*paritystore.Store, level)
	for l := 0; l < level; l++ {
		cfg := paritystore.DefaultConfig(dir)
		cfg.SkipFallocate = true
		s, err := paritystore.Create(cfg, l, testBlockSize)
		if err != nil {
			t.Fatalf("paritystore.Create(level=%d) error = %v", l, err)
		}
		if err := s.Chsize(blockCount); err != nil {
			t.Fatalf("Chsize error = %v", err)
		}
		stores[l] = s
		t.Cleanup(func() { s.Close() })
	}
	return stores
}

// testConfig returns a Config suitable for driving the engine directly
// in tests: small block size, autosave disabled unless overridden.
func testConfig(level int) Config {
	cfg := DefaultConfig()
	cfg.BlockSize = testBlockSize
	cfg.Level = level
	cfg.ForceAutosaveAt = -1
	return cfg
}

// newTestEngine wires disks, parity, an empty info array, and a
// temp-dir file content store into an Engine ready for SyncProcess/HashProcess.
func newTestEngine(t *testing.T, disks *disk.Map, parity []*paritystore.Store, cfg Config) (*Engine, *blockinfo.Array) {
	t.Helper()
	info := blockinfo.NewArray()
	store := content.NewFileStore(filepath.Join(t.TempDir(), "content.json"))
	e := New(cfg, disks, info, parity, store, nil, nil)
	return e, info
}
