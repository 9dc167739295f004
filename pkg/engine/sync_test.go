package engine

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/goparity/goparity/pkg/block"
	"github.com/goparity/goparity/pkg/raidcodec"
)

// flipByteInPlace inverts every bit of the first byte of path without
// changing the file's length or touching any other byte.
func flipByteInPlace(t *testing.T, path string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile(%s) error = %v", path, err)
	}
	defer f.Close()
	var b [1]byte
	if _, err := f.ReadAt(b[:], 0); err != nil {
		t.Fatalf("ReadAt error = %v", err)
	}
	b[0] ^= 0xFF
	if _, err := f.WriteAt(b[:], 0); err != nil {
		t.Fatalf("WriteAt error = %v", err)
	}
}

// restoreMtime resets path's mtime to the given seconds/nanoseconds,
// undoing the bump caused by flipByteInPlace's write.
func restoreMtime(t *testing.T, path string, sec, nsec int64) {
	t.Helper()
	mt := time.Unix(sec, nsec)
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatalf("Chtimes error = %v", err)
	}
}

// Scenario #1 (SPEC_FULL.md §8): 2 disks / 1 parity / 3 blocks, disk0's
// block at index 1 is CHG, disk1 has no file there. After sync, disk0's
// block promotes to BLK, its hash is stamped, and parity reflects it.
func TestSyncProcess_ChangedBlockPromotesAndWritesParity(t *testing.T) {
	dMap := makeDisks(t, 2)
	parity := makeParity(t, 1, 3)
	cfg := testConfig(1)
	e, info := newTestEngine(t, dMap, parity, cfg)

	data := []byte("0123456789abcdef")
	size, mSec, mNsec, inode := writeDiskFile(t, dMap.Disks[0].Dir, "a.bin", data)
	f := &block.File{Path: "a.bin", Size: size, MtimeSec: mSec, MtimeNsec: mNsec, Inode: inode}
	dMap.Disks[0].Set(1, &block.Block{State: block.Chg, File: f, FilePos: 0})

	result, err := e.SyncProcess(context.Background(), 0, 3)
	if err != nil {
		t.Fatalf("SyncProcess() error = %v", err)
	}
	if result.Committed != 1 {
		t.Errorf("Committed = %d, want 1", result.Committed)
	}
	if result.Errors != 0 || result.SilentErrors != 0 {
		t.Errorf("unexpected errors: %+v", result)
	}

	b := dMap.Disks[0].Get(1)
	if b.State != block.Blk {
		t.Errorf("block state = %v, want Blk", b.State)
	}
	want := block.Hash(cfg.HashAlgo.Sum(cfg.HashSeed, data))
	if b.Hash != want {
		t.Errorf("block hash = %x, want %x", b.Hash, want)
	}
	if info.GetBad(1) {
		t.Error("info[1].Bad = true, want false")
	}

	gotParity := make([]byte, testBlockSize)
	if err := parity[0].ReadBlock(1, gotParity); err != nil {
		t.Fatalf("ReadBlock(parity, 1) error = %v", err)
	}
	wantParity := [][]byte{data, make([]byte, testBlockSize)}
	buffers := append(wantParity, make([]byte, testBlockSize))
	if err := raidcodec.Gen(2, 1, buffers); err != nil {
		t.Fatalf("raidcodec.Gen() error = %v", err)
	}
	if !bytes.Equal(gotParity, buffers[2]) {
		t.Errorf("parity block = %x, want %x", gotParity, buffers[2])
	}
}

// Scenario #4 (SPEC_FULL.md §8): 4 disks / 2 parity, disk0's CHG block
// points at a file that no longer exists (ENOENT). The index is skipped:
// a warning/error is recorded, parity stays untouched, and the block
// stays CHG rather than promoting.
func TestSyncProcess_MissingFileSkipsIndexAndLeavesCHG(t *testing.T) {
	dMap := makeDisks(t, 4)
	parity := makeParity(t, 2, 1)
	cfg := testConfig(2)
	e, info := newTestEngine(t, dMap, parity, cfg)

	f := &block.File{Path: "gone.bin", Size: testBlockSize, MtimeSec: 1, MtimeNsec: 0, Inode: 99}
	dMap.Disks[0].Set(0, &block.Block{State: block.Chg, File: f, FilePos: 0})

	before := make([]byte, testBlockSize)
	_ = parity[0].ReadBlock(0, before)

	result, err := e.SyncProcess(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("SyncProcess() error = %v", err)
	}
	if result.Errors != 1 {
		t.Errorf("Errors = %d, want 1", result.Errors)
	}
	if result.Committed != 1 {
		t.Errorf("Committed = %d, want 1 (index was enabled, even though it bailed)", result.Committed)
	}

	b := dMap.Disks[0].Get(0)
	if b.State != block.Chg {
		t.Errorf("block state = %v, want Chg (unchanged)", b.State)
	}
	if !info.GetBad(0) {
		t.Error("info[0].Bad = false, want true after an error at this index")
	}

	after := make([]byte, testBlockSize)
	if err := parity[0].ReadBlock(0, after); err != nil {
		t.Fatalf("ReadBlock(parity, 0) error = %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("parity block changed despite the ENOENT error")
	}
}

// Scenario #3 (SPEC_FULL.md §8 and §9): 3 disks / 1 parity, all BLK at an
// index, then one disk's on-disk bytes are corrupted without touching
// in-memory block state (a silent bit-flip). Sync must detect the
// mismatch, reconstruct it via RAID to confirm it's recoverable, but
// must NOT write the recovered value back to parity, and info.bad must
// persist even though the block was "fixed".
func TestSyncProcess_SilentErrorRecoveredButParityNotRewritten(t *testing.T) {
	dMap := makeDisks(t, 3)
	parity := makeParity(t, 1, 1)
	cfg := testConfig(1)
	e, info := newTestEngine(t, dMap, parity, cfg)

	plain := []byte("0123456789abcdef")
	mirror := []byte("fedcba9876543210")
	size0, s0, n0, i0 := writeDiskFile(t, dMap.Disks[0].Dir, "a.bin", plain)
	size1, s1, n1, i1 := writeDiskFile(t, dMap.Disks[1].Dir, "b.bin", mirror)

	f0 := &block.File{Path: "a.bin", Size: size0, MtimeSec: s0, MtimeNsec: n0, Inode: i0}
	f1 := &block.File{Path: "b.bin", Size: size1, MtimeSec: s1, MtimeNsec: n1, Inode: i1}
	dMap.Disks[0].Set(0, &block.Block{State: block.Chg, File: f0, FilePos: 0})
	dMap.Disks[1].Set(0, &block.Block{State: block.Chg, File: f1, FilePos: 0})

	// First pass establishes BLK state, real hashes, and real parity.
	if _, err := e.SyncProcess(context.Background(), 0, 1); err != nil {
		t.Fatalf("first SyncProcess() error = %v", err)
	}
	if info.GetBad(0) {
		t.Fatal("precondition failed: index already bad after the first clean sync")
	}
	origParity := make([]byte, testBlockSize)
	if err := parity[0].ReadBlock(0, origParity); err != nil {
		t.Fatalf("ReadBlock(parity, 0) error = %v", err)
	}

	// Invert the first byte of disk1's file in place (same inode, same size) and
	// restore its original mtime, simulating silent bit rot that the
	// filesystem's own metadata gives no sign of.
	path1 := dMap.Disks[1].Dir + "/b.bin"
	flipByteInPlace(t, path1)
	restoreMtime(t, path1, s1, n1)

	// Re-run with a fresh engine/handle state but the same disks/info,
	// since the first SyncProcess closed its handles.
	e2 := New(cfg, dMap, info, parity, e.store, nil, nil)

	result, err := e2.SyncProcess(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("second SyncProcess() error = %v", err)
	}
	if result.SilentErrors != 1 {
		t.Errorf("SilentErrors = %d, want 1", result.SilentErrors)
	}
	if result.FixedErrors != 1 {
		t.Errorf("FixedErrors = %d, want 1 (RAID reconstruction should match the stored hash)", result.FixedErrors)
	}

	gotParity := make([]byte, testBlockSize)
	if err := parity[0].ReadBlock(0, gotParity); err != nil {
		t.Fatalf("ReadBlock(parity, 0) error = %v", err)
	}
	if !bytes.Equal(gotParity, origParity) {
		t.Error("parity was rewritten after recovery; the spec forbids correcting data from a sync pass")
	}
	if !info.GetBad(0) {
		t.Error("info[0].Bad = false, want true: the fix must not erase the bad flag")
	}
}
