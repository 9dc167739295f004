package handle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goparity/goparity/pkg/block"
)

func TestOpen_ReadsStatFields(t *testing.T) {
	dir := t.TempDir()
	content := []byte("hello, parity")
	if err := os.WriteFile(filepath.Join(dir, "data.bin"), content, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	h, size, _, _, inode, err := Open(dir, "data.bin")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer h.Close()

	if size != uint64(len(content)) {
		t.Errorf("Open() size = %d, want %d", size, len(content))
	}
	if inode == 0 {
		t.Error("Open() inode = 0, want nonzero")
	}
	if h.Path() != filepath.Join(dir, "data.bin") {
		t.Errorf("Path() = %q, want %q", h.Path(), filepath.Join(dir, "data.bin"))
	}
}

func TestOpen_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, _, _, _, _, err := Open(dir, "nope.bin")
	if err == nil {
		t.Fatal("Open() on missing file: want error, got nil")
	}
}

func TestReadBlockAt_ShortReadZeroPads(t *testing.T) {
	dir := t.TempDir()
	content := []byte("abc")
	if err := os.WriteFile(filepath.Join(dir, "short.bin"), content, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	h, _, _, _, _, err := Open(dir, "short.bin")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer h.Close()

	buf := make([]byte, 8)
	if err := h.ReadBlockAt(buf, 0); err != nil {
		t.Fatalf("ReadBlockAt() error = %v", err)
	}

	want := []byte{'a', 'b', 'c', 0, 0, 0, 0, 0}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("ReadBlockAt() = %v, want %v", buf, want)
		}
	}
}

func TestReadBlockAt_FullBlock(t *testing.T) {
	dir := t.TempDir()
	content := make([]byte, 64)
	for i := range content {
		content[i] = byte(i)
	}
	if err := os.WriteFile(filepath.Join(dir, "full.bin"), content, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	h, _, _, _, _, err := Open(dir, "full.bin")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer h.Close()

	buf := make([]byte, 32)
	if err := h.ReadBlockAt(buf, 32); err != nil {
		t.Fatalf("ReadBlockAt() error = %v", err)
	}
	for i := range buf {
		if buf[i] != content[32+i] {
			t.Fatalf("ReadBlockAt(off=32)[%d] = %d, want %d", i, buf[i], content[32+i])
		}
	}
}

func TestStatMatches(t *testing.T) {
	f := &block.File{Size: 10, MtimeSec: 1, MtimeNsec: 2, Inode: 3}

	if !StatMatches(f, 10, 1, 2, 3) {
		t.Error("StatMatches() = false, want true for identical fields")
	}
	if StatMatches(f, 11, 1, 2, 3) {
		t.Error("StatMatches() = true, want false when size differs")
	}
}

func TestClose_NilHandleIsSafe(t *testing.T) {
	var h *Handle
	if err := h.Close(); err != nil {
		t.Errorf("Close() on nil handle = %v, want nil", err)
	}
}
