package content

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goparity/goparity/pkg/block"
	"github.com/goparity/goparity/pkg/hashalgo"
)

func TestFileStore_LoadMissingFileReturnsEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "content.json"))

	doc, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.SchemaVersion != schemaVersion {
		t.Errorf("Load() on missing file SchemaVersion = %d, want %d", doc.SchemaVersion, schemaVersion)
	}
	if len(doc.Disks) != 0 {
		t.Errorf("Load() on missing file Disks = %v, want empty", doc.Disks)
	}
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "content.json")
	s := NewFileStore(path)

	doc := &Document{
		HashAlgo:     hashalgo.IDBlake2b,
		PrevHashAlgo: hashalgo.IDXXHash,
		Disks: []DiskDoc{
			{
				Name: "disk1",
				Dir:  "/mnt/disk1",
				Files: []FileDoc{
					{Path: "a/b.txt", Size: 100, Inode: 42},
				},
				Blocks: []BlockDoc{
					{Index: 0, State: block.Blk, FileIdx: 0, FilePos: 0, Hash: block.Hash{1, 2, 3}},
				},
			},
		},
		Info: []InfoDoc{
			{Index: 0, Timestamp: 1000, Bad: false, Rehash: true},
		},
	}

	if err := s.Save(context.Background(), doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got.SchemaVersion != schemaVersion {
		t.Errorf("Load() SchemaVersion = %d, want %d", got.SchemaVersion, schemaVersion)
	}
	if len(got.Disks) != 1 || got.Disks[0].Name != "disk1" {
		t.Fatalf("Load() Disks = %+v, want one disk named disk1", got.Disks)
	}
	if len(got.Disks[0].Files) != 1 || got.Disks[0].Files[0].Path != "a/b.txt" {
		t.Errorf("Load() Files = %+v", got.Disks[0].Files)
	}
	if len(got.Info) != 1 || got.Info[0].Timestamp != 1000 || !got.Info[0].Rehash {
		t.Errorf("Load() Info = %+v", got.Info)
	}
}

func TestFileStore_SaveStampsSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "content.json"))

	doc := &Document{}
	if err := s.Save(context.Background(), doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if doc.SchemaVersion != schemaVersion {
		t.Errorf("Save() did not stamp SchemaVersion, got %d want %d", doc.SchemaVersion, schemaVersion)
	}
}

func TestFileStore_ContextCancelled(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "content.json"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Load(ctx); err == nil {
		t.Error("Load() with cancelled context: want error, got nil")
	}
	if err := s.Save(ctx, &Document{}); err == nil {
		t.Error("Save() with cancelled context: want error, got nil")
	}
}

func TestToInfoArray(t *testing.T) {
	doc := &Document{
		Info: []InfoDoc{
			{Index: 0, Timestamp: 10, Bad: true, Rehash: false},
			{Index: 7, Timestamp: 20, Bad: false, Rehash: true},
		},
	}

	arr := ToInfoArray(doc)
	if arr.Len() != 2 {
		t.Fatalf("ToInfoArray() Len() = %d, want 2", arr.Len())
	}
	if !arr.GetBad(0) {
		t.Error("ToInfoArray() entry 0 should be bad")
	}
	if !arr.GetRehash(7) {
		t.Error("ToInfoArray() entry 7 should be pending rehash")
	}
}
