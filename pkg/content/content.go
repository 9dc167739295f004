// Package content implements the content-file store: the concrete
// load/persist layer for the block/disk/file/info model that the sync
// engine checkpoints through state_write.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goparity/goparity/pkg/block"
	"github.com/goparity/goparity/pkg/blockinfo"
	"github.com/goparity/goparity/pkg/hashalgo"
)

// FileDoc is the on-disk representation of one file entity.
type FileDoc struct {
	Path      string `json:"path"`
	Size      uint64 `json:"size"`
	MtimeSec  int64  `json:"mtime_sec"`
	MtimeNsec int64  `json:"mtime_nsec"`
	Inode     uint64 `json:"inode"`
	IsCopy    bool   `json:"is_copy"`
}

// BlockDoc is the on-disk representation of one block cell.
type BlockDoc struct {
	Index   uint32      `json:"index"`
	State   block.State `json:"state"`
	FileIdx int         `json:"file_idx"` // index into the disk's Files, -1 if none
	FilePos uint32      `json:"file_pos"`
	Hash    block.Hash  `json:"hash"`
}

// DiskDoc is the on-disk representation of one disk.
type DiskDoc struct {
	Name   string     `json:"name"`
	Dir    string     `json:"dir"`
	Files  []FileDoc  `json:"files"`
	Blocks []BlockDoc `json:"blocks"`
}

// InfoDoc is the on-disk representation of one info entry.
type InfoDoc struct {
	Index     uint32 `json:"index"`
	Timestamp int64  `json:"timestamp"`
	Bad       bool   `json:"bad"`
	Rehash    bool   `json:"rehash"`
}

// Document is the full persisted content-file shape: schema version,
// hash-algorithm configuration, disks, and the info array.
type Document struct {
	SchemaVersion  int         `json:"schema_version"`
	HashAlgo       hashalgo.ID `json:"hash_algo"`
	HashSeed       [hashalgo.SeedSize]byte `json:"hash_seed"`
	PrevHashAlgo   hashalgo.ID `json:"prev_hash_algo"`
	PrevHashSeed   [hashalgo.SeedSize]byte `json:"prev_hash_seed"`
	Disks          []DiskDoc   `json:"disks"`
	Info           []InfoDoc   `json:"info"`
}

const schemaVersion = 1

// Store loads and persists the content-file Document.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

// FileStore is a Store backed by a single JSON file on the local
// filesystem, written atomically via a temp file plus rename.
type FileStore struct {
	Path string
}

// NewFileStore creates a FileStore rooted at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads and decodes the content file. A missing file is not an
// error: it returns a fresh, empty Document, matching first-run
// behaviour.
func (s *FileStore) Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return &Document{SchemaVersion: schemaVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", s.Path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("content: decode %s: %w", s.Path, err)
	}
	return &doc, nil
}

// Save writes doc to the content file atomically: encode to a sibling
// temp file, fsync, then rename over the final path.
func (s *FileStore) Save(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if doc.SchemaVersion == 0 {
		doc.SchemaVersion = schemaVersion
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("content: encode: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("content: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".content-*.tmp")
	if err != nil {
		return fmt.Errorf("content: create temp: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("content: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("content: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("content: close temp: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("content: rename into place: %w", err)
	}
	return nil
}

// ToInfoArray converts a Document's info entries into a blockinfo.Array.
func ToInfoArray(doc *Document) *blockinfo.Array {
	arr := blockinfo.NewArray()
	for _, e := range doc.Info {
		arr.Set(e.Index, blockinfo.Make(e.Timestamp, e.Bad, e.Rehash))
	}
	return arr
}
